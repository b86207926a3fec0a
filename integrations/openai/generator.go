package openai

import (
	"context"
	"encoding/json"
	"fmt"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"
)

// Generator drafts post copy from a short topic prompt. It implements
// content.IGenerator.
type Generator struct {
	client openaigo.Client
	model  string
}

func NewGenerator(apiKey, model string) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("draft generation requires an API key")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Generator{
		client: openaigo.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// GenerateDraft asks the model for a title and body suited for social feeds.
func (g *Generator) GenerateDraft(ctx context.Context, topic string) (string, string, error) {
	prompt := fmt.Sprintf(`Write a social media post about the following topic.
Topic: %q

Keep the title under 80 characters and the body under 1200 characters.
Plain text only, no hashtag spam (at most three hashtags at the end).
Return result in the specified JSON format.`, topic)

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"body":  map[string]any{"type": "string"},
		},
		"required":             []string{"title", "body"},
		"additionalProperties": false,
	}

	params := openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(g.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.UserMessage(prompt),
		},
		ResponseFormat: openaigo.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openaigo.ResponseFormatJSONSchemaParam{
				JSONSchema: openaigo.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "post_draft",
					Schema: any(schema),
					Strict: openaigo.Bool(true),
				},
			},
		},
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", "", err
	}
	if len(completion.Choices) == 0 {
		return "", "", fmt.Errorf("no response from openai")
	}

	var draft struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &draft); err != nil {
		return "", "", fmt.Errorf("parse draft response: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"model":         g.model,
		"input_tokens":  completion.Usage.PromptTokens,
		"output_tokens": completion.Usage.CompletionTokens,
	}).Debug("[OPENAI] Draft generated")

	return draft.Title, draft.Body, nil
}

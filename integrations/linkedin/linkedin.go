package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AzielCF/az-post/domains/credential"
	"github.com/AzielCF/az-post/domains/post"
	"github.com/AzielCF/az-post/domains/publisher"
	"github.com/sirupsen/logrus"
)

const httpTimeout = 15 * time.Second

// Publisher posts UGC shares through the LinkedIn REST API. The credential's
// AccountRef carries the author URN (urn:li:person:... or urn:li:organization:...).
type Publisher struct {
	baseURL    string
	httpClient *http.Client
}

func NewPublisher(baseURL string) *Publisher {
	return &Publisher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: httpTimeout},
	}
}

func (p *Publisher) Platform() post.Platform {
	return post.PlatformLinkedIn
}

func (p *Publisher) Publish(ctx context.Context, c publisher.Content, cred credential.Credential) (string, error) {
	commentary := c.Body
	if c.Title != "" {
		commentary = c.Title + "\n\n" + c.Body
	}

	payload := map[string]any{
		"author":         cred.AccountRef,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]any{"text": commentary},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal share payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("linkedin request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("linkedin API status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	// The share URN arrives in the X-RestLi-Id header; newer API versions also
	// echo it in the body.
	remoteID := resp.Header.Get("X-Restli-Id")
	if remoteID == "" {
		var parsed struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(respBody, &parsed); err == nil {
			remoteID = parsed.ID
		}
	}
	if remoteID == "" {
		return "", fmt.Errorf("linkedin API returned no share id (status %d)", resp.StatusCode)
	}

	logrus.Debugf("[LINKEDIN] Published share %s for author %s", remoteID, cred.AccountRef)
	return remoteID, nil
}

package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AzielCF/az-post/domains/credential"
	"github.com/AzielCF/az-post/domains/post"
	"github.com/AzielCF/az-post/domains/publisher"
	"github.com/sirupsen/logrus"
)

const httpTimeout = 15 * time.Second

// Publisher posts to a Facebook Page feed through the Graph API. The
// credential's AccountRef is the page ID and the token must be a page token.
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
	return post.PlatformFacebook
}

func (p *Publisher) Publish(ctx context.Context, c publisher.Content, cred credential.Credential) (string, error) {
	message := c.Body
	if c.Title != "" {
		message = c.Title + "\n\n" + c.Body
	}

	form := url.Values{}
	form.Set("message", message)
	form.Set("access_token", cred.AccessToken)
	if c.MediaURL != "" {
		form.Set("link", c.MediaURL)
	}

	endpoint := fmt.Sprintf("%s/%s/feed", p.baseURL, cred.AccountRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("facebook request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("facebook API status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.ID == "" {
		return "", fmt.Errorf("facebook API returned no post id (status %d)", resp.StatusCode)
	}

	logrus.Debugf("[FACEBOOK] Published post %s on page %s", parsed.ID, cred.AccountRef)
	return parsed.ID, nil
}

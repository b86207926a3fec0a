package instagram

import (
	"context"
	"encoding/json"
	"errors"
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

// ErrMissingMedia is returned before any network call when the content has no
// media URL. Instagram cannot publish text-only posts.
var ErrMissingMedia = errors.New("instagram requires a media url")

// Publisher posts images through the Instagram Graph API two-step flow:
// create a media container, then publish it. The credential's AccountRef is
// the Instagram business account ID.
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
	return post.PlatformInstagram
}

func (p *Publisher) Publish(ctx context.Context, c publisher.Content, cred credential.Credential) (string, error) {
	if c.MediaURL == "" {
		return "", ErrMissingMedia
	}

	caption := c.Body
	if c.Title != "" {
		caption = c.Title + "\n\n" + c.Body
	}

	containerForm := url.Values{}
	containerForm.Set("image_url", c.MediaURL)
	containerForm.Set("caption", caption)
	containerForm.Set("access_token", cred.AccessToken)

	containerID, err := p.graphCall(ctx, fmt.Sprintf("%s/%s/media", p.baseURL, cred.AccountRef), containerForm)
	if err != nil {
		return "", fmt.Errorf("create media container: %w", err)
	}

	publishForm := url.Values{}
	publishForm.Set("creation_id", containerID)
	publishForm.Set("access_token", cred.AccessToken)

	mediaID, err := p.graphCall(ctx, fmt.Sprintf("%s/%s/media_publish", p.baseURL, cred.AccountRef), publishForm)
	if err != nil {
		return "", fmt.Errorf("publish media container %s: %w", containerID, err)
	}

	logrus.Debugf("[INSTAGRAM] Published media %s on account %s", mediaID, cred.AccountRef)
	return mediaID, nil
}

func (p *Publisher) graphCall(ctx context.Context, endpoint string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("instagram request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("instagram API status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.ID == "" {
		return "", fmt.Errorf("instagram API returned no id (status %d)", resp.StatusCode)
	}
	return parsed.ID, nil
}

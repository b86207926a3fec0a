package linkpreview

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const httpTimeout = 10 * time.Second

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// FirstURL extracts the first http(s) URL found in free text, or "".
func FirstURL(text string) string {
	return urlPattern.FindString(text)
}

// Client scrapes Open Graph metadata from public pages. It backs the media
// fallback for platforms that refuse text-only posts.
type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{httpClient: &http.Client{Timeout: httpTimeout}}
}

// ImageURL fetches the page and returns its og:image (falling back to
// twitter:image). An empty result with nil error means the page has none.
func (c *Client) ImageURL(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "az-post/1.0 (+link preview)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	for _, selector := range []string{
		`meta[property="og:image"]`,
		`meta[name="og:image"]`,
		`meta[name="twitter:image"]`,
	} {
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			if img := strings.TrimSpace(content); img != "" {
				logrus.Debugf("[LINKPREVIEW] Found image %s on %s", img, pageURL)
				return img, nil
			}
		}
	}

	return "", nil
}

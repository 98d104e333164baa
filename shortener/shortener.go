// Package shortener wraps the external link-shortener service used for
// shareable event and bot URLs.
package shortener

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	origin string
	client *http.Client
}

// NewClient builds a shortener client for the given service origin. An empty
// origin yields a disabled client whose Shorten always errors; callers treat
// shortening as best-effort.
func NewClient(origin string) *Client {
	return &Client{
		origin: origin,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type shortenRequest struct {
	URL string `json:"url"`
}

type shortenResponse struct {
	ShortURL string `json:"shortUrl"`
}

// Shorten asks the service for a short link to target.
func (c *Client) Shorten(ctx context.Context, target string) (string, error) {
	if c.origin == "" {
		return "", fmt.Errorf("shortener is not configured")
	}

	body, err := json.Marshal(shortenRequest{URL: target})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.origin+"/api/shorten", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("shorten %q: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shortener responded with status %d", resp.StatusCode)
	}

	var parsed shortenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode shortener response: %w", err)
	}
	if parsed.ShortURL == "" {
		return "", fmt.Errorf("shortener returned an empty url")
	}
	return parsed.ShortURL, nil
}

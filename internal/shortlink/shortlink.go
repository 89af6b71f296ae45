// Package shortlink wraps the monetized redirect providers most auto-filter
// deployments use (publicearn-compatible API surface).
package shortlink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"
)

type Client struct {
	HTTPClient *http.Client
}

func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type shortenResponse struct {
	Status       string `json:"status"`
	ShortenedURL string `json:"shortenedUrl"`
	Message      string `json:"message"`
}

// Shorten exchanges a long URL for a monetized short one. It fails closed:
// any provider problem is an error, the long URL is never passed through.
func (c *Client) Shorten(ctx context.Context, host, apiKey, longURL string) (string, error) {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	endpoint := fmt.Sprintf("%s/api?api=%s&url=%s", host, url.QueryEscape(apiKey), url.QueryEscape(longURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", oops.With("provider", host).Wrapf(err, "failed to create shorten request")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", oops.With("provider", host).Wrapf(err, "shortlink provider unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", oops.With("provider", host).Wrapf(err, "failed to read shorten response")
	}
	if resp.StatusCode >= 400 {
		return "", oops.With("provider", host).With("status", resp.StatusCode).
			Errorf("shortlink api error: %s", string(body))
	}

	var parsed shortenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", oops.With("provider", host).Wrapf(err, "invalid shorten response")
	}
	if !strings.EqualFold(parsed.Status, "success") || parsed.ShortenedURL == "" {
		return "", oops.With("provider", host).With("message", parsed.Message).
			Errorf("shortlink provider rejected url")
	}
	return parsed.ShortenedURL, nil
}

// Package providers reads the backend's provider status. The client
// only gates whether the prompt is enabled; provider management itself
// happens server-side.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the backend's ping and provider endpoints
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Ping reports whether the backend is reachable and answering
func (c *Client) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/ping", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend ping returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read ping response: %w", err)
	}
	if strings.TrimSpace(string(body)) != "pong" {
		return fmt.Errorf("unexpected ping response: %q", string(body))
	}
	return nil
}

// ActiveProvider returns the name of the LLM provider the backend is
// currently configured with
func (c *Client) ActiveProvider(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/providers/active", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	var activeResp struct {
		Provider string `json:"provider"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&activeResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return activeResp.Provider, nil
}

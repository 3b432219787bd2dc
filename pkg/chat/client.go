package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ChatRequest is the body sent to both chat endpoints. ThreadID is
// empty for a brand-new conversation.
type ChatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

// ChatResponse is the non-streaming fallback response
type ChatResponse struct {
	Content string `json:"content"`
}

// Client talks to a chat backend over plain request/response
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, 60*time.Second)
}

func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the backend base URL this client targets
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SendMessage sends one user message through the non-streaming
// endpoint and returns the assistant's complete reply
func (c *Client) SendMessage(ctx context.Context, req ChatRequest) (Message, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return Message{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Message{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Message{}, statusError(resp)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return Message{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return NewAssistantMessage(chatResp.Content), nil
}

// statusError builds an error from a non-success response, preferring
// the backend's JSON error detail over the raw body
func statusError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with status %d (failed to read error response: %w)", resp.StatusCode, err)
	}

	var errorResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errorResp) == nil && errorResp.Error != "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, errorResp.Error)
	}

	return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
}

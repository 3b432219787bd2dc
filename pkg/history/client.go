// Package history wraps the conversation persistence API exposed by
// the chat backend. It supplies the initial transcript when resuming a
// conversation; incremental updates during an active stream are the
// chat package's concern.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/loomlabs/loom/pkg/chat"
)

// Conversation is one entry in the backend's conversation list
type Conversation struct {
	ThreadID      string `json:"thread_id"`
	LastMessageTS string `json:"last_message_ts"`
	Preview       string `json:"preview"`
}

// storedMessage is the backend's persisted message shape. Type carries
// the LangGraph message class: human, ai, or tool.
type storedMessage struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	ToolName string `json:"name,omitempty"`
}

// Client talks to the /history endpoints
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, 30*time.Second)
}

func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// List returns all conversations known to the backend, most recent
// first
func (c *Client) List(ctx context.Context) ([]Conversation, error) {
	url := fmt.Sprintf("%s/history", c.baseURL)
	var listResp struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := c.getJSON(ctx, url, &listResp); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return listResp.Conversations, nil
}

// Messages fetches the full transcript for one conversation thread
func (c *Client) Messages(ctx context.Context, threadID string) (chat.Transcript, error) {
	url := fmt.Sprintf("%s/history/%s", c.baseURL, threadID)
	var detailResp struct {
		Messages []storedMessage `json:"messages"`
	}
	if err := c.getJSON(ctx, url, &detailResp); err != nil {
		return chat.Transcript{}, fmt.Errorf("failed to fetch conversation %s: %w", threadID, err)
	}

	transcript := chat.NewTranscript(threadID)
	for _, stored := range detailResp.Messages {
		transcript = chat.Append(transcript, toMessage(stored))
	}
	return transcript, nil
}

// Delete removes one conversation thread from the backend
func (c *Client) Delete(ctx context.Context, threadID string) error {
	url := fmt.Sprintf("%s/history/%s", c.baseURL, threadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// toMessage maps a persisted LangGraph message onto a transcript
// message. Unknown types land as assistant text rather than being
// dropped, mirroring the stream decoder's lenient default.
func toMessage(stored storedMessage) chat.Message {
	switch stored.Type {
	case "human":
		return chat.NewUserMessage(stored.Content)
	case "tool":
		return chat.NewToolResultMessage(stored.ToolName, stored.Content)
	default:
		return chat.NewAssistantMessage(stored.Content)
	}
}

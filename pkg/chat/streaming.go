package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/loomlabs/loom/pkg/logger"
	"github.com/loomlabs/loom/pkg/stream"
)

// readBufferSize is the fragment size pulled off the response body.
// Fragments do not align with record boundaries, the decoder buffers.
const readBufferSize = 4096

// StreamingClient extends the basic client with streaming chat
type StreamingClient struct {
	*Client
}

func NewStreamingClient(baseURL string) *StreamingClient {
	return &StreamingClient{
		Client: NewClient(baseURL),
	}
}

func NewStreamingClientWithTimeout(baseURL string, timeout time.Duration) *StreamingClient {
	return &StreamingClient{
		Client: NewClientWithTimeout(baseURL, timeout),
	}
}

// StreamMessage opens the streaming chat endpoint and returns a
// channel of decoded chunks. The channel is closed when the stream
// ends, an end chunk arrives, the context is cancelled, or the
// connection fails; transport failures are delivered in-band as a
// final chunk with Err set.
func (sc *StreamingClient) StreamMessage(ctx context.Context, req ChatRequest) (<-chan stream.Chunk, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/stream", sc.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := sc.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	chunks := make(chan stream.Chunk, 100)
	go sc.readStream(ctx, resp.Body, chunks)

	return chunks, nil
}

// readStream pulls fragments off the response body, feeds them through
// the decoder, and forwards complete chunks until the stream ends
func (sc *StreamingClient) readStream(ctx context.Context, body io.ReadCloser, chunks chan<- stream.Chunk) {
	defer close(chunks)
	defer body.Close()

	decoder := stream.NewDecoder()
	buf := make([]byte, readBufferSize)

	for {
		select {
		case <-ctx.Done():
			chunks <- stream.Chunk{Err: ctx.Err()}
			return
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			for _, chunk := range decoder.Feed(string(buf[:n])) {
				chunks <- chunk
				if chunk.IsEnd() {
					return
				}
			}
		}

		if err == io.EOF {
			// Servers are expected to send an explicit end record, but a
			// clean close without one is tolerated
			if remainder := decoder.Buffered(); remainder != "" {
				logger.Debug("Stream closed with %d buffered bytes of partial record", len(remainder))
			}
			return
		}
		if err != nil {
			chunks <- stream.Chunk{Err: fmt.Errorf("stream reading error: %w", err)}
			return
		}
	}
}

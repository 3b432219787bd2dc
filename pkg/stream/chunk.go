package stream

import "encoding/json"

// ChunkType tags a decoded stream record
type ChunkType string

const (
	ChunkText       ChunkType = "text"
	ChunkToolResult ChunkType = "tool_result"
	ChunkError      ChunkType = "error"
	ChunkEnd        ChunkType = "end"
)

// Chunk represents a single decoded unit from a streaming response.
// Chunks are transient: created by the decoder, consumed exactly once
// by the reducer, then discarded.
type Chunk struct {
	ID       string    // Server-assigned identifier, may be empty
	Type     ChunkType // Record type; unrecognized values are passed through
	Content  string    // Text payload, may be empty
	ToolName string    // Only meaningful when Type is ChunkToolResult
	Err      error     // Transport-level failure, set by the streaming client
}

// IsEnd reports whether this chunk terminates the stream
func (c Chunk) IsEnd() bool {
	return c.Type == ChunkEnd
}

// wireChunk is the payload shape shared by both accepted wire forms
type wireChunk struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	ToolName string `json:"tool_name"`
	Error    string `json:"error"`
}

// wireEnvelope accepts the wrapped form {"message": {...}} as well as
// the flat form {...}. The embedded wireChunk picks up flat fields.
type wireEnvelope struct {
	Message *wireChunk `json:"message"`
	wireChunk
}

// decodeRecord parses one complete record payload into a Chunk
func decodeRecord(payload []byte) (Chunk, error) {
	var env wireEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Chunk{}, err
	}
	return normalize(env), nil
}

// normalize unwraps the envelope and applies field defaults. A bare
// {"error": "..."} payload, as emitted by the backend's stream error
// path, becomes an error chunk.
func normalize(env wireEnvelope) Chunk {
	w := env.wireChunk
	if env.Message != nil {
		w = *env.Message
	}

	chunk := Chunk{
		ID:       w.ID,
		Type:     ChunkType(w.Type),
		Content:  w.Content,
		ToolName: w.ToolName,
	}

	if w.Type == "" {
		if w.Error != "" && w.Content == "" {
			chunk.Type = ChunkError
			chunk.Content = w.Error
		} else {
			chunk.Type = ChunkText
		}
	}

	return chunk
}

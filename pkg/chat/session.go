package chat

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/loomlabs/loom/pkg/logger"
	"github.com/loomlabs/loom/pkg/stream"
)

// Session drives one conversation against a streaming chat backend.
// It owns the transcript and runs the submission flow for each user
// turn: optimistic user append, stream open, chunk-by-chunk reduction,
// loading-state finalization.
//
// Send never returns an error. Every failure mode ends as a visible
// error bubble in the transcript and a cleared loading flag, so the
// caller always has a coherent, renderable state. A session serves one
// in-flight turn at a time; callers gate input while IsLoading.
type Session struct {
	client     *StreamingClient
	reducer    *Reducer
	transcript Transcript
	loading    bool

	onTranscript func(Transcript)
	onDelta      func(string)
	onLoading    func(bool)
}

// NewSession creates a session. Pass an empty threadID for a new
// conversation; an id is generated on the first send and kept for the
// life of the session.
func NewSession(client *StreamingClient, threadID string) *Session {
	return &Session{
		client:     client,
		reducer:    NewReducer(),
		transcript: NewTranscript(threadID),
	}
}

// OnTranscript registers a callback invoked with a fresh transcript
// snapshot after every change
func (s *Session) OnTranscript(fn func(Transcript)) {
	s.onTranscript = fn
}

// OnDelta registers a callback invoked with each streamed text
// fragment as it is folded into the transcript
func (s *Session) OnDelta(fn func(string)) {
	s.onDelta = fn
}

// OnLoading registers a callback invoked when a turn starts and ends
func (s *Session) OnLoading(fn func(bool)) {
	s.onLoading = fn
}

// Transcript returns the current transcript snapshot
func (s *Session) Transcript() Transcript {
	return s.transcript
}

// SetTranscript replaces the transcript, used when resuming a
// conversation loaded from the history API
func (s *Session) SetTranscript(t Transcript) {
	s.transcript = t
	s.reducer.Reset()
	s.notifyTranscript()
}

// ThreadID returns the conversation's thread id, empty until the
// first send of a new conversation
func (s *Session) ThreadID() string {
	return s.transcript.ThreadID
}

// IsLoading reports whether a turn is in flight
func (s *Session) IsLoading() bool {
	return s.loading
}

// Send runs one user turn and returns the resulting transcript. Blank
// input is a no-op. Cancel the context to abandon the in-flight
// stream; messages already appended are kept.
func (s *Session) Send(ctx context.Context, text string) Transcript {
	text = strings.TrimSpace(text)
	if text == "" {
		return s.transcript
	}

	if s.transcript.ThreadID == "" {
		s.transcript = WithThreadID(s.transcript, uuid.NewString())
		logger.Debug("Started new conversation %s", s.transcript.ThreadID)
	}

	s.setLoading(true)
	defer s.setLoading(false)

	s.transcript = Append(s.transcript, NewUserMessage(text))
	s.notifyTranscript()

	req := ChatRequest{Message: text, ThreadID: s.transcript.ThreadID}
	chunks, err := s.client.StreamMessage(ctx, req)
	if err != nil {
		logger.Error("Failed to open chat stream: %v", err)
		s.transcript = Append(s.transcript, NewErrorMessage(err.Error()))
		s.notifyTranscript()
		return s.transcript
	}

	s.reducer.Reset()
	for chunk := range chunks {
		if chunk.IsEnd() {
			break
		}
		if chunk.Err != nil {
			logger.Error("Chat stream failed mid-turn: %v", chunk.Err)
		}

		next := s.reducer.Apply(s.transcript, chunk)
		changed := len(next.Messages) != len(s.transcript.Messages) ||
			!sameTail(next, s.transcript)
		s.transcript = next
		if changed {
			s.notifyTranscript()
			s.notifyDelta(chunk)
		}
		if chunk.Err != nil {
			break
		}
	}

	return s.transcript
}

func (s *Session) setLoading(loading bool) {
	s.loading = loading
	if s.onLoading != nil {
		s.onLoading(loading)
	}
}

func (s *Session) notifyTranscript() {
	if s.onTranscript != nil {
		s.onTranscript(s.transcript)
	}
}

func (s *Session) notifyDelta(chunk stream.Chunk) {
	if s.onDelta == nil || chunk.Err != nil {
		return
	}
	if chunk.Type != stream.ChunkToolResult && chunk.Type != stream.ChunkError {
		s.onDelta(chunk.Content)
	}
}

// sameTail reports whether two transcripts of equal length share an
// identical tail message
func sameTail(a, b Transcript) bool {
	la, okA := LastMessage(a)
	lb, okB := LastMessage(b)
	if !okA || !okB {
		return okA == okB
	}
	return la.Content == lb.Content && la.ID == lb.ID
}

package chat

import (
	"github.com/loomlabs/loom/pkg/stream"
)

// openTurn tracks whether the transcript tail is an assistant message
// still receiving streamed text, and where it sits. Carrying this
// explicitly avoids re-deriving the streaming state from the shape of
// the last message on every chunk.
type openTurn struct {
	active bool
	index  int
}

// Reducer folds stream chunks into a transcript, one chunk at a time.
// Apply is pure with respect to the transcript: it returns a new value
// and never mutates its input. The reducer itself only carries the
// open-turn marker between calls, so there is exactly one writer per
// conversation and no locking.
type Reducer struct {
	turn openTurn
}

func NewReducer() *Reducer {
	return &Reducer{}
}

// Reset closes any open turn. Call it before starting a new stream.
func (r *Reducer) Reset() {
	r.turn = openTurn{}
}

// Streaming reports whether the transcript tail is still growing
func (r *Reducer) Streaming() bool {
	return r.turn.active
}

// Apply produces the next transcript for one incoming chunk.
//
// Transition rules:
//   - text with empty content: no-op
//   - text onto an open turn: coalesce into the tail bubble
//   - text otherwise: open a new assistant bubble
//   - tool_result: close the turn, add a separate tool bubble
//   - error: close the turn, add an assistant bubble with Error: prefix
//   - end: no-op, the submission loop stops on it
//
// Unrecognized types fall through to the text rules so that newer
// servers degrade to plain content instead of dropping output.
func (r *Reducer) Apply(t Transcript, chunk stream.Chunk) Transcript {
	if chunk.Err != nil {
		return r.applyError(t, chunk.Err.Error())
	}

	switch chunk.Type {
	case stream.ChunkEnd:
		return t
	case stream.ChunkToolResult:
		return r.applyToolResult(t, chunk)
	case stream.ChunkError:
		return r.applyError(t, chunk.Content)
	default:
		return r.applyText(t, chunk)
	}
}

func (r *Reducer) applyText(t Transcript, chunk stream.Chunk) Transcript {
	if chunk.Content == "" {
		return t
	}

	if r.tailOpen(t) {
		tail := t.Messages[r.turn.index]
		tail.Content += chunk.Content
		if chunk.ID != "" {
			tail.ID = chunk.ID
		}
		return ReplaceLast(t, tail)
	}

	msg := NewAssistantMessage(chunk.Content)
	if chunk.ID != "" {
		msg.ID = chunk.ID
	}
	next := Append(t, msg)
	r.turn = openTurn{active: true, index: len(next.Messages) - 1}
	return next
}

func (r *Reducer) applyToolResult(t Transcript, chunk stream.Chunk) Transcript {
	if chunk.Content == "" {
		return t
	}

	next := r.discardEmptyTail(t)

	msg := NewToolResultMessage(chunk.ToolName, chunk.Content)
	if chunk.ID != "" {
		msg.ID = chunk.ID
	}
	next = Append(next, msg)
	r.turn = openTurn{}
	return next
}

func (r *Reducer) applyError(t Transcript, content string) Transcript {
	next := r.discardEmptyTail(t)
	next = Append(next, NewErrorMessage(content))
	r.turn = openTurn{}
	return next
}

// discardEmptyTail removes a speculatively created assistant bubble
// that never received content, so a tool result or error arriving
// first does not leave an empty bubble behind it.
func (r *Reducer) discardEmptyTail(t Transcript) Transcript {
	if r.tailOpen(t) && t.Messages[r.turn.index].Content == "" {
		return WithoutLast(t)
	}
	return t
}

// tailOpen reports whether the open-turn marker still points at the
// transcript tail. An externally appended message (a new user turn)
// invalidates the marker.
func (r *Reducer) tailOpen(t Transcript) bool {
	return r.turn.active && r.turn.index == len(t.Messages)-1
}

package chat

// Transcript is the ordered message list shown for one conversation.
// It is treated as an immutable value: every operation returns a new
// Transcript and never mutates the receiver's backing slice, so a
// caller holding an older snapshot always sees a consistent state.
type Transcript struct {
	ThreadID string
	Messages []Message
}

func NewTranscript(threadID string) Transcript {
	return Transcript{
		ThreadID: threadID,
		Messages: make([]Message, 0),
	}
}

// Append returns a transcript with msg added at the tail
func Append(t Transcript, msg Message) Transcript {
	messages := make([]Message, len(t.Messages)+1)
	copy(messages, t.Messages)
	messages[len(t.Messages)] = msg

	return Transcript{
		ThreadID: t.ThreadID,
		Messages: messages,
	}
}

// WithoutLast returns a transcript with the tail message removed
func WithoutLast(t Transcript) Transcript {
	if len(t.Messages) == 0 {
		return t
	}

	messages := make([]Message, len(t.Messages)-1)
	copy(messages, t.Messages[:len(t.Messages)-1])

	return Transcript{
		ThreadID: t.ThreadID,
		Messages: messages,
	}
}

// ReplaceLast returns a transcript with the tail message swapped for msg
func ReplaceLast(t Transcript, msg Message) Transcript {
	if len(t.Messages) == 0 {
		return Append(t, msg)
	}

	messages := make([]Message, len(t.Messages))
	copy(messages, t.Messages)
	messages[len(messages)-1] = msg

	return Transcript{
		ThreadID: t.ThreadID,
		Messages: messages,
	}
}

func LastMessage(t Transcript) (Message, bool) {
	if len(t.Messages) == 0 {
		return Message{}, false
	}
	return t.Messages[len(t.Messages)-1], true
}

func MessageCount(t Transcript) int {
	return len(t.Messages)
}

func IsEmpty(t Transcript) bool {
	return len(t.Messages) == 0
}

func MessagesByRole(t Transcript, role string) []Message {
	var result []Message
	for _, msg := range t.Messages {
		if msg.Role == role {
			result = append(result, msg)
		}
	}
	return result
}

func WithThreadID(t Transcript, threadID string) Transcript {
	return Transcript{
		ThreadID: threadID,
		Messages: t.Messages,
	}
}

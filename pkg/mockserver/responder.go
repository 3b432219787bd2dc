package mockserver

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Record is one scripted stream record, serialized to the wire as a
// wrapped {"message": {...}} envelope.
type Record struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	ToolName string `json:"tool_name,omitempty"`
}

func TextRecord(content string) Record {
	return Record{ID: uuid.NewString(), Type: "text", Content: content}
}

func ToolRecord(toolName, content string) Record {
	return Record{ID: uuid.NewString(), Type: "tool_result", Content: content, ToolName: toolName}
}

func ErrorRecord(content string) Record {
	return Record{ID: uuid.NewString(), Type: "error", Content: content}
}

func EndRecord() Record {
	return Record{Type: "end"}
}

// Responder produces the scripted stream for one user message
type Responder interface {
	Respond(message string) []Record
}

// ResponderFunc adapts a function to the Responder interface
type ResponderFunc func(message string) []Record

func (f ResponderFunc) Respond(message string) []Record {
	return f(message)
}

// EchoResponder is the default development script: it streams a short
// acknowledgement word by word, invokes a fake tool when the message
// asks for one, and always terminates with an end record.
type EchoResponder struct{}

func (EchoResponder) Respond(message string) []Record {
	var records []Record

	reply := fmt.Sprintf("You said: %s", message)
	for _, word := range strings.SplitAfter(reply, " ") {
		records = append(records, TextRecord(word))
	}

	if strings.Contains(strings.ToLower(message), "tool") {
		records = append(records,
			ToolRecord("echo", message),
			TextRecord("Tool run complete."),
		)
	}

	records = append(records, EndRecord())
	return records
}

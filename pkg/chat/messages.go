package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is one entry in the visible transcript
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ToolName  string    `json:"tool_name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// errorPrefix marks assistant bubbles produced from error chunks and
// transport failures
const errorPrefix = "Error: "

func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   strings.TrimSpace(content),
		Timestamp: time.Now(),
	}
}

func NewAssistantMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func NewSystemMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleSystem,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func NewToolResultMessage(toolName, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleTool,
		Content:   content,
		ToolName:  toolName,
		Timestamp: time.Now(),
	}
}

// NewErrorMessage creates the assistant-role bubble used for both
// server-signaled error chunks and transport failures
func NewErrorMessage(content string) Message {
	return NewAssistantMessage(errorPrefix + content)
}

func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

func (m Message) IsSystem() bool {
	return m.Role == RoleSystem
}

func (m Message) IsTool() bool {
	return m.Role == RoleTool
}

func (m Message) IsError() bool {
	return m.Role == RoleAssistant && strings.HasPrefix(m.Content, errorPrefix)
}

func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == ""
}

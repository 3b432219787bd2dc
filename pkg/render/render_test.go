package render

import (
	"strings"
	"testing"

	"github.com/loomlabs/loom/pkg/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plain() *Renderer {
	return NewRenderer(false, "monokai")
}

func TestRendererMessages(t *testing.T) {
	t.Run("should label user messages", func(t *testing.T) {
		out := plain().Message(chat.NewUserMessage("hello"))
		assert.Equal(t, "you: hello", out)
	})

	t.Run("should label assistant messages", func(t *testing.T) {
		out := plain().Message(chat.NewAssistantMessage("hi there"))
		assert.Equal(t, "agent: hi there", out)
	})

	t.Run("should label tool messages with the tool name", func(t *testing.T) {
		out := plain().Message(chat.NewToolResultMessage("calculator", "42"))
		assert.Equal(t, "calculator: 42", out)
	})

	t.Run("should fall back to a generic tool label", func(t *testing.T) {
		out := plain().Message(chat.NewToolResultMessage("", "output"))
		assert.Equal(t, "tool: output", out)
	})

	t.Run("should render error bubbles as agent output", func(t *testing.T) {
		out := plain().Message(chat.NewErrorMessage("boom"))
		assert.Equal(t, "agent: Error: boom", out)
	})

	t.Run("should keep message content when styling is enabled", func(t *testing.T) {
		renderer := NewRenderer(true, "monokai")
		out := renderer.Message(chat.NewAssistantMessage("styled reply"))
		assert.Contains(t, out, "styled reply")
	})
}

func TestRendererTranscript(t *testing.T) {
	t.Run("should render messages in order with blank lines between", func(t *testing.T) {
		transcript := chat.Append(chat.NewTranscript("t1"), chat.NewUserMessage("2+2?"))
		transcript = chat.Append(transcript, chat.NewAssistantMessage("4"))

		out := plain().Transcript(transcript)
		assert.Equal(t, "you: 2+2?\n\nagent: 4\n", out)
	})

	t.Run("should render an empty transcript as nothing", func(t *testing.T) {
		assert.Empty(t, plain().Transcript(chat.NewTranscript("t1")))
	})
}

func TestCodeHighlighting(t *testing.T) {
	t.Run("should leave prose without fences untouched", func(t *testing.T) {
		renderer := NewRenderer(true, "monokai")
		assert.Equal(t, "no code here", renderer.highlightCodeBlocks("no code here"))
	})

	t.Run("should colorize a fenced code block", func(t *testing.T) {
		renderer := NewRenderer(true, "monokai")
		content := "Here:\n```go\nfmt.Println(\"hi\")\n```\ndone"

		out := renderer.highlightCodeBlocks(content)
		assert.Contains(t, out, "Here:\n")
		assert.Contains(t, out, "done")
		// Terminal256 output carries ANSI escapes
		assert.Contains(t, out, "\x1b[")
	})

	t.Run("should pass through an unterminated fence", func(t *testing.T) {
		renderer := NewRenderer(true, "monokai")
		content := "```go\nno closing fence"
		assert.Equal(t, content, renderer.highlightCodeBlocks(content))
	})

	t.Run("should skip highlighting entirely without color", func(t *testing.T) {
		content := "```go\nfmt.Println(\"hi\")\n```"
		out := plain().Message(chat.Message{Role: chat.RoleAssistant, Content: content})
		assert.False(t, strings.Contains(out, "\x1b["))
	})

	t.Run("should highlight blocks without a language tag", func(t *testing.T) {
		renderer := NewRenderer(true, "monokai")
		content := "```\nplain block\n```"
		out := renderer.highlightCodeBlocks(content)
		require.NotEmpty(t, out)
		assert.Contains(t, out, "plain block")
	})
}

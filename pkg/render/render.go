// Package render turns transcripts into styled terminal output.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/loomlabs/loom/pkg/chat"
)

// Warm earth-tone palette
var (
	colorUser   = lipgloss.Color("#6b93b5")
	colorAgent  = lipgloss.Color("#d3b597")
	colorTool   = lipgloss.Color("#93b56b")
	colorError  = lipgloss.Color("#d95f5f")
	colorMuted  = lipgloss.Color("#5c5044")
	colorBorder = lipgloss.Color("#36302a")
)

// Styles defines the lipgloss styles for transcript entries
type Styles struct {
	UserLabel  lipgloss.Style
	AgentLabel lipgloss.Style
	ToolLabel  lipgloss.Style
	ErrorText  lipgloss.Style
	ToolBox    lipgloss.Style
	Muted      lipgloss.Style
}

// DefaultStyles returns the standard transcript styles
func DefaultStyles() Styles {
	return Styles{
		UserLabel:  lipgloss.NewStyle().Foreground(colorUser).Bold(true),
		AgentLabel: lipgloss.NewStyle().Foreground(colorAgent).Bold(true),
		ToolLabel:  lipgloss.NewStyle().Foreground(colorTool).Bold(true),
		ErrorText:  lipgloss.NewStyle().Foreground(colorError),
		ToolBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1),
		Muted: lipgloss.NewStyle().Foreground(colorMuted),
	}
}

// Renderer formats messages for the terminal
type Renderer struct {
	styles      Styles
	color       bool
	syntaxTheme string
}

// NewRenderer creates a renderer. With color disabled all styling and
// highlighting is skipped, leaving plain labeled text.
func NewRenderer(color bool, syntaxTheme string) *Renderer {
	return &Renderer{
		styles:      DefaultStyles(),
		color:       color,
		syntaxTheme: syntaxTheme,
	}
}

// Message renders one transcript entry
func (r *Renderer) Message(msg chat.Message) string {
	switch {
	case msg.IsUser():
		return r.label(r.styles.UserLabel, "you") + " " + msg.Content
	case msg.IsTool():
		return r.toolBlock(msg)
	case msg.IsError():
		if r.color {
			return r.label(r.styles.AgentLabel, "agent") + " " + r.styles.ErrorText.Render(msg.Content)
		}
		return r.label(r.styles.AgentLabel, "agent") + " " + msg.Content
	default:
		return r.label(r.styles.AgentLabel, "agent") + " " + r.body(msg.Content)
	}
}

// Transcript renders the whole conversation, one entry per block
func (r *Renderer) Transcript(t chat.Transcript) string {
	var b strings.Builder
	for i, msg := range t.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(r.Message(msg))
		b.WriteString("\n")
	}
	return b.String()
}

func (r *Renderer) label(style lipgloss.Style, name string) string {
	text := fmt.Sprintf("%s:", name)
	if !r.color {
		return text
	}
	return style.Render(text)
}

func (r *Renderer) toolBlock(msg chat.Message) string {
	name := msg.ToolName
	if name == "" {
		name = "tool"
	}
	header := r.label(r.styles.ToolLabel, name)
	if !r.color {
		return header + " " + msg.Content
	}
	return header + "\n" + r.styles.ToolBox.Render(msg.Content)
}

func (r *Renderer) body(content string) string {
	if !r.color {
		return content
	}
	return r.highlightCodeBlocks(content)
}

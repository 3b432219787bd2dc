package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/loomlabs/loom/pkg/chat"
	"github.com/loomlabs/loom/pkg/config"
	"github.com/loomlabs/loom/pkg/history"
	"github.com/loomlabs/loom/pkg/providers"
	"github.com/loomlabs/loom/pkg/render"
	"github.com/spf13/viper"
)

// newChatSession gates on backend availability, then builds the
// session and printer shared by the REPL and one-shot modes
func newChatSession(ctx context.Context, threadID string) (*chat.Session, *streamPrinter, error) {
	settings := config.Get()

	gate := providers.NewClient(settings.Server.URL)
	if err := gate.Ping(ctx); err != nil {
		return nil, nil, fmt.Errorf("chat backend is not available at %s: %w (try `loom serve` for a local one)", settings.Server.URL, err)
	}

	client := chat.NewStreamingClientWithTimeout(settings.Server.URL, settings.Server.Timeout)
	session := chat.NewSession(client, threadID)

	color := settings.Render.Color && !viper.GetBool("no_color")
	printer := newStreamPrinter(os.Stdout, render.NewRenderer(color, settings.Render.SyntaxTheme))
	session.OnTranscript(printer.transcript)
	session.OnDelta(printer.delta)
	session.OnLoading(printer.loading)

	if threadID != "" {
		resumed, err := history.NewClient(settings.Server.URL).Messages(ctx, threadID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resume conversation: %w", err)
		}
		session.SetTranscript(resumed)
		printer.replay(resumed)
	}

	return session, printer, nil
}

// runOnce sends a single prompt and exits
func runOnce(prompt, threadID string) {
	ctx := context.Background()
	session, _, err := newChatSession(ctx, threadID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	session.Send(ctx, prompt)
}

// runRepl runs the interactive chat loop
func runRepl(ctx context.Context, threadID string) error {
	session, _, err := newChatSession(ctx, threadID)
	if err != nil {
		return err
	}

	settings := config.Get()
	if provider, err := providers.NewClient(settings.Server.URL).ActiveProvider(ctx); err == nil {
		fmt.Printf("Connected to %s (provider: %s). Type /quit to exit.\n", settings.Server.URL, provider)
	} else {
		fmt.Printf("Connected to %s. Type /quit to exit.\n", settings.Server.URL)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		session.Send(ctx, line)
	}
}

// streamPrinter renders session updates to the terminal as they
// happen: streamed assistant text is printed incrementally, tool and
// error bubbles are printed whole when they appear.
type streamPrinter struct {
	out      io.Writer
	renderer *render.Renderer
	seen     int
	inText   bool
}

func newStreamPrinter(out io.Writer, renderer *render.Renderer) *streamPrinter {
	return &streamPrinter{out: out, renderer: renderer}
}

// replay prints an already-loaded transcript and fast-forwards past it
func (p *streamPrinter) replay(t chat.Transcript) {
	fmt.Fprint(p.out, p.renderer.Transcript(t))
	p.seen = chat.MessageCount(t)
}

func (p *streamPrinter) transcript(t chat.Transcript) {
	// Placeholder discard can shrink the transcript
	if len(t.Messages) < p.seen {
		p.seen = len(t.Messages)
	}

	for _, msg := range t.Messages[p.seen:] {
		switch {
		case msg.IsUser():
			// The user already sees their own input line
		case msg.IsTool(), msg.IsError():
			p.breakLine()
			fmt.Fprintln(p.out, p.renderer.Message(msg))
		default:
			// New assistant bubble: label now, content arrives as deltas
			fmt.Fprint(p.out, p.renderer.Message(chat.Message{Role: chat.RoleAssistant}))
			p.inText = true
		}
	}
	p.seen = len(t.Messages)
}

func (p *streamPrinter) delta(text string) {
	if text == "" {
		return
	}
	fmt.Fprint(p.out, text)
	p.inText = true
}

func (p *streamPrinter) loading(active bool) {
	if !active {
		p.breakLine()
	}
}

func (p *streamPrinter) breakLine() {
	if p.inText {
		fmt.Fprintln(p.out)
		p.inText = false
	}
}

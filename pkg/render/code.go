package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

const codeFence = "```"

// highlightCodeBlocks syntax-highlights fenced code blocks in place,
// leaving the surrounding prose untouched. An unterminated fence is
// passed through verbatim.
func (r *Renderer) highlightCodeBlocks(content string) string {
	if !strings.Contains(content, codeFence) {
		return content
	}

	var b strings.Builder
	rest := content
	for {
		open := strings.Index(rest, codeFence)
		if open == -1 {
			b.WriteString(rest)
			break
		}

		b.WriteString(rest[:open])
		block := rest[open+len(codeFence):]

		newline := strings.Index(block, "\n")
		if newline == -1 {
			b.WriteString(rest[open:])
			break
		}
		lang := strings.TrimSpace(block[:newline])
		body := block[newline+1:]

		closing := strings.Index(body, codeFence)
		if closing == -1 {
			b.WriteString(rest[open:])
			break
		}

		b.WriteString(r.highlight(body[:closing], lang))
		rest = body[closing+len(codeFence):]
	}

	return b.String()
}

// highlight runs one code block through chroma, falling back to the
// raw source when the lexer or formatter trips on it
func (r *Renderer) highlight(source, lang string) string {
	if lang == "" {
		lang = "text"
	}

	var out strings.Builder
	if err := quick.Highlight(&out, source, lang, "terminal256", r.syntaxTheme); err != nil {
		return source
	}
	return out.String()
}

// Package render formats VoiceDesk output for the terminal: assistant
// answers as markdown, status lines for toasts and sessions, and the
// history table.
package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// DefaultWidth is the wrap width when the terminal size is unknown.
const DefaultWidth = 80

// Glamour styles.
const (
	styleAuto  = "auto"
	stylePlain = "notty"
)

// Markdown renders assistant answers. A plain renderer keeps the markdown
// structure but emits no ANSI sequences, for pipes and tests.
type Markdown struct {
	r *glamour.TermRenderer
}

// NewMarkdown creates a renderer wrapping at width. color selects the
// terminal-aware style.
func NewMarkdown(width int, color bool) (*Markdown, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	style := stylePlain
	if color {
		style = styleAuto
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, err
	}
	return &Markdown{r: r}, nil
}

// Render returns text rendered for the terminal. It falls back to the raw
// text if glamour fails.
func (m *Markdown) Render(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	out, err := m.r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

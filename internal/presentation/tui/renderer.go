package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Render turns executed Markdown into terminal output.
type Render func(string) (string, error)

// Plain returns the Markdown unchanged.
func Plain(markdown string) (string, error) {
	return markdown, nil
}

// NewRenderer returns a glamour renderer sized to out when out is a terminal,
// and Plain otherwise so pipes and files receive the raw Markdown.
func NewRenderer(out *os.File) Render {
	if out == nil || !term.IsTerminal(int(out.Fd())) {
		return Plain
	}
	width := 80
	if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 0 {
		width = w
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return Plain
	}
	return r.Render
}

// NewStyledRenderer builds a renderer with a fixed glamour style ("dark",
// "light", "notty", ...) regardless of the attached terminal.
func NewStyledRenderer(style string, width int) (Render, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}

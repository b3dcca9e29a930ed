package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 100

var (
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)

	paneTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")).
			Bold(true)

	paneOriginalTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Bold(true)
)

// NewMarkdownRenderer returns a glamour renderer wrapping at width columns.
func NewMarkdownRenderer(width int) (*glamour.TermRenderer, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	return glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
}

// Preview renders text as Markdown for the terminal. With color off it uses
// glamour's plain style so the output stays free of escape codes.
func Preview(text string, width int, colored bool) (string, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	opts := []glamour.TermRendererOption{
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	}
	if !colored {
		opts = []glamour.TermRendererOption{
			glamour.WithStandardStyle("notty"),
			glamour.WithColorProfile(termenv.Ascii),
			glamour.WithWordWrap(width),
		}
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}
	out, err := r.Render(text)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

// Compare lays out the original and rewritten text side by side, each in a
// bordered pane half the available width.
func Compare(original, rewritten string, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	// Border (2) and padding (2) per pane.
	inner := width/2 - 4
	if inner < 20 {
		inner = 20
	}
	left := paneStyle.Width(inner + 2).Render(
		paneOriginalTitleStyle.Render("Original") + "\n\n" + original)
	right := paneStyle.Width(inner + 2).Render(
		paneTitleStyle.Render("Rewritten") + "\n\n" + rewritten)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

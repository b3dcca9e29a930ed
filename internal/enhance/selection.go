package enhance

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrEmptyDocument is returned when the whole document is blank.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrEmptySelection is returned when the selected lines are blank.
	ErrEmptySelection = errors.New("selection is empty")
)

// Range is an inclusive, 1-based line range. The zero Range selects the
// whole document.
type Range struct {
	Start int
	End   int
}

// Whole reports whether r selects the entire document.
func (r Range) Whole() bool { return r.Start == 0 && r.End == 0 }

func (r Range) String() string {
	if r.Whole() {
		return "all"
	}
	if r.Start == r.End {
		return strconv.Itoa(r.Start)
	}
	return fmt.Sprintf("%d:%d", r.Start, r.End)
}

// ParseRange parses "a:b" or a single line number "a". An empty string is the
// whole document.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, nil
	}
	startStr, endStr, found := strings.Cut(s, ":")
	if !found {
		endStr = startStr
	}
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return Range{}, fmt.Errorf("invalid line range %q: %w", s, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil {
		return Range{}, fmt.Errorf("invalid line range %q: %w", s, err)
	}
	if start < 1 || end < start {
		return Range{}, fmt.Errorf("invalid line range %q: want 1 <= start <= end", s)
	}
	return Range{Start: start, End: end}, nil
}

// Document is a text split into lines.
type Document struct {
	lines []string

	// trailingNewline is restored when the document is joined again.
	trailingNewline bool
}

func ParseDocument(text string) Document {
	d := Document{trailingNewline: strings.HasSuffix(text, "\n")}
	d.lines = strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	return d
}

func (d Document) String() string {
	s := strings.Join(d.lines, "\n")
	if d.trailingNewline {
		s += "\n"
	}
	return s
}

// Lines returns the number of lines.
func (d Document) Lines() int { return len(d.lines) }

// Select returns the concrete range and its text. A zero r selects
// everything.
func (d Document) Select(r Range) (Range, string, error) {
	if strings.TrimSpace(d.String()) == "" {
		return Range{}, "", ErrEmptyDocument
	}
	if r.Whole() {
		r = Range{Start: 1, End: len(d.lines)}
	}
	if r.Start < 1 || r.End < r.Start || r.End > len(d.lines) {
		return Range{}, "", fmt.Errorf("line range %s is outside the document (1:%d)", r, len(d.lines))
	}
	text := strings.Join(d.lines[r.Start-1:r.End], "\n")
	if strings.TrimSpace(text) == "" {
		return Range{}, "", ErrEmptySelection
	}
	return r, text, nil
}

// Replace swaps the lines in r for text and returns the range text now
// occupies.
func (d *Document) Replace(r Range, text string) Range {
	repl := strings.Split(text, "\n")
	lines := make([]string, 0, len(d.lines)-(r.End-r.Start+1)+len(repl))
	lines = append(lines, d.lines[:r.Start-1]...)
	lines = append(lines, repl...)
	lines = append(lines, d.lines[r.End:]...)
	d.lines = lines
	return Range{Start: r.Start, End: r.Start + len(repl) - 1}
}

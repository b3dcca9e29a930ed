package tui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// PlainIO implements IO on a line-oriented terminal. Streamed snapshots are
// printed incrementally: only the part not yet written is emitted.
// It is used when stdout is not a terminal or the TUI is disabled.
type PlainIO struct {
	scanner *bufio.Scanner
	out     io.Writer
	errW    io.Writer

	mu      sync.Mutex
	written int // bytes of the current reply already printed

	prompt *color.Color
	label  *color.Color
	system *color.Color
	errC   *color.Color
}

// NewPlainIO creates a PlainIO bound to stdin/stdout/stderr. Colors are
// disabled when stdout is not a terminal.
func NewPlainIO() *PlainIO {
	p := NewPlainIOWith(os.Stdin, os.Stdout, os.Stderr)
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		p.DisableColor()
	}
	return p
}

// NewPlainIOWith creates a PlainIO over arbitrary streams.
func NewPlainIOWith(in io.Reader, out, errW io.Writer) *PlainIO {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 1024*1024), 1024*1024)
	return &PlainIO{
		scanner: s,
		out:     out,
		errW:    errW,
		prompt:  color.New(color.FgCyan, color.Bold),
		label:   color.New(color.FgGreen, color.Bold),
		system:  color.New(color.Faint),
		errC:    color.New(color.FgRed, color.Bold),
	}
}

// DisableColor turns off ANSI styling for this PlainIO only.
func (p *PlainIO) DisableColor() {
	for _, c := range []*color.Color{p.prompt, p.label, p.system, p.errC} {
		c.DisableColor()
	}
}

func (p *PlainIO) ReadInput() (string, error) {
	p.prompt.Fprint(p.out, "\n> ")
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

func (p *PlainIO) UserMessage(_ string) {
	// The user already sees what they typed.
}

func (p *PlainIO) ThinkingStart() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = 0
	p.label.Fprint(p.out, "\nAssistant: ")
}

func (p *PlainIO) TextUpdate(full string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeTail(full)
}

func (p *PlainIO) TextDone(fullText string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeTail(fullText)
	fmt.Fprintln(p.out)
	p.written = 0
}

// writeTail prints the suffix of full that has not been printed yet. A
// snapshot that does not extend the printed prefix starts a fresh line.
func (p *PlainIO) writeTail(full string) {
	if p.written > len(full) {
		fmt.Fprintln(p.out)
		p.written = 0
	}
	fmt.Fprint(p.out, full[p.written:])
	p.written = len(full)
}

func (p *PlainIO) SystemMessage(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.system.Fprintln(p.out, text)
}

func (p *PlainIO) Error(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errC.Fprint(p.errW, "error: ")
	fmt.Fprintln(p.errW, msg)
}

func (p *PlainIO) SetStatus(_ Status) {}

// truncate shortens s to maxLen runes, appending "…" if cut.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "…"
}

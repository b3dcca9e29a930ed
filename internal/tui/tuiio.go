package tui

import (
	"context"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// TuiIO implements the IO interface by sending messages to a bubbletea Program.
// All methods are safe to call from any goroutine.
type TuiIO struct {
	program *tea.Program
	inputCh chan inputResult

	mu          sync.Mutex
	cancelReply context.CancelFunc
}

var _ IO = (*TuiIO)(nil)

// send is a nil-safe helper that sends a message to the bubbletea program.
func (t *TuiIO) send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

func (t *TuiIO) ReadInput() (string, error) {
	if t.program == nil {
		return "", io.EOF
	}
	t.program.Send(readInputMsg{})

	// Block until the user submits or the TUI exits.
	res := <-t.inputCh
	if res.err != nil {
		return "", io.EOF
	}
	return res.text, nil
}

func (t *TuiIO) UserMessage(text string)   { t.send(userMsg{text: text}) }
func (t *TuiIO) ThinkingStart()            { t.send(thinkingStartMsg{}) }
func (t *TuiIO) TextUpdate(full string)    { t.send(textUpdateMsg{full: full}) }
func (t *TuiIO) TextDone(fullText string)  { t.send(textDoneMsg{fullText: fullText}) }
func (t *TuiIO) SystemMessage(text string) { t.send(systemMsg{text: text}) }
func (t *TuiIO) Error(msg string)          { t.send(errorMsg{text: msg}) }
func (t *TuiIO) SetStatus(s Status)        { t.send(statusMsg{status: s}) }

// SetReplyCancel registers the cancel function of the reply being streamed,
// so esc can abort it.
func (t *TuiIO) SetReplyCancel(cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelReply = cancel
}

// ClearReplyCancel forgets the cancel function once the reply has finished.
func (t *TuiIO) ClearReplyCancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelReply = nil
}

// CancelReply aborts the reply in flight. Returns true if one was cancelled.
func (t *TuiIO) CancelReply() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelReply != nil {
		t.cancelReply()
		t.cancelReply = nil
		return true
	}
	return false
}

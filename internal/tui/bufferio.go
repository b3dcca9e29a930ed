package tui

import (
	"io"
	"sync"
)

// BufferIO is a silent IO implementation that feeds scripted input and
// captures everything the chat loop emits. Used by tests and by
// non-interactive callers that only need the final reply.
type BufferIO struct {
	mu      sync.Mutex
	inputs  []string
	last    string
	replies []string
	updates int
	system  []string
	errors  []string
	status  Status
}

var _ IO = (*BufferIO)(nil)

// NewBufferIO creates a BufferIO that returns inputs from ReadInput in order,
// then io.EOF.
func NewBufferIO(inputs ...string) *BufferIO {
	return &BufferIO{inputs: inputs}
}

// Output returns the most recent reply text, complete or not.
func (b *BufferIO) Output() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Replies returns every completed reply in order.
func (b *BufferIO) Replies() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.replies...)
}

// Updates returns how many streamed snapshots were received.
func (b *BufferIO) Updates() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.updates
}

// SystemMessages returns every notice in order.
func (b *BufferIO) SystemMessages() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.system...)
}

// Errors returns every error message in order.
func (b *BufferIO) Errors() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.errors...)
}

// Status returns the last status set.
func (b *BufferIO) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *BufferIO) ReadInput() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.inputs) == 0 {
		return "", io.EOF
	}
	in := b.inputs[0]
	b.inputs = b.inputs[1:]
	return in, nil
}

func (b *BufferIO) UserMessage(_ string) {}

func (b *BufferIO) ThinkingStart() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = ""
}

func (b *BufferIO) TextUpdate(full string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = full
	b.updates++
}

func (b *BufferIO) TextDone(fullText string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = fullText
	b.replies = append(b.replies, fullText)
}

func (b *BufferIO) SystemMessage(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.system = append(b.system, text)
}

func (b *BufferIO) Error(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errors = append(b.errors, msg)
}

func (b *BufferIO) SetStatus(s Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = s
}

package provider

import (
	"context"
	"strings"
	"time"
)

const (
	// MockReply is the canned answer the test-mode provider streams in chat.
	MockReply = "This is a test-mode reply. In test mode the assistant answers with a typing effect. Configure an API key to get real responses."

	mockChunkSize         = 2
	defaultMockDelay      = time.Second
	defaultMockChunkDelay = 10 * time.Millisecond
)

// MockProvider answers without touching the network. It is used when test
// mode is on, so the whole pipeline can be exercised without credentials.
type MockProvider struct {
	delay      time.Duration
	chunkDelay time.Duration
}

// NewMockProvider returns a mock that waits opts.MockDelay before answering a
// completion and opts.MockChunkDelay between stream chunks. Zero values pick
// the defaults; negative values disable the wait.
func NewMockProvider(opts Options) *MockProvider {
	m := &MockProvider{delay: opts.MockDelay, chunkDelay: opts.MockChunkDelay}
	if m.delay == 0 {
		m.delay = defaultMockDelay
	}
	if m.chunkDelay == 0 {
		m.chunkDelay = defaultMockChunkDelay
	}
	return m
}

func (m *MockProvider) Name() string         { return "mock" }
func (m *MockProvider) DefaultModel() string { return "mock" }

// Complete echoes the last user message under a test-mode banner.
func (m *MockProvider) Complete(ctx context.Context, req *ChatRequest) (string, error) {
	if err := sleep(ctx, m.delay); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("### Test-mode reply\n\n")
	b.WriteString(strings.TrimSpace(lastUserMessage(req)))
	b.WriteString("\n\n---\n\n*This is a test-mode reply. Configure an API key for real responses.*")
	return b.String(), nil
}

// Chat streams MockReply a couple of characters at a time.
func (m *MockProvider) Chat(ctx context.Context, req *ChatRequest) (<-chan Event, error) {
	ch := make(chan Event, 1)
	go func() {
		defer close(ch)
		runes := []rune(MockReply)
		for i := 0; i < len(runes); i += mockChunkSize {
			end := min(i+mockChunkSize, len(runes))
			if !send(ctx, ch, Event{Type: EventTextDelta, TextDelta: string(runes[i:end])}) {
				return
			}
			if err := sleep(ctx, m.chunkDelay); err != nil {
				send(ctx, ch, Event{Type: EventError, Error: err})
				return
			}
		}
		send(ctx, ch, Event{Type: EventDone, Usage: &Usage{}})
	}()
	return ch, nil
}

func lastUserMessage(req *ChatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

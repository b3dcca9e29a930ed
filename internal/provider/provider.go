// Package provider defines the unified interface and shared types for all LLM providers.
// Each provider adapter (compat.go, openai.go, anthropic.go, mock.go) implements the
// Provider interface, normalizing vendor-specific responses into plain text for one-shot
// completions and into a unified Event sequence for streaming.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ── Provider kinds ───────────────────────────────────────────────────────────

// Kind is the closed set of provider families a config may select.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindCustom    Kind = "custom"
	KindOllama    Kind = "ollama"

	// KindNone is only meaningful for the fallback slot and means "disabled".
	KindNone Kind = "none"
)

// Kinds lists the selectable provider kinds in display order.
var Kinds = []Kind{KindOpenAI, KindAnthropic, KindCustom, KindOllama}

// ParseKind validates s against the closed set of kinds.
// KindNone is accepted; callers decide whether it is allowed in their slot.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindOpenAI, KindAnthropic, KindCustom, KindOllama, KindNone:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, s)
}

// SelfHosted reports whether the kind has no well-known endpoint and
// therefore needs an explicit URL.
func (k Kind) SelfHosted() bool {
	return k == KindCustom || k == KindOllama
}

// NeedsKey reports whether requests to this kind must carry a credential.
// Local Ollama servers accept unauthenticated requests.
func (k Kind) NeedsKey() bool {
	return k != KindOllama
}

// Config describes one endpoint: the primary or the fallback.
type Config struct {
	Kind    Kind
	APIKey  string
	BaseURL string
	Model   string
}

// Settings is the immutable provider configuration handed to a dispatcher.
// It is produced by config.Config.ProviderSettings after validation.
type Settings struct {
	Primary Config

	// Fallback is nil when no fallback provider is enabled.
	Fallback        *Config
	FallbackTimeout time.Duration

	Temperature float64
	MaxTokens   int

	// TestMode replaces every provider with a canned mock.
	TestMode bool
}

// DefaultFallbackTimeout is how long the primary gets before the fallback is raced.
const DefaultFallbackTimeout = 120 * time.Second

// ── Message types ────────────────────────────────────────────────────────────

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single message in the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ── Request types ────────────────────────────────────────────────────────────

// ChatRequest is the unified request format sent to a provider.
type ChatRequest struct {
	Model        string
	Messages     []Message
	SystemPrompt string
	Temperature  *float64
	MaxTokens    int
}

// UserPrompt builds a single-turn request for prompt.
func UserPrompt(model, prompt string) *ChatRequest {
	return &ChatRequest{
		Model:    model,
		Messages: []Message{{Role: RoleUser, Content: prompt}},
	}
}

// ── Event types (streaming output) ───────────────────────────────────────────

type EventType int

const (
	// EventTextDelta: incremental text output from the LLM.
	EventTextDelta EventType = iota

	// EventDone: end of the stream, includes token usage when the provider reports it.
	EventDone

	// EventError: an error occurred; no further events follow.
	EventError
)

// Event is the unified streaming event emitted by a provider.
type Event struct {
	Type EventType

	// EventTextDelta
	TextDelta string

	// EventDone
	Usage *Usage

	// EventError
	Error error
}

// Usage records token consumption for an API call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// ── Provider interface ───────────────────────────────────────────────────────

// Provider is the unified interface for all LLM providers.
type Provider interface {
	// Complete issues a non-streaming request and returns the completion text.
	Complete(ctx context.Context, req *ChatRequest) (string, error)

	// Chat initiates a streaming conversation.
	// The returned channel emits Events until EventDone or EventError, then closes.
	// The caller must fully consume the channel or cancel ctx to avoid goroutine leaks.
	Chat(ctx context.Context, req *ChatRequest) (<-chan Event, error)

	// Name returns the provider identifier, e.g. "openai", "ollama".
	Name() string

	// DefaultModel returns the model used when a request leaves Model empty.
	DefaultModel() string
}

// send delivers ev unless ctx is cancelled first.
func send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

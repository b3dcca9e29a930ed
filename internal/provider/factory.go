package provider

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Options carries transport and logging settings shared by every provider.
type Options struct {
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Logger         *zap.Logger

	// MockDelay and MockChunkDelay pace the test-mode provider.
	MockDelay      time.Duration
	MockChunkDelay time.Duration
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// New creates a provider for cfg.
//
// The openai kind uses the official SDK while it points at the hosted API;
// once a custom endpoint is configured it is treated like any other
// OpenAI-compatible server and goes through CompatProvider.
func New(cfg Config, opts Options) (Provider, error) {
	switch cfg.Kind {
	case KindOpenAI:
		if isHostedOpenAI(cfg.BaseURL) {
			return NewOpenAIProvider(cfg, opts)
		}
		return NewCompatProvider(cfg, opts)
	case KindCustom, KindOllama:
		return NewCompatProvider(cfg, opts)
	case KindAnthropic:
		return NewAnthropicProvider(cfg, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Kind)
	}
}

func isHostedOpenAI(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(raw), "https://api.openai.com")
}

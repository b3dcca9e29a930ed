package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// CompatProvider talks to any OpenAI-compatible chat-completions endpoint
// (self-hosted servers, Ollama's /v1 API, proxies) over plain HTTP.
// Unlike the SDK-backed providers it tolerates several response envelopes.
type CompatProvider struct {
	client *resty.Client
	kind   Kind
	url    string
	apiKey string
	model  string
	log    *zap.Logger
}

// compatRequest is the JSON body of a chat-completions call.
type compatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// NewCompatProvider builds a provider for cfg. The endpoint URL is normalized
// to its chat-completions form; credentials are checked here rather than per call.
func NewCompatProvider(cfg Config, opts Options) (*CompatProvider, error) {
	if cfg.Kind.NeedsKey() && cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for provider %q", ErrMissingCredential, cfg.Kind)
	}
	url, err := NormalizeURL(cfg.BaseURL, cfg.Kind)
	if err != nil {
		return nil, err
	}

	return &CompatProvider{
		client: newRestyClient(opts),
		kind:   cfg.Kind,
		url:    url,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		log:    opts.logger(),
	}, nil
}

func newRestyClient(opts Options) *resty.Client {
	client := resty.New()
	if opts.HTTPClient != nil {
		client = resty.NewWithClient(opts.HTTPClient)
	}
	if opts.RequestTimeout > 0 {
		client.SetTimeout(opts.RequestTimeout)
	}
	return client.
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json, text/event-stream")
}

func (p *CompatProvider) Name() string         { return string(p.kind) }
func (p *CompatProvider) DefaultModel() string { return p.model }

// URL returns the normalized endpoint this provider posts to.
func (p *CompatProvider) URL() string { return p.url }

func (p *CompatProvider) Complete(ctx context.Context, req *ChatRequest) (string, error) {
	start := time.Now()
	resp, err := p.request(ctx, req, false).Post(p.url)
	if err != nil {
		return "", p.transportError(ctx, err)
	}
	p.log.Debug("completion response",
		zap.String("provider", p.Name()),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", time.Since(start)))

	if !resp.IsSuccess() {
		return "", apiError(resp.StatusCode(), resp.Body())
	}
	return ParseCompletion(resp.Body())
}

func (p *CompatProvider) Chat(ctx context.Context, req *ChatRequest) (<-chan Event, error) {
	resp, err := p.request(ctx, req, true).
		SetDoNotParseResponse(true).
		Post(p.url)
	if err != nil {
		return nil, p.transportError(ctx, err)
	}
	body := resp.RawBody()
	if !resp.IsSuccess() {
		defer body.Close()
		data, _ := io.ReadAll(io.LimitReader(body, 64<<10))
		return nil, apiError(resp.StatusCode(), data)
	}

	ch := make(chan Event, 16)
	go func() {
		defer body.Close()
		DecodeStream(ctx, body, ch, p.log)
	}()
	return ch, nil
}

func (p *CompatProvider) request(ctx context.Context, req *ChatRequest, stream bool) *resty.Request {
	model := req.Model
	if model == "" {
		model = p.model
	}
	msgs := req.Messages
	if req.SystemPrompt != "" {
		msgs = append([]Message{{Role: RoleSystem, Content: req.SystemPrompt}}, msgs...)
	}

	r := p.client.R().
		SetContext(ctx).
		SetBody(compatRequest{
			Model:       model,
			Messages:    msgs,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
			Stream:      stream,
		})
	if p.apiKey != "" {
		r.SetAuthToken(p.apiKey)
	}
	return r
}

// transportError classifies a failed round trip. Cancellation is passed
// through untouched; everything else is a connection failure.
func (p *CompatProvider) transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	p.log.Warn("provider unreachable", zap.String("provider", p.Name()), zap.String("url", p.url), zap.Error(err))
	return &ConnectionError{URL: p.url, Err: err}
}

func apiError(status int, body []byte) error {
	msg := strings.TrimSpace(ParseErrorMessage(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: truncate(msg, 500)}
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"go.uber.org/zap"
)

const (
	defaultAnthropicModel     = "claude-sonnet-4-20250514"
	defaultAnthropicURL       = "https://api.anthropic.com"
	defaultAnthropicMaxTokens = 2000
)

// AnthropicProvider implements Provider using the Anthropic Messages API.
type AnthropicProvider struct {
	client  anthropic.Client
	model   string
	baseURL string
	log     *zap.Logger
}

func NewAnthropicProvider(cfg Config, opts Options) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for provider %q", ErrMissingCredential, KindAnthropic)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultAnthropicURL
	}

	reqOpts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(cfg.APIKey),
		anthropicoption.WithBaseURL(baseURL + "/"),
		anthropicoption.WithMaxRetries(0),
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, anthropicoption.WithHTTPClient(opts.HTTPClient))
	}
	if opts.RequestTimeout > 0 {
		reqOpts = append(reqOpts, anthropicoption.WithRequestTimeout(opts.RequestTimeout))
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicProvider{
		client:  anthropic.NewClient(reqOpts...),
		model:   model,
		baseURL: baseURL,
		log:     opts.logger(),
	}, nil
}

func (p *AnthropicProvider) Name() string         { return string(KindAnthropic) }
func (p *AnthropicProvider) DefaultModel() string { return p.model }

func (p *AnthropicProvider) Complete(ctx context.Context, req *ChatRequest) (string, error) {
	msg, err := p.client.Messages.New(ctx, p.params(req))
	if err != nil {
		return "", p.classify(ctx, err)
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", ErrUnexpectedResponse
	}
	return b.String(), nil
}

func (p *AnthropicProvider) Chat(ctx context.Context, req *ChatRequest) (<-chan Event, error) {
	stream := p.client.Messages.NewStreaming(ctx, p.params(req))
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, p.classify(ctx, err)
	}

	ch := make(chan Event, 16)
	go p.processStream(ctx, stream, ch)
	return ch, nil
}

func (p *AnthropicProvider) params(req *ChatRequest) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  p.buildMessages(req.Messages),
		MaxTokens: maxTokens,
	}
	system := req.SystemPrompt
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = strings.TrimSpace(system + "\n\n" + m.Content)
		}
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	return params
}

// processStream reads the Anthropic SSE stream and emits unified events.
// Only text deltas are surfaced; MessageDeltaEvent carries the final usage.
func (p *AnthropicProvider) processStream(ctx context.Context, stream *ssestream.Stream[anthropic.MessageStreamEventUnion], ch chan<- Event) {
	defer close(ch)
	defer stream.Close()

	usage := &Usage{}
	for stream.Next() {
		event := stream.Current()
		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if d, ok := variant.Delta.AsAny().(anthropic.TextDelta); ok && d.Text != "" {
				if !send(ctx, ch, Event{Type: EventTextDelta, TextDelta: d.Text}) {
					return
				}
			}
		case anthropic.MessageDeltaEvent:
			usage.InputTokens = int(variant.Usage.InputTokens)
			usage.OutputTokens = int(variant.Usage.OutputTokens)
		}
	}

	if err := stream.Err(); err != nil {
		send(ctx, ch, Event{Type: EventError, Error: p.classify(ctx, err)})
		return
	}
	send(ctx, ch, Event{Type: EventDone, Usage: usage})
}

// buildMessages converts unified messages to Anthropic params. System
// messages are lifted into the request's system field by params.
func (p *AnthropicProvider) buildMessages(msgs []Message) []anthropic.MessageParam {
	var params []anthropic.MessageParam
	for _, msg := range msgs {
		switch msg.Role {
		case RoleUser:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return params
}

func (p *AnthropicProvider) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiError(apiErr.StatusCode, []byte(apiErr.RawJSON()))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	p.log.Warn("provider unreachable", zap.String("provider", p.Name()), zap.String("url", p.baseURL), zap.Error(err))
	return &ConnectionError{URL: p.baseURL, Err: err}
}

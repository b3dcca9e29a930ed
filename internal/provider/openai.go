package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"go.uber.org/zap"
)

// OpenAIProvider implements Provider for the hosted OpenAI API using the
// official SDK. Self-hosted OpenAI-compatible servers go through CompatProvider.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	baseURL string
	log     *zap.Logger
}

func NewOpenAIProvider(cfg Config, opts Options) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for provider %q", ErrMissingCredential, KindOpenAI)
	}
	url, err := NormalizeURL(cfg.BaseURL, KindOpenAI)
	if err != nil {
		return nil, err
	}
	baseURL := BaseURL(url)

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		// The dispatcher owns the only retry policy: one fallback attempt.
		option.WithMaxRetries(0),
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	if opts.RequestTimeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.RequestTimeout))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIProvider{
		client:  openai.NewClient(reqOpts...),
		model:   model,
		baseURL: baseURL,
		log:     opts.logger(),
	}, nil
}

func (p *OpenAIProvider) Name() string         { return string(KindOpenAI) }
func (p *OpenAIProvider) DefaultModel() string { return p.model }

func (p *OpenAIProvider) Complete(ctx context.Context, req *ChatRequest) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.params(req))
	if err != nil {
		return "", p.classify(ctx, err)
	}
	// Route through the shared envelope parser so empty replies are
	// reported the same way as for compatible servers.
	return ParseCompletion([]byte(resp.RawJSON()))
}

func (p *OpenAIProvider) Chat(ctx context.Context, req *ChatRequest) (<-chan Event, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, p.params(req))
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, p.classify(ctx, err)
	}

	ch := make(chan Event, 16)
	go p.processStream(ctx, stream, ch)
	return ch, nil
}

func (p *OpenAIProvider) params(req *ChatRequest) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = p.model
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: p.buildMessages(req),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	return params
}

// processStream reads the OpenAI SSE stream and emits unified events.
func (p *OpenAIProvider) processStream(ctx context.Context, stream *ssestream.Stream[openai.ChatCompletionChunk], ch chan<- Event) {
	defer close(ch)
	defer stream.Close()

	usage := &Usage{}
	for stream.Next() {
		chunk := stream.Current()
		if chunk.Usage.PromptTokens > 0 || chunk.Usage.CompletionTokens > 0 {
			usage.InputTokens = int(chunk.Usage.PromptTokens)
			usage.OutputTokens = int(chunk.Usage.CompletionTokens)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if d := chunk.Choices[0].Delta.Content; d != "" {
			if !send(ctx, ch, Event{Type: EventTextDelta, TextDelta: d}) {
				return
			}
		}
	}

	if err := stream.Err(); err != nil {
		send(ctx, ch, Event{Type: EventError, Error: p.classify(ctx, err)})
		return
	}
	send(ctx, ch, Event{Type: EventDone, Usage: usage})
}

func (p *OpenAIProvider) buildMessages(req *ChatRequest) []openai.ChatCompletionMessageParamUnion {
	var params []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		params = append(params, openai.SystemMessage(req.SystemPrompt))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			params = append(params, openai.SystemMessage(msg.Content))
		case RoleUser:
			params = append(params, openai.UserMessage(msg.Content))
		case RoleAssistant:
			params = append(params, openai.AssistantMessage(msg.Content))
		}
	}
	return params
}

// classify maps SDK errors onto the shared error taxonomy.
func (p *OpenAIProvider) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.StatusCode, Message: apiErr.Message}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	p.log.Warn("provider unreachable", zap.String("provider", p.Name()), zap.String("url", p.baseURL), zap.Error(err))
	return &ConnectionError{URL: p.baseURL, Err: err}
}

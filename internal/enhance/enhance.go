// Package enhance rewrites note text through the dispatcher: it builds the
// improve/enhance prompt, caches replies, applies results to files and keeps
// the history needed to undo them.
package enhance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/quillmate/quillmate/internal/prompt"
	"github.com/quillmate/quillmate/internal/provider"
)

// ProbePrompt is sent by TestConnection.
const ProbePrompt = `Reply with one word: "OK"`

// ErrProbeFailed is returned when the endpoint answers the probe with
// something other than OK.
var ErrProbeFailed = errors.New("connection test failed: unexpected reply")

// Completer is the part of the dispatcher the service needs.
type Completer interface {
	Complete(ctx context.Context, req *provider.ChatRequest) (string, error)
}

// Config holds the request settings of a Service.
type Config struct {
	Prompt      prompt.Options
	Temperature float64

	// Model identifies the primary model in cache keys.
	Model string

	// CacheTTL keeps identical requests in memory; 0 disables the cache.
	CacheTTL time.Duration

	// TestMode makes TestConnection succeed without a request.
	TestMode bool
}

// Service runs rewrites. It is safe for concurrent use.
type Service struct {
	completer Completer
	cfg       Config
	cache     *cache.Cache
	log       *zap.Logger
}

func New(c Completer, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{completer: c, cfg: cfg, log: log}
	if cfg.CacheTTL > 0 {
		s.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return s
}

// Enhance rewrites text in the given mode and returns the model's reply
// without trailing whitespace.
func (s *Service) Enhance(ctx context.Context, text string, mode prompt.Mode) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptySelection
	}

	p := prompt.Build(text, mode, s.cfg.Prompt)
	temp := s.cfg.Temperature
	req := &provider.ChatRequest{
		Messages:    []provider.Message{{Role: provider.RoleUser, Content: p}},
		Temperature: &temp,
		MaxTokens:   prompt.MaxTokens(prompt.Len(p), s.cfg.Prompt),
	}

	key := s.cacheKey(req)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			s.log.Debug("rewrite served from cache", zap.String("mode", string(mode)))
			return v.(string), nil
		}
	}

	start := time.Now()
	out, err := s.completer.Complete(ctx, req)
	if err != nil {
		s.log.Warn("rewrite failed", zap.String("mode", string(mode)), zap.Error(err))
		return "", err
	}
	out = strings.TrimRight(out, " \t\r\n")
	if out == "" {
		return "", provider.ErrUnexpectedResponse
	}

	s.log.Info("rewrite completed",
		zap.String("mode", string(mode)),
		zap.Int("input_chars", prompt.Len(text)),
		zap.Int("output_chars", prompt.Len(out)),
		zap.Int("max_tokens", req.MaxTokens),
		zap.Duration("elapsed", time.Since(start)))

	if s.cache != nil {
		s.cache.SetDefault(key, out)
	}
	return out, nil
}

// TestConnection sends the probe prompt and succeeds when the reply
// contains "ok" in any case.
func (s *Service) TestConnection(ctx context.Context) error {
	if s.cfg.TestMode {
		return nil
	}
	temp := s.cfg.Temperature
	reply, err := s.completer.Complete(ctx, &provider.ChatRequest{
		Messages:    []provider.Message{{Role: provider.RoleUser, Content: ProbePrompt}},
		Temperature: &temp,
		MaxTokens:   prompt.MaxTokens(prompt.Len(ProbePrompt), s.cfg.Prompt),
	})
	if err != nil {
		return err
	}
	if !strings.Contains(strings.ToLower(reply), "ok") {
		return fmt.Errorf("%w: %q", ErrProbeFailed, truncate(strings.TrimSpace(reply), 80))
	}
	return nil
}

func (s *Service) cacheKey(req *provider.ChatRequest) string {
	h := sha256.New()
	h.Write([]byte(s.cfg.Model))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(*req.Temperature, 'g', -1, 64)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(req.MaxTokens)))
	h.Write([]byte{0})
	h.Write([]byte(req.Messages[0].Content))
	return hex.EncodeToString(h.Sum(nil))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Package chat implements the multi-conversation chat: selecting, creating,
// renaming and deleting persisted chats, and streaming replies into them.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quillmate/quillmate/internal/provider"
	"github.com/quillmate/quillmate/internal/session"
)

// ErrAmbiguousID is returned when an id prefix matches more than one chat.
var ErrAmbiguousID = errors.New("ambiguous chat id")

// Streamer opens a streamed reply. *dispatch.Dispatcher satisfies it.
type Streamer interface {
	Stream(ctx context.Context, req *provider.ChatRequest) (<-chan provider.Event, error)
}

// Config controls how requests are built and how much history is kept.
type Config struct {
	Model        string
	SystemPrompt string
	Temperature  *float64
	MaxTokens    int

	// MaxHistory caps stored messages per chat; ContextMessages is how many
	// of them accompany a new prompt.
	MaxHistory      int
	ContextMessages int

	CoalesceInterval time.Duration
}

// Service owns the selected chat and persists every change through store.
// It is used from a single goroutine.
type Service struct {
	streamer Streamer
	store    session.Store
	cfg      Config
	log      *zap.Logger

	current *session.Chat
}

// NewService creates a chat service. A zero MaxHistory or ContextMessages
// takes the session package defaults.
func NewService(s Streamer, store session.Store, cfg Config, log *zap.Logger) *Service {
	if cfg.MaxHistory == 0 {
		cfg.MaxHistory = session.DefaultMaxHistory
	}
	if cfg.ContextMessages == 0 {
		cfg.ContextMessages = session.DefaultContextMessages
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{streamer: s, store: store, cfg: cfg, log: log}
}

// Current returns the selected chat. On first use it restores the persisted
// selection, falling back to the most recently updated chat, or a new one.
func (s *Service) Current() (*session.Chat, error) {
	if s.current != nil {
		return s.current, nil
	}

	id, err := s.store.CurrentChatID()
	if err != nil {
		return nil, fmt.Errorf("read selected chat: %w", err)
	}
	if id == "" {
		infos, err := s.store.List()
		if err != nil {
			return nil, fmt.Errorf("list chats: %w", err)
		}
		if len(infos) > 0 {
			id = infos[0].ID
		}
	}
	if id != "" {
		c, err := s.store.Load(id)
		switch {
		case err == nil:
			return s.selectChat(c)
		case !errors.Is(err, session.ErrNotFound):
			return nil, fmt.Errorf("load chat %s: %w", id, err)
		}
		s.log.Warn("selected chat is gone, starting a new one", zap.String("chat", id))
	}
	return s.NewChat()
}

// NewChat creates, saves and selects an empty chat.
func (s *Service) NewChat() (*session.Chat, error) {
	c := session.New()
	if err := s.store.Save(c); err != nil {
		return nil, fmt.Errorf("save chat: %w", err)
	}
	return s.selectChat(c)
}

// Switch selects the chat whose id is or starts with id.
func (s *Service) Switch(id string) (*session.Chat, error) {
	full, err := s.Resolve(id)
	if err != nil {
		return nil, err
	}
	c, err := s.store.Load(full)
	if err != nil {
		return nil, fmt.Errorf("load chat %s: %w", full, err)
	}
	return s.selectChat(c)
}

func (s *Service) selectChat(c *session.Chat) (*session.Chat, error) {
	if err := s.store.SetCurrentChatID(c.ID); err != nil {
		return nil, fmt.Errorf("select chat: %w", err)
	}
	s.current = c
	return c, nil
}

// Resolve expands an id prefix to a full chat id.
func (s *Service) Resolve(prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("chat id %w", session.ErrNotFound)
	}
	infos, err := s.store.List()
	if err != nil {
		return "", fmt.Errorf("list chats: %w", err)
	}
	var match string
	for _, info := range infos {
		if info.ID == prefix {
			return info.ID, nil
		}
		if strings.HasPrefix(info.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("%w: %q", ErrAmbiguousID, prefix)
			}
			match = info.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("chat %q: %w", prefix, session.ErrNotFound)
	}
	return match, nil
}

// List returns all chats, most recently updated first.
func (s *Service) List() ([]session.ChatInfo, error) {
	return s.store.List()
}

// Rename retitles the chat identified by id (or prefix); an empty id means
// the selected chat.
func (s *Service) Rename(id, title string) (*session.Chat, error) {
	c, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	c.Rename(title)
	if err := s.store.Save(c); err != nil {
		return nil, fmt.Errorf("save chat: %w", err)
	}
	return c, nil
}

// Delete removes the chat identified by id (or prefix). Deleting the
// selected chat clears the selection; the next Current call picks another.
func (s *Service) Delete(id string) error {
	full, err := s.Resolve(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(full); err != nil {
		return fmt.Errorf("delete chat %s: %w", full, err)
	}
	if s.current != nil && s.current.ID == full {
		s.current = nil
	}
	return nil
}

// Clear drops the messages of the selected chat.
func (s *Service) Clear() error {
	c, err := s.Current()
	if err != nil {
		return err
	}
	c.Clear()
	if err := s.store.Save(c); err != nil {
		return fmt.Errorf("save chat: %w", err)
	}
	return nil
}

func (s *Service) lookup(id string) (*session.Chat, error) {
	if id == "" {
		return s.Current()
	}
	full, err := s.Resolve(id)
	if err != nil {
		return nil, err
	}
	if s.current != nil && s.current.ID == full {
		return s.current, nil
	}
	return s.store.Load(full)
}

// Send appends text to the selected chat as a user message and streams the
// assistant reply. onUpdate receives coalesced snapshots; the last one has
// Done or Err set. The final reply is appended and saved. A failed reply is
// recorded as "Error: <message>" and its error returned.
//
// When ctx is cancelled mid-reply the partial text received so far is kept.
func (s *Service) Send(ctx context.Context, text string, onUpdate func(provider.Snapshot)) (string, error) {
	c, err := s.Current()
	if err != nil {
		return "", err
	}

	history := c.Context(s.cfg.ContextMessages)
	s.log.Debug("sending message",
		zap.String("chat", c.ID),
		zap.Int("context_messages", len(history)),
		zap.Int("chat_tokens_est", c.EstimateTokens()))
	c.AddMessage(provider.RoleUser, text, s.cfg.MaxHistory)
	if err := s.store.Save(c); err != nil {
		return "", fmt.Errorf("save chat: %w", err)
	}

	req := &provider.ChatRequest{
		Model:        s.cfg.Model,
		Messages:     append(history, provider.Message{Role: provider.RoleUser, Content: text}),
		SystemPrompt: s.cfg.SystemPrompt,
		Temperature:  s.cfg.Temperature,
		MaxTokens:    s.cfg.MaxTokens,
	}

	start := time.Now()
	reply, err := s.stream(ctx, req, onUpdate)
	switch {
	case err == nil:
		c.AddMessage(provider.RoleAssistant, reply, s.cfg.MaxHistory)
		s.log.Info("reply received",
			zap.String("chat", c.ID),
			zap.Int("chars", len(reply)),
			zap.Duration("elapsed", time.Since(start)))
	case ctx.Err() != nil:
		if reply != "" {
			c.AddMessage(provider.RoleAssistant, reply, s.cfg.MaxHistory)
		}
		err = ctx.Err()
	default:
		s.log.Error("reply failed", zap.String("chat", c.ID), zap.Error(err))
		c.AddMessage(provider.RoleAssistant, "Error: "+err.Error(), s.cfg.MaxHistory)
	}

	if serr := s.store.Save(c); serr != nil {
		return reply, errors.Join(err, fmt.Errorf("save chat: %w", serr))
	}
	return reply, err
}

// stream runs one streamed request to completion and returns the full reply,
// or the partial reply and the error that ended it.
func (s *Service) stream(ctx context.Context, req *provider.ChatRequest, onUpdate func(provider.Snapshot)) (string, error) {
	events, err := s.streamer.Stream(ctx, req)
	if err != nil {
		return "", err
	}

	var last provider.Snapshot
	for snap := range provider.Coalesce(ctx, events, s.cfg.CoalesceInterval) {
		last = snap
		if onUpdate != nil {
			onUpdate(snap)
		}
	}
	switch {
	case ctx.Err() != nil:
		return last.Text, ctx.Err()
	case last.Err != nil:
		return last.Text, last.Err
	case !last.Done:
		return last.Text, provider.ErrUnexpectedResponse
	case strings.TrimSpace(last.Text) == "":
		return "", provider.ErrUnexpectedResponse
	}
	return last.Text, nil
}

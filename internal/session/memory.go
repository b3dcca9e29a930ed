package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store and RewriteStore in process memory. Nothing
// survives a restart; it backs ephemeral runs and tests.
type MemoryStore struct {
	mu       sync.Mutex
	chats    map[string]*Chat
	current  string
	rewrites []*Rewrite
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chats: make(map[string]*Chat)}
}

func (s *MemoryStore) Save(c *Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[c.ID] = cloneChat(c)
	return nil
}

func (s *MemoryStore) Load(id string) (*Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return nil, fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	return cloneChat(c), nil
}

func (s *MemoryStore) List() ([]ChatInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]ChatInfo, 0, len(s.chats))
	for _, c := range s.chats {
		infos = append(infos, ChatInfo{
			ID:        c.ID,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
			Messages:  len(c.Messages),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].UpdatedAt.After(infos[j].UpdatedAt) })
	return infos, nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		return fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	delete(s.chats, id)
	if s.current == id {
		s.current = ""
	}
	return nil
}

func (s *MemoryStore) CurrentChatID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, nil
}

func (s *MemoryStore) SetCurrentChatID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
	return nil
}

func (s *MemoryStore) AddRewrite(r *Rewrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	cp := *r
	s.rewrites = append(s.rewrites, &cp)
	return nil
}

func (s *MemoryStore) LastRewrite(path string) (*Rewrite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.rewrites) - 1; i >= 0; i-- {
		if s.rewrites[i].Path == path {
			cp := *s.rewrites[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("rewrite of %s: %w", path, ErrNotFound)
}

func (s *MemoryStore) DeleteRewrite(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rewrites {
		if r.ID == id {
			s.rewrites = append(s.rewrites[:i], s.rewrites[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("rewrite %s: %w", id, ErrNotFound)
}

func (s *MemoryStore) Close() error { return nil }

func cloneChat(c *Chat) *Chat {
	cp := *c
	cp.Messages = append([]Message(nil), c.Messages...)
	return &cp
}

package session

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a chat or rewrite does not exist.
var ErrNotFound = errors.New("not found")

// Store abstracts chat persistence (SQLite, in-memory).
type Store interface {
	Save(c *Chat) error
	Load(id string) (*Chat, error)
	List() ([]ChatInfo, error)
	Delete(id string) error

	// CurrentChatID returns the selected chat, or "" when none is selected.
	CurrentChatID() (string, error)
	SetCurrentChatID(id string) error

	Close() error
}

// ChatInfo is a lightweight summary of a saved chat (for listing).
type ChatInfo struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  int
}

// Rewrite records one applied rewrite so it can be undone.
type Rewrite struct {
	ID        string
	Path      string
	StartLine int
	EndLine   int
	Original  string
	Rewritten string
	CreatedAt time.Time
}

// RewriteStore keeps the history of applied rewrites.
type RewriteStore interface {
	AddRewrite(r *Rewrite) error
	// LastRewrite returns the most recent rewrite of path, or ErrNotFound.
	LastRewrite(path string) (*Rewrite, error)
	DeleteRewrite(id string) error
}

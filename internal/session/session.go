package session

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/quillmate/quillmate/internal/provider"
)

const (
	// DefaultMaxHistory is the number of messages a chat keeps by default.
	DefaultMaxHistory = 100

	// DefaultTitle names a chat until its first user message arrives.
	DefaultTitle = "New chat"

	titleMaxRunes = 40
)

// Message is one entry of a chat transcript.
type Message struct {
	Role      provider.Role `json:"role"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
}

// Chat holds one persisted conversation.
type Chat struct {
	ID        string
	Title     string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an empty chat with a unique ID.
func New() *Chat {
	now := time.Now()
	return &Chat{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddMessage appends a message stamped with the current time and drops the
// oldest messages beyond maxHistory (no limit when maxHistory <= 0).
//
// Timestamps never go backwards within a chat, even if the wall clock does,
// and UpdatedAt only moves forward.
func (c *Chat) AddMessage(role provider.Role, content string, maxHistory int) Message {
	ts := time.Now()
	if n := len(c.Messages); n > 0 && ts.Before(c.Messages[n-1].Timestamp) {
		ts = c.Messages[n-1].Timestamp
	}
	msg := Message{Role: role, Content: content, Timestamp: ts}

	if role == provider.RoleUser && c.Title == DefaultTitle && !c.hasUserMessage() {
		c.Title = Title(content)
	}
	c.Messages = append(c.Messages, msg)
	if maxHistory > 0 && len(c.Messages) > maxHistory {
		c.Messages = append([]Message(nil), c.Messages[len(c.Messages)-maxHistory:]...)
	}
	c.touch(ts)
	return msg
}

// Clear drops all messages but keeps the chat and its title.
func (c *Chat) Clear() {
	c.Messages = nil
	c.touch(time.Now())
}

// Rename sets the chat title. A blank title restores the default.
func (c *Chat) Rename(title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	c.Title = title
	c.touch(time.Now())
}

func (c *Chat) touch(t time.Time) {
	if t.After(c.UpdatedAt) {
		c.UpdatedAt = t
	}
}

func (c *Chat) hasUserMessage() bool {
	for _, m := range c.Messages {
		if m.Role == provider.RoleUser {
			return true
		}
	}
	return false
}

// Title derives a chat title from its first user message: the first line,
// cut to 40 characters.
func Title(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	if text == "" {
		return DefaultTitle
	}
	if utf8.RuneCountInString(text) <= titleMaxRunes {
		return text
	}
	r := []rune(text)
	return strings.TrimSpace(string(r[:titleMaxRunes])) + "…"
}

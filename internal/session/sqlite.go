package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS chats (
    id            TEXT PRIMARY KEY,
    title         TEXT NOT NULL DEFAULT '',
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL,
    message_count INTEGER DEFAULT 0,
    messages      TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_chats_updated_at ON chats(updated_at);

CREATE TABLE IF NOT EXISTS state (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rewrites (
    id         TEXT PRIMARY KEY,
    path       TEXT NOT NULL,
    start_line INTEGER NOT NULL,
    end_line   INTEGER NOT NULL,
    original   TEXT NOT NULL,
    rewritten  TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rewrites_path ON rewrites(path, created_at);
`

const currentChatKey = "current_chat_id"

// timeLayout is fixed-width so that timestamps sort correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// SQLiteStore implements Store and RewriteStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultDBPath returns the default database path (~/.local/share/quillmate/quillmate.db).
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "quillmate", "quillmate.db"), nil
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(createTablesSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(c *Chat) error {
	msgJSON, err := json.Marshal(c.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO chats
			(id, title, created_at, updated_at, message_count, messages)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.Title,
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
		len(c.Messages),
		string(msgJSON),
	)
	if err != nil {
		return fmt.Errorf("save chat: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(id string) (*Chat, error) {
	row := s.db.QueryRow(`
		SELECT id, title, created_at, updated_at, messages
		FROM chats WHERE id = ?`, id)

	var c Chat
	var createdAt, updatedAt, msgJSON string
	err := row.Scan(&c.ID, &c.Title, &createdAt, &updatedAt, &msgJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load chat: %w", err)
	}

	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)

	if err := json.Unmarshal([]byte(msgJSON), &c.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) List() ([]ChatInfo, error) {
	rows, err := s.db.Query(`
		SELECT id, title, created_at, updated_at, message_count
		FROM chats ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var infos []ChatInfo
	for rows.Next() {
		var info ChatInfo
		var createdAt, updatedAt string
		if err := rows.Scan(&info.ID, &info.Title, &createdAt, &updatedAt, &info.Messages); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		info.CreatedAt = parseTime(createdAt)
		info.UpdatedAt = parseTime(updatedAt)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes a chat. Deleting the selected chat also clears the selection.
func (s *SQLiteStore) Delete(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec("DELETE FROM chats WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	if _, err := tx.Exec("DELETE FROM state WHERE key = ? AND value = ?", currentChatKey, id); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) CurrentChatID() (string, error) {
	var id string
	err := s.db.QueryRow("SELECT value FROM state WHERE key = ?", currentChatKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load current chat: %w", err)
	}
	return id, nil
}

// SetCurrentChatID selects a chat; an empty id clears the selection.
func (s *SQLiteStore) SetCurrentChatID(id string) error {
	var err error
	if id == "" {
		_, err = s.db.Exec("DELETE FROM state WHERE key = ?", currentChatKey)
	} else {
		_, err = s.db.Exec("INSERT OR REPLACE INTO state (key, value) VALUES (?, ?)", currentChatKey, id)
	}
	if err != nil {
		return fmt.Errorf("save current chat: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AddRewrite(r *Rewrite) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO rewrites (id, path, start_line, end_line, original, rewritten, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Path, r.StartLine, r.EndLine, r.Original, r.Rewritten,
		formatTime(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save rewrite: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LastRewrite(path string) (*Rewrite, error) {
	row := s.db.QueryRow(`
		SELECT id, path, start_line, end_line, original, rewritten, created_at
		FROM rewrites WHERE path = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, path)

	var r Rewrite
	var createdAt string
	err := row.Scan(&r.ID, &r.Path, &r.StartLine, &r.EndLine, &r.Original, &r.Rewritten, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rewrite of %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load rewrite: %w", err)
	}
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

func (s *SQLiteStore) DeleteRewrite(id string) error {
	result, err := s.db.Exec("DELETE FROM rewrites WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete rewrite: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("rewrite %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

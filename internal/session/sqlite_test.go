package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillmate/quillmate/internal/provider"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err, "NewSQLiteStore")
	t.Cleanup(func() { store.Close() })
	return store
}

type fullStore interface {
	Store
	RewriteStore
}

// stores runs fn against every Store implementation.
func stores(t *testing.T, fn func(t *testing.T, s fullStore)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestStore(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
}

func TestSaveAndLoad(t *testing.T) {
	stores(t, func(t *testing.T, store fullStore) {
		c := &Chat{
			ID:        "abc123",
			Title:     "Groceries",
			CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			UpdatedAt: time.Date(2025, 1, 1, 0, 5, 0, 0, time.UTC),
			Messages: []Message{
				{Role: provider.RoleUser, Content: "hello", Timestamp: time.Date(2025, 1, 1, 0, 1, 0, 0, time.UTC)},
				{Role: provider.RoleAssistant, Content: "hi", Timestamp: time.Date(2025, 1, 1, 0, 2, 0, 0, time.UTC)},
			},
		}
		require.NoError(t, store.Save(c))

		loaded, err := store.Load("abc123")
		require.NoError(t, err)
		assert.Equal(t, c.ID, loaded.ID)
		assert.Equal(t, "Groceries", loaded.Title)
		assert.True(t, loaded.CreatedAt.Equal(c.CreatedAt), "CreatedAt = %s", loaded.CreatedAt)
		assert.True(t, loaded.UpdatedAt.Equal(c.UpdatedAt), "UpdatedAt = %s", loaded.UpdatedAt)
		require.Len(t, loaded.Messages, 2)
		assert.Equal(t, "hello", loaded.Messages[0].Content)
		assert.Equal(t, provider.RoleAssistant, loaded.Messages[1].Role)
		assert.True(t, loaded.Messages[1].Timestamp.Equal(c.Messages[1].Timestamp))
	})
}

func TestLoadNotFound(t *testing.T) {
	stores(t, func(t *testing.T, store fullStore) {
		_, err := store.Load("nonexistent")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListOrderedByUpdatedAt(t *testing.T) {
	stores(t, func(t *testing.T, store fullStore) {
		now := time.Now()
		older := &Chat{ID: "older", Title: "a", CreatedAt: now.Add(-3 * time.Hour), UpdatedAt: now.Add(-2 * time.Hour)}
		newer := &Chat{ID: "newer", Title: "b", CreatedAt: now.Add(-3 * time.Hour), UpdatedAt: now.Add(-time.Hour)}
		require.NoError(t, store.Save(newer))
		require.NoError(t, store.Save(older))

		infos, err := store.List()
		require.NoError(t, err)
		require.Len(t, infos, 2)
		assert.Equal(t, "newer", infos[0].ID)
		assert.Equal(t, "older", infos[1].ID)
		assert.Equal(t, "b", infos[0].Title)
	})
}

func TestDelete(t *testing.T) {
	stores(t, func(t *testing.T, store fullStore) {
		c := New()
		require.NoError(t, store.Save(c))
		require.NoError(t, store.SetCurrentChatID(c.ID))

		require.NoError(t, store.Delete(c.ID))
		_, err := store.Load(c.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		// The selection is cleared along with the chat.
		id, err := store.CurrentChatID()
		require.NoError(t, err)
		assert.Empty(t, id)

		assert.ErrorIs(t, store.Delete("nonexistent"), ErrNotFound)
	})
}

func TestSaveUpdatesExisting(t *testing.T) {
	stores(t, func(t *testing.T, store fullStore) {
		c := New()
		c.AddMessage(provider.RoleUser, "v1", 0)
		require.NoError(t, store.Save(c))

		c.AddMessage(provider.RoleAssistant, "v2", 0)
		require.NoError(t, store.Save(c))

		loaded, err := store.Load(c.ID)
		require.NoError(t, err)
		assert.Len(t, loaded.Messages, 2)

		infos, err := store.List()
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, 2, infos[0].Messages)
	})
}

func TestCurrentChatID(t *testing.T) {
	stores(t, func(t *testing.T, store fullStore) {
		id, err := store.CurrentChatID()
		require.NoError(t, err)
		assert.Empty(t, id)

		require.NoError(t, store.SetCurrentChatID("one"))
		require.NoError(t, store.SetCurrentChatID("two"))
		id, err = store.CurrentChatID()
		require.NoError(t, err)
		assert.Equal(t, "two", id)

		require.NoError(t, store.SetCurrentChatID(""))
		id, err = store.CurrentChatID()
		require.NoError(t, err)
		assert.Empty(t, id)
	})
}

func TestRewriteHistory(t *testing.T) {
	stores(t, func(t *testing.T, store fullStore) {
		_, err := store.LastRewrite("notes.md")
		assert.ErrorIs(t, err, ErrNotFound)

		base := time.Now()
		first := &Rewrite{Path: "notes.md", StartLine: 1, EndLine: 2, Original: "a", Rewritten: "A", CreatedAt: base}
		second := &Rewrite{Path: "notes.md", StartLine: 3, EndLine: 3, Original: "b", Rewritten: "B", CreatedAt: base.Add(time.Second)}
		other := &Rewrite{Path: "other.md", StartLine: 1, EndLine: 1, Original: "c", Rewritten: "C", CreatedAt: base.Add(2 * time.Second)}
		for _, r := range []*Rewrite{first, second, other} {
			require.NoError(t, store.AddRewrite(r))
			assert.NotEmpty(t, r.ID)
		}

		last, err := store.LastRewrite("notes.md")
		require.NoError(t, err)
		assert.Equal(t, second.ID, last.ID)
		assert.Equal(t, "b", last.Original)
		assert.Equal(t, 3, last.StartLine)

		require.NoError(t, store.DeleteRewrite(last.ID))
		last, err = store.LastRewrite("notes.md")
		require.NoError(t, err)
		assert.Equal(t, first.ID, last.ID)

		assert.ErrorIs(t, store.DeleteRewrite("missing"), ErrNotFound)
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "quillmate.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	c := New()
	c.AddMessage(provider.RoleUser, "remember me", 0)
	require.NoError(t, store.Save(c))
	require.NoError(t, store.SetCurrentChatID(c.ID))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	id, err := store.CurrentChatID()
	require.NoError(t, err)
	assert.Equal(t, c.ID, id)
	loaded, err := store.Load(id)
	require.NoError(t, err)
	assert.Equal(t, "remember me", loaded.Title)
}

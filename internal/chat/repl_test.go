package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillmate/quillmate/internal/provider"
	"github.com/quillmate/quillmate/internal/session"
	"github.com/quillmate/quillmate/internal/tui"
)

func runREPL(t *testing.T, fs *fakeStreamer, store session.Store, inputs ...string) *tui.BufferIO {
	t.Helper()
	ui := tui.NewBufferIO(inputs...)
	svc := newTestService(fs, store, Config{})
	r := NewREPL(svc, ui, tui.Status{Provider: "openai", Model: "gpt-4o-mini"}, nil)
	require.NoError(t, r.Run(context.Background()))
	return ui
}

func TestREPL_SendsPromptsUntilEOF(t *testing.T) {
	fs := &fakeStreamer{events: reply("Hi ", "there")}
	ui := runREPL(t, fs, session.NewMemoryStore(), "hello", "", "again")

	assert.Equal(t, []string{"Hi there", "Hi there"}, ui.Replies())
	assert.Positive(t, ui.Updates())
	assert.Len(t, fs.requests, 2)

	st := ui.Status()
	assert.Equal(t, "openai", st.Provider)
	assert.Equal(t, "hello", st.Chat)
}

func TestREPL_ErrorIsReported(t *testing.T) {
	fs := &fakeStreamer{err: &provider.ConnectionError{URL: "http://localhost:1", Err: assert.AnError}}
	ui := runREPL(t, fs, session.NewMemoryStore(), "hello")

	require.Len(t, ui.Errors(), 1)
	assert.Contains(t, ui.Errors()[0], "http://localhost:1")
	assert.Empty(t, ui.Replies())
}

func TestREPL_SlashCommands(t *testing.T) {
	store := session.NewMemoryStore()
	fs := &fakeStreamer{events: reply("ok")}
	ui := runREPL(t, fs, store,
		"first question",
		"/rename Research",
		"/new",
		"/list",
		"/bogus",
		"/quit",
		"never sent",
	)

	infos, err := store.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)

	sys := strings.Join(ui.SystemMessages(), "\n")
	assert.Contains(t, sys, `Renamed to "Research".`)
	assert.Contains(t, sys, "Started a new chat")
	assert.Contains(t, sys, "Research")
	assert.Contains(t, sys, "Bye.")

	require.Len(t, ui.Errors(), 1)
	assert.Contains(t, ui.Errors()[0], "unknown command /bogus")
	assert.Len(t, fs.requests, 1, "input after /quit must not be sent")
}

func TestREPL_SwitchAndDelete(t *testing.T) {
	store := session.NewMemoryStore()
	keep := session.New()
	keep.Title = "Keep me"
	keep.AddMessage(provider.RoleUser, "old question", 0)
	drop := session.New()
	drop.Title = "Drop me"
	require.NoError(t, store.Save(keep))
	require.NoError(t, store.Save(drop))

	ui := runREPL(t, &fakeStreamer{}, store,
		"/switch "+keep.ID[:8],
		"/delete "+drop.ID,
		"/switch",
		"/clear",
	)

	sys := strings.Join(ui.SystemMessages(), "\n")
	assert.Contains(t, sys, `Switched to "Keep me" (1 messages).`)
	assert.Contains(t, sys, "user: old question")
	assert.Contains(t, sys, "Chat deleted.")
	assert.Contains(t, sys, "Chat cleared.")
	assert.Equal(t, []string{"usage: /switch <id>"}, ui.Errors())

	_, err := store.Load(drop.ID)
	require.ErrorIs(t, err, session.ErrNotFound)
	loaded, err := store.Load(keep.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Messages)
}

func TestREPL_Help(t *testing.T) {
	ui := runREPL(t, &fakeStreamer{}, session.NewMemoryStore(), "/help")

	help := strings.Join(ui.SystemMessages(), "\n")
	for _, c := range Commands() {
		assert.Contains(t, help, c.Name)
	}
}

func TestFormatList_MarksCurrent(t *testing.T) {
	infos := []session.ChatInfo{
		{ID: "aaaaaaaa-1111", Title: "One", Messages: 2},
		{ID: "bbbbbbbb-2222", Title: "Two"},
	}
	out := FormatList(infos, "bbbbbbbb-2222")
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "  aaaaaaaa"))
	assert.True(t, strings.HasPrefix(lines[1], "* bbbbbbbb"))
	assert.Contains(t, lines[0], "2 msgs")
}

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillmate/quillmate/internal/config"
	"github.com/quillmate/quillmate/internal/enhance"
	"github.com/quillmate/quillmate/internal/session"
)

// isolate points HOME at a temp dir and clears provider env vars.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{
		"QUILLMATE_API_KEY", "QUILLMATE_PROVIDER", "QUILLMATE_BASE_URL", "QUILLMATE_MODEL",
		"QUILLMATE_FALLBACK_API_KEY", "QUILLMATE_TEST_MODE", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(k, "")
	}
	cfgFile, ephemeralFlag = "", false
	return home
}

func TestRunInit_OpenAI(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	var out bytes.Buffer

	err := runInit(strings.NewReader("1\nsk-test\n\n"), &out, path)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Config saved to "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "sk-test", cfg.GetProviderConfig("openai").APIKey)
}

func TestRunInit_OllamaDefaultsEndpointAndSkipsKey(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	var out bytes.Buffer

	err := runInit(strings.NewReader("4\n\nllama3.2\n"), &out, path)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "http://localhost:11434/v1/chat/completions")
	assert.NotContains(t, out.String(), "API key")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	pc := cfg.GetProviderConfig("ollama")
	assert.Equal(t, defaultOllamaURL, pc.BaseURL)
	assert.Equal(t, "llama3.2", pc.Model)
	assert.Empty(t, pc.APIKey)
}

func TestRunInit_Errors(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	err := runInit(strings.NewReader("9\n"), &bytes.Buffer{}, path)
	assert.ErrorContains(t, err, "invalid selection")

	err = runInit(strings.NewReader("1\n\n"), &bytes.Buffer{}, path)
	assert.ErrorContains(t, err, "API key cannot be empty")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing should be written on error")
}

func TestChatsCommands(t *testing.T) {
	isolate(t)
	dbPath, err := session.DefaultDBPath()
	require.NoError(t, err)
	store, err := session.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	c := session.New()
	c.ID = "0123456789abcdef"
	c.Title = "Groceries"
	require.NoError(t, store.Save(c))
	require.NoError(t, store.Close())

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		cmd := newChatsCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		require.NoError(t, cmd.Execute())
		return out.String()
	}

	assert.Contains(t, run("list"), "01234567  Groceries")
	assert.Contains(t, run("rename", "0123", "Shopping"), `Renamed to "Shopping".`)
	assert.Contains(t, run("list"), "Shopping")
	assert.Contains(t, run("delete", "01234567"), "Chat deleted.")
	assert.Contains(t, run("list"), "No chats yet.")
}

func TestPrintResult(t *testing.T) {
	res := &enhance.Result{Original: "teh plan", Rewritten: "The plan."}

	var raw bytes.Buffer
	require.NoError(t, printResult(&raw, res, rewriteFlags{raw: true}))
	assert.Equal(t, "The plan.\n", raw.String())

	var cmp bytes.Buffer
	require.NoError(t, printResult(&cmp, res, rewriteFlags{compare: true}))
	assert.Contains(t, cmp.String(), "Original")
	assert.Contains(t, cmp.String(), "teh plan")
	assert.Contains(t, cmp.String(), "The plan.")
}

func TestDisplayVersion(t *testing.T) {
	appVersion, appCommit = "1.2.3", "none"
	assert.Equal(t, "v1.2.3", displayVersion())
	appCommit = "abc1234"
	assert.Equal(t, "v1.2.3 (abc1234)", displayVersion())
}

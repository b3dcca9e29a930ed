package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func testCommands() []SlashMenuItem {
	return []SlashMenuItem{
		{Name: "/new", Desc: "Start a new chat"},
		{Name: "/list", Desc: "List chats"},
		{Name: "/switch", Desc: "<id>  Switch chat"},
	}
}

func TestModel_StreamLifecycle(t *testing.T) {
	m := NewModel(make(chan inputResult, 1), TUIConfig{Status: Status{Provider: "openai", Model: "gpt-4o-mini"}})
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m = update(t, m, thinkingStartMsg{})
	if !m.thinking || !strings.Contains(m.View(), "Thinking") {
		t.Fatalf("expected thinking indicator, view=%q", m.View())
	}

	m = update(t, m, textUpdateMsg{full: "Hello"})
	m = update(t, m, textUpdateMsg{full: "Hello, world"})
	if m.thinking || !m.streaming {
		t.Fatal("expected streaming state after first snapshot")
	}
	if !strings.Contains(m.View(), "Hello, world") {
		t.Fatalf("live text should show the latest snapshot, view=%q", m.View())
	}
	if strings.Count(m.View(), "Hello") != 1 {
		t.Fatalf("snapshots must replace, not append: %q", m.View())
	}

	m = update(t, m, textDoneMsg{fullText: "Hello, world"})
	if m.streaming || m.live != "" {
		t.Fatal("done should clear the live area")
	}
}

func TestModel_StatusBar(t *testing.T) {
	m := NewModel(make(chan inputResult, 1), TUIConfig{})
	m = update(t, m, statusMsg{status: Status{Provider: "ollama", Model: "llama3.1", Chat: "Trip planning"}})

	view := m.View()
	for _, want := range []string{"llama3.1", "ollama", "Trip planning"} {
		if !strings.Contains(view, want) {
			t.Errorf("status bar missing %q: %q", want, view)
		}
	}
}

func TestModel_EnterSubmitsInput(t *testing.T) {
	inputCh := make(chan inputResult, 1)
	m := NewModel(inputCh, TUIConfig{Commands: testCommands()})
	m = update(t, m, readInputMsg{})
	m.textinput.SetValue("  what is Go?  ")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	res := <-inputCh
	if res.err != nil || res.text != "what is Go?" {
		t.Fatalf("submitted %+v", res)
	}
	if m.inputMode {
		t.Fatal("input should be released after submit")
	}
}

func TestModel_SlashMenuCompletes(t *testing.T) {
	inputCh := make(chan inputResult, 1)
	m := NewModel(inputCh, TUIConfig{Commands: testCommands()})
	m = update(t, m, readInputMsg{})
	m.textinput.SetValue("/s")

	if !strings.Contains(m.View(), "/switch") {
		t.Fatalf("menu should offer /switch: %q", m.View())
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if got := m.textinput.Value(); got != "/switch " {
		t.Fatalf("tab completion = %q", got)
	}
	if len(m.slashItems()) != 0 {
		t.Fatal("menu should close once an argument is being typed")
	}
}

func TestModel_EnterPicksHighlightedCommand(t *testing.T) {
	inputCh := make(chan inputResult, 1)
	m := NewModel(inputCh, TUIConfig{Commands: testCommands()})
	m = update(t, m, readInputMsg{})
	m.textinput.SetValue("/")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if res := <-inputCh; res.text != "/list" {
		t.Fatalf("submitted %q, want /list", res.text)
	}
}

func TestModel_EscCancelsReply(t *testing.T) {
	cancelled := false
	m := NewModel(make(chan inputResult, 1), TUIConfig{})
	m.cancelReplyFn = func() bool { cancelled = true; return true }

	m = update(t, m, thinkingStartMsg{})
	update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if !cancelled {
		t.Fatal("esc during a reply should cancel it")
	}
}

func TestModel_CtrlCReleasesReader(t *testing.T) {
	inputCh := make(chan inputResult, 1)
	m := NewModel(inputCh, TUIConfig{})
	m = update(t, m, readInputMsg{})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !next.(Model).quitting || cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
	if res := <-inputCh; res.err == nil {
		t.Fatal("pending ReadInput should receive an error")
	}
}

func TestIsTerminalNoiseKey(t *testing.T) {
	for _, s := range []string{"]11;rgb:0000/0000/0000", "[<35;1;1M", "[?1;2c", "[200~"} {
		if !isTerminalNoiseKey(s) {
			t.Errorf("%q should be noise", s)
		}
	}
	for _, s := range []string{"a", "enter", "/", "["} {
		if isTerminalNoiseKey(s) {
			t.Errorf("%q should not be noise", s)
		}
	}
}

func TestTuiIO_WithoutProgram(t *testing.T) {
	ui := &TuiIO{}
	if _, err := ui.ReadInput(); err == nil {
		t.Fatal("ReadInput without a program should fail")
	}
	ui.TextUpdate("ignored")

	called := false
	ui.SetReplyCancel(func() { called = true })
	if !ui.CancelReply() || !called {
		t.Fatal("CancelReply should invoke the registered cancel")
	}
	if ui.CancelReply() {
		t.Fatal("cancel should be consumed")
	}
}

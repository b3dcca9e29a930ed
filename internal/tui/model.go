package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// ---------- messages sent from the chat goroutine via program.Send() ----------

type readInputMsg struct{}

type inputResult struct {
	text string
	err  error
}

type userMsg struct{ text string }
type thinkingStartMsg struct{}
type textUpdateMsg struct{ full string }
type textDoneMsg struct{ fullText string }
type systemMsg struct{ text string }
type errorMsg struct{ text string }
type statusMsg struct{ status Status }
type loopDoneMsg struct{ err error }

// TUIConfig carries version and session info for the welcome banner and
// status bar, plus the slash commands offered by the completion menu.
type TUIConfig struct {
	Version     string
	Status      Status
	Commands    []SlashMenuItem
	ShowWelcome bool
}

// ---------- styles ----------

var (
	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	statusBarBgStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("235"))

	statusModelStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("235")).
				Foreground(lipgloss.Color("2")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	welcomeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("8")).
				Padding(0, 1)

	welcomeTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("2")).
				Bold(true)

	welcomeLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("8"))

	welcomeValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))
)

var quillSpinner = spinner.Spinner{
	Frames: []string{"·", "✢", "✳", "✶", "✻", "✽", "✻", "✶", "✳", "✢"},
	FPS:    120 * time.Millisecond,
}

// ---------- Model ----------

// Model is the bubbletea model of the chat screen. Finished messages are
// printed above the program with tea.Println; the view only holds the reply
// being streamed, the input line and the status bar.
type Model struct {
	textinput textinput.Model
	spinner   spinner.Model
	width     int

	live      string
	streaming bool
	thinking  bool
	inputMode bool
	quitting  bool

	slashSel int

	inputCh       chan inputResult
	cancelReplyFn func() bool

	cfg    TUIConfig
	status Status

	mdRenderer      *glamour.TermRenderer
	mdRendererWidth int
}

// NewModel creates the initial bubbletea model.
func NewModel(inputCh chan inputResult, cfg TUIConfig) Model {
	ti := textinput.New()
	ti.Prompt = "❯ "
	ti.CharLimit = 8192

	sp := spinner.New()
	sp.Spinner = quillSpinner
	sp.Style = spinnerStyle

	return Model{
		textinput: ti,
		spinner:   sp,
		inputCh:   inputCh,
		cfg:       cfg,
		status:    cfg.Status,
	}
}

func (m Model) Init() tea.Cmd {
	if m.cfg.ShowWelcome {
		return tea.Println(renderWelcome(m.cfg))
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.textinput.Width = m.width - 4

	case spinner.TickMsg:
		if m.thinking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		return m.handleKey(msg)

	case readInputMsg:
		m.inputMode = true
		m.slashSel = 0
		cmds = append(cmds, m.textinput.Focus())

	case userMsg:
		cmds = append(cmds, tea.Println(userStyle.Render("You: ")+msg.text))

	case thinkingStartMsg:
		m.thinking = true
		m.streaming = false
		m.live = ""
		cmds = append(cmds, m.spinner.Tick)

	case textUpdateMsg:
		m.thinking = false
		m.streaming = true
		m.live = msg.full

	case textDoneMsg:
		m.thinking = false
		m.streaming = false
		m.live = ""
		cmds = append(cmds, tea.Println(m.renderMarkdown(msg.fullText)))

	case systemMsg:
		m.thinking, m.streaming, m.live = false, false, ""
		cmds = append(cmds, tea.Println(systemStyle.Render(msg.text)))

	case errorMsg:
		m.thinking, m.streaming, m.live = false, false, ""
		cmds = append(cmds, tea.Println(errorStyle.Render("Error: "+msg.text)))

	case statusMsg:
		m.status = msg.status

	case loopDoneMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := msg.String()
	if isTerminalNoiseKey(s) {
		return m, nil
	}

	switch s {
	case "ctrl+c", "ctrl+d":
		if m.inputMode {
			m.inputCh <- inputResult{err: fmt.Errorf("interrupted")}
			m.inputMode = false
			m.textinput.Blur()
		}
		m.quitting = true
		return m, tea.Quit

	case "esc":
		if (m.thinking || m.streaming) && m.cancelReplyFn != nil {
			m.cancelReplyFn()
			return m, nil
		}
		if m.inputMode {
			m.textinput.SetValue("")
		}
		return m, nil

	case "enter":
		if !m.inputMode {
			return m, nil
		}
		text := strings.TrimSpace(m.textinput.Value())
		if items := m.slashItems(); len(items) > 0 && !strings.Contains(text, " ") && text != items[m.selIndex(items)].Name {
			text = items[m.selIndex(items)].Name
		}
		m.textinput.SetValue("")
		m.inputCh <- inputResult{text: text}
		m.inputMode = false
		m.textinput.Blur()
		return m, nil

	case "tab":
		if items := m.slashItems(); len(items) > 0 {
			m.textinput.SetValue(items[m.selIndex(items)].Name + " ")
			m.textinput.CursorEnd()
			m.slashSel = 0
		}
		return m, nil

	case "up":
		if m.slashSel > 0 {
			m.slashSel--
		}
		return m, nil

	case "down":
		if items := m.slashItems(); m.slashSel < len(items)-1 {
			m.slashSel++
		}
		return m, nil
	}

	if !m.inputMode || isControlKeyMsg(s) {
		return m, nil
	}
	var cmd tea.Cmd
	m.textinput, cmd = m.textinput.Update(msg)
	m.slashSel = 0
	return m, cmd
}

// slashItems returns the completion menu entries for the current input, or
// nil when the input is not a bare slash command prefix.
func (m Model) slashItems() []SlashMenuItem {
	if !m.inputMode {
		return nil
	}
	v := m.textinput.Value()
	if !strings.HasPrefix(v, "/") || strings.Contains(v, " ") {
		return nil
	}
	return filterSlashItems(m.cfg.Commands, v)
}

func (m Model) selIndex(items []SlashMenuItem) int {
	if m.slashSel >= len(items) {
		return len(items) - 1
	}
	return m.slashSel
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var parts []string
	switch {
	case m.thinking:
		parts = append(parts, m.spinner.View()+hintStyle.Render(" Thinking… (esc to cancel)"))
	case m.streaming:
		parts = append(parts, m.live)
	}

	if items := m.slashItems(); len(items) > 0 {
		parts = append(parts, renderSlashMenu(items, m.selIndex(items), m.width))
	}

	if m.inputMode {
		parts = append(parts, m.textinput.View())
	} else {
		parts = append(parts, systemStyle.Render("❯"))
	}
	parts = append(parts, m.renderStatusBar())
	return strings.Join(parts, "\n")
}

// renderStatusBar renders the bottom separator and provider/model/chat bar.
func (m Model) renderStatusBar() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	modelName := m.status.Model
	if modelName == "" {
		modelName = "default model"
	}
	status := statusModelStyle.Render(" "+modelName) +
		statusBarStyle.Render(" │ "+m.status.Provider)
	if m.status.Chat != "" {
		status += statusBarStyle.Render(" │ " + truncate(m.status.Chat, 40))
	}
	return separatorStyle.Render(strings.Repeat("─", width)) + "\n" +
		statusBarBgStyle.Width(width).Render(status)
}

// ---------- markdown rendering ----------

func (m *Model) getMarkdownRenderer() *glamour.TermRenderer {
	width := m.width
	if width <= 0 {
		width = 80
	}
	wrapWidth := width - 4
	if m.mdRenderer != nil && m.mdRendererWidth == wrapWidth {
		return m.mdRenderer
	}
	r, err := NewMarkdownRenderer(wrapWidth)
	if err != nil {
		return nil
	}
	m.mdRenderer = r
	m.mdRendererWidth = wrapWidth
	return r
}

func (m *Model) renderMarkdown(text string) string {
	r := m.getMarkdownRenderer()
	if r == nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

// ---------- welcome page ----------

func renderWelcome(cfg TUIConfig) string {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	info := []string{
		welcomeLabelStyle.Render("Provider: ") + welcomeValueStyle.Render(cfg.Status.Provider),
		welcomeLabelStyle.Render("Model:    ") + welcomeValueStyle.Render(cfg.Status.Model),
		welcomeLabelStyle.Render("Chat:     ") + welcomeValueStyle.Render(cfg.Status.Chat),
		"",
		hintStyle.Render("/help for commands · tab completes · esc cancels a reply"),
	}
	title := welcomeTitleStyle.Render("quillmate " + version)
	return title + "\n" + welcomeBorderStyle.Render(strings.Join(info, "\n"))
}

// ---------- key event helpers ----------

// isTerminalNoiseKey reports key events that are really terminal replies
// (color queries, mouse reports) leaking into the input stream.
func isTerminalNoiseKey(s string) bool {
	if strings.Contains(s, ";rgb:") || strings.HasPrefix(s, "]") || strings.HasPrefix(s, "alt+]") {
		return true
	}
	if strings.HasPrefix(s, "[<") || strings.HasPrefix(s, "alt+[<") {
		return true
	}
	if strings.HasPrefix(s, "[?") || strings.HasPrefix(s, "alt+[?") {
		return true
	}
	return len(s) > 1 && s[0] == '[' && s[1] >= '0' && s[1] <= '9'
}

func isControlKeyMsg(s string) bool {
	for _, r := range s {
		if r == '\x1b' || (r < 0x20 && r != '\t' && r != '\n' && r != '\r') {
			return true
		}
	}
	return false
}

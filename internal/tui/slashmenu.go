package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// menuRows is how many commands the completion menu shows at once.
const menuRows = 6

// SlashMenuItem is one chat command offered while typing "/".
type SlashMenuItem struct {
	Name string // "/switch"
	Desc string // "<id>  Switch to another chat"
}

// filterSlashItems keeps the commands that start with prefix, ignoring case.
// A bare "/" keeps them all.
func filterSlashItems(items []SlashMenuItem, prefix string) []SlashMenuItem {
	prefix = strings.ToLower(strings.TrimPrefix(prefix, "/"))
	if prefix == "" {
		return items
	}
	var out []SlashMenuItem
	for _, it := range items {
		if strings.HasPrefix(strings.ToLower(strings.TrimPrefix(it.Name, "/")), prefix) {
			out = append(out, it)
		}
	}
	return out
}

type menuTheme struct {
	box, name, desc, active, activeDesc, more lipgloss.Style
}

var slashTheme = menuTheme{
	box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("39")).
		Padding(0, 1),
	name:       lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	desc:       lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	active:     lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
	activeDesc: lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
	more:       lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true),
}

// menuWindow returns the [from, to) slice of n rows to show so that sel
// stays visible.
func menuWindow(n, sel int) (from, to int) {
	if n <= menuRows {
		return 0, n
	}
	from = sel - menuRows + 1
	if from < 0 {
		from = 0
	}
	return from, from + menuRows
}

// renderSlashMenu draws the completion box for items with sel highlighted.
// It never grows wider than the terminal.
func renderSlashMenu(items []SlashMenuItem, sel int, width int) string {
	if len(items) == 0 {
		return ""
	}
	if width <= 0 {
		width = DefaultWidth
	}

	col := 0
	for _, it := range items {
		col = max(col, lipgloss.Width(it.Name))
	}
	nameCell := lipgloss.NewStyle().Width(col + 2)

	from, to := menuWindow(len(items), sel)
	var b strings.Builder
	if from > 0 {
		fmt.Fprintln(&b, slashTheme.more.Render(fmt.Sprintf("  %d more above", from)))
	}
	for i := from; i < to; i++ {
		it := items[i]
		marker, name, desc := "  ", slashTheme.name, slashTheme.desc
		if i == sel {
			marker, name, desc = "› ", slashTheme.active, slashTheme.activeDesc
		}
		b.WriteString(marker + nameCell.Render(name.Render(it.Name)) + desc.Render(it.Desc))
		if i < to-1 {
			b.WriteByte('\n')
		}
	}
	if rest := len(items) - to; rest > 0 {
		b.WriteString("\n" + slashTheme.more.Render(fmt.Sprintf("  %d more below", rest)))
	}

	return slashTheme.box.MaxWidth(max(width-4, 30)).Render(b.String())
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	docStyle      = lipgloss.NewStyle().Margin(0, 1)
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("255"))
	faintStyle    = lipgloss.NewStyle().Faint(true)
	unitStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
	heldStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	paneStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	listPaneStyle = paneStyle.Copy().BorderForeground(lipgloss.Color("62"))

	confirmTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("178")).Bold(true)
	confirmPaneStyle  = paneStyle.Copy().BorderForeground(lipgloss.Color("178")).Padding(1, 2)
	confirmHelpStyle  = faintStyle.Copy().MarginTop(1)
)

// viewHeight is how many units are shown at once.
const viewHeight = 12

func (m model) View() string {
	if m.confirm {
		return m.renderConfirmView()
	}

	header := fmt.Sprintf("Restart %s units %s: %s", m.scope, faintStyle.Render(fmt.Sprintf("(%d/%d)", len(m.selection()), len(m.items))), m.textInput.View())
	footer := m.renderFooter()

	if len(m.filtered) == 0 {
		return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "  No results...", footer))
	}
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, listPaneStyle.Render(m.renderList()), footer))
}

func (m model) renderList() string {
	start := m.cursor - viewHeight/2
	if start < 0 {
		start = 0
	}
	end := start + viewHeight
	if end > len(m.filtered) {
		end = len(m.filtered)
		start = end - viewHeight
		if start < 0 {
			start = 0
		}
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		it := m.filtered[i]
		box := "[ ]"
		if it.selected {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %s %s", box, unitStyle.Render(it.Unit), faintStyle.Render("("+strings.Join(it.Commands, ", ")+")"))
		if !it.Restartable() {
			line = fmt.Sprintf("[-] %s %s", faintStyle.Render(it.Unit), heldStyle.Render("("+it.Reason+")"))
		}
		if i == m.cursor {
			lines = append(lines, selectedStyle.Render("❯")+" "+line)
		} else {
			lines = append(lines, "  "+line)
		}
	}
	return strings.Join(lines, "\n")
}

func (m model) renderFooter() string {
	if m.textInput.Focused() {
		return faintStyle.Render(" enter/esc to exit filter")
	}
	return faintStyle.Render(" space: toggle • a: toggle all • /: filter • enter: restart • q: quit")
}

func (m model) renderConfirmView() string {
	title := confirmTitleStyle.Render("Confirm Restart")
	body := confirmPaneStyle.Render(fmt.Sprintf("Restart %s units:\n  %s", m.scope, strings.Join(m.selection(), "\n  ")))
	help := confirmHelpStyle.Render(" y/enter: confirm • any other key: back • q: quit")
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, body, help))
}

package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.confirm {
		switch key.String() {
		case "y", "enter":
			m.confirmed = true
			return m, tea.Quit
		case "ctrl+c", "q":
			return m, tea.Quit
		default:
			m.confirm = false
		}
		return m, nil
	}

	if m.textInput.Focused() {
		switch key.String() {
		case "enter", "esc":
			m.textInput.Blur()
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		m.filtered = m.filterItems(m.textInput.Value())
		m.clampCursor()
		return m, cmd
	}

	switch key.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "/":
		cmd := m.textInput.Focus()
		return m, cmd
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
	case " ", "space", "x":
		if len(m.filtered) > 0 {
			it := m.filtered[m.cursor]
			if it.Restartable() {
				it.selected = !it.selected
			}
		}
	case "a":
		all := true
		for _, it := range m.filtered {
			if it.Restartable() && !it.selected {
				all = false
				break
			}
		}
		for _, it := range m.filtered {
			if it.Restartable() {
				it.selected = !all
			}
		}
	case "enter":
		if len(m.selection()) > 0 {
			m.confirm = true
		}
	}
	return m, nil
}

func (m *model) clampCursor() {
	if m.cursor >= len(m.filtered) {
		m.cursor = len(m.filtered) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

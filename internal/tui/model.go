// Package tui is the interactive picker used by restart --interactive.
package tui

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/w31r4/longoverdue/internal/action"
)

// ErrCancelled is returned by Pick when the user leaves without confirming.
var ErrCancelled = errors.New("restart cancelled")

// item is a candidate unit and whether it is selected for restart.
type item struct {
	action.Candidate
	selected bool
}

type model struct {
	scope     action.Scope
	items     []*item
	filtered  []*item
	cursor    int
	textInput textinput.Model
	confirm   bool
	confirmed bool
}

// newModel preselects every unit that may be restarted.
func newModel(scope action.Scope, candidates []action.Candidate) model {
	ti := textinput.New()
	ti.Placeholder = "Filter units"
	ti.CharLimit = 156
	ti.Width = 30

	m := model{scope: scope, textInput: ti}
	for _, c := range candidates {
		m.items = append(m.items, &item{Candidate: c, selected: c.Restartable()})
	}
	m.filtered = m.filterItems("")
	return m
}

func (m model) Init() tea.Cmd {
	return nil
}

// selection returns the selected units in candidate order.
func (m model) selection() []string {
	var units []string
	for _, it := range m.items {
		if it.selected {
			units = append(units, it.Unit)
		}
	}
	return units
}

// fuzzyItemSource matches on the unit name and its commands.
type fuzzyItemSource struct {
	items []*item
}

func (s fuzzyItemSource) String(i int) string {
	it := s.items[i]
	return it.Unit + " " + strings.Join(it.Commands, " ")
}

func (s fuzzyItemSource) Len() int {
	return len(s.items)
}

func (m *model) filterItems(filter string) []*item {
	if filter == "" {
		return append([]*item(nil), m.items...)
	}
	var filtered []*item
	for _, match := range fuzzy.FindFrom(filter, fuzzyItemSource{items: m.items}) {
		filtered = append(filtered, m.items[match.Index])
	}
	return filtered
}

// Pick shows the candidates and returns the units the user confirmed. It
// returns ErrCancelled when the user quits instead.
func Pick(ctx context.Context, scope action.Scope, candidates []action.Candidate, in io.Reader, out io.Writer) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}

	final, err := tea.NewProgram(newModel(scope, candidates), opts...).Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(model)
	if !ok || !m.confirmed {
		return nil, ErrCancelled
	}
	return m.selection(), nil
}

package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dgnsrekt/shadowbox/internal/theme"
)

// themeItem adapts a catalog theme to the list component.
type themeItem struct {
	theme theme.Theme
}

func (i themeItem) Title() string {
	title := i.theme.DisplayName
	if i.theme.DisplayNameJA != "" {
		title = fmt.Sprintf("%s  %s", i.theme.DisplayName, i.theme.DisplayNameJA)
	}
	if i.theme.RequiresSearch {
		title += subtleStyle.Render("  (live)")
	}
	return title
}

func (i themeItem) Description() string { return i.theme.Description }
func (i themeItem) FilterValue() string {
	return i.theme.Name + " " + i.theme.DisplayName
}

// choice is the selection the picker hands back to the root model.
type choice struct {
	name       string
	continuous bool
}

type selectorKeyMap struct {
	choose     key.Binding
	continuous key.Binding
	quit       key.Binding
}

var selectorKeys = selectorKeyMap{
	choose: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "practice theme"),
	),
	continuous: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "continuous mode"),
	),
	quit: key.NewBinding(
		key.WithKeys("q", "esc"),
		key.WithHelp("q", "quit"),
	),
}

type selectorModel struct {
	list    list.Model
	pending *choice
}

func newSelectorModel(catalog *theme.Catalog) selectorModel {
	items := make([]list.Item, 0, len(catalog.All()))
	for _, t := range catalog.All() {
		items = append(items, themeItem{theme: t})
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Shadowbox: pick a theme"
	l.SetShowStatusBar(false)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{selectorKeys.choose, selectorKeys.continuous}
	}

	return selectorModel{list: l}
}

func (m *selectorModel) setSize(width, height int) {
	m.list.SetSize(width, height-1)
}

// takeChoice returns the pending selection once, then clears it.
func (m *selectorModel) takeChoice() *choice {
	c := m.pending
	m.pending = nil
	return c
}

func (m selectorModel) update(msg tea.Msg) (selectorModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && !m.list.SettingFilter() {
		switch {
		case key.Matches(keyMsg, selectorKeys.choose):
			if item, ok := m.list.SelectedItem().(themeItem); ok {
				m.pending = &choice{name: item.theme.Name}
			}
			return m, nil
		case key.Matches(keyMsg, selectorKeys.continuous):
			m.pending = &choice{continuous: true}
			return m, nil
		case key.Matches(keyMsg, selectorKeys.quit):
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m selectorModel) view() string {
	return m.list.View()
}

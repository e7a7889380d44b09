// Package ui provides the Bubble Tea front end for shadowbox: a theme
// picker and a practice view driven by session events.
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/shadowbox/internal/theme"
	"github.com/dgnsrekt/shadowbox/shadow"
)

// Controller is the slice of the session the UI drives. *shadow.Session
// satisfies it.
type Controller interface {
	SelectTheme(name string) error
	StartContinuous() error
	Stop()
	Pause() error
	Resume() error
	Back()
	SetSpeed(speed float64)
	Speed() float64
	Status() shadow.Status
	CurrentTheme() theme.Theme
	Events() <-chan tea.Msg
}

// NewProgram returns a new Tea program over the given session.
func NewProgram(cfg Config, session Controller, catalog *theme.Catalog) *tea.Program {
	log.Debug("starting shadowbox UI",
		"theme", cfg.Theme, "continuous", cfg.Continuous, "speed", cfg.InitialSpeed)
	m := newModel(cfg, session, catalog)
	return tea.NewProgram(m, tea.WithAltScreen())
}

// state is the top-level application state.
type state int

const (
	stateThemeSelect state = iota
	statePractice
)

func (s state) String() string {
	return map[state]string{
		stateThemeSelect: "selecting theme",
		statePractice:    "practicing",
	}[s]
}

type model struct {
	cfg     Config
	session Controller
	state   state

	width  int
	height int

	selector selectorModel
	practice practiceModel
}

func newModel(cfg Config, session Controller, catalog *theme.Catalog) model {
	m := model{
		cfg:      cfg,
		session:  session,
		state:    stateThemeSelect,
		selector: newSelectorModel(catalog),
		practice: newPracticeModel(cfg),
	}
	return m
}

// waitForEvent relays the next session notification into the Tea loop. It
// re-arms itself from Update after every delivery.
func waitForEvent(session Controller) tea.Cmd {
	return func() tea.Msg {
		return <-session.Events()
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForEvent(m.session), m.practice.spinner.Tick}

	// Flag-driven entry skips the picker.
	switch {
	case m.cfg.Continuous:
		cmds = append(cmds, startContinuous(m.session))
	case m.cfg.Theme != "":
		cmds = append(cmds, selectTheme(m.session, m.cfg.Theme))
	}
	return tea.Batch(cmds...)
}

// startedMsg flips the UI into the practice view once the session accepted
// the request.
type startedMsg struct{ err error }

func selectTheme(session Controller, name string) tea.Cmd {
	return func() tea.Msg {
		return startedMsg{err: session.SelectTheme(name)}
	}
}

func startContinuous(session Controller) tea.Cmd {
	return func() tea.Msg {
		return startedMsg{err: session.StartContinuous()}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.selector.setSize(msg.Width, msg.Height)
		m.practice.setSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.session.Stop()
			return m, tea.Quit
		}

	case startedMsg:
		if msg.err != nil {
			m.practice.err = msg.err
			return m, nil
		}
		m.state = statePractice
		m.practice.reset(m.session)
		return m, m.practice.spinner.Tick

	// Session events: handled here so both views stay current, then the
	// relay is re-armed.
	case shadow.LoadingMsg, shadow.ScriptLoadedMsg, shadow.StateChangedMsg,
		shadow.SentenceChangedMsg, shadow.ThemeAdvancedMsg,
		shadow.SpeedChangedMsg, shadow.SessionErrorMsg:
		m.practice.handleSessionMsg(msg)
		cmds = append(cmds, waitForEvent(m.session))
	}

	switch m.state {
	case stateThemeSelect:
		sel, cmd := m.selector.update(msg)
		m.selector = sel
		cmds = append(cmds, cmd)

		if choice := m.selector.takeChoice(); choice != nil {
			if choice.continuous {
				cmds = append(cmds, startContinuous(m.session))
			} else {
				cmds = append(cmds, selectTheme(m.session, choice.name))
			}
		}

	case statePractice:
		pr, cmd, backOut := m.practice.update(msg, m.session)
		m.practice = pr
		cmds = append(cmds, cmd)
		if backOut {
			m.state = stateThemeSelect
		}
	}

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	switch m.state {
	case statePractice:
		return m.practice.view()
	default:
		return m.selector.view()
	}
}

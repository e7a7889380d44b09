package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dgnsrekt/shadowbox/shadow"
)

type practiceKeyMap struct {
	pause   key.Binding
	stop    key.Binding
	back    key.Binding
	speedUp key.Binding
	speedDn key.Binding
	quit    key.Binding
}

var practiceKeys = practiceKeyMap{
	pause: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "pause/resume"),
	),
	stop: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "stop"),
	),
	back: key.NewBinding(
		key.WithKeys("b", "esc"),
		key.WithHelp("b", "back to themes"),
	),
	speedUp: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "faster"),
	),
	speedDn: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-", "slower"),
	),
	quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// practiceModel renders the state of the active practice run.
type practiceModel struct {
	cfg Config

	width  int
	height int

	themeName   string
	loading     bool
	state       shadow.StateType
	paused      bool
	index       int
	total       int
	text        string
	translation string
	speed       float64
	continuous  bool
	err         error

	spinner spinner.Model
}

func newPracticeModel(cfg Config) practiceModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return practiceModel{
		cfg:     cfg,
		state:   shadow.StateIdle,
		speed:   cfg.InitialSpeed,
		spinner: sp,
	}
}

func (m *practiceModel) setSize(width, height int) {
	m.width = width
	m.height = height
}

// reset clears per-run fields when a new practice run begins.
func (m *practiceModel) reset(session Controller) {
	m.err = nil
	m.loading = true
	m.text = ""
	m.translation = ""
	m.index = 0
	m.total = 0
	m.speed = session.Speed()
	m.themeName = session.CurrentTheme().DisplayName
}

// handleSessionMsg folds a session event into the view state.
func (m *practiceModel) handleSessionMsg(msg tea.Msg) {
	switch msg := msg.(type) {
	case shadow.LoadingMsg:
		m.loading = true
		m.themeName = msg.Theme
		m.err = nil
		m.text = ""
		m.translation = ""

	case shadow.ScriptLoadedMsg:
		m.loading = false
		m.themeName = msg.Theme
		if msg.Script != nil {
			m.total = len(msg.Script.Sentences)
		}

	case shadow.StateChangedMsg:
		m.state = msg.State
		m.paused = msg.Paused

	case shadow.SentenceChangedMsg:
		m.index = msg.Index
		m.total = msg.Total
		m.text = msg.Text
		m.translation = msg.Translation

	case shadow.ThemeAdvancedMsg:
		m.loading = true
		m.themeName = msg.Theme
		m.text = ""
		m.translation = ""
		m.continuous = true

	case shadow.SpeedChangedMsg:
		m.speed = msg.Speed

	case shadow.SessionErrorMsg:
		m.loading = false
		m.err = msg.Err
	}
}

func (m practiceModel) update(msg tea.Msg, session Controller) (practiceModel, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd, false

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, practiceKeys.pause):
			if m.paused {
				_ = session.Resume()
			} else {
				_ = session.Pause()
			}
			return m, nil, false

		case key.Matches(msg, practiceKeys.stop):
			session.Stop()
			return m, nil, false

		case key.Matches(msg, practiceKeys.back):
			session.Back()
			return m, nil, true

		case key.Matches(msg, practiceKeys.speedUp):
			session.SetSpeed(shadow.NextSpeed(session.Speed()))
			return m, nil, false

		case key.Matches(msg, practiceKeys.speedDn):
			session.SetSpeed(shadow.PrevSpeed(session.Speed()))
			return m, nil, false

		case key.Matches(msg, practiceKeys.quit):
			session.Stop()
			return m, tea.Quit, false
		}
	}
	return m, nil, false
}

func (m practiceModel) view() string {
	var b strings.Builder

	title := m.themeName
	if title == "" {
		title = "Shadowbox"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("✗ " + m.err.Error()))
		b.WriteString("\n")
		b.WriteString(subtleStyle.Render("press b to go back"))

	case m.loading:
		b.WriteString(m.spinner.View())
		b.WriteString(subtleStyle.Render(" generating script…"))

	default:
		if m.total > 0 {
			b.WriteString(subtleStyle.Render(
				fmt.Sprintf("sentence %d of %d", m.index+1, m.total)))
			b.WriteString("\n")
		}
		if m.text != "" {
			b.WriteString(sentenceStyle.Render(m.text))
			b.WriteString("\n")
			if m.cfg.ShowTranslations && m.translation != "" {
				b.WriteString(translationStyle.Render(m.translation))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n\n")
	b.WriteString(m.statusBar())
	b.WriteString(helpStyle.Render(
		"space pause · s stop · b back · +/- speed · q quit"))

	return b.String()
}

// statusBar renders the phase, pause flag, speed, and mode.
func (m practiceModel) statusBar() string {
	phase := stateStyle.Render(strings.ToUpper(m.state.String()))
	if m.paused {
		phase = pausedStyle.Render("PAUSED")
	}

	parts := []string{phase}
	parts = append(parts, statusBarStyle.Render(shadow.FormatSpeed(m.speed)))
	if m.continuous {
		parts = append(parts, statusBarStyle.Render("continuous"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...) + "\n"
}

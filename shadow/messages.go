package shadow

// Messages for Bubble Tea communication between the core and the UI.

// LoadingMsg indicates a theme's script is being generated.
type LoadingMsg struct {
	Theme string // display name
}

// ScriptLoadedMsg indicates a script is ready and auto-play has started.
type ScriptLoadedMsg struct {
	Theme  string
	Script *Script
}

// StateChangedMsg indicates the sequencer phase or pause modifier changed.
type StateChangedMsg struct {
	State  StateType
	Paused bool
}

// SentenceChangedMsg indicates the sequencer advanced to a new sentence.
type SentenceChangedMsg struct {
	Index       int
	Total       int
	Text        string
	Translation string
}

// ThemeAdvancedMsg indicates continuous mode rotated to the next theme.
type ThemeAdvancedMsg struct {
	ThemeIndex int
	Theme      string // display name of the upcoming theme
}

// SpeedChangedMsg indicates the session speed changed.
type SpeedChangedMsg struct {
	Speed float64
}

// SessionErrorMsg carries a user-visible session failure (no script
// obtainable for a theme). Recoverable sequencer errors are logged, not
// surfaced.
type SessionErrorMsg struct {
	Err error
}

package shadow

import "sync"

// StateType represents the current phase of the auto-play sequencer.
type StateType int

const (
	// StateIdle indicates no run is active.
	StateIdle StateType = iota
	// StateGenerating indicates audio for the current sentence is being
	// fetched or synthesized.
	StateGenerating
	// StatePlaying indicates a sentence is being played.
	StatePlaying
	// StatePausing indicates the shadow pause between playbacks.
	StatePausing
	// StateCompleted indicates the script finished normally.
	StateCompleted
	// StateAborted indicates the run was cancelled.
	StateAborted
)

// String returns the string representation of the state.
func (s StateType) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StatePlaying:
		return "playing"
	case StatePausing:
		return "pausing"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Active reports whether the state belongs to a run in progress.
func (s StateType) Active() bool {
	switch s {
	case StateGenerating, StatePlaying, StatePausing:
		return true
	default:
		return false
	}
}

// Status is a snapshot of the sequencer for the UI layer.
type Status struct {
	State         StateType
	Paused        bool // paused modifier, orthogonal to the active phase
	SentenceIndex int  // 0-based index into the script
	TotalSentence int
	PlayPass      int // 1 or 2 within the current sentence, 0 outside playback
	Speed         float64
	Continuous    bool
	LastError     error
}

// StateMachine guards sequencer phase transitions. Unlike the playback
// pause flag, which is a modifier, phases move strictly along the edges
// declared here.
type StateMachine struct {
	mu          sync.Mutex
	current     StateType
	transitions map[StateType][]StateType
	onEnter     map[StateType]func()
}

// NewStateMachine creates a state machine with the valid sequencer edges.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[StateType][]StateType{
			StateIdle:       {StateGenerating},
			StateGenerating: {StateGenerating, StatePlaying, StatePausing, StateCompleted, StateAborted},
			StatePlaying:    {StatePausing, StateAborted},
			StatePausing:    {StatePlaying, StateGenerating, StateCompleted, StateAborted},
			StateCompleted:  {StateIdle, StateGenerating, StateAborted},
			StateAborted:    {StateIdle, StateGenerating},
		},
		onEnter: make(map[StateType]func()),
	}
}

// Transition attempts to move to the given state, returning false if the
// edge is not declared.
func (sm *StateMachine) Transition(to StateType) bool {
	sm.mu.Lock()
	valid := false
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			valid = true
			break
		}
	}
	if !valid {
		sm.mu.Unlock()
		return false
	}
	sm.current = to
	enterFn := sm.onEnter[to]
	sm.mu.Unlock()

	if enterFn != nil {
		enterFn()
	}
	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() StateType {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.current
}

// OnEnter registers a callback invoked after entering a state.
func (sm *StateMachine) OnEnter(state StateType, fn func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onEnter[state] = fn
}

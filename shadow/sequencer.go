package shadow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dgnsrekt/shadowbox/internal/cache"
)

// SequencerConfig holds timing configuration for the auto-play loop.
type SequencerConfig struct {
	ShadowPause       time.Duration // pause after each playback for the learner to repeat
	AdvanceDelay      time.Duration // delay before signalling theme-complete in continuous mode
	CompleteDelay     time.Duration // how long Completed is shown before returning to Idle
	GenerationTimeout time.Duration // bound on one sentence's audio fetch
}

// DefaultSequencerConfig returns the standard shadowing cadence.
func DefaultSequencerConfig() SequencerConfig {
	return SequencerConfig{
		ShadowPause:       3 * time.Second,
		AdvanceDelay:      time.Second,
		CompleteDelay:     2 * time.Second,
		GenerationTimeout: 30 * time.Second,
	}
}

// Sequencer walks a script's sentences in order, playing each twice with
// shadow pauses in between. At most one run is active; starting a new run
// aborts the one in progress. Synthesis failures skip a sentence's playback
// phases but keep both pauses, so the practice rhythm stays predictable.
type Sequencer struct {
	channel AudioChannel
	synth   SpeechSynthesizer
	audio   *cache.Store[[]byte]
	cfg     SequencerConfig

	machine *StateMachine
	waiter  *Waiter

	mu        sync.Mutex
	run       *seqRun
	paused    bool
	lastError error

	onStateChange    func(StateType)
	onSentenceChange func(index, total int)
	onThemeComplete  func()
	onError          func(error)
}

// seqRun is the state of one sequencer run. A fresh run (and cancellation
// token) is created per Start; every suspension point re-checks the token.
type seqRun struct {
	id         string
	ctx        context.Context
	cancel     context.CancelFunc
	script     *Script
	speed      float64
	clipSpeed  float64 // synthesis speed baked into the loaded clip
	continuous bool
	index      int
	pass       int // 1 or 2 within the current sentence
}

// NewSequencer creates a sequencer on the given channel, synthesizer, and
// audio cache.
func NewSequencer(channel AudioChannel, synth SpeechSynthesizer, audio *cache.Store[[]byte], cfg SequencerConfig) *Sequencer {
	return &Sequencer{
		channel: channel,
		synth:   synth,
		audio:   audio,
		cfg:     cfg,
		machine: NewStateMachine(),
		waiter:  NewWaiter(),
	}
}

// Start begins an auto-play run over script at the given speed. Any run in
// progress is aborted and replaced.
func (s *Sequencer) Start(script *Script, speed float64, continuous bool) error {
	if err := script.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.run != nil {
		s.run.cancel()
		s.run = nil
		s.machine.Transition(StateAborted)
	}
	r := &seqRun{
		id:         uuid.NewString()[:8],
		script:     script,
		speed:      ClampSpeed(speed),
		continuous: continuous,
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	s.run = r
	s.paused = false
	s.lastError = nil
	s.mu.Unlock()

	s.channel.Stop()
	s.waiter.Resume()
	s.transition(r, StateGenerating)

	log.Debug("sequencer run started",
		"run", r.id, "theme", script.Theme,
		"sentences", len(script.Sentences), "speed", r.speed,
		"continuous", continuous)

	go s.loop(r)
	return nil
}

// Stop aborts the active run. In-flight waits settle within one tick and
// the channel is silenced synchronously. Safe to call when idle.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	r := s.run
	s.run = nil
	s.paused = false
	s.mu.Unlock()

	if r != nil {
		r.cancel()
		log.Debug("sequencer run stopped", "run", r.id)
	}
	s.channel.Stop()
	s.waiter.Resume()
	s.machine.Transition(StateAborted)
	s.machine.Transition(StateIdle)
	s.notifyState(StateIdle)
}

// Pause suspends progression without resetting the position: the pause
// clock freezes and any playing clip is paused in place.
func (s *Sequencer) Pause() error {
	s.mu.Lock()
	if s.run == nil {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.paused = true
	s.mu.Unlock()

	s.waiter.Pause()
	if s.channel.IsPlaying() {
		return s.channel.Pause()
	}
	return nil
}

// Resume continues a paused run from the same sentence and phase.
func (s *Sequencer) Resume() error {
	s.mu.Lock()
	if s.run == nil {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.paused = false
	s.mu.Unlock()

	s.waiter.Resume()
	return s.channel.Resume()
}

// SetSpeed changes the synthesis speed for sentences not yet fetched in the
// active run and retunes the loaded clip: the channel rate is set to the
// ratio of the new speed over the speed the clip was synthesized at, so
// repeated changes within one clip do not compound.
func (s *Sequencer) SetSpeed(speed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		return
	}
	s.run.speed = ClampSpeed(speed)
	if s.run.clipSpeed > 0 {
		_ = s.channel.SetRate(s.run.speed / s.run.clipSpeed)
	}
}

// Status returns a snapshot for the UI layer.
func (s *Sequencer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:     s.machine.Current(),
		Paused:    s.paused,
		LastError: s.lastError,
	}
	if s.run != nil {
		st.SentenceIndex = s.run.index
		st.TotalSentence = len(s.run.script.Sentences)
		st.PlayPass = s.run.pass
		st.Speed = s.run.speed
		st.Continuous = s.run.continuous
	}
	return st
}

// OnStateChange registers a callback for phase changes.
func (s *Sequencer) OnStateChange(fn func(StateType)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = fn
}

// OnSentenceChange registers a callback for sentence advances.
func (s *Sequencer) OnSentenceChange(fn func(index, total int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSentenceChange = fn
}

// OnThemeComplete registers the continuous-mode advance signal.
func (s *Sequencer) OnThemeComplete(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onThemeComplete = fn
}

// OnError registers a callback for run errors, recoverable or not.
func (s *Sequencer) OnError(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// loop drives one run to completion. Sentences play strictly in ascending
// order; sentence i+1 never begins before sentence i's full cycle has
// resolved or been skipped.
func (s *Sequencer) loop(r *seqRun) {
	sentences := r.script.Sentences

	for i := 0; i < len(sentences); i++ {
		if r.ctx.Err() != nil {
			s.finishAborted(r)
			return
		}

		s.mu.Lock()
		r.index = i
		r.pass = 0
		cb := s.onSentenceChange
		s.mu.Unlock()
		if cb != nil {
			cb(i, len(sentences))
		}

		sent := sentences[i]
		s.transition(r, StateGenerating)

		if !sent.Valid() {
			log.Debug("skipping malformed sentence", "run", r.id, "index", i)
			continue
		}

		clip, clipSpeed := s.fetchClip(r, sent.Text)
		if r.ctx.Err() != nil {
			s.finishAborted(r)
			return
		}
		if clip != nil {
			// The clip carries clipSpeed already; the rate covers any
			// live speed change since its fetch began.
			s.mu.Lock()
			r.clipSpeed = clipSpeed
			rate := r.speed / clipSpeed
			s.mu.Unlock()
			_ = s.channel.SetRate(rate)
		}

		for pass := 1; pass <= 2; pass++ {
			s.mu.Lock()
			r.pass = pass
			s.mu.Unlock()

			// A pause issued during generation must hold here, before
			// any playback starts.
			if err := s.awaitUnpaused(r); err != nil {
				s.finishAborted(r)
				return
			}

			if clip != nil {
				s.transition(r, StatePlaying)
				if err := s.channel.Play(r.ctx, clip); err != nil {
					if r.ctx.Err() != nil {
						s.finishAborted(r)
						return
					}
					s.handleError(err)
					if !IsRecoverable(err) {
						s.finishAborted(r)
						return
					}
					// Recoverable playback failures resolve the
					// wait and the run proceeds.
				}
			}

			s.transition(r, StatePausing)
			if err := s.waiter.Wait(r.ctx, s.cfg.ShadowPause); err != nil {
				s.finishAborted(r)
				return
			}
		}
	}

	if r.continuous {
		if err := s.waiter.Wait(r.ctx, s.cfg.AdvanceDelay); err != nil {
			s.finishAborted(r)
			return
		}
		log.Debug("theme complete, requesting advance", "run", r.id, "theme", r.script.Theme)

		s.mu.Lock()
		if s.run == r {
			s.run = nil
		}
		cb := s.onThemeComplete
		s.mu.Unlock()

		// Status is deliberately not reset here; the session controller
		// drives the next theme load.
		if cb != nil {
			cb()
		}
		return
	}

	s.transition(r, StateCompleted)
	_ = s.waiter.Wait(r.ctx, s.cfg.CompleteDelay)
	s.transition(r, StateIdle)

	s.mu.Lock()
	if s.run == r {
		s.run = nil
	}
	s.mu.Unlock()
	log.Debug("sequencer run completed", "run", r.id, "theme", r.script.Theme)
}

// awaitUnpaused blocks while the paused modifier is set, so progression
// stops even between playback phases. Settles promptly on cancellation.
func (s *Sequencer) awaitUnpaused(r *seqRun) error {
	for {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		s.mu.Lock()
		paused := s.paused
		s.mu.Unlock()
		if !paused {
			return nil
		}
		select {
		case <-r.ctx.Done():
			return r.ctx.Err()
		case <-time.After(waitTick):
		}
	}
}

// fetchClip obtains audio for one sentence through the cache, bounded by
// the generation timeout, and reports the speed the clip was synthesized
// at. On failure it returns nil and the sentence's playback phases are
// skipped while its pauses are kept.
func (s *Sequencer) fetchClip(r *seqRun, text string) ([]byte, float64) {
	s.mu.Lock()
	speed := r.speed
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(r.ctx, s.cfg.GenerationTimeout)
	defer cancel()

	clip, err := s.audio.GetOrFetch(ctx, cache.AudioKey(text, speed), func(fctx context.Context) ([]byte, error) {
		return s.synth.Synthesize(fctx, text, speed)
	})
	if err != nil {
		log.Warn("audio unavailable for sentence, keeping pause timing",
			"run", r.id, "index", r.index, "error", err)
		if !errors.Is(err, ErrSynthesisFailed) {
			err = fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
		}
		s.handleError(err)
		return nil, speed
	}
	return clip, speed
}

// finishAborted settles a cancelled run. A run that has already been
// superseded leaves the state machine alone; it belongs to the replacement.
func (s *Sequencer) finishAborted(r *seqRun) {
	s.mu.Lock()
	if s.run != r {
		s.mu.Unlock()
		log.Debug("stale run settled", "run", r.id)
		return
	}
	s.run = nil
	s.machine.Transition(StateAborted)
	s.mu.Unlock()
	log.Debug("sequencer run aborted", "run", r.id)
}

// transition moves the state machine on behalf of r and notifies. A
// superseded run's edges are dropped so they cannot clobber the phase the
// replacement run is driving.
func (s *Sequencer) transition(r *seqRun, to StateType) {
	s.mu.Lock()
	if s.run != r {
		s.mu.Unlock()
		log.Debug("state transition dropped, run superseded", "run", r.id, "to", to)
		return
	}
	ok := s.machine.Transition(to)
	s.mu.Unlock()

	if !ok {
		log.Debug("state transition skipped", "to", to, "from", s.machine.Current())
		return
	}
	s.notifyState(to)
}

func (s *Sequencer) notifyState(state StateType) {
	s.mu.Lock()
	cb := s.onStateChange
	s.mu.Unlock()
	if cb != nil {
		cb(state)
	}
}

func (s *Sequencer) handleError(err error) {
	s.mu.Lock()
	s.lastError = err
	cb := s.onError
	s.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

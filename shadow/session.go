package shadow

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/shadowbox/internal/cache"
	"github.com/dgnsrekt/shadowbox/internal/theme"
)

// SessionConfig holds session-level configuration.
type SessionConfig struct {
	SentenceCount int           // sentences per generated script
	Speed         float64       // initial playback speed
	LoadTimeout   time.Duration // bound on one theme load (search + generation)
	Sequencer     SequencerConfig
}

// DefaultSessionConfig returns the standard session settings.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		SentenceCount: 5,
		Speed:         1.0,
		LoadTimeout:   90 * time.Second,
		Sequencer:     DefaultSequencerConfig(),
	}
}

// Session is the top-level controller: theme selection, continuous-mode
// rotation, covered-topics history, and the wiring between the sequencer
// and the content caches. All UI-facing notifications flow through Events.
type Session struct {
	catalog   *theme.Catalog
	generator ScriptGenerator
	search    SearchProvider // nil disables search grounding
	synth     SpeechSynthesizer

	seq     *Sequencer
	scripts *cache.Store[*Script]
	audio   *cache.Store[[]byte]

	cfg    SessionConfig
	events chan tea.Msg

	mu         sync.Mutex
	script     *Script // script currently handed to the sequencer
	current    theme.Theme
	history    []string // covered topics for the continuous run
	continuous bool
	themeIdx   int
	speed      float64
	active     bool
}

// NewSession wires a session over the given collaborators. search may be
// nil, in which case search-required themes load without grounding.
func NewSession(catalog *theme.Catalog, generator ScriptGenerator, search SearchProvider,
	synth SpeechSynthesizer, channel AudioChannel, cfg SessionConfig) *Session {

	s := &Session{
		catalog:   catalog,
		generator: generator,
		search:    search,
		synth:     synth,
		scripts:   cache.New[*Script]("scripts"),
		audio:     cache.New[[]byte]("audio"),
		cfg:       cfg,
		events:    make(chan tea.Msg, 32),
		speed:     ClampSpeed(cfg.Speed),
	}
	s.seq = NewSequencer(channel, synth, s.audio, cfg.Sequencer)

	s.seq.OnStateChange(func(state StateType) {
		s.emit(StateChangedMsg{State: state, Paused: s.seq.Status().Paused})
	})
	s.seq.OnSentenceChange(func(index, total int) {
		s.mu.Lock()
		script := s.script
		s.mu.Unlock()
		if script == nil || index >= len(script.Sentences) {
			return
		}
		sent := script.Sentences[index]
		s.emit(SentenceChangedMsg{
			Index:       index,
			Total:       total,
			Text:        sent.Text,
			Translation: sent.Translation,
		})
	})
	s.seq.OnThemeComplete(s.advanceTheme)
	s.seq.OnError(func(err error) {
		if IsRecoverable(err) {
			log.Warn("sequencer error, continuing", "error", err)
			return
		}
		log.Error("sequencer error", "error", err)
		s.emit(SessionErrorMsg{Err: err})
	})

	return s
}

// Events is the UI's subscription to session notifications.
func (s *Session) Events() <-chan tea.Msg {
	return s.events
}

// SelectTheme starts a single-theme practice run. The covered-topics
// history is cleared; the script is always freshly generated.
func (s *Session) SelectTheme(name string) error {
	t, ok := s.catalog.Lookup(name)
	if !ok {
		return ErrUnknownTheme
	}

	s.mu.Lock()
	s.history = nil
	s.continuous = false
	s.current = t
	s.active = true
	s.mu.Unlock()

	s.emit(LoadingMsg{Theme: t.DisplayName})
	go s.loadTheme(t, false, false)
	return nil
}

// StartContinuous begins rotating through every search-grounded theme,
// starting from the first, with a fresh covered-topics history.
func (s *Session) StartContinuous() error {
	if s.catalog.SearchLen() == 0 {
		return ErrNoSearchThemes
	}

	s.mu.Lock()
	s.history = nil
	s.continuous = true
	s.themeIdx = 0
	s.active = true
	s.mu.Unlock()

	t, _ := s.catalog.SearchTheme(0)
	s.emit(LoadingMsg{Theme: t.DisplayName})
	go s.loadTheme(t, true, true)
	return nil
}

// Stop aborts the current run without leaving the practice view.
func (s *Session) Stop() {
	s.seq.Stop()
}

// Pause suspends the current run in place.
func (s *Session) Pause() error {
	if err := s.seq.Pause(); err != nil {
		return err
	}
	s.emit(StateChangedMsg{State: s.seq.Status().State, Paused: true})
	return nil
}

// Resume continues a paused run.
func (s *Session) Resume() error {
	if err := s.seq.Resume(); err != nil {
		return err
	}
	s.emit(StateChangedMsg{State: s.seq.Status().State, Paused: false})
	return nil
}

// Back returns to theme selection: the run is aborted, the covered-topics
// history is cleared, and both content caches are reset.
func (s *Session) Back() {
	s.seq.Stop()

	s.mu.Lock()
	s.history = nil
	s.continuous = false
	s.active = false
	s.script = nil
	s.mu.Unlock()

	s.scripts.Clear()
	s.audio.Clear()
	log.Debug("session reset")
}

// SetSpeed changes the session speed. The sequencer retunes the loaded
// clip against its synthesis speed; clips not yet fetched pick the new
// speed up directly.
func (s *Session) SetSpeed(speed float64) {
	speed = ClampSpeed(speed)

	s.mu.Lock()
	s.speed = speed
	s.mu.Unlock()

	s.seq.SetSpeed(speed)
	s.emit(SpeedChangedMsg{Speed: speed})
}

// Speed returns the current session speed.
func (s *Session) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// Status exposes the sequencer snapshot plus session fields.
func (s *Session) Status() Status {
	st := s.seq.Status()
	s.mu.Lock()
	st.Speed = s.speed
	st.Continuous = s.continuous
	s.mu.Unlock()
	return st
}

// CurrentTheme returns the theme being practiced.
func (s *Session) CurrentTheme() theme.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// loadTheme resolves a script for t and hands it to the sequencer. With
// cacheFirst a prefetched script is reused; otherwise any cached entry is
// discarded and a fresh one generated.
func (s *Session) loadTheme(t theme.Theme, cacheFirst, continuous bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LoadTimeout)
	defer cancel()

	key := cache.ScriptKey(t.Name)
	if !cacheFirst {
		s.scripts.Invalidate(key)
	}

	script, err := s.scripts.GetOrFetch(ctx, key, s.fetchScript(t))
	if err == nil {
		err = script.Validate()
	}
	if err != nil {
		log.Error("theme load failed", "theme", t.Name, "error", err)
		s.emit(SessionErrorMsg{Err: err})
		return
	}

	s.mu.Lock()
	if !s.active {
		// User backed out while the script was loading.
		s.mu.Unlock()
		return
	}
	s.current = t
	s.script = script
	s.history = append(s.history, script.Texts()...)
	speed := s.speed
	s.mu.Unlock()

	if err := s.seq.Start(script, speed, continuous); err != nil {
		s.emit(SessionErrorMsg{Err: err})
		return
	}
	s.emit(ScriptLoadedMsg{Theme: t.DisplayName, Script: script})

	go s.prefetchAudio(script, speed)
	if continuous {
		go s.prefetchNextScript()
	}
}

// fetchScript builds the cache fetcher for one theme, capturing the search
// context and the exclusion list at call time.
func (s *Session) fetchScript(t theme.Theme) cache.FetchFunc[*Script] {
	return func(ctx context.Context) (*Script, error) {
		searchCtx := ""
		if t.RequiresSearch && s.search != nil {
			query := t.QueryTemplate
			if query == "" {
				query = t.DisplayName
			}
			result, err := s.search.Search(ctx, query)
			if err != nil {
				// Best-effort grounding: generate without it.
				log.Warn("search grounding failed", "theme", t.Name, "error", err)
			} else {
				searchCtx = result
			}
		}

		s.mu.Lock()
		excluded := make([]string, len(s.history))
		copy(excluded, s.history)
		s.mu.Unlock()

		return s.generator.Generate(ctx, GenerateRequest{
			Theme:          t.DisplayName,
			SearchContext:  searchCtx,
			SentenceCount:  s.cfg.SentenceCount,
			ExcludedTopics: excluded,
		})
	}
}

// prefetchAudio speculatively synthesizes every sentence of script at the
// current speed. Fire-and-forget; the cache collapses these with the
// sequencer's own fetches.
func (s *Session) prefetchAudio(script *Script, speed float64) {
	for _, sent := range script.Sentences {
		if !sent.Valid() {
			continue
		}
		go func(text string) {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LoadTimeout)
			defer cancel()
			_, err := s.audio.GetOrFetch(ctx, cache.AudioKey(text, speed), func(fctx context.Context) ([]byte, error) {
				return s.synth.Synthesize(fctx, text, speed)
			})
			if err != nil {
				log.Debug("audio prefetch failed", "error", err)
			}
		}(sent.Text)
	}
}

// prefetchNextScript speculatively generates the next theme's script while
// the current one plays.
func (s *Session) prefetchNextScript() {
	s.mu.Lock()
	if !s.continuous || !s.active {
		s.mu.Unlock()
		return
	}
	next, ok := s.catalog.SearchTheme(s.themeIdx + 1)
	s.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LoadTimeout)
	defer cancel()
	_, err := s.scripts.GetOrFetch(ctx, cache.ScriptKey(next.Name), s.fetchScript(next))
	if err != nil {
		log.Debug("script prefetch failed", "theme", next.Name, "error", err)
	}
}

// advanceTheme rotates continuous mode to the next search-grounded theme.
// The consumed theme's script entry is invalidated so its next rotation
// generates fresh content.
func (s *Session) advanceTheme() {
	s.mu.Lock()
	if !s.continuous || !s.active {
		s.mu.Unlock()
		return
	}
	consumed, _ := s.catalog.SearchTheme(s.themeIdx)
	s.themeIdx = (s.themeIdx + 1) % s.catalog.SearchLen()
	idx := s.themeIdx
	s.mu.Unlock()

	s.scripts.Invalidate(cache.ScriptKey(consumed.Name))

	next, _ := s.catalog.SearchTheme(idx)
	s.emit(ThemeAdvancedMsg{ThemeIndex: idx, Theme: next.DisplayName})
	go s.loadTheme(next, true, true)
}

// emit delivers a message to the UI without ever blocking the core.
func (s *Session) emit(msg tea.Msg) {
	select {
	case s.events <- msg:
	default:
		log.Debug("event dropped, UI not draining", "msg", msg)
	}
}

package shadow

import (
	"errors"
	"testing"
	"time"

	"github.com/dgnsrekt/shadowbox/internal/audio"
	"github.com/dgnsrekt/shadowbox/internal/theme"
)

const testCatalogYAML = `
themes:
  - name: meeting
    display_name: Business Meeting
    display_name_ja: 会議
    description: Everyday meeting phrases.
    requires_search: false
  - name: news
    display_name: Today's News
    display_name_ja: ニュース
    description: Current events.
    requires_search: true
    query_template: "latest world news"
  - name: tech
    display_name: Tech Trends
    display_name_ja: テクノロジー
    description: Technology topics.
    requires_search: true
    query_template: "technology news this week"
`

func newTestSession(t *testing.T, gen *stubGenerator, search SearchProvider,
	sy *stubSynth, ch *stubChannel) *Session {
	t.Helper()

	catalog, err := theme.Parse([]byte(testCatalogYAML))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}

	cfg := DefaultSessionConfig()
	cfg.SentenceCount = 1
	cfg.LoadTimeout = 5 * time.Second
	cfg.Sequencer = fastSequencerConfig()

	return NewSession(catalog, gen, search, sy, ch, cfg)
}

// awaitMsg drains the session event stream until a message of type T
// arrives, failing the test if none does within timeout.
func awaitMsg[T any](t *testing.T, s *Session, timeout time.Duration, what string) T {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case msg := <-s.Events():
			if m, ok := msg.(T); ok {
				return m
			}
		case <-deadline:
			t.Fatalf("no %s event within %v", what, timeout)
		}
	}
}

func TestSelectThemeUnknown(t *testing.T) {
	s := newTestSession(t, &stubGenerator{}, nil, &stubSynth{}, &stubChannel{})
	if err := s.SelectTheme("nope"); !errors.Is(err, ErrUnknownTheme) {
		t.Errorf("SelectTheme(nope) = %v, want ErrUnknownTheme", err)
	}
}

// TestSelectThemeRuns selects a theme and follows the run through loading,
// script delivery, and playback.
func TestSelectThemeRuns(t *testing.T) {
	gen := &stubGenerator{}
	sy := &stubSynth{}
	ch := &stubChannel{}
	s := newTestSession(t, gen, nil, sy, ch)
	defer s.Back()

	if err := s.SelectTheme("meeting"); err != nil {
		t.Fatalf("SelectTheme: %v", err)
	}

	loading := awaitMsg[LoadingMsg](t, s, time.Second, "loading")
	if loading.Theme != "Business Meeting" {
		t.Errorf("loading theme = %q", loading.Theme)
	}

	loaded := awaitMsg[ScriptLoadedMsg](t, s, 3*time.Second, "script-loaded")
	if loaded.Script == nil || len(loaded.Script.Sentences) == 0 {
		t.Fatal("script-loaded carried no script")
	}

	waitFor(t, 3*time.Second, func() bool {
		return s.Status().State == StateIdle && ch.playCount() == 2
	}, "playback to finish")

	if got := s.CurrentTheme().Name; got != "meeting" {
		t.Errorf("current theme = %q, want meeting", got)
	}
}

// TestSelectThemeAlwaysRegenerates verifies replaying a theme generates a
// fresh script instead of reusing the cached one.
func TestSelectThemeAlwaysRegenerates(t *testing.T) {
	gen := &stubGenerator{}
	s := newTestSession(t, gen, nil, &stubSynth{}, &stubChannel{})
	defer s.Back()

	for i := 0; i < 2; i++ {
		if err := s.SelectTheme("meeting"); err != nil {
			t.Fatalf("SelectTheme %d: %v", i, err)
		}
		awaitMsg[ScriptLoadedMsg](t, s, 3*time.Second, "script-loaded")
	}

	gen.mu.Lock()
	calls := gen.calls
	gen.mu.Unlock()
	if calls != 2 {
		t.Errorf("generator called %d times across two selections, want 2", calls)
	}
}

// TestSelectThemeGenerationFailure verifies a failed generation surfaces as
// a session error and leaves the sequencer idle.
func TestSelectThemeGenerationFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("model offline")}
	s := newTestSession(t, gen, nil, &stubSynth{}, &stubChannel{})
	defer s.Back()

	if err := s.SelectTheme("meeting"); err != nil {
		t.Fatalf("SelectTheme: %v", err)
	}

	msg := awaitMsg[SessionErrorMsg](t, s, 3*time.Second, "session-error")
	if msg.Err == nil {
		t.Error("session error carried nil")
	}
	if st := s.Status().State; st != StateIdle {
		t.Errorf("state after failed load = %v, want idle", st)
	}
}

// TestUnrecoverablePlaybackSurfaces verifies a playback failure the run
// cannot continue past reaches the UI as a session error.
func TestUnrecoverablePlaybackSurfaces(t *testing.T) {
	ch := &stubChannel{playErr: audio.ErrEmptyClip}
	s := newTestSession(t, &stubGenerator{}, nil, &stubSynth{}, ch)
	defer s.Back()

	if err := s.SelectTheme("meeting"); err != nil {
		t.Fatalf("SelectTheme: %v", err)
	}

	msg := awaitMsg[SessionErrorMsg](t, s, 3*time.Second, "session-error")
	if !errors.Is(msg.Err, audio.ErrEmptyClip) {
		t.Errorf("session error = %v, want the playback failure", msg.Err)
	}
}

// TestSearchGroundingReachesGenerator verifies search-required themes pass
// their search context into the generation request.
func TestSearchGroundingReachesGenerator(t *testing.T) {
	gen := &stubGenerator{}
	search := &stubSearch{result: "headline: markets up"}
	s := newTestSession(t, gen, search, &stubSynth{}, &stubChannel{})
	defer s.Back()

	if err := s.SelectTheme("news"); err != nil {
		t.Fatalf("SelectTheme: %v", err)
	}
	awaitMsg[ScriptLoadedMsg](t, s, 3*time.Second, "script-loaded")

	reqs := gen.seen()
	if len(reqs) == 0 {
		t.Fatal("generator never called")
	}
	if reqs[0].SearchContext != "headline: markets up" {
		t.Errorf("search context = %q", reqs[0].SearchContext)
	}

	search.mu.Lock()
	defer search.mu.Unlock()
	if len(search.queries) == 0 || search.queries[0] != "latest world news" {
		t.Errorf("search queries = %v, want the theme's query template", search.queries)
	}
}

// TestSearchFailureIsBestEffort verifies a failed search still generates,
// just without grounding.
func TestSearchFailureIsBestEffort(t *testing.T) {
	gen := &stubGenerator{}
	search := &stubSearch{err: errors.New("search down")}
	s := newTestSession(t, gen, search, &stubSynth{}, &stubChannel{})
	defer s.Back()

	if err := s.SelectTheme("news"); err != nil {
		t.Fatalf("SelectTheme: %v", err)
	}
	awaitMsg[ScriptLoadedMsg](t, s, 3*time.Second, "script-loaded")

	reqs := gen.seen()
	if len(reqs) == 0 {
		t.Fatal("generator never called")
	}
	if reqs[0].SearchContext != "" {
		t.Errorf("search context = %q, want empty after search failure", reqs[0].SearchContext)
	}
}

func TestStartContinuousRequiresSearchThemes(t *testing.T) {
	catalog, err := theme.Parse([]byte(`
themes:
  - name: meeting
    display_name: Business Meeting
    requires_search: false
`))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	cfg := DefaultSessionConfig()
	cfg.Sequencer = fastSequencerConfig()
	s := NewSession(catalog, &stubGenerator{}, nil, &stubSynth{}, &stubChannel{}, cfg)

	if err := s.StartContinuous(); !errors.Is(err, ErrNoSearchThemes) {
		t.Errorf("StartContinuous = %v, want ErrNoSearchThemes", err)
	}
}

// TestContinuousRotation verifies continuous mode advances through the
// search-grounded themes and feeds covered sentences back as exclusions.
func TestContinuousRotation(t *testing.T) {
	gen := &stubGenerator{}
	search := &stubSearch{result: "context"}
	s := newTestSession(t, gen, search, &stubSynth{}, &stubChannel{})
	defer s.Back()

	if err := s.StartContinuous(); err != nil {
		t.Fatalf("StartContinuous: %v", err)
	}

	first := awaitMsg[ScriptLoadedMsg](t, s, 3*time.Second, "first script")
	if first.Theme != "Today's News" {
		t.Errorf("first theme = %q, want Today's News", first.Theme)
	}

	adv := awaitMsg[ThemeAdvancedMsg](t, s, 5*time.Second, "theme-advanced")
	if adv.Theme != "Tech Trends" || adv.ThemeIndex != 1 {
		t.Errorf("advanced to %q (index %d), want Tech Trends (1)", adv.Theme, adv.ThemeIndex)
	}

	second := awaitMsg[ScriptLoadedMsg](t, s, 3*time.Second, "second script")
	if second.Theme != "Tech Trends" {
		t.Errorf("second theme = %q, want Tech Trends", second.Theme)
	}

	// The second theme's request must exclude the first theme's sentences.
	waitFor(t, 2*time.Second, func() bool {
		for _, req := range gen.seen() {
			if req.Theme == "Tech Trends" && len(req.ExcludedTopics) > 0 {
				return true
			}
		}
		return false
	}, "exclusions to reach the generator")

	// Two search themes: the next advance wraps back to index 0.
	wrap := awaitMsg[ThemeAdvancedMsg](t, s, 5*time.Second, "wraparound advance")
	if wrap.ThemeIndex != 0 || wrap.Theme != "Today's News" {
		t.Errorf("wrapped to %q (index %d), want Today's News (0)", wrap.Theme, wrap.ThemeIndex)
	}
}

// TestBackClearsHistory verifies Back wipes the covered-topics history so a
// later run starts without exclusions.
func TestBackClearsHistory(t *testing.T) {
	gen := &stubGenerator{}
	s := newTestSession(t, gen, &stubSearch{}, &stubSynth{}, &stubChannel{})

	if err := s.StartContinuous(); err != nil {
		t.Fatalf("StartContinuous: %v", err)
	}
	awaitMsg[ScriptLoadedMsg](t, s, 3*time.Second, "script-loaded")

	s.Back()
	before := len(gen.seen())

	if err := s.SelectTheme("news"); err != nil {
		t.Fatalf("SelectTheme after Back: %v", err)
	}
	awaitMsg[ScriptLoadedMsg](t, s, 3*time.Second, "script after Back")
	s.Back()

	reqs := gen.seen()
	if len(reqs) <= before {
		t.Fatal("no generation after Back")
	}
	for _, req := range reqs[before:] {
		if req.Theme == "Today's News" && len(req.ExcludedTopics) != 0 {
			t.Errorf("post-Back request carried exclusions: %v", req.ExcludedTopics)
		}
	}
}

// TestSetSpeedNudgesChannelRate verifies live speed changes retune the
// loaded clip against the speed it was synthesized at, so two changes
// within one clip do not compound.
func TestSetSpeedNudgesChannelRate(t *testing.T) {
	ch := &stubChannel{playDelay: 5 * time.Second} // park the run mid-clip
	s := newTestSession(t, &stubGenerator{}, nil, &stubSynth{}, ch)
	defer s.Back()

	if err := s.SelectTheme("meeting"); err != nil {
		t.Fatalf("SelectTheme: %v", err)
	}
	waitFor(t, 3*time.Second, func() bool {
		return ch.playCount() == 1
	}, "clip synthesized at 1.0 to start playing")

	s.SetSpeed(1.5)
	msg := awaitMsg[SpeedChangedMsg](t, s, time.Second, "speed-changed")
	if msg.Speed != 1.5 {
		t.Errorf("speed event = %v, want 1.5", msg.Speed)
	}
	if got := s.Speed(); got != 1.5 {
		t.Errorf("Speed() = %v, want 1.5", got)
	}

	// A second change on the same clip rates against the clip's 1.0, not
	// against the previous setting.
	s.SetSpeed(2.0)

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if len(ch.rates) < 3 {
		t.Fatalf("channel rates = %v, want clip load plus two retunes", ch.rates)
	}
	if ch.rates[len(ch.rates)-2] != 1.5 || ch.rates[len(ch.rates)-1] != 2.0 {
		t.Errorf("channel rates = %v, want 1.5 then 2.0 against the clip's 1.0", ch.rates)
	}
}

// TestSetSpeedIdleLeavesChannelAlone verifies a speed change with no run
// active only records the preference.
func TestSetSpeedIdleLeavesChannelAlone(t *testing.T) {
	ch := &stubChannel{}
	s := newTestSession(t, &stubGenerator{}, nil, &stubSynth{}, ch)

	s.SetSpeed(1.5)
	if got := s.Speed(); got != 1.5 {
		t.Errorf("Speed() = %v, want 1.5", got)
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if len(ch.rates) != 0 {
		t.Errorf("channel rates = %v, want none while idle", ch.rates)
	}
}

func TestSetSpeedClamps(t *testing.T) {
	s := newTestSession(t, &stubGenerator{}, nil, &stubSynth{}, &stubChannel{})
	s.SetSpeed(9.0)
	if got := s.Speed(); got != MaxSpeed {
		t.Errorf("Speed() = %v, want %v", got, MaxSpeed)
	}
	s.SetSpeed(0.1)
	if got := s.Speed(); got != MinSpeed {
		t.Errorf("Speed() = %v, want %v", got, MinSpeed)
	}
}

// TestPauseResumeEvents verifies the session surfaces paused state changes.
func TestPauseResumeEvents(t *testing.T) {
	ch := &stubChannel{}
	s := newTestSession(t, &stubGenerator{}, nil, &stubSynth{}, ch)
	defer s.Back()

	if err := s.SelectTheme("meeting"); err != nil {
		t.Fatalf("SelectTheme: %v", err)
	}
	awaitMsg[ScriptLoadedMsg](t, s, 3*time.Second, "script-loaded")

	waitFor(t, 2*time.Second, func() bool {
		return s.Status().State.Active()
	}, "run to become active")

	if err := s.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if !s.Status().Paused {
		t.Error("Status().Paused = false after Pause")
	}
	if err := s.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if s.Status().Paused {
		t.Error("Status().Paused = true after Resume")
	}
}

package shadow

import (
	"context"
	"sync"
	"testing"
	"time"
)

// stubChannel is an AudioChannel that finishes playback immediately (or
// after playDelay) and records every call.
type stubChannel struct {
	mu        sync.Mutex
	plays     [][]byte
	pauseN    int
	resumeN   int
	stopN     int
	rates     []float64
	playing   bool
	playDelay time.Duration
	playErr   error
}

func (c *stubChannel) Play(ctx context.Context, clip []byte) error {
	c.mu.Lock()
	c.plays = append(c.plays, clip)
	c.playing = true
	delay := c.playDelay
	err := c.playErr
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.playing = false
			c.mu.Unlock()
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	c.mu.Lock()
	c.playing = false
	c.mu.Unlock()
	return err
}

func (c *stubChannel) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pauseN++
	return nil
}

func (c *stubChannel) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumeN++
	return nil
}

func (c *stubChannel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopN++
	c.playing = false
	return nil
}

func (c *stubChannel) SetRate(rate float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates = append(c.rates, rate)
	return nil
}

func (c *stubChannel) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *stubChannel) playCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.plays)
}

// stubSynth returns fixed bytes for any text and counts invocations. A
// gate parks the call for that text until the channel is closed, keeping
// the caller inside its fetch.
type stubSynth struct {
	mu    sync.Mutex
	calls int
	texts []string
	err   error
	gates map[string]chan struct{}
}

func (s *stubSynth) Synthesize(ctx context.Context, text string, speed float64) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	s.texts = append(s.texts, text)
	err := s.err
	gate := s.gates[text]
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return []byte("pcm:" + text), nil
}

func (s *stubSynth) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubGenerator returns a canned script per theme, counting calls and
// recording the requests it saw.
type stubGenerator struct {
	mu       sync.Mutex
	calls    int
	requests []GenerateRequest
	scripts  map[string]*Script
	err      error
}

func (g *stubGenerator) Generate(ctx context.Context, req GenerateRequest) (*Script, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	if sc, ok := g.scripts[req.Theme]; ok {
		return sc, nil
	}
	return &Script{
		Theme: req.Theme,
		Sentences: []Sentence{
			{ID: 1, Text: "Sentence for " + req.Theme, Translation: "訳"},
		},
	}, nil
}

func (g *stubGenerator) seen() []GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]GenerateRequest, len(g.requests))
	copy(out, g.requests)
	return out
}

// stubSearch returns a fixed context string.
type stubSearch struct {
	mu      sync.Mutex
	queries []string
	result  string
	err     error
}

func (s *stubSearch) Search(ctx context.Context, query string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	return s.result, s.err
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func testScript(n int) *Script {
	s := &Script{Theme: "test"}
	for i := 1; i <= n; i++ {
		s.Sentences = append(s.Sentences, Sentence{
			ID:          i,
			Text:        "Sentence " + string(rune('A'+i-1)),
			Translation: "訳",
		})
	}
	return s
}

func fastSequencerConfig() SequencerConfig {
	return SequencerConfig{
		ShadowPause:       120 * time.Millisecond,
		AdvanceDelay:      120 * time.Millisecond,
		CompleteDelay:     120 * time.Millisecond,
		GenerationTimeout: time.Second,
	}
}

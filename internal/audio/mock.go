package audio

import (
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// MockContext simulates an audio device. Players created from it report
// playing for a fixed duration per clip, without producing sound. Used in
// tests, CI, and --mock-audio mode.
type MockContext struct {
	// PlayDuration is how long each mock clip "plays". Zero means clips
	// finish on the first completion check.
	PlayDuration time.Duration

	mu      sync.Mutex
	players []*MockPlayer
}

// NewMockContext creates a mock context with the given simulated clip
// duration.
func NewMockContext(playDuration time.Duration) *MockContext {
	return &MockContext{PlayDuration: playDuration}
}

// NewPlayer drains r immediately and returns a timed mock player.
func (c *MockContext) NewPlayer(r io.Reader) Player {
	data, _ := io.ReadAll(r)
	p := &MockPlayer{duration: c.PlayDuration, bytes: len(data)}
	c.mu.Lock()
	c.players = append(c.players, p)
	c.mu.Unlock()
	return p
}

// SampleRate matches the default production configuration.
func (c *MockContext) SampleRate() int { return 24000 }

// Players returns every player created so far, for test assertions.
func (c *MockContext) Players() []*MockPlayer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*MockPlayer, len(c.players))
	copy(out, c.players)
	return out
}

// MockPlayer simulates one clip's playback with wall-clock timing.
type MockPlayer struct {
	duration time.Duration
	bytes    int

	mu         sync.Mutex
	started    time.Time
	playedFor  time.Duration // accumulated before the current segment
	playing    bool
	closed     bool
	playCalls  atomic.Int64
	pauseCalls atomic.Int64
}

// Play starts or resumes the simulated clock.
func (p *MockPlayer) Play() {
	p.playCalls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.playing {
		return
	}
	p.started = time.Now()
	p.playing = true
}

// Pause freezes the simulated clock.
func (p *MockPlayer) Pause() {
	p.pauseCalls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.playedFor += time.Since(p.started)
	p.playing = false
}

// IsPlaying reports whether the simulated clip is still running.
func (p *MockPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || !p.playing {
		return false
	}
	return p.playedFor+time.Since(p.started) < p.duration
}

// Close marks the player dead.
func (p *MockPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.playing = false
	return nil
}

// PlayCalls returns how many times Play was invoked (start + resumes).
func (p *MockPlayer) PlayCalls() int64 { return p.playCalls.Load() }

// PauseCalls returns how many times Pause was invoked.
func (p *MockPlayer) PauseCalls() int64 { return p.pauseCalls.Load() }

// Bytes returns the clip size the player was created with.
func (p *MockPlayer) Bytes() int { return p.bytes }

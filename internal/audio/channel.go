package audio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

var (
	// ErrPlaybackTimeout signals the hard playback ceiling was reached.
	// The clip is treated as finished; callers proceed rather than hang.
	ErrPlaybackTimeout = errors.New("playback timed out")

	// ErrEmptyClip is returned for zero-length audio data.
	ErrEmptyClip = errors.New("audio clip is empty")
)

// Resampling rate bounds. The rate is a ratio against the clip's native
// speed, so it must span the full compensation range between the slowest
// and fastest synthesis speeds (0.7/2.0 through 2.0/0.7).
const (
	minRate = 0.35
	maxRate = 2.9
)

// ChannelConfig configures playback supervision.
type ChannelConfig struct {
	// PlayTimeout is the hard ceiling on one clip's playback. A stalled
	// or silently failed device cannot freeze the sequence past this.
	PlayTimeout time.Duration

	// PollInterval is the completion-check resolution.
	PollInterval time.Duration
}

// DefaultChannelConfig returns sensible playback supervision defaults.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		PlayTimeout:  60 * time.Second,
		PollInterval: 25 * time.Millisecond,
	}
}

// Channel owns the application's single playback slot. Exactly one clip is
// loaded at a time; starting a new Play implicitly stops and discards the
// previous one.
type Channel struct {
	context Context
	cfg     ChannelConfig
	rate    atomic.Uint64 // float64 bits, shared with the active rateReader

	mu      sync.Mutex
	player  Player
	clip    []byte // kept alive for the duration of playback
	playing bool
	paused  bool
	gen     uint64 // bumped whenever the loaded clip changes
}

// NewChannel creates a Channel on the given output context.
func NewChannel(ctx Context, cfg ChannelConfig) *Channel {
	c := &Channel{context: ctx, cfg: cfg}
	storeRate(&c.rate, 1.0)
	return c
}

// Play loads clip and blocks until playback finishes, ctx is cancelled, the
// clip is superseded or stopped, or the hard ceiling elapses. Pausing the
// channel freezes the ceiling clock.
func (c *Channel) Play(ctx context.Context, clip []byte) error {
	if len(clip) == 0 {
		return ErrEmptyClip
	}

	// Own the data for the duration of playback.
	data := make([]byte, len(clip))
	copy(data, clip)

	c.mu.Lock()
	c.stopLocked()
	player := c.context.NewPlayer(newRateReader(data, &c.rate))
	c.player = player
	c.clip = data
	c.playing = true
	c.paused = false
	c.gen++
	gen := c.gen
	player.Play()
	c.mu.Unlock()

	log.Debug("playback started", "bytes", len(data), "rate", loadRate(&c.rate))

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	var active time.Duration
	for {
		select {
		case <-ctx.Done():
			c.Stop()
			return ctx.Err()
		case <-ticker.C:
			c.mu.Lock()
			if c.gen != gen || !c.playing {
				// Superseded by a newer clip or stopped externally.
				c.mu.Unlock()
				return nil
			}
			paused := c.paused
			finished := !paused && c.player != nil && !c.player.IsPlaying()
			c.mu.Unlock()

			if finished {
				c.release(gen)
				return nil
			}
			if paused {
				continue
			}
			active += c.cfg.PollInterval
			if active >= c.cfg.PlayTimeout {
				log.Warn("playback ceiling reached, treating clip as finished",
					"ceiling", c.cfg.PlayTimeout)
				c.release(gen)
				return ErrPlaybackTimeout
			}
		}
	}
}

// Pause suspends playback. No-op when nothing is loaded or already paused.
func (c *Channel) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing || c.paused {
		return nil
	}
	c.player.Pause()
	c.paused = true
	return nil
}

// Resume continues playback from the paused position. No-op unless paused.
func (c *Channel) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing || !c.paused {
		return nil
	}
	c.player.Play()
	c.paused = false
	return nil
}

// Stop halts playback and discards the loaded clip. Always safe to call;
// any blocked Play settles within one poll interval.
func (c *Channel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	return nil
}

// SetRate adjusts the playback rate of the loaded clip and all subsequent
// clips. Values are clamped to [0.35, 2.9].
func (c *Channel) SetRate(rate float64) error {
	if rate < minRate {
		rate = minRate
	} else if rate > maxRate {
		rate = maxRate
	}
	storeRate(&c.rate, rate)
	return nil
}

// IsPlaying reports whether a clip is actively playing (not paused).
func (c *Channel) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing && !c.paused
}

// release tears down the clip identified by gen, unless it has already been
// superseded.
func (c *Channel) release(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.stopLocked()
	}
}

// stopLocked halts and discards the current clip. Caller holds c.mu.
func (c *Channel) stopLocked() {
	if c.player != nil {
		c.player.Pause()
		_ = c.player.Close()
		c.player = nil
	}
	c.clip = nil
	c.playing = false
	c.paused = false
	c.gen++
}

package audio

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// Player is the minimal surface the Channel needs from an output device.
// *oto.Player satisfies it directly.
type Player interface {
	Play()
	Pause()
	IsPlaying() bool
	Close() error
}

// Context creates players bound to one audio device.
type Context interface {
	NewPlayer(r io.Reader) Player
	SampleRate() int
}

// ContextConfig configures the output device.
type ContextConfig struct {
	SampleRate   int           // Hz; OpenAI PCM speech is 24000
	Channels     int           // 1 = mono
	ReadyTimeout time.Duration // bound on the device "ready" signal
}

// DefaultContextConfig returns the configuration matching the synthesis
// collaborator's PCM output: 24 kHz, mono, 16-bit.
func DefaultContextConfig() ContextConfig {
	return ContextConfig{
		SampleRate:   24000,
		Channels:     1,
		ReadyTimeout: 2 * time.Second,
	}
}

type otoContext struct {
	ctx        *oto.Context
	sampleRate int
}

func (c *otoContext) NewPlayer(r io.Reader) Player { return c.ctx.NewPlayer(r) }
func (c *otoContext) SampleRate() int              { return c.sampleRate }

// NewContext initializes the production oto audio context. Readiness events
// are inconsistent across platforms, so the wait is bounded: after
// ReadyTimeout we proceed and let the first playback attempt sort it out.
func NewContext(cfg ContextConfig) (Context, error) {
	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}

	select {
	case <-ready:
	case <-time.After(cfg.ReadyTimeout):
		log.Warn("audio context not ready in time, proceeding anyway",
			"timeout", cfg.ReadyTimeout)
	}

	return &otoContext{ctx: ctx, sampleRate: cfg.SampleRate}, nil
}

// ShouldUseMock reports whether a mock audio context should replace the
// real device: explicit request via environment, or a CI environment where
// no audio device exists.
func ShouldUseMock() bool {
	if v := os.Getenv("SHADOWBOX_MOCK_AUDIO"); v == "true" || v == "1" {
		log.Debug("mock audio requested via environment")
		return true
	}

	ciVars := []string{
		"CI",
		"CONTINUOUS_INTEGRATION",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_URL",
		"BUILDKITE",
	}
	for _, name := range ciVars {
		if val := os.Getenv(name); val != "" && val != "false" {
			log.Debug("CI environment detected, using mock audio", "variable", name)
			return true
		}
	}
	return false
}

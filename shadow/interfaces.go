package shadow

import "context"

// ScriptGenerator produces practice scripts for a theme. Implementations
// own their retry and backoff policy; the core treats any error or invalid
// shape as "no script" and does not retry.
type ScriptGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Script, error)
}

// SpeechSynthesizer turns sentence text into encoded audio bytes at the
// given speed multiplier. The core treats the result as an opaque buffer
// playable by the AudioChannel.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, speed float64) ([]byte, error)
}

// SearchProvider returns a context string grounding a theme in live search
// results. Best-effort: callers tolerate errors by passing empty context.
type SearchProvider interface {
	Search(ctx context.Context, query string) (string, error)
}

// AudioChannel owns exactly one playable audio sink. Starting a new Play
// implicitly stops and discards the previous clip; callers never reach into
// the underlying playback resource directly.
type AudioChannel interface {
	// Play blocks until the clip finishes, errors, is cancelled via ctx,
	// or hits the channel's hard playback ceiling.
	Play(ctx context.Context, clip []byte) error

	// Pause and Resume are no-ops when no clip is loaded.
	Pause() error
	Resume() error

	// Stop halts playback and resets position. Always safe to call.
	Stop() error

	// SetRate adjusts the playback rate of the loaded clip and all
	// subsequently loaded clips. Rates are clamped to [MinSpeed, MaxSpeed].
	SetRate(rate float64) error

	// IsPlaying reports whether a clip is actively playing.
	IsPlaying() bool
}

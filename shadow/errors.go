package shadow

import (
	"errors"

	"github.com/dgnsrekt/shadowbox/internal/audio"
)

// Common errors for the shadowing core.
var (
	// Script errors
	ErrNoScript      = errors.New("no script available")
	ErrInvalidScript = errors.New("invalid script")

	// Collaborator errors
	ErrGenerationFailed = errors.New("script generation failed")
	ErrSynthesisFailed  = errors.New("speech synthesis failed")

	// Sequencer errors
	ErrNotRunning = errors.New("sequencer is not running")

	// Session errors
	ErrUnknownTheme   = errors.New("unknown theme")
	ErrNoSearchThemes = errors.New("no search-grounded themes in catalog")
)

// IsRecoverable reports whether the sequencer may continue past err.
// Synthesis failures and playback timeouts degrade the current sentence
// only; anything else ends the run.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	return errors.Is(err, ErrSynthesisFailed) ||
		errors.Is(err, audio.ErrPlaybackTimeout)
}

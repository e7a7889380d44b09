// Package shadow implements the auto-play orchestration for language
// shadowing practice: scripts are played sentence by sentence, twice each,
// with fixed pauses in between for the learner to repeat aloud.
package shadow

import (
	"fmt"
	"strings"
)

// Sentence is one line of a practice script.
type Sentence struct {
	ID          int    `json:"id"`
	Text        string `json:"text"`
	Translation string `json:"translation,omitempty"`
}

// Valid reports whether the sentence has playable text.
func (s Sentence) Valid() bool {
	return strings.TrimSpace(s.Text) != ""
}

// Script is an ordered set of sentences generated for one theme.
// Scripts are immutable once returned by the generator; replaying a theme
// produces a new Script rather than mutating the old one.
type Script struct {
	Theme     string     `json:"theme"`
	Sentences []Sentence `json:"sentences"`
}

// FallbackText is the sentinel sentence the generator emits when it gives up.
// A script containing it is treated as no script at all.
const FallbackText = "Sorry, I could not generate a script for this topic."

// Validate rejects scripts that must not reach the sequencer: empty scripts
// and scripts carrying the generator's fallback sentinel.
func (s *Script) Validate() error {
	if s == nil {
		return ErrNoScript
	}
	if len(s.Sentences) == 0 {
		return fmt.Errorf("%w: script %q has no sentences", ErrInvalidScript, s.Theme)
	}
	for _, sent := range s.Sentences {
		if strings.TrimSpace(sent.Text) == FallbackText {
			return fmt.Errorf("%w: generator returned fallback sentinel", ErrInvalidScript)
		}
	}
	return nil
}

// Texts returns the sentence texts in order, skipping empty ones.
// Used to extend the covered-topics history.
func (s *Script) Texts() []string {
	texts := make([]string, 0, len(s.Sentences))
	for _, sent := range s.Sentences {
		if sent.Valid() {
			texts = append(texts, sent.Text)
		}
	}
	return texts
}

// GenerateRequest describes one script-generation call.
type GenerateRequest struct {
	Theme          string   // theme display name handed to the generator
	SearchContext  string   // optional search-derived grounding, may be empty
	SentenceCount  int      // desired number of sentences
	ExcludedTopics []string // sentence texts already covered this session
}

// Speed bounds for synthesis and playback. Values outside are clamped.
const (
	MinSpeed = 0.7
	MaxSpeed = 2.0
)

// ClampSpeed forces a speed multiplier into the supported range.
func ClampSpeed(speed float64) float64 {
	switch {
	case speed < MinSpeed:
		return MinSpeed
	case speed > MaxSpeed:
		return MaxSpeed
	default:
		return speed
	}
}

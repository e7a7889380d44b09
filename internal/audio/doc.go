// Package audio owns the single playback slot of the application. The
// Channel plays one PCM clip at a time on an oto output context, with
// pause/resume, a bounded completion wait, and dynamic playback rate via
// streaming resampling. A mock context stands in when no audio device is
// available (CI, tests, --mock-audio).
package audio

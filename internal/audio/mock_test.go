package audio

import (
	"io"
	"testing"
	"time"
)

func clearAudioEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"SHADOWBOX_MOCK_AUDIO", "CI", "CONTINUOUS_INTEGRATION",
		"GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "BUILDKITE",
	} {
		t.Setenv(name, "")
	}
}

func TestShouldUseMock(t *testing.T) {
	t.Run("explicit request", func(t *testing.T) {
		clearAudioEnv(t)
		t.Setenv("SHADOWBOX_MOCK_AUDIO", "true")
		if !ShouldUseMock() {
			t.Error("explicit request ignored")
		}
	})

	t.Run("ci environment", func(t *testing.T) {
		clearAudioEnv(t)
		t.Setenv("GITHUB_ACTIONS", "true")
		if !ShouldUseMock() {
			t.Error("CI environment not detected")
		}
	})

	t.Run("clean environment", func(t *testing.T) {
		clearAudioEnv(t)
		if ShouldUseMock() {
			t.Error("mock requested with clean environment")
		}
	})

	t.Run("ci false is not ci", func(t *testing.T) {
		clearAudioEnv(t)
		t.Setenv("CI", "false")
		if ShouldUseMock() {
			t.Error("CI=false treated as CI")
		}
	})
}

// TestMockPlayerTiming verifies the simulated clock: a clip reports playing
// for its duration, and pausing freezes the remaining time.
func TestMockPlayerTiming(t *testing.T) {
	ctx := NewMockContext(80 * time.Millisecond)
	p := ctx.NewPlayer(newStaticReader(64))

	p.Play()
	if !p.IsPlaying() {
		t.Fatal("player not playing after Play")
	}

	mp := p.(*MockPlayer)
	mp.Pause()
	remaining := mp.duration - mp.playedFor
	if remaining <= 0 {
		t.Fatalf("clip exhausted instantly, playedFor=%v", mp.playedFor)
	}

	// Paused time must not consume the clip.
	time.Sleep(120 * time.Millisecond)
	p.Play()
	if !p.IsPlaying() {
		t.Error("player finished while paused")
	}

	time.Sleep(120 * time.Millisecond)
	if p.IsPlaying() {
		t.Error("player still playing past its duration")
	}
}

func TestMockPlayerClose(t *testing.T) {
	ctx := NewMockContext(time.Second)
	p := ctx.NewPlayer(newStaticReader(16))
	p.Play()
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if p.IsPlaying() {
		t.Error("closed player reports playing")
	}
}

func TestMockContextBookkeeping(t *testing.T) {
	ctx := NewMockContext(0)
	if ctx.SampleRate() != 24000 {
		t.Errorf("SampleRate = %d, want 24000", ctx.SampleRate())
	}

	p := ctx.NewPlayer(newStaticReader(32)).(*MockPlayer)
	if p.Bytes() != 32 {
		t.Errorf("Bytes = %d, want 32", p.Bytes())
	}
	if n := len(ctx.Players()); n != 1 {
		t.Errorf("Players = %d, want 1", n)
	}
}

type staticReader struct {
	data []byte
	pos  int
}

func newStaticReader(n int) *staticReader {
	return &staticReader{data: make([]byte, n)}
}

func (r *staticReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

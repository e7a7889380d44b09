package shadow

import (
	"context"
	"sync"
	"time"
)

// waitTick is the resolution of the pausable wait clock. The original pause
// behavior polled a flag on a timer loop; the Waiter makes that explicit.
const waitTick = 50 * time.Millisecond

// Waiter is a cancellable, pausable delay used for shadow-practice pauses.
// While paused, the clock does not advance; Resume continues counting from
// where it stopped. Cancelling the context settles the wait immediately.
type Waiter struct {
	mu     sync.Mutex
	paused bool
	tick   time.Duration
}

// NewWaiter creates a Waiter with the default tick resolution.
func NewWaiter() *Waiter {
	return &Waiter{tick: waitTick}
}

// Pause freezes the clock of any in-progress and future waits.
func (w *Waiter) Pause() {
	w.mu.Lock()
	w.paused = true
	w.mu.Unlock()
}

// Resume unfreezes the clock.
func (w *Waiter) Resume() {
	w.mu.Lock()
	w.paused = false
	w.mu.Unlock()
}

// IsPaused reports whether the clock is currently frozen.
func (w *Waiter) IsPaused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paused
}

// Wait blocks until d of unpaused time has elapsed or ctx is cancelled.
// It returns ctx.Err() on cancellation and nil when the delay ran out.
func (w *Waiter) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	var elapsed time.Duration
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if w.IsPaused() {
				continue
			}
			elapsed += w.tick
			if elapsed >= d {
				return nil
			}
		}
	}
}

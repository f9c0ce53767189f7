package clock

import (
	"context"
	"errors"
	"time"
)

// ErrInterrupted is returned by Sleeper.Sleep when the wait was cancelled
// before the requested duration elapsed.
var ErrInterrupted = errors.New("clock: sleep interrupted")

// Sleeper suspends the calling goroutine for a scoped duration, honoring
// cancellation via context. Implementations must be safe to call from a
// single goroutine at a time; the lifecycle runner never calls Sleep
// concurrently with itself.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// ClockSleeper implements Sleeper on top of a Clock, mirroring the
// select-on-ctx-or-timer pattern used to make the election loop's waits
// cancellable.
type ClockSleeper struct {
	Clock Clock
}

// NewSleeper returns a Sleeper backed by clk. A nil clk uses Real{}.
func NewSleeper(clk Clock) ClockSleeper {
	if clk == nil {
		clk = Real{}
	}
	return ClockSleeper{Clock: clk}
}

// Sleep blocks until d has elapsed on the underlying clock, or ctx is done,
// whichever happens first.
func (s ClockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ErrInterrupted
		default:
			return nil
		}
	}
	select {
	case <-ctx.Done():
		return ErrInterrupted
	case <-s.Clock.After(d):
		return nil
	}
}

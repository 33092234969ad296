package engine

import (
	"context"
	"time"
)

// Clock supplies wall time to the engine. Injecting it keeps budget
// arithmetic and completion stamps testable without real waiting.
type Clock interface {
	Now() time.Time
}

// Sleeper blocks for a duration, waking early on context cancellation.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// SystemSleeper sleeps on a real timer.
type SystemSleeper struct{}

// Sleep blocks for d or until ctx is cancelled, whichever comes first.
// Returns ctx.Err() when cancelled.
func (SystemSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

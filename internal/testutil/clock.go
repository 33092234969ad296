// Package testutil provides deterministic time primitives for engine tests.
package testutil

import (
	"context"
	"sync"
	"time"
)

// FixedClock returns a preset wall time and can be advanced manually.
//
// Thread-safety: all methods are safe for concurrent use.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock frozen at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{now: t}
}

// Now returns the clock's current time without advancing it.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set repositions the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// RecordingSleeper records requested sleep durations instead of blocking.
// Tests assert on Slept to verify delay placement and bounds.
type RecordingSleeper struct {
	mu    sync.Mutex
	Slept []time.Duration
}

// Sleep records d and returns immediately, honoring cancellation.
func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Slept = append(s.Slept, d)
	return nil
}

// Calls returns how many sleeps were requested.
func (s *RecordingSleeper) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Slept)
}

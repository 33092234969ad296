package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/vva1kerr/instagram-unfollower/internal/record"
)

// Governor enforces the rolling daily quota and the inter-action delay.
//
// It holds no private counters: the remaining budget is derived entirely
// from completed_at timestamps in the record set, which makes the daily
// cap durable and resumable across process restarts.
type Governor struct {
	limit    int
	minDelay time.Duration
	maxDelay time.Duration
	loc      *time.Location
	rng      *rand.Rand
	clock    Clock
	sleeper  Sleeper
}

// NewGovernor validates the rate-limit configuration and constructs a
// governor. Fails fast on a non-positive limit, negative delays or
// min > max - before any run starts.
//
// loc is the fixed reference time zone for "calendar day". rng, clock
// and sleeper are injected so tests run deterministically; nil selects
// the real implementations.
func NewGovernor(limit int, minDelay, maxDelay time.Duration, loc *time.Location, rng *rand.Rand, clock Clock, sleeper Sleeper) (*Governor, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("daily limit must be positive, got %d", limit)
	}
	if minDelay < 0 || maxDelay < 0 {
		return nil, fmt.Errorf("delays must be non-negative, got min=%s max=%s", minDelay, maxDelay)
	}
	if minDelay > maxDelay {
		return nil, fmt.Errorf("min delay %s exceeds max delay %s", minDelay, maxDelay)
	}
	if loc == nil {
		loc = time.Local
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if sleeper == nil {
		sleeper = SystemSleeper{}
	}
	return &Governor{
		limit:    limit,
		minDelay: minDelay,
		maxDelay: maxDelay,
		loc:      loc,
		rng:      rng,
		clock:    clock,
		sleeper:  sleeper,
	}, nil
}

// Limit returns the configured daily limit.
func (g *Governor) Limit() int { return g.limit }

// RemainingBudget counts records completed on the current calendar day
// (in the governor's reference zone) and returns how many actions are
// still permitted today, never below zero.
//
// Records completed with no timestamp were found already done in the
// real world; they spent no budget and are not counted.
func (g *Governor) RemainingBudget(records []record.Record) int {
	now := g.clock.Now().In(g.loc)
	year, month, day := now.Date()

	count := 0
	for _, rec := range records {
		if rec.Disposition != record.DispositionCompleted || rec.CompletedAt == nil {
			continue
		}
		y, m, d := rec.CompletedAt.In(g.loc).Date()
		if y == year && m == month && d == day {
			count++
		}
	}
	if count >= g.limit {
		return 0
	}
	return g.limit - count
}

// Delay blocks for a duration drawn independently and uniformly from the
// closed interval [minDelay, maxDelay]. Called between every two actions,
// never before the first. Returns early with ctx.Err() on cancellation.
func (g *Governor) Delay(ctx context.Context) error {
	d := g.minDelay
	if span := g.maxDelay - g.minDelay; span > 0 {
		// Int63n(span+1) keeps both bounds reachable.
		d += time.Duration(g.rng.Int63n(int64(span) + 1))
	}
	return g.sleeper.Sleep(ctx, d)
}

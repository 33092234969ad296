package browser

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vva1kerr/instagram-unfollower/internal/engine"
)

func newTestUnfollower(t *testing.T, fake *fakeCDP) *Unfollower {
	t.Helper()
	u := NewUnfollower(fake.connect(t), slog.Default())
	u.settle = 0
	return u
}

func TestPerformSuccess(t *testing.T) {
	fake := newFakeCDP(t)
	probes := 0
	fake.scriptEval(func(expr string) (any, string) {
		switch expr {
		case probeButtonScript:
			probes++
			if probes == 1 {
				return "following", ""
			}
			return "follow", "" // post-click verification
		case clickFollowingScript:
			return true, ""
		case unfollowStrategies[0]:
			return true, ""
		}
		return nil, ""
	})
	u := newTestUnfollower(t, fake)

	outcome, err := u.Perform(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeSuccess, outcome)
}

func TestPerformFallbackStrategy(t *testing.T) {
	fake := newFakeCDP(t)
	probes := 0
	fake.scriptEval(func(expr string) (any, string) {
		switch expr {
		case probeButtonScript:
			probes++
			if probes == 1 {
				return "following", ""
			}
			return "follow", ""
		case clickFollowingScript:
			return true, ""
		case unfollowStrategies[0]:
			return false, "" // dialog button not found
		case unfollowStrategies[1]:
			return true, ""
		}
		return nil, ""
	})
	u := newTestUnfollower(t, fake)

	outcome, err := u.Perform(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeSuccess, outcome)
}

func TestPerformAlreadyDone(t *testing.T) {
	fake := newFakeCDP(t)
	fake.scriptEval(func(expr string) (any, string) {
		if expr == probeButtonScript {
			return "follow", ""
		}
		return nil, ""
	})
	u := newTestUnfollower(t, fake)

	outcome, err := u.Perform(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeAlreadyDone, outcome)
}

func TestPerformNotFound(t *testing.T) {
	fake := newFakeCDP(t)
	fake.scriptEval(func(expr string) (any, string) {
		if expr == probeButtonScript {
			return "none", ""
		}
		return nil, ""
	})
	u := newTestUnfollower(t, fake)

	outcome, err := u.Perform(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeNotFound, outcome)
}

func TestPerformStrategiesExhausted(t *testing.T) {
	fake := newFakeCDP(t)
	fake.scriptEval(func(expr string) (any, string) {
		switch expr {
		case probeButtonScript:
			return "following", ""
		case clickFollowingScript:
			return true, ""
		}
		return false, ""
	})
	u := newTestUnfollower(t, fake)

	outcome, err := u.Perform(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeFailed, outcome)
}

func TestPerformSessionLost(t *testing.T) {
	fake := newFakeCDP(t)
	fake.redirectTo("https://www.instagram.com/accounts/login/?next=%2Falice%2F")
	u := newTestUnfollower(t, fake)

	outcome, err := u.Perform(context.Background(), "alice")
	require.ErrorIs(t, err, engine.ErrSessionLost)
	assert.Equal(t, engine.OutcomeFailed, outcome)
}

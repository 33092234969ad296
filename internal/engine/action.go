package engine

import (
	"context"
	"errors"
)

// Outcome is the discrete result of one unfollow attempt. Whatever
// fallback strategies the capability runs internally, the engine sees
// exactly one of these.
type Outcome string

const (
	// OutcomeSuccess means the action was performed and verified.
	OutcomeSuccess Outcome = "success"
	// OutcomeAlreadyDone means the target was already in the desired
	// state (not followed anymore). Benign: completes the record without
	// consuming daily budget.
	OutcomeAlreadyDone Outcome = "already_done"
	// OutcomeNotFound means the target account no longer exists or is
	// inaccessible. The record stays pending for manual review.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeFailed means every strategy the capability tried was
	// exhausted. The record stays pending and is retried on a future run.
	OutcomeFailed Outcome = "failed"
)

// ErrSessionLost signals that the authenticated session is gone
// (e.g. a navigation landed on the login page). The executor reacts with
// an orderly save-and-stop; a later run re-authenticates and resumes.
var ErrSessionLost = errors.New("authenticated session lost")

// ActionCapability performs one state-changing interaction per target.
//
// Perform is an opaque, blocking, bounded-time call. A returned error of
// ErrSessionLost (possibly wrapped) terminates the run; any other error
// is treated like OutcomeFailed for that target only.
type ActionCapability interface {
	Perform(ctx context.Context, username string) (Outcome, error)
}

// Session is the browser session collaborator. The executor consults it
// once at start-up; mid-run loss is reported by the capability via
// ErrSessionLost.
type Session interface {
	EnsureAuthenticated(ctx context.Context) (bool, error)
}

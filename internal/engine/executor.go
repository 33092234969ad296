package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vva1kerr/instagram-unfollower/internal/record"
	"github.com/vva1kerr/instagram-unfollower/internal/store"
)

// Report summarizes one run. Every run ends with one of these, whether it
// finished the queue, exhausted the budget or was interrupted.
type Report struct {
	RunID     string `json:"run_id"`
	Mode      Mode   `json:"mode"`
	Queued    int    `json:"queued"`    // targets selected for this run
	Completed int    `json:"completed"` // actions performed (budget spent)
	Skipped   int    `json:"skipped"`   // already done or account gone
	Failed    int    `json:"failed"`    // left pending for a future run
	Remaining int    `json:"remaining"` // pending records after the run
	Budget    int    `json:"budget"`    // daily budget left after the run
	// Terminated is true when the run stopped early: cancellation or
	// session loss. The store already holds every resolved outcome.
	Terminated bool `json:"terminated"`
}

// Executor is the control loop: it pulls targets from the queue, invokes
// the action capability, writes each outcome back to the store, and
// applies the governor's delay between actions.
type Executor struct {
	store    store.Store
	action   ActionCapability
	session  Session
	governor *Governor
	clock    Clock
	log      *slog.Logger
}

// New constructs an executor. clock may be nil (defaults to the system
// clock); log may be nil (defaults to slog.Default()).
func New(st store.Store, action ActionCapability, session Session, governor *Governor, clock Clock, log *slog.Logger) *Executor {
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		store:    st,
		action:   action,
		session:  session,
		governor: governor,
		clock:    clock,
		log:      log,
	}
}

// Run executes one campaign session.
//
// Per-target state machine: queued -> in_progress -> {completed, skipped,
// failed}. The store is written strictly after each target's outcome is
// known and strictly before the next target starts, so the persisted
// state never reflects more than one unresolved action. Cancellation and
// session loss are observed between targets and abandon the in-flight
// target without committing it.
//
// Returns a report in every case except load/authentication failure.
// A single target failure is never fatal to the run.
func (e *Executor) Run(ctx context.Context, mode Mode) (*Report, error) {
	records, err := e.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	if e.session != nil {
		ok, err := e.session.EnsureAuthenticated(ctx)
		if err != nil {
			return nil, fmt.Errorf("establish session: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("establish session: %w", ErrSessionLost)
		}
	}

	report := &Report{
		RunID: uuid.NewString(),
		Mode:  mode,
	}
	log := e.log.With("run_id", report.RunID, "mode", mode)

	budget := e.governor.RemainingBudget(records)
	queue := BuildQueue(records, mode, budget)
	report.Queued = len(queue)
	report.Budget = budget

	if budget == 0 {
		log.Info("daily limit reached", "limit", e.governor.Limit())
		report.Remaining = countPending(records)
		return report, nil
	}
	if len(queue) == 0 {
		log.Info("no eligible targets")
		report.Remaining = countPending(records)
		return report, nil
	}

	index := make(map[string]int, len(records))
	for i, rec := range records {
		index[rec.Username] = i
	}

	log.Info("run starting", "queued", len(queue), "budget", budget)

	for i, username := range queue {
		// Cancellation is observed between targets: everything resolved
		// so far is already saved.
		if ctx.Err() != nil {
			log.Info("run cancelled", "processed", i)
			report.Terminated = true
			break
		}

		// queued -> in_progress
		outcome, err := e.action.Perform(ctx, username)
		if err != nil && (errors.Is(err, ErrSessionLost) || errors.Is(err, context.Canceled)) {
			// In-flight target abandoned: its outcome was not determined,
			// so nothing is committed for it.
			log.Warn("run terminated", "target", username, "error", err)
			report.Terminated = true
			break
		}

		rec := &records[index[username]]
		switch {
		case err != nil:
			// Unrecoverable for this target only; retried on a future run.
			rec.Note = fmt.Sprintf("failed: %v", err)
			report.Failed++
			log.Warn("target failed", "target", username, "error", err)
		case outcome == OutcomeSuccess:
			now := e.clock.Now()
			rec.Disposition = record.DispositionCompleted
			rec.CompletedAt = &now
			rec.Note = ""
			report.Completed++
			budget--
			log.Info("target completed", "target", username, "budget", budget)
		case outcome == OutcomeAlreadyDone:
			// Real-world state already final. No timestamp: the engine
			// spent no budget on it.
			rec.Disposition = record.DispositionCompleted
			rec.CompletedAt = nil
			rec.Note = "already unfollowed"
			report.Skipped++
			log.Info("target already done", "target", username)
		case outcome == OutcomeNotFound:
			rec.Note = "skipped: account not found"
			report.Skipped++
			log.Warn("target not found", "target", username)
		default:
			rec.Note = "failed: all strategies exhausted"
			report.Failed++
			log.Warn("target failed", "target", username)
		}

		// Durable checkpoint before the next target starts.
		if err := e.store.Save(records); err != nil {
			return report, fmt.Errorf("save records: %w", err)
		}

		if budget == 0 {
			log.Info("daily budget exhausted", "processed", i+1)
			break
		}
		if i == len(queue)-1 {
			break
		}

		// Mandatory inter-action delay: between every two actions,
		// never before the first.
		if err := e.governor.Delay(ctx); err != nil {
			log.Info("run cancelled during delay", "processed", i+1)
			report.Terminated = true
			break
		}
	}

	report.Budget = budget
	report.Remaining = countPending(records)
	log.Info("run finished",
		"completed", report.Completed,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"remaining", report.Remaining,
		"budget", report.Budget,
		"terminated", report.Terminated,
	)
	return report, nil
}

func countPending(records []record.Record) int {
	n := 0
	for _, rec := range records {
		if !rec.Terminal() {
			n++
		}
	}
	return n
}

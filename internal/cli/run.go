package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vva1kerr/instagram-unfollower/internal/browser"
	"github.com/vva1kerr/instagram-unfollower/internal/engine"
	"github.com/vva1kerr/instagram-unfollower/internal/record"
	"github.com/vva1kerr/instagram-unfollower/internal/store"
)

// RunCmdOptions holds flags for the run command.
type RunCmdOptions struct {
	*RootOptions
	Mode   string
	DryRun bool

	// Action and SessionFactory allow tests to substitute the browser
	// collaborators. Nil means connect to real Chrome.
	Action  engine.ActionCapability
	Session engine.Session
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunCmdOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the unfollow campaign against the pending queue",
		Long: `Process pending records one at a time: non-mutuals first, then
mutuals, then unknowns (configurable with --mode). Each unfollow is
checkpointed to the store before the next begins, a randomized delay
separates actions, and the daily limit is enforced from completion
timestamps - so the campaign survives interrupts and restarts.

Requires a Chrome instance started with --remote-debugging-port and a
logged-in session (see the login command).

Example:
  unfollower run --dry-run
  unfollower run --mode non_mutual_only`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCampaign(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", string(engine.ModeDefault), "bucket selection (default|non_mutual_only|mutual_only)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the queue without unfollowing anyone")

	return cmd
}

func runCampaign(opts *RunCmdOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	mode, err := engine.ParseMode(opts.Mode)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --mode", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	governor, err := engine.NewGovernor(cfg.DailyLimit, cfg.MinDelay(), cfg.MaxDelay(), loc, nil, nil, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "open record store", err)
	}
	defer closeStore(st)

	out := opts.formatter(cmd)
	if opts.DryRun {
		return dryRun(st, governor, mode, out)
	}

	action, session := opts.Action, opts.Session
	if action == nil {
		client, err := browser.Connect(cmd.Context(), cfg.DevToolsURL)
		if err != nil {
			return WrapExitError(ExitFailure, "connect to browser", err)
		}
		defer client.Close()
		action = browser.NewUnfollower(client, slog.Default())
		session = browser.NewSession(client, cfg.CookiesPath, cfg.Username, cfg.Password, slog.Default())
	}

	exec := engine.New(st, action, session, governor, nil, slog.Default())

	// Orderly save-and-stop on operator interrupt: cancellation is
	// observed between targets, never mid-write.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, finishing current target", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	report, err := exec.Run(ctx, mode)
	if err != nil {
		if errors.Is(err, engine.ErrSessionLost) {
			return WrapExitError(ExitFailure, "not logged in: run 'unfollower login' first", err)
		}
		if store.IsCorrupt(err) {
			return WrapExitError(ExitCommandError, "record store is corrupt", err)
		}
		return WrapExitError(ExitFailure, "run failed", err)
	}

	if out.Format == "json" {
		return out.JSON(report)
	}
	printReport(out, report)
	return nil
}

// dryRun prints the queue the run would process, without touching the
// browser, the governor's delay, or the store.
func dryRun(st store.Store, governor *engine.Governor, mode engine.Mode, out *OutputFormatter) error {
	records, err := st.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "load record store", err)
	}

	budget := governor.RemainingBudget(records)
	queue := engine.BuildQueue(records, mode, budget)

	if out.Format == "json" {
		return out.JSON(map[string]any{
			"mode":   mode,
			"budget": budget,
			"queue":  queue,
		})
	}

	relations := make(map[string]record.Relation, len(records))
	for _, rec := range records {
		relations[rec.Username] = rec.Relation
	}
	out.Printf("Dry run (mode: %s, daily budget: %d)\n", mode, budget)
	if len(queue) == 0 {
		out.Printf("Nothing to do.\n")
		return nil
	}
	out.Printf("Would unfollow:\n")
	for _, username := range queue {
		switch relations[username] {
		case record.RelationMutual:
			out.Printf("  @%s (follows you)\n", username)
		case record.RelationNonMutual:
			out.Printf("  @%s (non-follower)\n", username)
		default:
			out.Printf("  @%s\n", username)
		}
	}
	out.Printf("Total: %d accounts\n", len(queue))
	return nil
}

func printReport(out *OutputFormatter, report *engine.Report) {
	out.Printf("Run %s finished (mode: %s)\n", report.RunID, report.Mode)
	out.Printf("  completed: %d\n", report.Completed)
	out.Printf("  skipped:   %d\n", report.Skipped)
	out.Printf("  failed:    %d\n", report.Failed)
	out.Printf("  remaining: %d pending\n", report.Remaining)
	out.Printf("  budget:    %d left today\n", report.Budget)
	if report.Terminated {
		out.Printf("Run was interrupted; all resolved outcomes are saved. Run again to continue.\n")
	} else if report.Budget == 0 && report.Remaining > 0 {
		out.Printf("Daily limit reached. Run again tomorrow to continue.\n")
	}
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/vva1kerr/instagram-unfollower/internal/engine"
	"github.com/vva1kerr/instagram-unfollower/internal/record"
	"github.com/vva1kerr/instagram-unfollower/internal/store"
)

// StatusSummary is the status command's result payload.
type StatusSummary struct {
	Store     string `json:"store"`
	Total     int    `json:"total"`
	Pending   int    `json:"pending"`
	Keep      int    `json:"keep"`
	Completed int    `json:"completed"`
	Mutual    int    `json:"mutual"`
	NonMutual int    `json:"non_mutual"`
	Unknown   int    `json:"unknown"`
	DoneToday int    `json:"done_today"`
	Budget    int    `json:"budget"`
}

// NewStatusCommand creates the status command. Status never opens a
// browser - it reads the store and reports.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show record store statistics and remaining daily budget",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
	return cmd
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
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

	records, err := st.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "load record store", err)
	}

	summary := StatusSummary{
		Store:  cfg.StorePath,
		Total:  len(records),
		Budget: governor.RemainingBudget(records),
	}
	summary.DoneToday = cfg.DailyLimit - summary.Budget
	for _, rec := range records {
		switch rec.Disposition {
		case record.DispositionPending:
			summary.Pending++
		case record.DispositionKeep:
			summary.Keep++
		case record.DispositionCompleted:
			summary.Completed++
		}
		switch rec.Relation {
		case record.RelationMutual:
			summary.Mutual++
		case record.RelationNonMutual:
			summary.NonMutual++
		default:
			summary.Unknown++
		}
	}

	out := opts.formatter(cmd)
	if out.Format == "json" {
		return out.JSON(summary)
	}
	out.Printf("Store: %s\n", summary.Store)
	out.Printf("  total:      %d\n", summary.Total)
	out.Printf("  pending:    %d\n", summary.Pending)
	out.Printf("  keep:       %d\n", summary.Keep)
	out.Printf("  completed:  %d\n", summary.Completed)
	out.Printf("Relations:\n")
	out.Printf("  mutual:     %d\n", summary.Mutual)
	out.Printf("  non-mutual: %d\n", summary.NonMutual)
	out.Printf("  unknown:    %d\n", summary.Unknown)
	out.Printf("Today:\n")
	out.Printf("  done:       %d\n", summary.DoneToday)
	out.Printf("  budget:     %d\n", summary.Budget)
	return nil
}

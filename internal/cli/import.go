package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vva1kerr/instagram-unfollower/internal/importer"
	"github.com/vva1kerr/instagram-unfollower/internal/record"
	"github.com/vva1kerr/instagram-unfollower/internal/store"
)

// ImportSummary is the import command's result payload.
type ImportSummary struct {
	Following    int  `json:"following"`
	Mutual       int  `json:"mutual"`
	NonMutual    int  `json:"non_mutual"`
	Unknown      int  `json:"unknown"`
	Total        int  `json:"total"`    // records in the store after merge
	Retained     int  `json:"retained"` // completed records kept from before
	HasRelations bool `json:"has_relations"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <following.json> [followers.json]",
		Short: "Import an Instagram data download into the record store",
		Long: `Import the following list from Instagram's "Download Your Information"
JSON export. Pass the followers file as well to record who follows you
back - the default run order unfollows non-followers first.

Reimporting is safe: dispositions you set by hand (keep) and completed
records are preserved; accounts you no longer follow are dropped unless
already completed.

The files usually live at:
  connections/followers_and_following/following.json
  connections/followers_and_following/followers_1.json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			followersPath := ""
			if len(args) == 2 {
				followersPath = args[1]
			}
			return runImport(rootOpts, cmd, args[0], followersPath)
		},
	}
	return cmd
}

func runImport(opts *RootOptions, cmd *cobra.Command, followingPath, followersPath string) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	result, err := importer.Load(followingPath, followersPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "import failed", err)
	}
	slog.Info("import parsed", "following", len(result.Records), "has_followers", result.HasFollowers)

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "open record store", err)
	}
	defer closeStore(st)

	existing, err := st.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "load record store", err)
	}

	merged := record.Merge(existing, result.Records)
	if err := st.Save(merged); err != nil {
		return WrapExitError(ExitFailure, "save record store", err)
	}

	summary := summarizeImport(result, merged)
	out := opts.formatter(cmd)
	if out.Format == "json" {
		return out.JSON(summary)
	}
	out.Printf("Imported %d accounts into %s\n", summary.Following, cfg.StorePath)
	if summary.HasRelations {
		out.Printf("  mutual:      %d\n", summary.Mutual)
		out.Printf("  non-mutual:  %d\n", summary.NonMutual)
	} else {
		out.Printf("  no followers file given - relations left unknown\n")
	}
	if summary.Retained > 0 {
		out.Printf("  retained:    %d already-completed records\n", summary.Retained)
	}
	out.Printf("  store total: %d\n", summary.Total)
	out.Printf("\nNext steps:\n")
	out.Printf("  1. Edit %s and set status to 'keep' for accounts to keep\n", cfg.StorePath)
	out.Printf("  2. Preview with: unfollower run --dry-run\n")
	out.Printf("  3. Execute with: unfollower run\n")
	return nil
}

func summarizeImport(result *importer.Result, merged []record.Record) ImportSummary {
	s := ImportSummary{
		Following:    len(result.Records),
		Total:        len(merged),
		HasRelations: result.HasFollowers,
	}
	imported := make(map[string]bool, len(result.Records))
	for _, rec := range result.Records {
		imported[rec.Username] = true
		switch rec.Relation {
		case record.RelationMutual:
			s.Mutual++
		case record.RelationNonMutual:
			s.NonMutual++
		default:
			s.Unknown++
		}
	}
	for _, rec := range merged {
		if !imported[rec.Username] {
			s.Retained++
		}
	}
	return s
}

// closeStore closes backends that hold resources (SQLite).
func closeStore(st store.Store) {
	if c, ok := st.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			slog.Error("error closing store", "error", err)
		}
	}
}

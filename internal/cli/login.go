package cli

import (
	"bufio"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vva1kerr/instagram-unfollower/internal/browser"
)

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log into Instagram and save the session for later runs",
		Long: `Establish an authenticated session in the attached Chrome instance
and persist its cookies.

Credentials from the environment are typed in automatically; 2FA and
"approve this login" challenges are always yours to handle in the
browser window. With no credentials configured, log in manually there.
Either way, press Enter here once you see your feed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(rootOpts, cmd)
		},
	}
	return cmd
}

func runLogin(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := browser.Connect(ctx, cfg.DevToolsURL)
	if err != nil {
		return WrapExitError(ExitFailure, "connect to browser", err)
	}
	defer client.Close()

	session := browser.NewSession(client, cfg.CookiesPath, cfg.Username, cfg.Password, slog.Default())
	out := opts.formatter(cmd)

	// Saved cookies first - a fresh login is the fallback, not the norm.
	loggedIn, err := session.EnsureAuthenticated(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "check session", err)
	}
	if loggedIn {
		session.DismissPopups(ctx)
		if err := session.SaveCookies(ctx); err != nil {
			return WrapExitError(ExitFailure, "save session", err)
		}
		out.Printf("Already logged in. Session saved.\n")
		return nil
	}

	if cfg.Username != "" && cfg.Password != "" {
		if err := session.SubmitCredentials(ctx); err != nil {
			slog.Warn("automatic credential entry failed", "error", err)
			out.Printf("Could not auto-fill credentials - log in manually in the browser window.\n")
		}
	} else {
		out.Printf("No credentials configured - log in manually in the browser window.\n")
	}

	out.Printf("\nFinish any 2FA or approval challenge in the browser.\n")
	out.Printf("Press Enter here once you see your feed... ")
	reader := bufio.NewReader(cmd.InOrStdin())
	if _, err := reader.ReadString('\n'); err != nil {
		return WrapExitError(ExitFailure, "read confirmation", err)
	}

	loggedIn, err = session.IsLoggedIn(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "verify login", err)
	}
	if !loggedIn {
		return NewExitError(ExitFailure, fmt.Sprintf("still seeing the login form - session not saved (%s unchanged)", cfg.CookiesPath))
	}

	session.DismissPopups(ctx)
	if err := session.SaveCookies(ctx); err != nil {
		return WrapExitError(ExitFailure, "save session", err)
	}
	out.Printf("Logged in. Session saved to %s.\n", cfg.CookiesPath)
	return nil
}

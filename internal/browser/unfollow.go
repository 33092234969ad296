package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vva1kerr/instagram-unfollower/internal/engine"
)

// Profile button probe: reports which follow-state button the profile
// shows. "Following"/"Requested" mean we still follow; "Follow" means we
// already don't.
const probeButtonScript = `(() => {
	for (const btn of document.querySelectorAll('button')) {
		const t = btn.textContent.trim();
		if (t === 'Following' || t === 'Requested') return 'following';
	}
	for (const btn of document.querySelectorAll('button')) {
		if (btn.textContent.trim() === 'Follow') return 'follow';
	}
	return 'none';
})()`

// Opens the unfollow dialog by clicking the Following/Requested button.
const clickFollowingScript = `(() => {
	for (const btn of document.querySelectorAll('button')) {
		const t = btn.textContent.trim();
		if (t === 'Following' || t === 'Requested') { btn.click(); return true; }
	}
	return false;
})()`

// Dialog strategies, tried in order. Instagram has rendered the Unfollow
// control as a button, a div or a span across UI revisions, so later
// strategies search progressively more broadly.
var unfollowStrategies = []string{
	// Strategy 1: a real button, preferring one inside the dialog.
	`(() => {
		const scopes = [document.querySelector('[role="dialog"]'), document];
		for (const scope of scopes) {
			if (!scope) continue;
			for (const btn of scope.querySelectorAll('button')) {
				if (btn.textContent.trim() === 'Unfollow') { btn.click(); return true; }
			}
		}
		return false;
	})()`,
	// Strategy 2: any clickable element with exact "Unfollow" text.
	`(() => {
		for (const el of document.querySelectorAll('button, div, span, a')) {
			if (el.textContent.trim() === 'Unfollow' && el.childElementCount === 0) {
				el.click();
				return true;
			}
		}
		return false;
	})()`,
}

// Unfollower performs one unfollow per target through the browser. It
// implements engine.ActionCapability: all DOM branching stays in here and
// the engine only ever sees one discrete outcome.
type Unfollower struct {
	client *Client
	log    *slog.Logger
	// settle is the pause after navigation and after dialog clicks.
	settle time.Duration
}

// NewUnfollower wraps a connected client.
func NewUnfollower(client *Client, log *slog.Logger) *Unfollower {
	if log == nil {
		log = slog.Default()
	}
	return &Unfollower{client: client, log: log, settle: 3 * time.Second}
}

// Perform navigates to the target's profile and unfollows them.
//
// Outcome mapping:
//   - profile shows Follow              -> AlreadyDone
//   - no follow-state button at all     -> NotFound
//   - every dialog strategy failed      -> Failed
//   - dialog clicked                    -> Success (verified best-effort)
//
// A navigation that lands on the login page means the session expired;
// that surfaces engine.ErrSessionLost so the run stops cleanly.
func (u *Unfollower) Perform(ctx context.Context, username string) (engine.Outcome, error) {
	profileURL := fmt.Sprintf("https://www.instagram.com/%s/", username)
	if err := u.client.Navigate(ctx, profileURL, u.settle); err != nil {
		return engine.OutcomeFailed, fmt.Errorf("open profile %s: %w", username, err)
	}
	if err := u.checkSession(ctx); err != nil {
		return engine.OutcomeFailed, err
	}

	var state string
	if err := u.client.Eval(ctx, probeButtonScript, &state); err != nil {
		return engine.OutcomeFailed, fmt.Errorf("probe profile %s: %w", username, err)
	}
	switch state {
	case "follow":
		return engine.OutcomeAlreadyDone, nil
	case "none":
		return engine.OutcomeNotFound, nil
	}

	var opened bool
	if err := u.client.Eval(ctx, clickFollowingScript, &opened); err != nil {
		return engine.OutcomeFailed, fmt.Errorf("open unfollow dialog for %s: %w", username, err)
	}
	if !opened {
		return engine.OutcomeFailed, nil
	}
	if err := sleep(ctx, u.settle); err != nil {
		return engine.OutcomeFailed, err
	}

	clicked := false
	for i, script := range unfollowStrategies {
		var ok bool
		if err := u.client.Eval(ctx, script, &ok); err != nil {
			u.log.Debug("unfollow strategy errored", "target", username, "strategy", i+1, "error", err)
			continue
		}
		if ok {
			clicked = true
			break
		}
	}
	if !clicked {
		return engine.OutcomeFailed, nil
	}
	if err := sleep(ctx, u.settle); err != nil {
		return engine.OutcomeFailed, err
	}

	// Verify: the profile button should now read Follow. An inconclusive
	// probe after a confirmed click still counts as success.
	if err := u.client.Eval(ctx, probeButtonScript, &state); err == nil && state == "following" {
		return engine.OutcomeFailed, nil
	}
	return engine.OutcomeSuccess, nil
}

// checkSession detects a redirect to the login page mid-run.
func (u *Unfollower) checkSession(ctx context.Context) error {
	url, err := u.client.CurrentURL(ctx)
	if err != nil {
		return fmt.Errorf("read location: %w", err)
	}
	if strings.Contains(url, "/accounts/login") {
		return engine.ErrSessionLost
	}
	return nil
}

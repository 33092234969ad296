package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"
)

const (
	homeURL  = "https://www.instagram.com/"
	loginURL = "https://www.instagram.com/accounts/login/"

	// settleLong matches the page-settle pauses a human-paced session
	// exhibits after navigation.
	settleLong  = 4 * time.Second
	settleShort = 2 * time.Second
)

// cookie is the subset of CDP Network.Cookie we persist and restore.
type cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
}

// Session manages the authenticated browser session: cookie reuse across
// runs and credential entry on fresh logins. It implements
// engine.Session.
type Session struct {
	client      *Client
	cookiesPath string
	username    string
	password    string
	log         *slog.Logger
}

// NewSession wraps a connected client. username/password may be empty;
// login then has to happen manually in the browser window.
func NewSession(client *Client, cookiesPath, username, password string, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		client:      client,
		cookiesPath: cookiesPath,
		username:    username,
		password:    password,
		log:         log,
	}
}

// EnsureAuthenticated restores saved cookies if present and probes
// whether the session is live. It never starts an interactive login -
// that is the login command's job - so a false return means "run login
// first".
func (s *Session) EnsureAuthenticated(ctx context.Context) (bool, error) {
	if err := s.LoadCookies(ctx); err != nil {
		s.log.Warn("could not restore cookies", "error", err)
	}
	return s.IsLoggedIn(ctx)
}

// IsLoggedIn navigates to the Instagram home page and checks for the
// login form. No form means an authenticated session.
func (s *Session) IsLoggedIn(ctx context.Context) (bool, error) {
	if err := s.client.Navigate(ctx, homeURL, settleLong); err != nil {
		return false, fmt.Errorf("navigate home: %w", err)
	}
	var hasLoginForm bool
	err := s.client.Eval(ctx, `document.querySelector('input[name="username"]') !== null`, &hasLoginForm)
	if err != nil {
		return false, fmt.Errorf("probe login form: %w", err)
	}
	return !hasLoginForm, nil
}

// SubmitCredentials opens the login page and types the configured
// credentials, slowly, the way a person would. It does not wait for 2FA
// or challenges - the caller decides when login is complete.
func (s *Session) SubmitCredentials(ctx context.Context) error {
	if s.username == "" || s.password == "" {
		return fmt.Errorf("no credentials configured: set INSTAGRAM_USERNAME and INSTAGRAM_PASSWORD, or log in manually in the browser")
	}

	if err := s.client.Navigate(ctx, loginURL, settleLong); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	if err := s.typeInto(ctx, `input[name="username"]`, s.username); err != nil {
		return fmt.Errorf("enter username: %w", err)
	}
	if err := sleep(ctx, time.Second); err != nil {
		return err
	}
	if err := s.typeInto(ctx, `input[name="password"]`, s.password); err != nil {
		return fmt.Errorf("enter password: %w", err)
	}
	if err := sleep(ctx, time.Second); err != nil {
		return err
	}
	if err := s.pressEnter(ctx); err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}
	s.log.Info("credentials submitted")
	return nil
}

// DismissPopups clicks away the "Not Now" dialogs Instagram shows after
// login. Best effort: a popup that isn't there is not an error.
func (s *Session) DismissPopups(ctx context.Context) {
	const script = `(() => {
		for (const btn of document.querySelectorAll('button')) {
			const t = btn.textContent.trim();
			if (t === 'Not Now' || t === 'Not now') { btn.click(); return true; }
		}
		return false;
	})()`
	var clicked bool
	if err := s.client.Eval(ctx, script, &clicked); err == nil && clicked {
		_ = sleep(ctx, settleShort)
	}
}

// SaveCookies persists the browser's cookies for session reuse.
func (s *Session) SaveCookies(ctx context.Context) error {
	var result struct {
		Cookies []cookie `json:"cookies"`
	}
	if err := s.client.Call(ctx, "Network.getCookies", nil, &result); err != nil {
		return fmt.Errorf("get cookies: %w", err)
	}
	data, err := json.Marshal(result.Cookies)
	if err != nil {
		return fmt.Errorf("encode cookies: %w", err)
	}
	if err := os.WriteFile(s.cookiesPath, data, 0o600); err != nil {
		return fmt.Errorf("write cookies: %w", err)
	}
	return nil
}

// LoadCookies restores previously saved cookies into the browser.
// A missing cookies file is not an error - it just means a fresh login.
func (s *Session) LoadCookies(ctx context.Context) error {
	data, err := os.ReadFile(s.cookiesPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cookies: %w", err)
	}
	var cookies []cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return fmt.Errorf("decode cookies: %w", err)
	}
	for _, ck := range cookies {
		params := map[string]any{
			"name":     ck.Name,
			"value":    ck.Value,
			"domain":   ck.Domain,
			"path":     ck.Path,
			"httpOnly": ck.HTTPOnly,
			"secure":   ck.Secure,
		}
		if ck.Expires > 0 {
			params["expires"] = ck.Expires
		}
		if err := s.client.Call(ctx, "Network.setCookie", params, nil); err != nil {
			s.log.Warn("could not set cookie", "name", ck.Name, "error", err)
		}
	}
	return nil
}

// typeInto focuses a form field and types text one keystroke at a time.
func (s *Session) typeInto(ctx context.Context, selector, text string) error {
	focus := fmt.Sprintf(`(() => { const el = document.querySelector(%q); if (!el) return false; el.focus(); return true; })()`, selector)
	var found bool
	if err := s.client.Eval(ctx, focus, &found); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("element %s not found", selector)
	}
	for _, r := range text {
		err := s.client.Call(ctx, "Input.insertText", map[string]string{"text": string(r)}, nil)
		if err != nil {
			return err
		}
		if err := sleep(ctx, 50*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) pressEnter(ctx context.Context) error {
	for _, eventType := range []string{"keyDown", "keyUp"} {
		err := s.client.Call(ctx, "Input.dispatchKeyEvent", map[string]any{
			"type":                  eventType,
			"key":                   "Enter",
			"code":                  "Enter",
			"windowsVirtualKeyCode": 13,
		}, nil)
		if err != nil {
			return err
		}
	}
	return nil
}

package browser

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveCookies(t *testing.T) {
	fake := newFakeCDP(t)
	fake.serveCookies([]map[string]any{
		{"name": "sessionid", "value": "abc123", "domain": ".instagram.com", "path": "/", "httpOnly": true, "secure": true},
		{"name": "csrftoken", "value": "tok", "domain": ".instagram.com", "path": "/"},
	})
	path := filepath.Join(t.TempDir(), "cookies.json")
	s := NewSession(fake.connect(t), path, "", "", slog.Default())

	require.NoError(t, s.SaveCookies(context.Background()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var saved []cookie
	require.NoError(t, json.Unmarshal(data, &saved))
	require.Len(t, saved, 2)
	assert.Equal(t, "sessionid", saved[0].Name)
	assert.Equal(t, "abc123", saved[0].Value)
	assert.True(t, saved[0].HTTPOnly)
}

func TestLoadCookiesRestoresSavedSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	saved := []cookie{
		{Name: "sessionid", Value: "abc123", Domain: ".instagram.com", Path: "/", HTTPOnly: true, Secure: true},
	}
	data, err := json.Marshal(saved)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	fake := newFakeCDP(t)
	s := NewSession(fake.connect(t), path, "", "", slog.Default())

	require.NoError(t, s.LoadCookies(context.Background()))

	writes := fake.cookieWrites()
	require.Len(t, writes, 1)
	assert.Equal(t, "sessionid", writes[0]["name"])
	assert.Equal(t, "abc123", writes[0]["value"])
}

func TestLoadCookiesMissingFile(t *testing.T) {
	fake := newFakeCDP(t)
	s := NewSession(fake.connect(t), filepath.Join(t.TempDir(), "cookies.json"), "", "", slog.Default())

	// A missing cookies file is a fresh start, not an error.
	require.NoError(t, s.LoadCookies(context.Background()))
	assert.Empty(t, fake.cookieWrites())
}

func TestLoadCookiesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	fake := newFakeCDP(t)
	s := NewSession(fake.connect(t), path, "", "", slog.Default())

	err := s.LoadCookies(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode cookies")
}

func TestSubmitCredentialsWithoutConfig(t *testing.T) {
	fake := newFakeCDP(t)
	s := NewSession(fake.connect(t), filepath.Join(t.TempDir(), "cookies.json"), "", "", slog.Default())

	err := s.SubmitCredentials(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials configured")
}

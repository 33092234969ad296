package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vva1kerr/instagram-unfollower/internal/engine"
	"github.com/vva1kerr/instagram-unfollower/internal/record"
	"github.com/vva1kerr/instagram-unfollower/internal/store"
)

// stubAction resolves targets from a canned outcome map; unlisted targets
// succeed. It stands in for the browser in command tests.
type stubAction struct {
	outcomes map[string]engine.Outcome
	errs     map[string]error
	calls    []string
}

func (a *stubAction) Perform(_ context.Context, username string) (engine.Outcome, error) {
	a.calls = append(a.calls, username)
	if err := a.errs[username]; err != nil {
		return engine.OutcomeFailed, err
	}
	if outcome, ok := a.outcomes[username]; ok {
		return outcome, nil
	}
	return engine.OutcomeSuccess, nil
}

type stubSession struct {
	ok  bool
	err error
}

func (s *stubSession) EnsureAuthenticated(context.Context) (bool, error) {
	return s.ok, s.err
}

// newRunCmd builds a bare command carrier for calling runCampaign
// directly, with output captured.
func newRunCmd() (*cobra.Command, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetContext(context.Background())
	return cmd, buf
}

func runFixture() []record.Record {
	return []record.Record{
		{Username: "alice", Relation: record.RelationMutual, Disposition: record.DispositionPending},
		{Username: "bob", Relation: record.RelationNonMutual, Disposition: record.DispositionPending},
		{Username: "carol", Relation: record.RelationUnknown, Disposition: record.DispositionPending},
		{Username: "dave", Relation: record.RelationNonMutual, Disposition: record.DispositionKeep},
		{Username: "erin", Relation: record.RelationMutual, Disposition: record.DispositionCompleted, CompletedAt: timePtr(time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC))},
	}
}

func loadStore(t *testing.T, path string) map[string]record.Record {
	t.Helper()
	records, err := store.NewCSV(path).Load()
	require.NoError(t, err)
	byName := make(map[string]record.Record, len(records))
	for _, rec := range records {
		byName[rec.Username] = rec
	}
	return byName
}

func TestRunDryRun(t *testing.T) {
	fixtures := goldenDir(t)
	pinEnv(t)
	tChdir(t, t.TempDir())
	seedStore(t, "following.csv", runFixture())

	out, err := execute(t, "run", "--dry-run")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir(fixtures),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "run_dry", []byte(out))

	// Preview never mutates the store.
	byName := loadStore(t, "following.csv")
	assert.Equal(t, record.DispositionPending, byName["bob"].Disposition)
}

func TestRunDryRunEmptyQueue(t *testing.T) {
	fixtures := goldenDir(t)
	pinEnv(t)
	tChdir(t, t.TempDir())
	seedStore(t, "following.csv", []record.Record{
		{Username: "carol", Relation: record.RelationMutual, Disposition: record.DispositionKeep},
	})

	out, err := execute(t, "run", "--dry-run")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir(fixtures),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "run_dry_empty", []byte(out))
}

func TestRunDryRunModeFilter(t *testing.T) {
	pinEnv(t)
	tChdir(t, t.TempDir())
	seedStore(t, "following.csv", runFixture())

	out, err := execute(t, "run", "--dry-run", "--mode", "non_mutual_only")
	require.NoError(t, err)
	assert.Contains(t, out, "@bob")
	assert.NotContains(t, out, "@alice")
	assert.NotContains(t, out, "@carol")
}

func TestRunDryRunJSON(t *testing.T) {
	pinEnv(t)
	tChdir(t, t.TempDir())
	seedStore(t, "following.csv", runFixture())

	out, err := execute(t, "run", "--dry-run", "--format", "json")
	require.NoError(t, err)

	var preview struct {
		Mode   string   `json:"mode"`
		Budget int      `json:"budget"`
		Queue  []string `json:"queue"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &preview))
	assert.Equal(t, "default", preview.Mode)
	assert.Equal(t, 500, preview.Budget)
	assert.Equal(t, []string{"bob", "alice", "carol"}, preview.Queue)
}

func TestRunCampaignCompletesQueue(t *testing.T) {
	pinEnv(t)
	tChdir(t, t.TempDir())
	seedStore(t, "following.csv", runFixture())

	action := &stubAction{}
	cmd, buf := newRunCmd()
	opts := &RunCmdOptions{
		RootOptions: &RootOptions{Format: "text"},
		Mode:        "default",
		Action:      action,
		Session:     &stubSession{ok: true},
	}
	require.NoError(t, runCampaign(opts, cmd))

	// Non-followers first, then mutuals, then unknowns.
	assert.Equal(t, []string{"bob", "alice", "carol"}, action.calls)

	byName := loadStore(t, "following.csv")
	for _, name := range []string{"alice", "bob", "carol"} {
		assert.Equal(t, record.DispositionCompleted, byName[name].Disposition, name)
		assert.NotNil(t, byName[name].CompletedAt, name)
	}
	assert.Equal(t, record.DispositionKeep, byName["dave"].Disposition)

	out := buf.String()
	assert.Contains(t, out, "completed: 3")
	assert.Contains(t, out, "remaining: 0 pending")
}

func TestRunCampaignMixedOutcomes(t *testing.T) {
	pinEnv(t)
	tChdir(t, t.TempDir())
	seedStore(t, "following.csv", runFixture())

	action := &stubAction{outcomes: map[string]engine.Outcome{
		"alice": engine.OutcomeAlreadyDone,
		"carol": engine.OutcomeNotFound,
	}}
	cmd, buf := newRunCmd()
	opts := &RunCmdOptions{
		RootOptions: &RootOptions{Format: "text"},
		Mode:        "default",
		Action:      action,
		Session:     &stubSession{ok: true},
	}
	require.NoError(t, runCampaign(opts, cmd))

	byName := loadStore(t, "following.csv")

	// A target already in the desired state completes without a
	// timestamp: it spent none of today's budget.
	assert.Equal(t, record.DispositionCompleted, byName["alice"].Disposition)
	assert.Nil(t, byName["alice"].CompletedAt)
	assert.Equal(t, "already unfollowed", byName["alice"].Note)

	// A vanished account stays pending with the skip reason recorded.
	assert.Equal(t, record.DispositionPending, byName["carol"].Disposition)
	assert.Equal(t, "skipped: account not found", byName["carol"].Note)

	out := buf.String()
	assert.Contains(t, out, "completed: 1")
	assert.Contains(t, out, "skipped:   2")
}

func TestRunCampaignSessionLost(t *testing.T) {
	pinEnv(t)
	tChdir(t, t.TempDir())
	seedStore(t, "following.csv", runFixture())

	cmd, _ := newRunCmd()
	opts := &RunCmdOptions{
		RootOptions: &RootOptions{Format: "text"},
		Mode:        "default",
		Action:      &stubAction{},
		Session:     &stubSession{ok: false},
	}
	err := runCampaign(opts, cmd)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "login")

	// Nothing ran, nothing changed.
	byName := loadStore(t, "following.csv")
	assert.Equal(t, record.DispositionPending, byName["bob"].Disposition)
}

func TestRunCampaignJSONReport(t *testing.T) {
	pinEnv(t)
	tChdir(t, t.TempDir())
	seedStore(t, "following.csv", runFixture())

	cmd, buf := newRunCmd()
	opts := &RunCmdOptions{
		RootOptions: &RootOptions{Format: "json"},
		Mode:        "default",
		Action:      &stubAction{},
		Session:     &stubSession{ok: true},
	}
	require.NoError(t, runCampaign(opts, cmd))

	var report engine.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, engine.ModeDefault, report.Mode)
	assert.Equal(t, 3, report.Queued)
	assert.Equal(t, 3, report.Completed)
	assert.Equal(t, 0, report.Remaining)
	assert.Equal(t, 497, report.Budget)
	assert.False(t, report.Terminated)
}

func TestRunCampaignInvalidMode(t *testing.T) {
	pinEnv(t)
	tChdir(t, t.TempDir())

	cmd, _ := newRunCmd()
	opts := &RunCmdOptions{
		RootOptions: &RootOptions{Format: "text"},
		Mode:        "bogus",
	}
	err := runCampaign(opts, cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCampaignCorruptStore(t *testing.T) {
	pinEnv(t)
	tChdir(t, t.TempDir())
	writeFile(t, "following.csv", "username,user_id\nalice,1\n")

	cmd, _ := newRunCmd()
	opts := &RunCmdOptions{
		RootOptions: &RootOptions{Format: "text"},
		Mode:        "default",
		Action:      &stubAction{},
		Session:     &stubSession{ok: true},
	}
	err := runCampaign(opts, cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.True(t, store.IsCorrupt(err))
}

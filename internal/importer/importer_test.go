package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vva1kerr/instagram-unfollower/internal/record"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const followingJSON = `{
  "relationships_following": [
    {"title": "alice", "string_list_data": [{"href": "https://www.instagram.com/alice", "value": "alice"}]},
    {"title": "", "string_list_data": [{"href": "https://www.instagram.com/bob/", "value": "bob"}]},
    {"string_list_data": [{"href": "https://www.instagram.com/_u/carol"}]}
  ]
}`

const followersJSON = `{
  "relationships_followers": [
    {"string_list_data": [{"value": "alice"}]}
  ]
}`

func TestLoad_WithFollowers(t *testing.T) {
	following := writeFile(t, "following.json", followingJSON)
	followers := writeFile(t, "followers.json", followersJSON)

	result, err := Load(following, followers)
	require.NoError(t, err)
	assert.True(t, result.HasFollowers)
	require.Len(t, result.Records, 3)

	byName := map[string]record.Record{}
	for _, rec := range result.Records {
		byName[rec.Username] = rec
	}
	assert.Equal(t, record.RelationMutual, byName["alice"].Relation)
	assert.Equal(t, record.RelationNonMutual, byName["bob"].Relation)
	assert.Equal(t, record.RelationNonMutual, byName["carol"].Relation, "username extracted from href")

	for _, rec := range result.Records {
		assert.Equal(t, record.DispositionPending, rec.Disposition)
	}
}

func TestLoad_WithoutFollowersLeavesRelationUnknown(t *testing.T) {
	following := writeFile(t, "following.json", followingJSON)

	result, err := Load(following, "")
	require.NoError(t, err)
	assert.False(t, result.HasFollowers)
	for _, rec := range result.Records {
		assert.Equal(t, record.RelationUnknown, rec.Relation)
	}
}

func TestLoad_BareListFormat(t *testing.T) {
	following := writeFile(t, "following.json",
		`[{"title": "dana"}, {"string_list_data": [{"value": "erik"}]}]`)

	result, err := Load(following, "")
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "dana", result.Records[0].Username)
	assert.Equal(t, "erik", result.Records[1].Username)
}

// Followers files from different export versions use different top-level
// keys; any list-valued key is accepted.
func TestLoad_FollowersUnderUnexpectedKey(t *testing.T) {
	following := writeFile(t, "following.json", followingJSON)
	followers := writeFile(t, "followers.json",
		`{"some_other_key": [{"string_list_data": [{"value": "bob"}]}]}`)

	result, err := Load(following, followers)
	require.NoError(t, err)

	byName := map[string]record.Record{}
	for _, rec := range result.Records {
		byName[rec.Username] = rec
	}
	assert.Equal(t, record.RelationMutual, byName["bob"].Relation)
	assert.Equal(t, record.RelationNonMutual, byName["alice"].Relation)
}

func TestLoad_NormalizesUsernames(t *testing.T) {
	following := writeFile(t, "following.json",
		`[{"title": "  MixedCase  "}, {"title": "mixedcase"}]`)

	result, err := Load(following, "")
	require.NoError(t, err)
	require.Len(t, result.Records, 1, "case variants of one account merge")
	assert.Equal(t, "mixedcase", result.Records[0].Username)
}

func TestLoad_SortedOutput(t *testing.T) {
	following := writeFile(t, "following.json",
		`[{"title": "zeta"}, {"title": "alpha"}, {"title": "mid"}]`)

	result, err := Load(following, "")
	require.NoError(t, err)
	names := make([]string, len(result.Records))
	for i, rec := range result.Records {
		names[i] = rec.Username
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"), "")
		assert.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		path := writeFile(t, "following.json", "username,id\nalice,1")
		_, err := Load(path, "")
		assert.Error(t, err)
	})

	t.Run("no entry list", func(t *testing.T) {
		path := writeFile(t, "following.json", `{"profile": {"name": "me"}}`)
		_, err := Load(path, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no entry list")
	})
}

// Package importer parses Instagram "Download Your Information" JSON
// exports into incoming record sets for the store to merge.
package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/vva1kerr/instagram-unfollower/internal/record"
)

// entry is one account in an export file. Instagram has shipped several
// shapes over the years; username lives in title, string_list_data value,
// or only in the href URL.
type entry struct {
	Title          string           `json:"title"`
	StringListData []stringListItem `json:"string_list_data"`
}

type stringListItem struct {
	Href  string `json:"href"`
	Value string `json:"value"`
}

// Result is a parsed import: the accounts you follow, with relation
// metadata when a followers file was supplied.
type Result struct {
	Records []record.Record
	// HasFollowers is false when no followers file was given; every
	// relation is then unknown.
	HasFollowers bool
}

// Load parses a following.json export and, optionally, a followers file.
// followersPath may be empty; relations are then left unknown rather
// than guessed.
func Load(followingPath, followersPath string) (*Result, error) {
	following, err := readUsernames(followingPath, "relationships_following")
	if err != nil {
		return nil, fmt.Errorf("parse following file: %w", err)
	}

	followers := map[string]bool{}
	hasFollowers := false
	if followersPath != "" {
		followers, err = readUsernames(followersPath, "relationships_followers")
		if err != nil {
			return nil, fmt.Errorf("parse followers file: %w", err)
		}
		hasFollowers = true
	}

	records := make([]record.Record, 0, len(following))
	for username := range following {
		relation := record.RelationUnknown
		if hasFollowers {
			if followers[username] {
				relation = record.RelationMutual
			} else {
				relation = record.RelationNonMutual
			}
		}
		records = append(records, record.Record{
			Username:    username,
			Relation:    relation,
			Disposition: record.DispositionPending,
		})
	}
	record.Sort(records)
	return &Result{Records: records, HasFollowers: hasFollowers}, nil
}

// readUsernames extracts the normalized username set from one export
// file. The file is either {key: [entries]} (possibly under a different
// key) or a bare entry list.
func readUsernames(path, key string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	entries, err := decodeEntries(data, key)
	if err != nil {
		return nil, err
	}

	usernames := make(map[string]bool, len(entries))
	for _, e := range entries {
		if u := usernameOf(e); u != "" {
			usernames[u] = true
		}
	}
	return usernames, nil
}

func decodeEntries(data []byte, key string) ([]entry, error) {
	// Bare list form first.
	var list []entry
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("unexpected JSON structure: %v", err)
	}
	if raw, ok := wrapped[key]; ok {
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode %q: %v", key, err)
		}
		return list, nil
	}
	// Fall back to the first list-valued key; export key names have
	// shifted across Instagram versions.
	for _, raw := range wrapped {
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return list, nil
		}
	}
	keys := make([]string, 0, len(wrapped))
	for k := range wrapped {
		keys = append(keys, k)
	}
	return nil, fmt.Errorf("no entry list found, top-level keys: %v", keys)
}

// usernameOf extracts the username from an entry, trying title, then the
// string list value, then the trailing segment of the href URL.
func usernameOf(e entry) string {
	if u := normalize(e.Title); u != "" {
		return u
	}
	if len(e.StringListData) > 0 {
		item := e.StringListData[0]
		if u := normalize(item.Value); u != "" {
			return u
		}
		if item.Href != "" {
			href := strings.TrimRight(item.Href, "/")
			if i := strings.LastIndex(href, "/"); i >= 0 {
				return normalize(href[i+1:])
			}
		}
	}
	return ""
}

// normalize canonicalizes a username: trimmed, NFC-normalized and
// lower-folded so the same account imported twice always merges.
func normalize(username string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(username)))
}

package engine

import (
	"fmt"
	"sort"

	"github.com/vva1kerr/instagram-unfollower/internal/record"
)

// Mode selects which relation buckets participate in a run.
type Mode string

const (
	// ModeDefault processes all eligible records: non-mutuals first,
	// then mutuals, then unknowns. Exhausting non-reciprocating
	// relationships first preserves reciprocal ones as long as possible
	// under a multi-day budget.
	ModeDefault Mode = "default"
	// ModeNonMutualOnly processes only accounts that don't follow back.
	ModeNonMutualOnly Mode = "non_mutual_only"
	// ModeMutualOnly processes only mutual follows not marked keep.
	ModeMutualOnly Mode = "mutual_only"
)

// ValidModes defines allowed mode values.
var ValidModes = map[Mode]bool{
	ModeDefault:       true,
	ModeNonMutualOnly: true,
	ModeMutualOnly:    true,
}

// ParseMode validates a mode string from the CLI.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !ValidModes[m] {
		return "", fmt.Errorf("invalid mode %q: must be one of %q, %q, %q",
			s, ModeDefault, ModeNonMutualOnly, ModeMutualOnly)
	}
	return m, nil
}

// BuildQueue computes the ordered, filtered list of usernames eligible
// for processing in one run.
//
// Records with disposition keep or completed are excluded. The remainder
// is partitioned by relation, each bucket sorted ascending by case-folded
// username, buckets concatenated per mode, and the result truncated to at
// most budget entries.
//
// Deterministic: the same record set and arguments always produce the
// same sequence.
func BuildQueue(records []record.Record, mode Mode, budget int) []string {
	if budget <= 0 {
		return []string{}
	}

	var nonMutual, mutual, unknown []string
	for _, rec := range records {
		if rec.Terminal() {
			continue
		}
		switch rec.Relation {
		case record.RelationNonMutual:
			nonMutual = append(nonMutual, rec.Username)
		case record.RelationMutual:
			mutual = append(mutual, rec.Username)
		default:
			unknown = append(unknown, rec.Username)
		}
	}
	sortBucket(nonMutual)
	sortBucket(mutual)
	sortBucket(unknown)

	var queue []string
	switch mode {
	case ModeNonMutualOnly:
		queue = nonMutual
	case ModeMutualOnly:
		queue = mutual
	default:
		queue = append(queue, nonMutual...)
		queue = append(queue, mutual...)
		queue = append(queue, unknown...)
	}

	if len(queue) > budget {
		queue = queue[:budget]
	}
	if queue == nil {
		queue = []string{}
	}
	return queue
}

func sortBucket(usernames []string) {
	sort.Slice(usernames, func(i, j int) bool {
		return record.SortKey(usernames[i]) < record.SortKey(usernames[j])
	})
}

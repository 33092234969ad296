package record

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Relation describes whether a target reciprocates the relationship.
// It is advisory metadata: the queue uses it for ordering and filtering,
// but it never decides eligibility on its own.
type Relation string

const (
	// RelationMutual means the target follows back.
	RelationMutual Relation = "mutual"
	// RelationNonMutual means the target does not follow back.
	RelationNonMutual Relation = "non_mutual"
	// RelationUnknown means no reciprocity data is available
	// (imported without a followers file).
	RelationUnknown Relation = "unknown"
)

// ValidRelations defines allowed relation values.
var ValidRelations = map[Relation]bool{
	RelationMutual:    true,
	RelationNonMutual: true,
	RelationUnknown:   true,
}

// Disposition is the lifecycle state of a record with respect to the
// bulk action.
//
// keep and completed are terminal for automation: once a record carries
// either, no automated process changes its disposition again. keep is
// only ever set by a human editing the store between runs.
type Disposition string

const (
	// DispositionPending marks a record still awaiting the action.
	DispositionPending Disposition = "pending"
	// DispositionKeep marks a record the user wants left alone.
	DispositionKeep Disposition = "keep"
	// DispositionCompleted marks a record whose action is done.
	DispositionCompleted Disposition = "completed"
)

// ValidDispositions defines allowed disposition values.
var ValidDispositions = map[Disposition]bool{
	DispositionPending:   true,
	DispositionKeep:      true,
	DispositionCompleted: true,
}

// Record is one tracked account.
//
// Username is the unique key, stable across runs. UserID and FullName are
// opaque descriptive fields carried through unchanged. CompletedAt is set
// when the engine itself performed the action; a record found already in
// the target state is completed with a nil CompletedAt so it never counts
// against a daily budget it did not spend.
type Record struct {
	Username    string
	UserID      string
	FullName    string
	Relation    Relation
	Disposition Disposition
	CompletedAt *time.Time
	// Note annotates skipped and failed targets so every non-success is
	// attributable from the store alone.
	Note string
}

// Terminal reports whether automation must leave this record's
// disposition untouched.
func (r Record) Terminal() bool {
	return r.Disposition == DispositionKeep || r.Disposition == DispositionCompleted
}

// Validate checks enum fields and the completed-at constraint.
func (r Record) Validate() error {
	if r.Username == "" {
		return fmt.Errorf("record has empty username")
	}
	if !ValidRelations[r.Relation] {
		return fmt.Errorf("record %q: invalid relation %q", r.Username, r.Relation)
	}
	if !ValidDispositions[r.Disposition] {
		return fmt.Errorf("record %q: invalid disposition %q", r.Username, r.Disposition)
	}
	if r.CompletedAt != nil && r.Disposition != DispositionCompleted {
		return fmt.Errorf("record %q: completed_at set but disposition is %q", r.Username, r.Disposition)
	}
	return nil
}

// SortKey is the canonical ordering key for a username: case-folded,
// with the raw username as tiebreaker so ordering stays total.
func SortKey(username string) string {
	return strings.ToLower(username) + "\x00" + username
}

// Sort orders records ascending by username (case-insensitive).
func Sort(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		return SortKey(records[i].Username) < SortKey(records[j].Username)
	})
}

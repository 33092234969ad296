package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vva1kerr/instagram-unfollower/internal/record"
)

// Store persists the full record set.
//
// Load returns an empty slice when no data has been written yet. Save
// atomically replaces the whole persisted state, sorted by username;
// callers treat every Save as a durable checkpoint.
type Store interface {
	Load() ([]record.Record, error)
	Save(records []record.Record) error
}

// CorruptError reports structurally invalid persisted data: a bad header,
// a row with the wrong field count, an unknown enum value or an
// unparseable timestamp. Corruption is fatal for the affected command -
// the store never repairs or drops rows on its own.
type CorruptError struct {
	Path   string
	Line   int // 1-based line or row number, 0 when not row-specific
	Reason string
}

func (e *CorruptError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("corrupt record store %s: line %d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("corrupt record store %s: %s", e.Path, e.Reason)
}

// IsCorrupt returns true if err is or wraps a *CorruptError.
func IsCorrupt(err error) bool {
	var ce *CorruptError
	return errors.As(err, &ce)
}

// Open selects a backend by path extension: .db, .sqlite and .sqlite3
// open the SQLite backend, anything else the CSV backend.
func Open(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLite(path)
	default:
		return NewCSV(path), nil
	}
}

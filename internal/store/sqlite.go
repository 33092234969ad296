package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vva1kerr/instagram-unfollower/internal/record"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema
const currentSchemaVersion = 1

// SQLiteStore persists records in a SQLite database. It keeps the same
// full-state-rewrite semantics as the CSV backend: Save replaces the
// whole table inside one transaction.
type SQLiteStore struct {
	path string
	db   *sql.DB
}

// OpenSQLite creates or opens a SQLite record store at the given path.
// Applies required pragmas and the schema automatically; idempotent.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{path: path, db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load reads the full record set, ordered by username.
func (s *SQLiteStore) Load() ([]record.Record, error) {
	rows, err := s.db.Query(`
		SELECT username, user_id, full_name, relation, disposition, completed_at, note
		FROM records
		ORDER BY lower(username) ASC, username ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []record.Record{}
	for rows.Next() {
		var rec record.Record
		var relation, disposition, completedAt string
		if err := rows.Scan(&rec.Username, &rec.UserID, &rec.FullName, &relation, &disposition, &completedAt, &rec.Note); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Relation = record.Relation(relation)
		rec.Disposition = record.Disposition(disposition)
		if completedAt != "" {
			t, err := time.Parse(timeLayout, completedAt)
			if err != nil {
				return nil, &CorruptError{Path: s.path, Reason: fmt.Sprintf("record %q: invalid completed_at %q", rec.Username, completedAt)}
			}
			rec.CompletedAt = &t
		}
		if err := rec.Validate(); err != nil {
			return nil, &CorruptError{Path: s.path, Reason: err.Error()}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Save atomically persists the full record set. The transaction deletes
// all rows and reinserts - a crash mid-save rolls back to the previous
// checkpoint.
func (s *SQLiteStore) Save(records []record.Record) error {
	sorted := make([]record.Record, len(records))
	copy(sorted, records)
	record.Sort(sorted)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save records: begin tx: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	if _, err := tx.Exec(`DELETE FROM records`); err != nil {
		return fmt.Errorf("save records: clear: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO records (username, user_id, full_name, relation, disposition, completed_at, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save records: prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range sorted {
		completedAt := ""
		if rec.CompletedAt != nil {
			completedAt = rec.CompletedAt.Format(timeLayout)
		}
		if _, err := stmt.Exec(rec.Username, rec.UserID, rec.FullName, string(rec.Relation), string(rec.Disposition), completedAt, rec.Note); err != nil {
			return fmt.Errorf("save record %q: %w", rec.Username, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save records: commit: %w", err)
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates the records table if needed and stamps the schema
// version. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vva1kerr/instagram-unfollower/internal/record"
)

// Column order is fixed; the header below is the single source of truth.
// note is appended after the six core columns so files written by older
// tools still round-trip.
var csvColumns = []string{"username", "user_id", "full_name", "follows_you", "status", "date_unfollowed", "note"}

// timeLayout is the persisted timestamp format (ISO 8601).
const timeLayout = time.RFC3339

// CSVStore persists records as one tabular file the operator can edit
// between runs.
type CSVStore struct {
	path string
}

// NewCSV creates a CSV store at the given path. The file is created on
// first Save; Load on a missing file returns an empty record set.
func NewCSV(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Path returns the backing file path.
func (s *CSVStore) Path() string {
	return s.path
}

// Load reads the full record set.
//
// Legacy status values written by hand or by the original tool are
// accepted: blank and "unfollow" load as pending, "unfollowed" as
// completed. Anything else unknown is corruption, not a guess.
func (s *CSVStore) Load() ([]record.Record, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return []record.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // row width checked per-row for better errors

	header, err := r.Read()
	if err == io.EOF {
		return []record.Record{}, nil
	}
	if err != nil {
		return nil, &CorruptError{Path: s.path, Line: 1, Reason: err.Error()}
	}
	if err := checkHeader(header); err != nil {
		return nil, &CorruptError{Path: s.path, Line: 1, Reason: err.Error()}
	}

	var records []record.Record
	seen := make(map[string]bool)
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &CorruptError{Path: s.path, Line: line, Reason: err.Error()}
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, &CorruptError{Path: s.path, Line: line, Reason: err.Error()}
		}
		if seen[rec.Username] {
			return nil, &CorruptError{Path: s.path, Line: line, Reason: fmt.Sprintf("duplicate username %q", rec.Username)}
		}
		seen[rec.Username] = true
		records = append(records, rec)
	}
	if records == nil {
		records = []record.Record{}
	}
	return records, nil
}

// Save atomically persists the full record set, sorted by username.
// Write-to-temp-then-rename: a crash mid-write leaves the previous file
// intact for the next Load.
func (s *CSVStore) Save(records []record.Record) error {
	sorted := make([]record.Record, len(records))
	copy(sorted, records)
	record.Sort(sorted)

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after successful rename

	w := csv.NewWriter(tmp)
	if err := w.Write(csvColumns); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range sorted {
		if err := w.Write(formatRow(rec)); err != nil {
			tmp.Close()
			return fmt.Errorf("write record %q: %w", rec.Username, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush record store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync record store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace record store: %w", err)
	}
	return nil
}

func checkHeader(header []string) error {
	// The six core columns must appear in order; note is optional for
	// files produced before the column existed.
	if len(header) != len(csvColumns) && len(header) != len(csvColumns)-1 {
		return fmt.Errorf("expected %d or %d columns, got %d", len(csvColumns)-1, len(csvColumns), len(header))
	}
	for i, col := range header {
		if col != csvColumns[i] {
			return fmt.Errorf("column %d is %q, expected %q", i+1, col, csvColumns[i])
		}
	}
	return nil
}

func parseRow(row []string) (record.Record, error) {
	if len(row) != len(csvColumns) && len(row) != len(csvColumns)-1 {
		return record.Record{}, fmt.Errorf("expected %d or %d fields, got %d", len(csvColumns)-1, len(csvColumns), len(row))
	}

	rec := record.Record{
		Username: row[0],
		UserID:   row[1],
		FullName: row[2],
	}
	if len(row) == len(csvColumns) {
		rec.Note = row[6]
	}

	switch row[3] {
	case "yes":
		rec.Relation = record.RelationMutual
	case "no":
		rec.Relation = record.RelationNonMutual
	case "":
		rec.Relation = record.RelationUnknown
	default:
		return record.Record{}, fmt.Errorf("invalid follows_you value %q", row[3])
	}

	switch row[4] {
	case string(record.DispositionPending), "", "unfollow":
		rec.Disposition = record.DispositionPending
	case string(record.DispositionKeep):
		rec.Disposition = record.DispositionKeep
	case string(record.DispositionCompleted), "unfollowed":
		rec.Disposition = record.DispositionCompleted
	default:
		return record.Record{}, fmt.Errorf("invalid status value %q", row[4])
	}

	if row[5] != "" {
		t, err := time.Parse(timeLayout, row[5])
		if err != nil {
			return record.Record{}, fmt.Errorf("invalid date_unfollowed %q: %v", row[5], err)
		}
		if rec.Disposition != record.DispositionCompleted {
			return record.Record{}, fmt.Errorf("date_unfollowed set on %s record", rec.Disposition)
		}
		rec.CompletedAt = &t
	}

	if err := rec.Validate(); err != nil {
		return record.Record{}, err
	}
	return rec, nil
}

func formatRow(rec record.Record) []string {
	followsYou := ""
	switch rec.Relation {
	case record.RelationMutual:
		followsYou = "yes"
	case record.RelationNonMutual:
		followsYou = "no"
	}
	completedAt := ""
	if rec.CompletedAt != nil {
		completedAt = rec.CompletedAt.Format(timeLayout)
	}
	return []string{rec.Username, rec.UserID, rec.FullName, followsYou, string(rec.Disposition), completedAt, rec.Note}
}

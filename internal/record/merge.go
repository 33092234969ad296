package record

// Merge reconciles a fresh import against the existing record set.
//
// For each username in incoming:
//   - present in existing: disposition, completed_at and note are kept,
//     relation and descriptive fields are refreshed from incoming
//   - absent from existing: created with disposition = pending
//
// For each username in existing but not in incoming:
//   - dropped, unless disposition = completed, in which case the record
//     is retained unchanged as an audit trail
//
// Merge is pure and deterministic: the result is sorted by username and
// reapplying the same incoming set is a no-op (Merge(Merge(R,P),P) ==
// Merge(R,P)).
func Merge(existing, incoming []Record) []Record {
	byName := make(map[string]Record, len(existing))
	for _, r := range existing {
		byName[r.Username] = r
	}

	merged := make([]Record, 0, len(incoming))
	seen := make(map[string]bool, len(incoming))
	for _, in := range incoming {
		if seen[in.Username] {
			continue
		}
		seen[in.Username] = true

		if old, ok := byName[in.Username]; ok {
			old.Relation = in.Relation
			if in.UserID != "" {
				old.UserID = in.UserID
			}
			if in.FullName != "" {
				old.FullName = in.FullName
			}
			merged = append(merged, old)
			continue
		}

		in.Disposition = DispositionPending
		in.CompletedAt = nil
		merged = append(merged, in)
	}

	// Retain completed records that vanished from the import.
	for _, old := range existing {
		if !seen[old.Username] && old.Disposition == DispositionCompleted {
			merged = append(merged, old)
		}
	}

	Sort(merged)
	return merged
}

// Package store provides durable storage for the unfollow record set.
//
// The store is the single owner of record lifecycle: the queue builder and
// run executor only read record sets and write them back through it, so no
// component holds a private copy that can drift from the durable state.
//
// Two backends implement the same contract:
//
//   - CSV: one human-editable tabular file. The operator marks accounts to
//     keep by editing the status column between runs. Writes go to a temp
//     file in the same directory followed by an atomic rename, so a crash
//     mid-write never leaves a torn file for the next Load.
//   - SQLite: same full-state-rewrite semantics inside one transaction,
//     for record sets too large to hand-edit. WAL mode, NORMAL synchronous,
//     busy timeout and a single writer connection.
//
// Every Save is a full-state checkpoint - there are no partial or delta
// writes. Structurally invalid persisted data is surfaced as *CorruptError
// and never silently discarded.
package store

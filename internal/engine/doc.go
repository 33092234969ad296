// Package engine implements the rate-limited unfollow campaign engine.
//
// The engine is deliberately slow and strictly sequential: targets are
// processed one at a time on one goroutine, with a mandatory randomized
// delay between actions. Parallelism is not a missing feature - it would
// defeat the throttling the engine exists to enforce.
//
// ARCHITECTURE:
//
// Single sequential control loop:
//  1. BuildQueue filters and orders eligible records
//  2. The executor pops one username at a time
//  3. The action capability performs the unfollow and reports one
//     discrete outcome
//  4. The updated record set is saved before the next target starts
//  5. The governor's delay runs between every two actions
//
// Durability: the store file is the only state. The daily budget is
// derived from completed_at timestamps in the store, so restarts resume
// the quota correctly with no in-process counters. The save-after-every-
// action discipline bounds crash loss to at most one in-flight target's
// outcome.
//
// Failure model: a single target failure annotates the record and moves
// on - it is never fatal to the run. There is no in-process retry;
// failed targets stay pending and wait for a future run, keeping retries
// inside the same rate-limit regime. Session loss and cancellation stop
// the run in an orderly save-and-return.
package engine

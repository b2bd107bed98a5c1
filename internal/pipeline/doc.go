// Package pipeline runs a single pass over the work queue.
//
// A pass loads every row, groups revised heads with their trailing variant
// rows, and for each group in scan order enriches the head, persists the
// derived fields, publishes the product and its translation, and finally marks
// the head as Published. The status write is the only idempotency gate: a
// group that fails anywhere before it stays revised and is picked up again by
// the next pass.
//
// Passes never overlap. The in-process scheduler serializes its own calls and
// a file lock under the state directory keeps a CLI run and a daemon pass
// apart. Each pass produces a PassSummary with one GroupResult per group,
// which is journaled, counted in metrics and summarized to ntfy.
package pipeline

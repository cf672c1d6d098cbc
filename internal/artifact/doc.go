// Package artifact provides the durable JSON document store through which
// pipeline stages exchange data.
//
// Each artifact is a single JSON file in the store directory, holding a
// mapping from subject URL to that stage's result record. The store is
// the sole communication channel between stages: a stage declares which
// artifacts it reads and writes exactly one artifact of its own.
//
// Design decision: Writes go through a temp file followed by an atomic
// rename so that a concurrent reader never observes an empty or
// truncated document. Documents accumulate subjects across runs; the
// store merges rather than truncates, which downstream stages rely on
// for incremental batch use.
package artifact

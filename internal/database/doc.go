// Package database provides SQLite-backed run history.
//
// Each finished pipeline run is recorded with its final state, failing
// stage, and per-stage timing so past analyses can be listed without
// re-reading the artifact store. Recording is best-effort: a database
// problem is logged and never fails a run.
package database

// Package pipeline provides the orchestration engine that turns a news
// article URL into a validity verdict.
//
// The pipeline is a fixed directed graph of stages:
//
//	scrape -> {wikicheck, fakenews, imageeval} -> aggregate
//
// Stages exchange data only through the artifact store; each stage runs
// as an isolated subprocess, declares the artifacts it consumes, and
// produces exactly one artifact of its own. The Scheduler owns the
// graph and the execution order: scrape runs first in the foreground,
// the slow network-bound image evaluation is launched in the background
// so its latency overlaps the two foreground analyses, and a join
// barrier gates aggregation.
//
// Design decision: We use a statically constructed stage table passed
// into the Scheduler rather than any global registry. The Runner is
// deliberately graph-agnostic; only the Scheduler knows which stage
// follows which.
package pipeline

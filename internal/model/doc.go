// Package model defines the artifact record schemas exchanged between
// pipeline stages.
//
// Every artifact is a JSON document keyed by subject URL. The types in
// this package are the per-subject records stored under those keys:
// scrape output, Wikipedia fact-check results, fake-news classification,
// image authenticity evaluations, and the final validity verdict.
//
// Design decision: Records use explicit struct schemas rather than
// free-form maps so that invariants like "a verdict carries either a
// summary or an error, never both" are enforced by construction instead
// of by convention.
package model

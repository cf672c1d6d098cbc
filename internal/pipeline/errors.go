package pipeline

import "errors"

// Pipeline orchestration errors.
//
// Design decision: Sentinel errors for the conditions callers branch on
// (errors.Is), with the richer StageError type carrying per-stage
// diagnostics for display.
var (
	// ErrInvalidSubject is returned when the submitted URL is not an
	// absolute http or https URL. No stage is invoked for an invalid
	// subject.
	ErrInvalidSubject = errors.New("invalid subject: expected absolute http or https URL")

	// ErrMissingArtifact is returned when a stage exited successfully
	// but its declared output artifact does not exist. A stage that
	// silently did nothing is indistinguishable from a crash.
	ErrMissingArtifact = errors.New("stage exited cleanly but produced no artifact")

	// ErrJoinTimeout is returned when the join barrier on the background
	// stage exceeds the configured timeout.
	ErrJoinTimeout = errors.New("timed out waiting for background stage")
)

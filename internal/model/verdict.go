package model

import "errors"

// ErrAmbiguousVerdict is returned when a verdict record carries both a
// summary and an error. The two shapes are mutually exclusive; consumers
// check Summary first.
var ErrAmbiguousVerdict = errors.New("verdict record has both summary and error")

// VerdictRecord is the per-subject output of the aggregation stage:
// either a synthesized validity summary or the aggregation error for
// that subject, never both.
type VerdictRecord struct {
	// Summary is the human-readable validity assessment.
	Summary string `json:"summary,omitempty"`

	// Error is the aggregation failure for this subject.
	Error string `json:"error,omitempty"`
}

// NewVerdict returns a verdict carrying a summary.
func NewVerdict(summary string) VerdictRecord {
	return VerdictRecord{Summary: summary}
}

// NewVerdictError returns a verdict carrying an error.
func NewVerdictError(message string) VerdictRecord {
	return VerdictRecord{Error: message}
}

// Text returns the summary if present, otherwise the error message.
func (v VerdictRecord) Text() string {
	if v.Summary != "" {
		return v.Summary
	}
	return v.Error
}

// Validate checks the summary/error exclusivity invariant.
func (v VerdictRecord) Validate() error {
	if v.Summary != "" && v.Error != "" {
		return ErrAmbiguousVerdict
	}
	return nil
}

package model

// Verdict values assigned to individual fact-checked claims.
// The thresholds that select them live in the wikicheck package.
const (
	// VerdictSupported means Wikipedia content substantially matches the claim.
	VerdictSupported = "SUPPORTED"

	// VerdictNeutral means some related information was found but the
	// match is weak.
	VerdictNeutral = "NEUTRAL"

	// VerdictRefuted means a related page was found but gives the claim
	// little support.
	VerdictRefuted = "REFUTED"

	// VerdictNotFound means no Wikipedia page matched the claim at all.
	VerdictNotFound = "NOT_FOUND"
)

// FactCheckResult is the outcome of checking a single claim against
// Wikipedia.
type FactCheckResult struct {
	// Claim is the normalized claim text that was checked.
	Claim string `json:"claim"`

	// Source names the reference corpus. Always "Wikipedia".
	Source string `json:"source"`

	// Confidence is the checker's confidence in the verdict, in [0, 1].
	Confidence float64 `json:"confidence"`

	// Verdict is one of the Verdict* constants.
	Verdict string `json:"verdict"`

	// Evidence lists short human-readable justifications.
	Evidence []string `json:"evidence"`

	// WikipediaPage is the title of the best-matching page, if any.
	WikipediaPage string `json:"wikipedia_page,omitempty"`

	// SimilarityScore is the claim/page similarity that produced the
	// verdict, in [0, 1].
	SimilarityScore float64 `json:"similarity_score"`

	// Timestamp is the RFC 3339 time the claim was checked.
	Timestamp string `json:"timestamp"`
}

// WikiStatistics aggregates verdict counts for one subject.
type WikiStatistics struct {
	TotalClaims       int     `json:"total_claims"`
	Supported         int     `json:"supported"`
	Refuted           int     `json:"refuted"`
	Neutral           int     `json:"neutral"`
	NotFound          int     `json:"not_found"`
	AverageConfidence float64 `json:"average_confidence"`

	// ReliabilityScore is the fraction of claims that were supported.
	ReliabilityScore float64 `json:"reliability_score"`
}

// WikiRecord is the per-subject output of the Wikipedia fact-check stage.
// A subject whose article could not be processed gets only the Error field.
type WikiRecord struct {
	FactCheckResults []FactCheckResult `json:"fact_check_results,omitempty"`
	Statistics       *WikiStatistics   `json:"statistics,omitempty"`
	Timestamp        string            `json:"timestamp,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// NewWikiStatistics computes aggregate statistics over fact-check results.
func NewWikiStatistics(results []FactCheckResult) *WikiStatistics {
	stats := &WikiStatistics{TotalClaims: len(results)}
	if len(results) == 0 {
		return stats
	}

	var confidenceSum float64
	for _, r := range results {
		confidenceSum += r.Confidence
		switch r.Verdict {
		case VerdictSupported:
			stats.Supported++
		case VerdictRefuted:
			stats.Refuted++
		case VerdictNeutral:
			stats.Neutral++
		case VerdictNotFound:
			stats.NotFound++
		}
	}

	stats.AverageConfidence = confidenceSum / float64(len(results))
	stats.ReliabilityScore = float64(stats.Supported) / float64(len(results))
	return stats
}

package report

import (
	"errors"
	"io"
	"time"

	"github.com/factlens/factlens/internal/artifact"
	"github.com/factlens/factlens/internal/model"
)

// Result is the reportable outcome of one subject's analysis: the
// verdict plus the supporting evidence pulled from the artifact store.
type Result struct {
	// URL is the analyzed subject.
	URL string `json:"url"`

	// Title is the article title, when the scrape succeeded.
	Title string `json:"title,omitempty"`

	// GeneratedAt is when the report was assembled.
	GeneratedAt time.Time `json:"generated_at"`

	// Verdict is the synthesized validity verdict.
	Verdict model.VerdictRecord `json:"verdict"`

	// Credibility is the source-domain assessment from the scrape.
	Credibility *model.CredibilityReport `json:"credibility,omitempty"`

	// FactCheck is the Wikipedia fact-check statistics.
	FactCheck *model.WikiStatistics `json:"fact_check,omitempty"`

	// Classification is the fake-news classifier output.
	Classification *model.FakeNewsAnalysis `json:"classification,omitempty"`
}

// Writer defines the interface for verdict report output.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs the result to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(result *Result) (int, error)
}

// Collect assembles a Result for one subject from the artifact store.
// Only the verdict is required; supporting evidence is attached when the
// corresponding artifacts have entries for the subject.
func Collect(store *artifact.Store, subject string) (*Result, error) {
	var verdict model.VerdictRecord
	if err := store.ReadRecord(artifact.Verdict, subject, &verdict); err != nil {
		return nil, err
	}

	result := &Result{
		URL:         subject,
		GeneratedAt: time.Now(),
		Verdict:     verdict,
	}

	var scraped model.ScrapeRecord
	if err := readOptional(store, artifact.Scrape, subject, &scraped); err == nil && scraped.Success {
		result.Title = scraped.Title
		result.Credibility = scraped.Credibility
	}

	var wiki model.WikiRecord
	if err := readOptional(store, artifact.Wiki, subject, &wiki); err == nil && wiki.Error == "" {
		result.FactCheck = wiki.Statistics
	}

	var fake model.FakeNewsRecord
	if err := readOptional(store, artifact.FakeNews, subject, &fake); err == nil && fake.Error == "" {
		result.Classification = fake.Analysis
	}

	return result, nil
}

// readOptional reads a subject's record, treating absence as a normal
// condition rather than a fault.
func readOptional(store *artifact.Store, id artifact.ID, subject string, out any) error {
	err := store.ReadRecord(id, subject, out)
	if err != nil && !errors.Is(err, artifact.ErrArtifactNotFound) && !errors.Is(err, artifact.ErrSubjectNotFound) {
		return err
	}
	return err
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

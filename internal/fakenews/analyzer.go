package fakenews

import (
	"context"
	"errors"
	"log/slog"

	"github.com/factlens/factlens/internal/artifact"
	"github.com/factlens/factlens/internal/model"
)

// Analyzer runs the fake-news analysis stage for one subject.
type Analyzer struct {
	store      *artifact.Store
	classifier *Classifier
	logger     *slog.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithAnalyzerLogger sets the logger.
func WithAnalyzerLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAnalyzer creates an Analyzer reading from and writing to store.
func NewAnalyzer(store *artifact.Store, classifier *Classifier, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		store:      store,
		classifier: classifier,
		logger:     slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Run classifies the subject's article text and writes the analysis
// record. A subject with no usable text gets an error record; a missing
// scrape artifact fails the stage.
func (a *Analyzer) Run(ctx context.Context, subject string) error {
	var scraped model.ScrapeRecord
	if err := a.store.ReadRecord(artifact.Scrape, subject, &scraped); err != nil {
		if errors.Is(err, artifact.ErrSubjectNotFound) {
			return a.writeError(subject, "", "no scrape record for subject")
		}
		return err
	}
	if !scraped.Success {
		return a.writeError(subject, scraped.Title, "article scrape failed: "+scraped.Error)
	}

	// The title often carries the strongest claim; prepend it so the
	// classifier sees it.
	text := scraped.Text
	if scraped.Title != "" {
		text = scraped.Title + ". " + text
	}
	if CleanText(text) == "" {
		return a.writeError(subject, scraped.Title, "No text content found")
	}

	analysis := a.classifier.Classify(ctx, text)
	if analysis.Error != "" {
		a.logger.Warn("classification failed", "url", subject, "error", analysis.Error)
	} else {
		a.logger.Info("classification complete",
			"url", subject,
			"prediction", analysis.Prediction,
			"confidence", analysis.Confidence)
	}

	record := &model.FakeNewsRecord{
		URL:      subject,
		Title:    scraped.Title,
		Analysis: analysis,
		SourceData: &model.SourceData{
			TextPreview: preview(text),
			TextLength:  len(text),
		},
	}
	return a.store.Write(artifact.FakeNews, subject, record)
}

// writeError records a subject-level failure without failing the stage.
func (a *Analyzer) writeError(subject, title, message string) error {
	a.logger.Warn("recording analysis failure", "url", subject, "reason", message)
	return a.store.Write(artifact.FakeNews, subject, &model.FakeNewsRecord{
		URL:   subject,
		Title: title,
		Error: message,
	})
}

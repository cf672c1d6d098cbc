package wikicheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/factlens/factlens/internal/artifact"
	"github.com/factlens/factlens/internal/model"
)

// defaultConcurrency bounds simultaneous Wikipedia queries. The API
// asks clients to keep request rates modest.
const defaultConcurrency = 4

// Checker runs the Wikipedia fact-check stage for one subject.
type Checker struct {
	store       *artifact.Store
	client      *Client
	logger      *slog.Logger
	concurrency int
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithCheckerLogger sets the logger.
func WithCheckerLogger(logger *slog.Logger) CheckerOption {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithConcurrency sets the maximum simultaneous Wikipedia queries.
func WithConcurrency(n int) CheckerOption {
	return func(c *Checker) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// NewChecker creates a Checker reading from and writing to store.
func NewChecker(store *artifact.Store, client *Client, opts ...CheckerOption) *Checker {
	c := &Checker{
		store:       store,
		client:      client,
		logger:      slog.New(slog.DiscardHandler),
		concurrency: defaultConcurrency,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run fact-checks the subject's image-context claims and writes the
// results record. A subject whose scrape failed gets an error-only
// record rather than failing the stage; a missing scrape artifact is a
// stage failure, since the input this stage depends on was never
// produced.
func (c *Checker) Run(ctx context.Context, subject string) error {
	var scraped model.ScrapeRecord
	if err := c.store.ReadRecord(artifact.Scrape, subject, &scraped); err != nil {
		if errors.Is(err, artifact.ErrSubjectNotFound) {
			return c.writeError(subject, fmt.Sprintf("no scrape record for %s", subject))
		}
		return err
	}
	if !scraped.Success {
		return c.writeError(subject, "article scrape failed: "+scraped.Error)
	}

	contexts := make([]string, 0, len(scraped.Images))
	for _, img := range scraped.Images {
		if img.Context != "" {
			contexts = append(contexts, img.Context)
		}
	}
	claims := ExtractClaims(contexts)

	c.logger.Info("fact-checking claims", "url", subject, "claims", len(claims))

	results := make([]model.FactCheckResult, len(claims))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, claim := range claims {
		g.Go(func() error {
			results[i] = c.CheckClaim(gctx, claim)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fact-check interrupted: %w", err)
	}

	record := &model.WikiRecord{
		FactCheckResults: results,
		Statistics:       model.NewWikiStatistics(results),
		Timestamp:        time.Now().Format(time.RFC3339),
	}
	return c.store.Write(artifact.Wiki, subject, record)
}

// CheckClaim fact-checks a single claim against Wikipedia. Lookup
// failures are folded into the verdict rather than returned: a claim
// nothing matched is NOT_FOUND, not an error.
func (c *Checker) CheckClaim(ctx context.Context, claim string) model.FactCheckResult {
	claim = PreprocessClaim(claim)
	result := model.FactCheckResult{
		Claim:     claim,
		Source:    "Wikipedia",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	if len(claim) < minClaimLength {
		result.Verdict = model.VerdictNeutral
		result.Evidence = []string{"Claim too short"}
		return result
	}

	// Search with the whole claim first, then with individual entities;
	// keep the best-scoring page across all queries.
	queries := append([]string{claim}, firstN(ExtractEntities(claim), 3)...)
	var best *Page
	var bestSimilarity float64
	for _, query := range queries {
		if len(query) < 3 {
			continue
		}
		page, err := c.client.BestMatch(ctx, query)
		if err != nil {
			if !errors.Is(err, ErrNoResults) {
				c.logger.Warn("wikipedia lookup failed", "query", query, "error", err)
			}
			continue
		}
		if sim := Similarity(claim, page.Content); sim > bestSimilarity {
			bestSimilarity, best = sim, page
		}
	}

	switch {
	case best == nil:
		result.Verdict = model.VerdictNotFound
		result.Evidence = []string{"No Wikipedia info found"}
	case bestSimilarity > supportedThreshold:
		result.Verdict = model.VerdictSupported
		result.Confidence = bestSimilarity
		result.Evidence = []string{"Found info in " + best.Title}
	case bestSimilarity > neutralThreshold:
		result.Verdict = model.VerdictNeutral
		result.Confidence = bestSimilarity
		result.Evidence = []string{"Some info found in " + best.Title}
	default:
		result.Verdict = model.VerdictRefuted
		result.Confidence = 1 - bestSimilarity
		result.Evidence = []string{"Little support in " + best.Title}
	}

	if best != nil {
		result.WikipediaPage = best.Title
		result.SimilarityScore = bestSimilarity
	}
	return result
}

// writeError records a subject-level failure. The stage still succeeds:
// its output artifact exists and downstream consumers see the error
// entry for this subject.
func (c *Checker) writeError(subject, message string) error {
	c.logger.Warn("recording fact-check failure", "url", subject, "reason", message)
	return c.store.Write(artifact.Wiki, subject, &model.WikiRecord{Error: message})
}

// firstN returns at most n leading elements of items.
func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

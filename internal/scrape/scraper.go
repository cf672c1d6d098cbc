package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/factlens/factlens/internal/artifact"
	"github.com/factlens/factlens/internal/config"
	"github.com/factlens/factlens/internal/model"
)

// maxContextLength caps the surrounding-text captured per image.
// Claims are extracted from this text downstream; longer context adds
// noise without adding checkable statements.
const maxContextLength = 200

// ErrNoContent is returned when a page fetches cleanly but yields no
// article text.
var ErrNoContent = errors.New("no article content extracted")

// Scraper runs the scrape stage: fetch the subject page, extract its
// article content and images, assess the source, and persist the
// results.
type Scraper struct {
	store     *artifact.Store
	fetcher   *Fetcher
	extractor *Extractor
	logger    *slog.Logger
}

// ScraperOption configures a Scraper.
type ScraperOption func(*Scraper)

// WithScraperLogger sets the logger.
func WithScraperLogger(logger *slog.Logger) ScraperOption {
	return func(s *Scraper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScraper creates a Scraper writing into store, configured from cfg.
func NewScraper(store *artifact.Store, cfg *config.Config, opts ...ScraperOption) *Scraper {
	s := &Scraper{
		store:     store,
		extractor: NewExtractor(),
		logger:    slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(s)
	}

	fetchOpts := []FetcherOption{
		WithUserAgent(cfg.UserAgent),
		WithMaxBodySize(cfg.MaxBodySize),
	}

	s.fetcher = NewFetcher(cfg.Timeout, fetchOpts...)
	s.configureForSites(cfg)
	return s
}

// configureForSites applies per-site settings when a single target
// domain can be determined from the config targets.
func (s *Scraper) configureForSites(cfg *config.Config) {
	if cfg.SiteConfigs == nil || len(cfg.Targets) != 1 {
		return
	}

	u, err := url.Parse(cfg.Targets[0])
	if err != nil {
		return
	}

	site := cfg.SiteConfigs.GetSiteConfig(registrableDomain(u.Hostname()))
	if site.Cookie != "" {
		WithCookie(site.Cookie)(s.fetcher)
	}
	if len(site.Headers) > 0 {
		WithHeaders(site.Headers)(s.fetcher)
	}
	if site.MinContentLength > 0 {
		s.extractor.minContentLength = site.MinContentLength
	}
}

// Run scrapes one subject and persists the scrape record plus the image
// list. On failure a record with Success=false and the error message is
// still written before the error is returned, so later inspection of the
// store shows what happened.
func (s *Scraper) Run(ctx context.Context, subject string) error {
	record, err := s.scrape(ctx, subject)
	if err != nil {
		s.logger.Error("scrape failed", "url", subject, "error", err)
		failure := &model.ScrapeRecord{
			Success: false,
			URL:     subject,
			Error:   err.Error(),
		}
		if writeErr := s.store.Write(artifact.Scrape, subject, failure); writeErr != nil {
			return errors.Join(err, writeErr)
		}
		return err
	}

	if err := s.store.Write(artifact.Scrape, subject, record); err != nil {
		return err
	}

	urls := make([]string, 0, len(record.Images))
	for _, img := range record.Images {
		urls = append(urls, img.Src)
	}
	if err := s.store.MergeImageList(urls); err != nil {
		return err
	}

	s.logger.Info("scrape complete",
		"url", subject,
		"title", record.Title,
		"blocks", record.Summary.Blocks,
		"images", len(record.Images))
	return nil
}

// scrape fetches and extracts one subject into a successful record.
func (s *Scraper) scrape(ctx context.Context, subject string) (*model.ScrapeRecord, error) {
	fetched, err := s.fetcher.Fetch(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", subject, err)
	}

	extracted, err := s.extractor.Extract(fetched.Body, fetched.FinalURL)
	if err != nil {
		return nil, err
	}
	if len(extracted.Blocks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoContent, subject)
	}

	var texts []string
	var chars int
	for _, b := range extracted.Blocks {
		texts = append(texts, b.Text)
		chars += b.CharacterCount
	}

	images := selectImages(extracted.Images)
	credibility := AssessCredibility(subject, fetched.HTTPS)

	return &model.ScrapeRecord{
		Success:     true,
		URL:         subject,
		Title:       extracted.Title,
		Text:        strings.Join(texts, "\n\n"),
		Images:      images,
		Credibility: credibility,
		Summary: &model.ScrapeSummary{
			Blocks:           len(extracted.Blocks),
			Chars:            chars,
			Images:           len(images),
			Quality:          extracted.Quality,
			CredibilityScore: credibility.OverallScore,
		},
	}, nil
}

// selectImages keeps in-article, non-boilerplate images and caps their
// context text.
func selectImages(found []ExtractedImage) []model.ImageRef {
	var images []model.ImageRef
	seen := make(map[string]bool, len(found))
	for _, img := range found {
		if !img.InArticle || img.IsBoilerplate() || seen[img.Src] {
			continue
		}
		seen[img.Src] = true

		context := img.Context
		if len(context) > maxContextLength {
			context = context[:maxContextLength]
		}
		images = append(images, model.ImageRef{
			Src:     img.Src,
			Alt:     img.Alt,
			Context: context,
		})
	}
	return images
}

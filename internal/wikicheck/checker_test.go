package wikicheck

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/factlens/factlens/internal/artifact"
	"github.com/factlens/factlens/internal/model"
)

// fakeWikipedia serves a minimal MediaWiki API with one page whose
// extract is the given content.
func fakeWikipedia(t *testing.T, title, content string) *Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Query().Get("list") == "search":
			fmt.Fprintf(w, `{"query":{"search":[{"title":%q}]}}`, title)
		case r.URL.Query().Get("prop") == "extracts":
			fmt.Fprintf(w, `{"query":{"pages":{"1":{"title":%q,"extract":%q}}}}`, title, content)
		default:
			http.Error(w, "unexpected request", http.StatusBadRequest)
		}
	}))
	t.Cleanup(server.Close)

	return NewClient(5*time.Second, WithEndpoint(server.URL))
}

func newTestStore(t *testing.T) *artifact.Store {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func writeScrape(t *testing.T, store *artifact.Store, subject string, record *model.ScrapeRecord) {
	t.Helper()
	if err := store.Write(artifact.Scrape, subject, record); err != nil {
		t.Fatal(err)
	}
}

func TestCheckerRun(t *testing.T) {
	t.Parallel()

	const subject = "https://example.com/waterloo"
	client := fakeWikipedia(t, "Battle of Waterloo",
		"The Battle of Waterloo was fought on Sunday 18 June 1815. Napoleon Bonaparte was defeated by the armies of the Seventh Coalition commanded by the Duke of Wellington.")

	store := newTestStore(t)
	writeScrape(t, store, subject, &model.ScrapeRecord{
		Success: true,
		URL:     subject,
		Images: []model.ImageRef{
			{Src: "https://example.com/a.jpg", Context: "Napoleon Bonaparte was defeated at the Battle of Waterloo."},
		},
	})

	checker := NewChecker(store, client)
	if err := checker.Run(context.Background(), subject); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var record model.WikiRecord
	if err := store.ReadRecord(artifact.Wiki, subject, &record); err != nil {
		t.Fatal(err)
	}

	if record.Error != "" {
		t.Fatalf("Error = %q", record.Error)
	}
	if len(record.FactCheckResults) != 1 {
		t.Fatalf("results = %d, want 1", len(record.FactCheckResults))
	}

	result := record.FactCheckResults[0]
	if result.Verdict != model.VerdictSupported {
		t.Errorf("Verdict = %q (similarity %f), want SUPPORTED", result.Verdict, result.SimilarityScore)
	}
	if result.WikipediaPage != "Battle of Waterloo" {
		t.Errorf("WikipediaPage = %q", result.WikipediaPage)
	}
	if result.Source != "Wikipedia" {
		t.Errorf("Source = %q", result.Source)
	}

	if record.Statistics == nil {
		t.Fatal("Statistics is nil")
	}
	if record.Statistics.TotalClaims != 1 || record.Statistics.Supported != 1 {
		t.Errorf("Statistics = %+v", record.Statistics)
	}
}

func TestCheckerRunScrapeFailed(t *testing.T) {
	t.Parallel()

	const subject = "https://example.com/broken"
	store := newTestStore(t)
	writeScrape(t, store, subject, &model.ScrapeRecord{
		Success: false,
		URL:     subject,
		Error:   "fetch returned 404",
	})

	checker := NewChecker(store, fakeWikipedia(t, "Anything", "content"))
	if err := checker.Run(context.Background(), subject); err != nil {
		t.Fatalf("Run() error = %v, want nil for subject-level failure", err)
	}

	var record model.WikiRecord
	if err := store.ReadRecord(artifact.Wiki, subject, &record); err != nil {
		t.Fatal(err)
	}
	if record.Error == "" {
		t.Error("Error is empty, want failure reason")
	}
	if len(record.FactCheckResults) != 0 {
		t.Errorf("results = %d, want 0", len(record.FactCheckResults))
	}
}

func TestCheckerRunMissingArtifact(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	checker := NewChecker(store, fakeWikipedia(t, "Anything", "content"))

	// The scrape artifact was never produced: this is a stage failure,
	// not a recoverable subject failure.
	if err := checker.Run(context.Background(), "https://example.com/x"); err == nil {
		t.Fatal("Run() error = nil, want missing-artifact failure")
	}
}

func TestCheckClaimVerdicts(t *testing.T) {
	t.Parallel()

	t.Run("short claim is neutral without search", func(t *testing.T) {
		t.Parallel()
		checker := NewChecker(newTestStore(t), fakeWikipedia(t, "X", "y"))
		result := checker.CheckClaim(context.Background(), "Too short")
		if result.Verdict != model.VerdictNeutral {
			t.Errorf("Verdict = %q, want NEUTRAL", result.Verdict)
		}
		if result.WikipediaPage != "" {
			t.Errorf("WikipediaPage = %q, want empty", result.WikipediaPage)
		}
	})

	t.Run("no search hits means not found", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"query":{"search":[]}}`)
		}))
		t.Cleanup(server.Close)

		checker := NewChecker(newTestStore(t), NewClient(5*time.Second, WithEndpoint(server.URL)))
		result := checker.CheckClaim(context.Background(), "The lost city of Atlantis was rediscovered")
		if result.Verdict != model.VerdictNotFound {
			t.Errorf("Verdict = %q, want NOT_FOUND", result.Verdict)
		}
	})

	t.Run("unrelated page gives refuted", func(t *testing.T) {
		t.Parallel()
		checker := NewChecker(newTestStore(t), fakeWikipedia(t, "Sponge cake",
			"Whisk eggs with sugar until pale and fold in sifted flour gently"))
		result := checker.CheckClaim(context.Background(), "Quantum entanglement links particle states instantly")
		if result.Verdict != model.VerdictRefuted {
			t.Errorf("Verdict = %q (similarity %f), want REFUTED", result.Verdict, result.SimilarityScore)
		}
	})
}

func TestClientCachesPages(t *testing.T) {
	t.Parallel()

	var pageFetches int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Query().Get("list") == "search":
			fmt.Fprint(w, `{"query":{"search":[{"title":"Cached Page"}]}}`)
		case r.URL.Query().Get("prop") == "extracts":
			pageFetches++
			fmt.Fprint(w, `{"query":{"pages":{"1":{"title":"Cached Page","extract":"some page content"}}}}`)
		}
	}))
	t.Cleanup(server.Close)

	client := NewClient(5*time.Second, WithEndpoint(server.URL))
	for range 3 {
		if _, err := client.BestMatch(context.Background(), "cached page"); err != nil {
			t.Fatal(err)
		}
	}

	if pageFetches != 1 {
		t.Errorf("page fetches = %d, want 1", pageFetches)
	}
}

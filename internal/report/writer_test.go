package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/factlens/factlens/internal/artifact"
	"github.com/factlens/factlens/internal/model"
)

// createTestResult creates a result with sample data for testing.
func createTestResult() *Result {
	return &Result{
		URL:         "https://example.com/flood",
		Title:       "Flood Waters Rise in Coastal Towns",
		GeneratedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Verdict:     model.NewVerdict("Likely REAL. The classifier and fact-check evidence agree."),
		Credibility: &model.CredibilityReport{
			Domain:       "example.com",
			HTTPS:        true,
			OverallScore: 0.4,
			Signals:      []string{"served over HTTPS"},
		},
		FactCheck: &model.WikiStatistics{
			TotalClaims:      3,
			Supported:        2,
			Neutral:          1,
			ReliabilityScore: 0.67,
		},
		Classification: &model.FakeNewsAnalysis{
			Prediction: model.LabelReal,
			Confidence: 0.92,
		},
	}
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and verdict", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "NEWS VALIDITY REPORT") {
			t.Error("expected output to contain header")
		}
		if !strings.Contains(output, "https://example.com/flood") {
			t.Error("expected output to contain subject URL")
		}
		if !strings.Contains(output, "Likely REAL") {
			t.Error("expected output to contain verdict summary")
		}
	})

	t.Run("writes evidence summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "3 claims, 2 supported") {
			t.Error("expected output to contain fact-check summary")
		}
		if !strings.Contains(output, "REAL (confidence 0.92)") {
			t.Error("expected output to contain classifier summary")
		}
		// The domain label is title-cased for display.
		if !strings.Contains(output, "Example (example.com)") {
			t.Error("expected output to contain title-cased source name")
		}
	})

	t.Run("verbose includes credibility signals", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))

		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "served over HTTPS") {
			t.Error("expected verbose output to contain credibility signals")
		}
	})

	t.Run("renders aggregation error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		result := &Result{
			URL:     "https://example.com/x",
			Verdict: model.NewVerdictError("completion failed after retries"),
		}

		if _, err := w.Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Aggregation failed: completion failed after retries") {
			t.Error("expected output to contain aggregation error")
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded Result
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.URL != "https://example.com/flood" {
			t.Errorf("URL = %q", decoded.URL)
		}
		if decoded.Verdict.Summary == "" {
			t.Error("verdict summary lost in round trip")
		}
	})

	t.Run("pretty print indents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())

		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"url\"") {
			t.Error("expected indented output")
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewMarkdownWriter(&buf)

	if _, err := w.Write(createTestResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"# News Validity Report",
		"## Verdict",
		"## Evidence",
		"Wikipedia Fact Check",
		"`example.com`",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected markdown output to contain %q", want)
		}
	}
}

// TestCollect tests result assembly from the artifact store.
func TestCollect(t *testing.T) {
	t.Parallel()

	const subject = "https://example.com/flood"

	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Write(artifact.Verdict, subject, model.NewVerdict("Likely REAL.")); err != nil {
		t.Fatal(err)
	}
	if err := store.Write(artifact.Scrape, subject, &model.ScrapeRecord{
		Success:     true,
		URL:         subject,
		Title:       "Flood Waters Rise",
		Credibility: &model.CredibilityReport{Domain: "example.com", OverallScore: 0.4},
	}); err != nil {
		t.Fatal(err)
	}

	result, err := Collect(store, subject)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if result.Verdict.Summary != "Likely REAL." {
		t.Errorf("Summary = %q", result.Verdict.Summary)
	}
	if result.Title != "Flood Waters Rise" {
		t.Errorf("Title = %q", result.Title)
	}
	if result.Credibility == nil || result.Credibility.Domain != "example.com" {
		t.Errorf("Credibility = %+v", result.Credibility)
	}
	// Artifacts that were never produced are simply absent.
	if result.FactCheck != nil || result.Classification != nil {
		t.Error("expected absent evidence to stay nil")
	}

	t.Run("missing verdict fails", func(t *testing.T) {
		t.Parallel()
		if _, err := Collect(store, "https://example.com/other"); err == nil {
			t.Error("Collect() error = nil, want missing-subject failure")
		}
	})
}

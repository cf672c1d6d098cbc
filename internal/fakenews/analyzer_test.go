package fakenews

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/factlens/factlens/internal/artifact"
	"github.com/factlens/factlens/internal/config"
	"github.com/factlens/factlens/internal/model"
)

func newTestStore(t *testing.T) *artifact.Store {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// fakeClassifier serves inference responses with the given class scores.
func fakeClassifier(t *testing.T, fake, real float64) *Classifier {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, `[[{"label":"LABEL_0","score":%f},{"label":"LABEL_1","score":%f}]]`, fake, real)
	}))
	t.Cleanup(server.Close)

	t.Setenv(config.EnvClassifierToken, "test-token")
	classifier, err := NewClassifier(5*time.Second, WithClassifierEndpoint(server.URL))
	if err != nil {
		t.Fatal(err)
	}
	return classifier
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "removes URLs",
			text: "Read more at https://example.com/story now",
			want: "Read more at now",
		},
		{
			name: "strips symbols keeps sentence marks",
			text: "Breaking: floods hit <b>three</b> towns!",
			want: "Breaking floods hit bthreeb towns!",
		},
		{
			name: "collapses whitespace",
			text: "one\n\ntwo\t three",
			want: "one two three",
		},
		{
			name: "empty input",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CleanText(tt.text); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestNewClassifierMissingToken(t *testing.T) {
	t.Setenv(config.EnvClassifierToken, "")

	if _, err := NewClassifier(time.Second); err != ErrMissingToken {
		t.Errorf("NewClassifier() error = %v, want ErrMissingToken", err)
	}
}

func TestAnalyzerRun(t *testing.T) {
	const subject = "https://example.com/story"
	classifier := fakeClassifier(t, 0.9, 0.1)

	store := newTestStore(t)
	if err := store.Write(artifact.Scrape, subject, &model.ScrapeRecord{
		Success: true,
		URL:     subject,
		Title:   "Aliens Land in Trafalgar Square",
		Text:    "Witnesses report a large silver craft descending over central London last night.",
	}); err != nil {
		t.Fatal(err)
	}

	analyzer := NewAnalyzer(store, classifier)
	if err := analyzer.Run(context.Background(), subject); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var record model.FakeNewsRecord
	if err := store.ReadRecord(artifact.FakeNews, subject, &record); err != nil {
		t.Fatal(err)
	}

	if record.Error != "" {
		t.Fatalf("Error = %q", record.Error)
	}
	if record.Analysis == nil {
		t.Fatal("Analysis is nil")
	}
	if record.Analysis.Prediction != model.LabelFake {
		t.Errorf("Prediction = %q, want FAKE", record.Analysis.Prediction)
	}
	if record.Analysis.Confidence != 0.9 {
		t.Errorf("Confidence = %f, want 0.9", record.Analysis.Confidence)
	}
	if record.Analysis.Probabilities == nil || record.Analysis.Probabilities.Real != 0.1 {
		t.Errorf("Probabilities = %+v", record.Analysis.Probabilities)
	}

	// Title is prepended to the classified text.
	if record.SourceData == nil {
		t.Fatal("SourceData is nil")
	}
	if got := record.SourceData.TextPreview; len(got) == 0 || got[:6] != "Aliens" {
		t.Errorf("TextPreview = %q, want title first", got)
	}
}

func TestAnalyzerRunNoText(t *testing.T) {
	const subject = "https://example.com/empty"
	classifier := fakeClassifier(t, 0.5, 0.5)

	store := newTestStore(t)
	if err := store.Write(artifact.Scrape, subject, &model.ScrapeRecord{
		Success: true,
		URL:     subject,
	}); err != nil {
		t.Fatal(err)
	}

	analyzer := NewAnalyzer(store, classifier)
	if err := analyzer.Run(context.Background(), subject); err != nil {
		t.Fatalf("Run() error = %v, want nil for subject-level failure", err)
	}

	var record model.FakeNewsRecord
	if err := store.ReadRecord(artifact.FakeNews, subject, &record); err != nil {
		t.Fatal(err)
	}
	if record.Error != "No text content found" {
		t.Errorf("Error = %q", record.Error)
	}
	if record.Analysis != nil {
		t.Errorf("Analysis = %+v, want nil", record.Analysis)
	}
}

func TestAnalyzerRunClassifierFailure(t *testing.T) {
	const subject = "https://example.com/story"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	t.Setenv(config.EnvClassifierToken, "test-token")
	classifier, err := NewClassifier(5*time.Second, WithClassifierEndpoint(server.URL))
	if err != nil {
		t.Fatal(err)
	}

	store := newTestStore(t)
	if err := store.Write(artifact.Scrape, subject, &model.ScrapeRecord{
		Success: true,
		URL:     subject,
		Text:    "Some article text long enough to classify without trouble.",
	}); err != nil {
		t.Fatal(err)
	}

	// The call failed but the stage still records the outcome: the
	// failure lives inside the analysis, not as a stage error.
	analyzer := NewAnalyzer(store, classifier)
	if err := analyzer.Run(context.Background(), subject); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var record model.FakeNewsRecord
	if err := store.ReadRecord(artifact.FakeNews, subject, &record); err != nil {
		t.Fatal(err)
	}
	if record.Analysis == nil || record.Analysis.Error == "" {
		t.Errorf("Analysis = %+v, want embedded error", record.Analysis)
	}
}

func TestAnalyzerRunMissingArtifact(t *testing.T) {
	classifier := fakeClassifier(t, 0.5, 0.5)
	analyzer := NewAnalyzer(newTestStore(t), classifier)

	if err := analyzer.Run(context.Background(), "https://example.com/x"); err == nil {
		t.Fatal("Run() error = nil, want missing-artifact failure")
	}
}

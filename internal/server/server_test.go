package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/factlens/factlens/internal/artifact"
	"github.com/factlens/factlens/internal/model"
	"github.com/factlens/factlens/internal/pipeline"
)

// newTestServer creates a Server with a fresh store and the given
// pipeline function, returning both.
func newTestServer(t *testing.T, run PipelineFunc, opts ...Option) (*Server, *artifact.Store) {
	t.Helper()

	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return New(":0", store, run, opts...), store
}

func postAnalyze(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServerAnalyze(t *testing.T) {
	t.Parallel()

	run := func(_ context.Context, subject string) (*pipeline.PipelineRun, error) {
		return pipeline.NewPipelineRun(subject), nil
	}
	srv, store := newTestServer(t, run)

	const subject = "https://example.com/news"
	if err := store.Replace(artifact.Verdict, map[string]model.VerdictRecord{
		subject: model.NewVerdict("Likely REAL."),
	}); err != nil {
		t.Fatalf("failed to seed verdict: %v", err)
	}

	rec := postAnalyze(t, srv.Handler(), `{"url": "https://example.com/news"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp analyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.URL != subject {
		t.Errorf("url = %q, want %q", resp.URL, subject)
	}
	if resp.Status != "success" {
		t.Errorf("status = %q, want success", resp.Status)
	}
	if resp.Result.Summary != "Likely REAL." {
		t.Errorf("summary = %q, want %q", resp.Result.Summary, "Likely REAL.")
	}
}

func TestServerAnalyzeRejectsBadRequests(t *testing.T) {
	t.Parallel()

	run := func(_ context.Context, subject string) (*pipeline.PipelineRun, error) {
		t.Error("pipeline should not run for a rejected request")
		return pipeline.NewPipelineRun(subject), nil
	}
	srv, _ := newTestServer(t, run)

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{`},
		{name: "missing url", body: `{}`},
		{name: "non-http url", body: `{"url": "ftp://example.com"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := postAnalyze(t, srv.Handler(), tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestServerAnalyzeTimeout(t *testing.T) {
	t.Parallel()

	run := func(ctx context.Context, _ string) (*pipeline.PipelineRun, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	srv, _ := newTestServer(t, run, WithRequestTimeout(20*time.Millisecond))

	rec := postAnalyze(t, srv.Handler(), `{"url": "https://example.com/slow"}`)
	if rec.Code != http.StatusRequestTimeout {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusRequestTimeout)
	}
}

func TestServerAnalyzeStageFailure(t *testing.T) {
	t.Parallel()

	run := func(_ context.Context, _ string) (*pipeline.PipelineRun, error) {
		return nil, &pipeline.StageError{
			Stage:  pipeline.StageScrape,
			Result: pipeline.StageResult{ExitCode: 1, Stderr: "connection refused"},
			Err:    errors.New("exit status 1"),
		}
	}
	srv, _ := newTestServer(t, run)

	rec := postAnalyze(t, srv.Handler(), `{"url": "https://example.com/down"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.Contains(resp["error"], "connection refused") {
		t.Errorf("error = %q, want stage diagnostics included", resp["error"])
	}
}

func TestServerAnalyzeTruncatesDiagnostics(t *testing.T) {
	t.Parallel()

	run := func(_ context.Context, _ string) (*pipeline.PipelineRun, error) {
		return nil, &pipeline.StageError{
			Stage:  pipeline.StageScrape,
			Result: pipeline.StageResult{ExitCode: 1, Stderr: strings.Repeat("x", 8192)},
			Err:    errors.New("exit status 1"),
		}
	}
	srv, _ := newTestServer(t, run)

	rec := postAnalyze(t, srv.Handler(), `{"url": "https://example.com/noisy"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp["error"]) > maxDiagnosticBytes {
		t.Errorf("error length = %d, want at most %d", len(resp["error"]), maxDiagnosticBytes)
	}
}

func TestServerAnalyzeMissingVerdict(t *testing.T) {
	t.Parallel()

	run := func(_ context.Context, subject string) (*pipeline.PipelineRun, error) {
		return pipeline.NewPipelineRun(subject), nil
	}
	srv, _ := newTestServer(t, run)

	rec := postAnalyze(t, srv.Handler(), `{"url": "https://example.com/vanished"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestServerIndexAndHealth(t *testing.T) {
	t.Parallel()

	run := func(_ context.Context, subject string) (*pipeline.PipelineRun, error) {
		return pipeline.NewPipelineRun(subject), nil
	}
	srv, _ := newTestServer(t, run)
	handler := srv.Handler()

	t.Run("index", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if !strings.Contains(rec.Body.String(), "factlens") {
			t.Errorf("body = %q, want service banner", rec.Body.String())
		}
	})

	t.Run("health", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["status"] != "healthy" {
			t.Errorf("status = %q, want healthy", resp["status"])
		}
	})
}

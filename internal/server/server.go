package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/factlens/factlens/internal/artifact"
	"github.com/factlens/factlens/internal/config"
	"github.com/factlens/factlens/internal/model"
	"github.com/factlens/factlens/internal/pipeline"
)

// maxDiagnosticBytes caps the stage diagnostics echoed in a 500
// response. Stage output can be large; clients only need the head.
const maxDiagnosticBytes = 2000

// shutdownTimeout bounds graceful shutdown once the serve context is
// canceled.
const shutdownTimeout = 10 * time.Second

// PipelineFunc runs one pipeline invocation for a subject.
type PipelineFunc func(ctx context.Context, subject string) (*pipeline.PipelineRun, error)

// Server is the HTTP API over the analysis pipeline.
type Server struct {
	addr           string
	store          *artifact.Store
	run            PipelineFunc
	requestTimeout time.Duration
	logger         *slog.Logger

	// runMu serializes pipeline invocations: the artifact store supports
	// one active run at a time.
	runMu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithRequestTimeout bounds each pipeline invocation triggered over
// HTTP. Expiry maps to 408.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.requestTimeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Server listening on addr, running pipelines through run
// and reading verdicts from store.
func New(addr string, store *artifact.Store, run PipelineFunc, opts ...Option) *Server {
	s := &Server{
		addr:           addr,
		store:          store,
		run:            run,
		requestTimeout: config.DefaultRequestTimeout,
		logger:         slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler returns the HTTP handler for the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	return mux
}

// ListenAndServe serves the API until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// analyzeRequest is the POST /analyze request body.
type analyzeRequest struct {
	URL string `json:"url"`
}

// analyzeResponse is the POST /analyze success body.
type analyzeResponse struct {
	URL    string              `json:"url"`
	Result model.VerdictRecord `json:"result"`
	Status string              `json:"status"`
}

// handleAnalyze runs the pipeline for the requested URL and returns its
// verdict.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !strings.HasPrefix(req.URL, "http") {
		s.writeError(w, http.StatusBadRequest, "url must begin with http")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	s.runMu.Lock()
	run, err := s.run(ctx, req.URL)
	s.runMu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			s.logger.Warn("analysis timed out", "url", req.URL)
			s.writeError(w, http.StatusRequestTimeout, "analysis timed out")
			return
		}

		message := err.Error()
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			if diag := stageErr.Diagnostics(); diag != "" {
				message = fmt.Sprintf("%s: %s", message, diag)
			}
		}
		if len(message) > maxDiagnosticBytes {
			message = message[:maxDiagnosticBytes]
		}

		s.logger.Error("analysis failed", "url", req.URL, "error", err)
		s.writeError(w, http.StatusInternalServerError, message)
		return
	}

	var verdict model.VerdictRecord
	if err := s.store.ReadRecord(artifact.Verdict, req.URL, &verdict); err != nil {
		s.logger.Error("verdict missing after run", "url", req.URL, "state", run.State.String(), "error", err)
		s.writeError(w, http.StatusInternalServerError, "verdict unavailable")
		return
	}

	s.writeJSON(w, http.StatusOK, analyzeResponse{
		URL:    req.URL,
		Result: verdict,
		Status: "success",
	})
}

// handleIndex serves the service banner.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"service": "factlens",
		"usage":   "POST /analyze {\"url\": \"https://...\"}",
	})
}

// handleHealth serves the liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// writeJSON writes a JSON response body.
func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

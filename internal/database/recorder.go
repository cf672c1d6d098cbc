package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/factlens/factlens/internal/artifact"
	"github.com/factlens/factlens/internal/model"
	"github.com/factlens/factlens/internal/pipeline"
)

// insertTimeout bounds the history write after a run finishes.
const insertTimeout = 5 * time.Second

// Recorder is a pipeline observer that persists each finished run into
// the history database. Recording is best-effort: failures are logged
// and never propagate into the run.
//
// The scheduler drives one run at a time and calls observers from its
// control flow, so the recorder needs no locking.
type Recorder struct {
	db     *RunDB
	store  *artifact.Store
	logger *slog.Logger

	events  []StageEvent
	lastErr string
}

// NewRecorder creates a Recorder writing into db. The artifact store is
// consulted for the verdict summary when a run completes.
func NewRecorder(db *RunDB, store *artifact.Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{
		db:     db,
		store:  store,
		logger: logger,
	}
}

// StageFinished buffers the stage outcome for the current run.
func (r *Recorder) StageFinished(run *pipeline.PipelineRun, stage string, result pipeline.StageResult, err error) {
	event := StageEvent{
		Stage:    stage,
		Status:   pipeline.StageSucceeded.String(),
		Duration: result.Duration,
	}
	if err != nil {
		event.Status = pipeline.StageFailed.String()
		event.Error = err.Error()
		r.lastErr = err.Error()
	}
	r.events = append(r.events, event)
}

// StateChanged persists the run when it reaches a terminal state.
func (r *Recorder) StateChanged(run *pipeline.PipelineRun, state pipeline.RunState) {
	if state != pipeline.StateDone && state != pipeline.StateAborted {
		return
	}

	record := NewRunRecord(run, r.lastErr, r.summary(run), r.events)
	r.events = nil
	r.lastErr = ""

	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	if _, err := r.db.InsertRun(ctx, record); err != nil {
		r.logger.Warn("failed to record run history", "subject", run.Subject, "error", err)
	}
}

// summary reads the verdict text for a completed run, empty when the
// run aborted before a verdict existed.
func (r *Recorder) summary(run *pipeline.PipelineRun) string {
	if run.State != pipeline.StateDone {
		return ""
	}

	var verdict model.VerdictRecord
	if err := r.store.ReadRecord(artifact.Verdict, run.Subject, &verdict); err != nil {
		r.logger.Warn("verdict unavailable for history", "subject", run.Subject, "error", err)
		return ""
	}
	return verdict.Text()
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/factlens/factlens/internal/artifact"
	"github.com/factlens/factlens/internal/config"
)

// Runner executes stages as isolated subprocesses and judges their
// success. It is graph-agnostic: it knows nothing about stage ordering,
// only about the "produced expected artifact or failed" contract.
type Runner struct {
	// store is consulted after each stage exits to verify the declared
	// output artifact was produced.
	store *artifact.Store

	// outputLimit bounds the captured stdout/stderr per stream.
	outputLimit int

	// logger for structured logging.
	logger *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets a custom logger for the runner.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithOutputLimit sets the maximum bytes captured per output stream.
func WithOutputLimit(limit int) RunnerOption {
	return func(r *Runner) {
		if limit > 0 {
			r.outputLimit = limit
		}
	}
}

// NewRunner creates a Runner that verifies produced artifacts against
// the given store.
func NewRunner(store *artifact.Store, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:       store,
		outputLimit: config.DefaultStageOutputLimit,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// Run executes a stage in the foreground, blocking until the process
// exits. A stage succeeds iff its process exits with status 0 and its
// declared output artifact exists afterward; everything else returns a
// *StageError carrying the captured diagnostics.
func (r *Runner) Run(ctx context.Context, stage Stage, subject string) (StageResult, error) {
	result := r.execute(ctx, stage, subject)
	return result, r.judge(stage, result)
}

// Start executes a background stage, returning a handle immediately.
// The caller continues other work and later blocks on Handle.Join.
func (r *Runner) Start(ctx context.Context, stage Stage, subject string) *Handle {
	h := &Handle{
		stage: stage,
		done:  make(chan struct{}),
	}

	go func() {
		result := r.execute(ctx, stage, subject)
		h.result = result
		h.err = r.judge(stage, result)
		close(h.done)
	}()

	return h
}

// execute invokes the stage process and captures its outcome.
func (r *Runner) execute(ctx context.Context, stage Stage, subject string) StageResult {
	args := stage.Args
	if stage.NeedsSubject {
		args = append(append([]string{}, args...), "--url", subject)
	}

	r.logger.Info("starting stage",
		"stage", stage.Name,
		"subject", subject,
		"background", stage.Background,
	)

	var stdout, stderr boundedBuffer
	stdout.limit = r.outputLimit
	stderr.limit = r.outputLimit

	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // Stage argv is static configuration
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := StageResult{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		r.logger.Debug("stage process exited with error",
			"stage", stage.Name,
			"exitCode", result.ExitCode,
			"error", err,
		)
	}

	return result
}

// judge applies the success contract to a finished stage.
func (r *Runner) judge(stage Stage, result StageResult) error {
	if result.ExitCode != 0 {
		return &StageError{
			Stage:  stage.Name,
			Result: result,
			Err:    fmt.Errorf("exit status %d", result.ExitCode),
		}
	}

	if !r.store.Exists(stage.Output) {
		return &StageError{
			Stage:  stage.Name,
			Result: result,
			Err:    fmt.Errorf("%w: %s", ErrMissingArtifact, stage.Output),
		}
	}

	r.logger.Debug("stage completed",
		"stage", stage.Name,
		"duration", result.Duration,
	)
	return nil
}

// Handle represents a stage running in the background.
type Handle struct {
	stage Stage

	// done is closed once the stage goroutine has stored result and err.
	done   chan struct{}
	result StageResult
	err    error
}

// Stage returns the stage this handle tracks.
func (h *Handle) Stage() Stage {
	return h.stage
}

// Join blocks until the background stage completes and returns its
// result and judgment. A zero timeout waits indefinitely, which is the
// documented default: an unresponsive background stage stalls the
// pipeline at the join barrier. A positive timeout returns
// ErrJoinTimeout when exceeded; the process is left running and
// orphaned, a hazard the caller accepts by aborting.
func (h *Handle) Join(timeout time.Duration) (StageResult, error) {
	if timeout <= 0 {
		<-h.done
		return h.result, h.err
	}

	select {
	case <-h.done:
		return h.result, h.err
	case <-time.After(timeout):
		return StageResult{ExitCode: -1}, &StageError{
			Stage: h.stage.Name,
			Err:   fmt.Errorf("%w after %s", ErrJoinTimeout, timeout),
		}
	}
}

// boundedBuffer is an io.Writer that keeps at most limit bytes,
// discarding the oldest content first. Failing stages explain themselves
// at the end of their output, so the tail is the part worth keeping.
type boundedBuffer struct {
	limit     int
	buf       []byte
	truncated bool
}

// Write implements io.Writer. It never returns an error.
func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if b.limit > 0 && len(b.buf) > b.limit {
		b.buf = b.buf[len(b.buf)-b.limit:]
		b.truncated = true
	}
	return len(p), nil
}

// String returns the captured output, prefixed with a marker when the
// head was discarded.
func (b *boundedBuffer) String() string {
	if b.truncated {
		return "...[truncated]...\n" + string(b.buf)
	}
	return string(b.buf)
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/factlens/factlens/internal/artifact"
)

// RunState is the scheduler's state machine position for one run.
type RunState int

// Scheduler states. A run advances through them in order; ABORTED is the
// terminal failure state reachable from any of the others.
const (
	// StateInit validates the subject before any stage runs.
	StateInit RunState = iota

	// StateScraping runs the scrape stage in the foreground.
	StateScraping

	// StateFanout launches the background image evaluation and runs the
	// two foreground analyses.
	StateFanout

	// StateJoining blocks at the barrier for the background stage.
	StateJoining

	// StateAggregating runs the aggregation stage once all three
	// analysis artifacts are present.
	StateAggregating

	// StateDone means the verdict artifact exists and the run is over.
	StateDone

	// StateAborted is the terminal failure state.
	StateAborted
)

// String returns a human-readable state name.
func (s RunState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateScraping:
		return "SCRAPING"
	case StateFanout:
		return "FANOUT"
	case StateJoining:
		return "JOINING"
	case StateAggregating:
		return "AGGREGATING"
	case StateDone:
		return "DONE"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// StageStatus tracks one stage's progress within a run.
type StageStatus int

// Stage statuses.
const (
	StagePending StageStatus = iota
	StageRunning
	StageSucceeded
	StageFailed
)

// String returns a human-readable status name.
func (s StageStatus) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageRunning:
		return "running"
	case StageSucceeded:
		return "succeeded"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PipelineRun tracks one invocation of the pipeline for one subject.
// It exists only for the duration of the invocation and is discarded
// once the verdict artifact is produced or the run aborts; artifacts
// outlive it.
type PipelineRun struct {
	// Subject is the URL under analysis.
	Subject string

	// StartedAt is when the run was created.
	StartedAt time.Time

	// State is the scheduler's current position.
	State RunState

	// StageStatuses maps stage name to its progress.
	StageStatuses map[string]StageStatus

	// FailedStage names the stage that aborted the run, if any.
	FailedStage string
}

// NewPipelineRun creates a run in the INIT state with all stages pending.
func NewPipelineRun(subject string) *PipelineRun {
	return &PipelineRun{
		Subject:   subject,
		StartedAt: time.Now(),
		State:     StateInit,
		StageStatuses: map[string]StageStatus{
			StageScrape:    StagePending,
			StageWikiCheck: StagePending,
			StageFakeNews:  StagePending,
			StageImageEval: StagePending,
			StageAggregate: StagePending,
		},
	}
}

// Observer receives run progress notifications. Implementations must not
// block; they are called from the scheduler's control flow.
type Observer interface {
	// StateChanged is called after each state transition.
	StateChanged(run *PipelineRun, state RunState)

	// StageFinished is called when a stage completes, successfully or
	// not. result may be the zero value when the stage never ran.
	StageFinished(run *PipelineRun, stage string, result StageResult, err error)
}

// Scheduler holds the fixed dependency graph of stages and drives one
// run at a time through the state machine. It is the only component
// aware of the graph.
//
// The design assumes at most one active run per artifact store;
// concurrent runs over the same store would race on shared artifact
// files.
type Scheduler struct {
	stages      Stages
	runner      *Runner
	store       *artifact.Store
	joinTimeout time.Duration
	observers   []Observer
	logger      *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets a custom logger for the scheduler.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithJoinTimeout bounds the wait at the join barrier. Zero (the
// default) waits indefinitely.
func WithJoinTimeout(timeout time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.joinTimeout = timeout
	}
}

// WithObserver registers a progress observer. May be used repeatedly.
func WithObserver(obs Observer) SchedulerOption {
	return func(s *Scheduler) {
		s.observers = append(s.observers, obs)
	}
}

// NewScheduler creates a Scheduler over the given stage table.
func NewScheduler(stages Stages, runner *Runner, store *artifact.Store, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		stages: stages,
		runner: runner,
		store:  store,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// ValidateSubject checks that subject is an absolute http or https URL.
func ValidateSubject(subject string) error {
	u, err := url.Parse(subject)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSubject, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSubject, subject)
	}
	return nil
}

// Run drives one pipeline invocation for the subject. It returns the
// finished PipelineRun together with the aborting error, if any. The
// error is a *StageError for stage failures and ErrInvalidSubject for
// rejected input.
func (s *Scheduler) Run(ctx context.Context, subject string) (*PipelineRun, error) {
	run := NewPipelineRun(subject)

	// INIT: reject invalid subjects before any stage is invoked.
	if err := ValidateSubject(subject); err != nil {
		s.transition(run, StateAborted)
		return run, err
	}

	// SCRAPING: everything downstream declares the scrape artifacts as
	// required inputs, so a scrape failure ends the run here.
	s.transition(run, StateScraping)
	if err := s.runForeground(ctx, run, s.stages.Scrape); err != nil {
		return run, s.abort(run, s.stages.Scrape.Name, err)
	}

	// The scrape stage must leave both of its documents behind: the
	// per-subject content and the accumulated image list. A clean exit
	// without them is still a failure.
	if !s.store.Exists(artifact.Images) {
		err := &StageError{
			Stage: s.stages.Scrape.Name,
			Err:   fmt.Errorf("%w: %s", ErrMissingArtifact, artifact.Images),
		}
		s.observeStage(run, s.stages.Scrape.Name, StageResult{}, err)
		return run, s.abort(run, s.stages.Scrape.Name, err)
	}

	// FANOUT: image evaluation performs one reverse-image-search call
	// per image and dominates the run's wall-clock time. Launching it
	// first hides its latency behind the two foreground analyses.
	s.transition(run, StateFanout)
	run.StageStatuses[s.stages.ImageEval.Name] = StageRunning
	handle := s.runner.Start(ctx, s.stages.ImageEval, subject)

	// Wikicheck runs before fakenews: its page cache is the more likely
	// to be reused across subjects. The order is fixed and observable
	// through artifact write times.
	if err := s.runForeground(ctx, run, s.stages.WikiCheck); err != nil {
		return run, s.abort(run, s.stages.WikiCheck.Name, err)
	}
	if err := s.runForeground(ctx, run, s.stages.FakeNews); err != nil {
		return run, s.abort(run, s.stages.FakeNews.Name, err)
	}

	// JOINING: the aggregate stage requires the image evaluation
	// artifact, so the run blocks here until the background stage is
	// done (or the optional join timeout expires).
	s.transition(run, StateJoining)
	result, err := handle.Join(s.joinTimeout)
	s.observeStage(run, s.stages.ImageEval.Name, result, err)
	if err != nil {
		run.StageStatuses[s.stages.ImageEval.Name] = StageFailed
		return run, s.abort(run, s.stages.ImageEval.Name, err)
	}
	run.StageStatuses[s.stages.ImageEval.Name] = StageSucceeded

	// AGGREGATING: all three analysis artifacts confirmed present.
	s.transition(run, StateAggregating)
	for _, id := range s.stages.Aggregate.Inputs {
		if !s.store.Exists(id) {
			err := &StageError{
				Stage: s.stages.Aggregate.Name,
				Err:   fmt.Errorf("required input %s missing", id),
			}
			return run, s.abort(run, s.stages.Aggregate.Name, err)
		}
	}
	if err := s.runForeground(ctx, run, s.stages.Aggregate); err != nil {
		return run, s.abort(run, s.stages.Aggregate.Name, err)
	}

	s.transition(run, StateDone)
	return run, nil
}

// runForeground executes one foreground stage with status bookkeeping.
func (s *Scheduler) runForeground(ctx context.Context, run *PipelineRun, stage Stage) error {
	run.StageStatuses[stage.Name] = StageRunning

	result, err := s.runner.Run(ctx, stage, run.Subject)
	s.observeStage(run, stage.Name, result, err)

	if err != nil {
		run.StageStatuses[stage.Name] = StageFailed
		return err
	}
	run.StageStatuses[stage.Name] = StageSucceeded
	return nil
}

// abort moves the run to the terminal failure state. The background
// stage, if still running, is left orphaned; there is no cancellation
// mechanism for a stage already underway.
func (s *Scheduler) abort(run *PipelineRun, stage string, err error) error {
	run.FailedStage = stage
	s.transition(run, StateAborted)
	s.logger.Error("pipeline run aborted",
		"subject", run.Subject,
		"stage", stage,
		"error", err,
	)
	return err
}

// transition advances the state machine and notifies observers.
func (s *Scheduler) transition(run *PipelineRun, state RunState) {
	run.State = state
	s.logger.Info("pipeline state",
		"subject", run.Subject,
		"state", state.String(),
	)
	for _, obs := range s.observers {
		obs.StateChanged(run, state)
	}
}

// observeStage notifies observers of a finished stage.
func (s *Scheduler) observeStage(run *PipelineRun, stage string, result StageResult, err error) {
	for _, obs := range s.observers {
		obs.StageFinished(run, stage, result, err)
	}
}

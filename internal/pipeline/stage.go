package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/factlens/factlens/internal/artifact"
)

// Stage names. These are also the subcommand names under "factlens stage".
const (
	StageScrape    = "scrape"
	StageWikiCheck = "wikicheck"
	StageFakeNews  = "fakenews"
	StageImageEval = "imageeval"
	StageAggregate = "aggregate"
)

// Stage describes one unit of pipeline work: the external command to
// invoke, the artifacts it declares as required inputs, and the single
// artifact it produces. Stages are immutable configuration, defined once
// at process start.
type Stage struct {
	// Name identifies the stage in logs, status tracking, and errors.
	Name string

	// Args is the argv of the external command, Args[0] being the
	// executable.
	Args []string

	// Inputs are the artifacts that must exist before the stage runs.
	Inputs []artifact.ID

	// Output is the artifact the stage must produce. A clean exit
	// without this artifact present is judged a failure.
	Output artifact.ID

	// Background selects deferred execution: the caller receives a
	// handle immediately and joins later instead of blocking.
	Background bool

	// NeedsSubject appends the subject URL to Args at invocation time.
	// Only the scrape stage operates on a single subject; the other
	// stages batch over every subject already present in their inputs.
	NeedsSubject bool
}

// Stages is the fixed stage table for the news analysis graph.
//
// Design decision: An explicit struct rather than a map or registry so
// the graph shape is visible at the type level and cannot be mutated at
// runtime.
type Stages struct {
	Scrape    Stage
	WikiCheck Stage
	FakeNews  Stage
	ImageEval Stage
	Aggregate Stage
}

// NewStages builds the stage table. Each stage invokes the command given
// by argv prefix cmd (typically the current executable followed by
// "stage") with the stage name and store directory appended.
func NewStages(cmd []string, storeDir string) Stages {
	build := func(name string) []string {
		args := make([]string, 0, len(cmd)+3)
		args = append(args, cmd...)
		args = append(args, name, "--store-dir", storeDir)
		return args
	}

	return Stages{
		Scrape: Stage{
			Name:         StageScrape,
			Args:         build(StageScrape),
			Output:       artifact.Scrape,
			NeedsSubject: true,
		},
		WikiCheck: Stage{
			Name:   StageWikiCheck,
			Args:   build(StageWikiCheck),
			Inputs: []artifact.ID{artifact.Scrape},
			Output: artifact.Wiki,
		},
		FakeNews: Stage{
			Name:   StageFakeNews,
			Args:   build(StageFakeNews),
			Inputs: []artifact.ID{artifact.Scrape},
			Output: artifact.FakeNews,
		},
		ImageEval: Stage{
			Name:       StageImageEval,
			Args:       build(StageImageEval),
			Inputs:     []artifact.ID{artifact.Images},
			Output:     artifact.ImageEval,
			Background: true,
		},
		Aggregate: Stage{
			Name:   StageAggregate,
			Args:   build(StageAggregate),
			Inputs: []artifact.ID{artifact.Scrape, artifact.Wiki, artifact.FakeNews, artifact.ImageEval},
			Output: artifact.Verdict,
		},
	}
}

// StageResult captures the observable outcome of one stage process.
// It is ephemeral, owned by the Runner that produced it, and never
// persisted as an artifact.
type StageResult struct {
	// ExitCode is the process exit status. -1 when the process did not
	// run or was killed by a signal.
	ExitCode int

	// Stdout is the captured standard output, tail-truncated to the
	// runner's output limit.
	Stdout string

	// Stderr is the captured standard error, tail-truncated likewise.
	Stderr string

	// Duration is the wall-clock time from start to exit.
	Duration time.Duration
}

// StageError reports a stage-level failure together with the captured
// diagnostic output. Stage failures are run-level (fatal): the scheduler
// aborts the whole run on the first one.
type StageError struct {
	// Stage is the name of the failed stage.
	Stage string

	// Result is the process outcome, when the process ran at all.
	Result StageResult

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Diagnostics returns the captured stage output for display to the user.
// Stderr comes first since that is where failing stages explain
// themselves.
func (e *StageError) Diagnostics() string {
	var sb strings.Builder
	if s := strings.TrimSpace(e.Result.Stderr); s != "" {
		sb.WriteString(s)
	}
	if s := strings.TrimSpace(e.Result.Stdout); s != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(s)
	}
	return sb.String()
}

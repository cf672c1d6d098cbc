package imageeval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/factlens/factlens/internal/artifact"
	"github.com/factlens/factlens/internal/model"
)

// Tool names recorded in each evaluation.
const (
	toolReverseSearch = "serpapi_search"
	toolExifInspect   = "exif_inspect"
)

// suspiciousSnippetWords flag reverse-search hits that discuss the image
// as fabricated.
var suspiciousSnippetWords = []string{
	"ai-generated", "ai generated", "deepfake", "midjourney",
	"manipulated", "doctored", "hoax",
}

// Evaluator runs the image evaluation stage: every image URL collected
// into the store gets an authenticity assessment.
type Evaluator struct {
	store  *artifact.Store
	search *SearchClient
	exif   *ExifInspector
	logger *slog.Logger
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithEvaluatorLogger sets the logger.
func WithEvaluatorLogger(logger *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEvaluator creates an Evaluator reading from and writing to store.
func NewEvaluator(store *artifact.Store, search *SearchClient, exif *ExifInspector, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		store:  store,
		search: search,
		exif:   exif,
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run evaluates every image in the accumulated image list, one at a
// time. Images are processed sequentially: reverse image search is
// rate-limited and each call is paid. A missing image list is a stage
// failure; per-image problems are recorded in the evaluation entries.
func (e *Evaluator) Run(ctx context.Context) error {
	urls, err := e.store.ReadImageList()
	if err != nil {
		return err
	}

	e.logger.Info("evaluating images", "count", len(urls))

	for _, imageURL := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}

		evaluation := e.evaluate(ctx, imageURL)
		if err := e.append(imageURL, evaluation); err != nil {
			return err
		}
	}

	// An empty image list still produces the artifact so the join
	// barrier sees the stage's output.
	if len(urls) == 0 && !e.store.Exists(artifact.ImageEval) {
		return e.store.Replace(artifact.ImageEval, map[string][]model.ImageEvaluation{})
	}
	return nil
}

// evaluate runs both evidence tools against one image and combines
// their output into an assessment.
func (e *Evaluator) evaluate(ctx context.Context, imageURL string) model.ImageEvaluation {
	evaluation := model.ImageEvaluation{
		ImageURL:    imageURL,
		ToolsCalled: []string{toolReverseSearch, toolExifInspect},
		ToolResults: make(map[string]json.RawMessage, 2),
	}

	results, searchErr := e.search.ReverseSearch(ctx, imageURL)
	evaluation.ToolResults[toolReverseSearch] = toolResult(results, searchErr)

	report, exifErr := e.exif.Inspect(ctx, imageURL)
	evaluation.ToolResults[toolExifInspect] = toolResult(report, exifErr)

	if searchErr != nil && exifErr != nil {
		evaluation.Error = fmt.Sprintf("all evidence tools failed: %v; %v", searchErr, exifErr)
		e.logger.Warn("image evaluation failed", "image", imageURL, "error", evaluation.Error)
		return evaluation
	}

	evaluation.Assessment, evaluation.Evidence = assess(results, searchErr, report, exifErr)
	e.logger.Debug("image evaluated", "image", imageURL, "assessment", evaluation.Assessment)
	return evaluation
}

// append adds the evaluation to the image's entry list, preserving
// entries from earlier runs.
func (e *Evaluator) append(imageURL string, evaluation model.ImageEvaluation) error {
	var existing []model.ImageEvaluation
	err := e.store.ReadRecord(artifact.ImageEval, imageURL, &existing)
	if err != nil && !errors.Is(err, artifact.ErrArtifactNotFound) && !errors.Is(err, artifact.ErrSubjectNotFound) {
		return err
	}
	return e.store.Write(artifact.ImageEval, imageURL, append(existing, evaluation))
}

// assess combines tool evidence into an authenticity score in [0, 1].
// It starts neutral and moves on each signal; the evidence string
// records which signals fired.
func assess(results []SearchResult, searchErr error, report *ExifReport, exifErr error) (float64, string) {
	score := 0.5
	var evidence []string

	switch {
	case searchErr != nil:
		evidence = append(evidence, "reverse image search unavailable")
	case len(results) >= 3:
		score += 0.2
		evidence = append(evidence, fmt.Sprintf("image appears in %d indexed pages", len(results)))
	case len(results) > 0:
		score += 0.1
		evidence = append(evidence, "image appears in a few indexed pages")
	default:
		score -= 0.1
		evidence = append(evidence, "no reverse image search matches")
	}

	if suspicious, word := hasSuspiciousSnippet(results); suspicious {
		score -= 0.3
		evidence = append(evidence, "search snippets mention: "+word)
	}

	switch {
	case exifErr != nil:
		evidence = append(evidence, "EXIF inspection unavailable")
	case report.Edited:
		score -= 0.3
		evidence = append(evidence, "EXIF software tag names an editor: "+report.Software)
	case report.HasExif && report.CameraMake != "":
		score += 0.2
		evidence = append(evidence, "EXIF camera make present: "+report.CameraMake)
	case !report.HasExif:
		score -= 0.1
		evidence = append(evidence, "no EXIF metadata")
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, strings.Join(evidence, "; ")
}

// hasSuspiciousSnippet reports whether any search hit discusses the
// image as fabricated, and which word matched.
func hasSuspiciousSnippet(results []SearchResult) (bool, string) {
	for _, r := range results {
		text := strings.ToLower(r.Title + " " + r.Snippet)
		for _, word := range suspiciousSnippetWords {
			if strings.Contains(text, word) {
				return true, word
			}
		}
	}
	return false, ""
}

// toolResult encodes a tool's output, or its failure, for the record.
func toolResult(value any, err error) json.RawMessage {
	if err != nil {
		encoded, _ := json.Marshal(map[string]string{"error": err.Error()})
		return encoded
	}
	encoded, marshalErr := json.Marshal(value)
	if marshalErr != nil {
		encoded, _ = json.Marshal(map[string]string{"error": marshalErr.Error()})
	}
	return encoded
}

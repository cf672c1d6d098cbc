package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/factlens/factlens/internal/artifact"
	"github.com/factlens/factlens/internal/model"
)

// systemPrompt frames the summarization request.
const systemPrompt = "You are a news validity assessor. You weigh fact-check, text-classification, and image evidence and answer concisely."

// Aggregator runs the aggregation stage: one verdict per scraped
// subject, synthesized from the analysis artifacts.
type Aggregator struct {
	store  *artifact.Store
	llm    *LLMClient
	logger *slog.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithAggregatorLogger sets the logger.
func WithAggregatorLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAggregator creates an Aggregator reading from and writing to store.
func NewAggregator(store *artifact.Store, llm *LLMClient, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		store:  store,
		llm:    llm,
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// evidence is the analysis material gathered for one subject. Missing
// and error entries are left nil so they stay out of the prompt.
type evidence struct {
	wiki     json.RawMessage
	fakeNews json.RawMessage
	images   map[string]json.RawMessage
}

// Run writes one verdict per subject in the scrape artifact. Each
// verdict carries either the model's summary or the aggregation error
// for that subject; a per-subject failure never aborts the others. The
// whole verdict document is rewritten, so re-running with unchanged
// inputs replaces rather than accumulates.
func (a *Aggregator) Run(ctx context.Context) error {
	scrapeDoc, err := a.store.Read(artifact.Scrape)
	if err != nil {
		return err
	}
	wikiDoc, err := a.store.Read(artifact.Wiki)
	if err != nil {
		return err
	}
	fakeDoc, err := a.store.Read(artifact.FakeNews)
	if err != nil {
		return err
	}
	imageDoc, err := a.store.Read(artifact.ImageEval)
	if err != nil {
		return err
	}

	subjects := make([]string, 0, len(scrapeDoc))
	for subject := range scrapeDoc {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	verdicts := make(map[string]model.VerdictRecord, len(subjects))
	for _, subject := range subjects {
		ev := a.collect(subject, scrapeDoc[subject], wikiDoc, fakeDoc, imageDoc)

		summary, err := a.llm.Complete(ctx, systemPrompt, buildPrompt(subject, ev))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Warn("verdict synthesis failed", "url", subject, "error", err)
			verdicts[subject] = model.NewVerdictError(err.Error())
			continue
		}

		a.logger.Info("verdict synthesized", "url", subject)
		verdicts[subject] = model.NewVerdict(summary)
	}

	return a.store.Replace(artifact.Verdict, verdicts)
}

// collect gathers the subject's analysis entries, dropping missing and
// error-only records. Image evaluations are matched through the image
// URLs listed in the subject's scrape record.
func (a *Aggregator) collect(subject string, scrapeRaw json.RawMessage, wikiDoc, fakeDoc, imageDoc map[string]json.RawMessage) evidence {
	var ev evidence

	if raw, ok := wikiDoc[subject]; ok && !isErrorEntry(raw) {
		ev.wiki = raw
	}
	if raw, ok := fakeDoc[subject]; ok && !isErrorEntry(raw) {
		ev.fakeNews = raw
	}

	var scraped model.ScrapeRecord
	if err := json.Unmarshal(scrapeRaw, &scraped); err != nil {
		a.logger.Warn("unreadable scrape record", "url", subject, "error", err)
		return ev
	}
	for _, img := range scraped.Images {
		raw, ok := imageDoc[img.Src]
		if !ok {
			continue
		}

		var evaluations []model.ImageEvaluation
		if err := json.Unmarshal(raw, &evaluations); err != nil {
			continue
		}
		kept := evaluations[:0]
		for _, e := range evaluations {
			if e.Error == "" {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			continue
		}

		encoded, err := json.Marshal(kept)
		if err != nil {
			continue
		}
		if ev.images == nil {
			ev.images = make(map[string]json.RawMessage)
		}
		ev.images[img.Src] = encoded
	}
	return ev
}

// buildPrompt composes the summarization request from whatever evidence
// the subject has. Absent sources are named as unavailable so the model
// does not invent them.
func buildPrompt(subject string, ev evidence) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Here is the information for an article (%s):\n\n", subject)

	fmt.Fprintf(&sb, "1. Fake news analysis: %s\n", sectionOr(ev.fakeNews, "not available"))
	fmt.Fprintf(&sb, "2. Wikipedia fact-check results: %s\n", sectionOr(ev.wiki, "not available"))

	if len(ev.images) == 0 {
		sb.WriteString("3. Image evaluation data: not available\n")
	} else {
		encoded, _ := json.Marshal(ev.images)
		fmt.Fprintf(&sb, "3. Image evaluation data: %s\n", encoded)
	}

	sb.WriteString("\nBased on these sources, give a concise summary (max 100 words) that states whether the news is likely REAL, FAKE, or MIXED, and explain your reasoning.")
	return sb.String()
}

// sectionOr returns the raw JSON or a placeholder when absent.
func sectionOr(raw json.RawMessage, placeholder string) string {
	if len(raw) == 0 {
		return placeholder
	}
	return string(raw)
}

// isErrorEntry reports whether a record is an error-only entry. Error
// entries carry no evidence worth prompting with.
func isErrorEntry(raw json.RawMessage) bool {
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return true
	}
	return probe.Error != ""
}

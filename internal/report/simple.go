package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables additional detail in the output.
	verbose bool

	titler cases.Caser
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		titler:     cases.Title(language.English),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the result in human-readable format.
func (w *SimpleWriter) Write(result *Result) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeVerdict(&sb, result)
	w.writeEvidence(&sb, result)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with subject information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *Result) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      NEWS VALIDITY REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Article:   %s\n", result.URL))
	if result.Title != "" {
		sb.WriteString(fmt.Sprintf("Title:     %s\n", result.Title))
	}
	sb.WriteString(fmt.Sprintf("Generated: %s\n", result.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString("\n")
}

// writeVerdict writes the verdict section.
func (w *SimpleWriter) writeVerdict(sb *strings.Builder, result *Result) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("VERDICT\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if result.Verdict.Error != "" {
		sb.WriteString(fmt.Sprintf("  [!] Aggregation failed: %s\n", result.Verdict.Error))
	} else {
		sb.WriteString("  " + result.Verdict.Summary + "\n")
	}
	sb.WriteString("\n")
}

// writeEvidence writes the supporting evidence sections.
func (w *SimpleWriter) writeEvidence(sb *strings.Builder, result *Result) {
	if result.Credibility == nil && result.FactCheck == nil && result.Classification == nil {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("EVIDENCE\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if c := result.Credibility; c != nil {
		sb.WriteString(fmt.Sprintf("  Source:          %s (credibility %.2f)\n", w.sourceName(c.Domain), c.OverallScore))
		if w.verbose {
			for _, signal := range c.Signals {
				sb.WriteString(fmt.Sprintf("    - %s\n", signal))
			}
		}
	}

	if s := result.FactCheck; s != nil {
		sb.WriteString(fmt.Sprintf("  Fact check:      %d claims, %d supported, %d refuted, %d neutral, %d not found\n",
			s.TotalClaims, s.Supported, s.Refuted, s.Neutral, s.NotFound))
		sb.WriteString(fmt.Sprintf("  Reliability:     %.2f\n", s.ReliabilityScore))
	}

	if a := result.Classification; a != nil && a.Error == "" {
		sb.WriteString(fmt.Sprintf("  Text classifier: %s (confidence %.2f)\n", a.Prediction, a.Confidence))
	}

	sb.WriteString("\n")
}

// sourceName renders a domain as a title-cased outlet name for display.
// The registrable label reads better than the raw domain in reports.
func (w *SimpleWriter) sourceName(domain string) string {
	if domain == "" {
		return "Unknown"
	}
	label, _, _ := strings.Cut(domain, ".")
	return fmt.Sprintf("%s (%s)", w.titler.String(label), domain)
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by FactLens\n")
	sb.WriteString("https://github.com/factlens/factlens\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

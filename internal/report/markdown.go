package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
)

// MarkdownWriter outputs results in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent
// markdown generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the result in Markdown format.
func (w *MarkdownWriter) Write(result *Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeVerdict(md, result)
	w.writeEvidence(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with subject information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *Result) {
	md.H1("News Validity Report")
	md.PlainText("")

	rows := [][]string{
		{"Article", "`" + result.URL + "`"},
		{"Generated", result.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
	}
	if result.Title != "" {
		rows = append([][]string{{"Title", result.Title}}, rows...)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeVerdict writes the verdict section.
func (w *MarkdownWriter) writeVerdict(md *markdown.Markdown, result *Result) {
	md.H2("Verdict")
	md.PlainText("")

	if result.Verdict.Error != "" {
		md.PlainText("❌ Aggregation failed: " + result.Verdict.Error)
	} else {
		md.PlainText(result.Verdict.Summary)
	}
	md.PlainText("")
}

// writeEvidence writes the supporting evidence section.
func (w *MarkdownWriter) writeEvidence(md *markdown.Markdown, result *Result) {
	if result.Credibility == nil && result.FactCheck == nil && result.Classification == nil {
		return
	}

	md.H2("Evidence")
	md.PlainText("")

	if c := result.Credibility; c != nil {
		md.H3("Source Credibility")
		md.Table(markdown.TableSet{
			Header: []string{"Domain", "HTTPS", "Known Outlet", "Score"},
			Rows: [][]string{{
				"`" + c.Domain + "`",
				boolMark(c.HTTPS),
				boolMark(c.KnownSource),
				fmt.Sprintf("%.2f", c.OverallScore),
			}},
		})
		md.PlainText("")
	}

	if s := result.FactCheck; s != nil {
		md.H3("Wikipedia Fact Check")
		md.Table(markdown.TableSet{
			Header: []string{"Claims", "Supported", "Refuted", "Neutral", "Not Found", "Reliability"},
			Rows: [][]string{{
				strconv.Itoa(s.TotalClaims),
				strconv.Itoa(s.Supported),
				strconv.Itoa(s.Refuted),
				strconv.Itoa(s.Neutral),
				strconv.Itoa(s.NotFound),
				fmt.Sprintf("%.2f", s.ReliabilityScore),
			}},
		})
		md.PlainText("")
	}

	if a := result.Classification; a != nil && a.Error == "" {
		md.H3("Text Classification")
		md.Table(markdown.TableSet{
			Header: []string{"Prediction", "Confidence"},
			Rows: [][]string{{
				a.Prediction,
				fmt.Sprintf("%.2f", a.Confidence),
			}},
		})
		md.PlainText("")
	}
}

// boolMark renders a boolean as a checkmark or cross.
func boolMark(b bool) string {
	if b {
		return "✅"
	}
	return "❌"
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("Report generated by [FactLens](https://github.com/factlens/factlens)")
}

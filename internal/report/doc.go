// Package report renders per-subject validity verdicts in multiple
// output formats: human-readable text for the terminal, JSON for tool
// integration, and Markdown for documentation and sharing.
package report

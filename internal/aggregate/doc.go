// Package aggregate implements the final aggregation stage.
//
// For every scraped subject it gathers the fact-check, fake-news, and
// image evaluation records, composes a single summarization request to
// an LLM chat-completions endpoint, and writes a verdict per subject:
// either a concise validity summary or the aggregation error, never
// both. The whole verdict document is rewritten each run.
package aggregate

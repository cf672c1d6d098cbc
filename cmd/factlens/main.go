// Package main provides the entry point for the FactLens CLI.
//
// FactLens analyzes news article URLs for validity. It scrapes the
// article, fact-checks its claims against Wikipedia, classifies the text
// with a fake-news model, evaluates its images, and aggregates the
// evidence into a verdict.
//
// Usage:
//
//	factlens run <article-url>
//	factlens serve
//
// See --help for all available options.
package main

// main is the entry point for FactLens.
func main() {
	Execute()
}

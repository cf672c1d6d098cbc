package model

// ScrapeRecord is the per-subject output of the scrape stage.
// It contains the extracted article content, the in-article images with
// their surrounding context, and a credibility assessment of the source
// domain.
type ScrapeRecord struct {
	// Success indicates whether the scrape completed. When false, Error
	// holds the reason and the remaining fields may be empty.
	Success bool `json:"success"`

	// URL is the subject URL that was scraped.
	URL string `json:"url"`

	// Title is the article title.
	Title string `json:"title,omitempty"`

	// Text is the concatenated article body text.
	Text string `json:"text,omitempty"`

	// Images are the in-article images considered relevant to the story.
	// Boilerplate images (logos, store badges, social icons) are filtered
	// out during extraction.
	Images []ImageRef `json:"images,omitempty"`

	// Credibility is the source-domain credibility assessment.
	Credibility *CredibilityReport `json:"credibility,omitempty"`

	// Summary holds extraction statistics.
	Summary *ScrapeSummary `json:"summary,omitempty"`

	// Error describes the failure when Success is false.
	Error string `json:"error,omitempty"`
}

// ImageRef describes one image found within the article body.
type ImageRef struct {
	// Src is the absolute image URL.
	Src string `json:"src"`

	// Alt is the image's alt text.
	Alt string `json:"alt"`

	// Context is the text surrounding the image, capped at 200 characters.
	// Fact-check claims are extracted from this text.
	Context string `json:"context"`
}

// CredibilityReport summarises source-domain trust signals.
type CredibilityReport struct {
	// Domain is the registrable domain of the subject URL.
	Domain string `json:"domain"`

	// HTTPS indicates whether the article was served over TLS.
	HTTPS bool `json:"https"`

	// KnownSource indicates whether the domain appears on the known
	// news-outlet list.
	KnownSource bool `json:"known_source"`

	// Signals lists the individual heuristics that contributed to the score.
	Signals []string `json:"signals,omitempty"`

	// OverallScore is the combined credibility score in [0, 1].
	OverallScore float64 `json:"overall_score"`
}

// ScrapeSummary holds extraction statistics for a scraped article.
type ScrapeSummary struct {
	// Blocks is the number of extracted text blocks.
	Blocks int `json:"blocks"`

	// Chars is the total character count across text blocks.
	Chars int `json:"chars"`

	// Images is the number of in-article images found.
	Images int `json:"images"`

	// Quality is the extraction quality score in [0, 1].
	Quality float64 `json:"quality"`

	// CredibilityScore mirrors Credibility.OverallScore for quick access.
	CredibilityScore float64 `json:"credibility_score"`
}

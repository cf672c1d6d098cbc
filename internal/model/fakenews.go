package model

// Classifier labels for the fake-news text analysis.
const (
	// LabelFake indicates the classifier judged the text fabricated.
	LabelFake = "FAKE"

	// LabelReal indicates the classifier judged the text genuine.
	LabelReal = "REAL"
)

// FakeNewsRecord is the per-subject output of the fake-news analysis stage.
// A subject with no usable text gets only URL, Title, and Error.
type FakeNewsRecord struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`

	// Analysis is the classifier output. Nil when the subject could not
	// be analyzed at all; the per-analysis Error field covers failures
	// inside the classifier itself.
	Analysis *FakeNewsAnalysis `json:"analysis,omitempty"`

	// SourceData describes the text that was submitted to the classifier.
	SourceData *SourceData `json:"source_data,omitempty"`

	// Error is set when the subject produced no text to analyze.
	Error string `json:"error,omitempty"`
}

// FakeNewsAnalysis is the classifier verdict for one article.
type FakeNewsAnalysis struct {
	// Prediction is LabelFake or LabelReal.
	Prediction string `json:"prediction,omitempty"`

	// Confidence is the probability of the predicted label.
	Confidence float64 `json:"confidence,omitempty"`

	// Probabilities holds the full class distribution.
	Probabilities *LabelProbabilities `json:"probabilities,omitempty"`

	// TextPreview is the first 200 characters of the cleaned input text.
	TextPreview string `json:"text_preview,omitempty"`

	// Error is set when the classification call itself failed.
	Error string `json:"error,omitempty"`
}

// LabelProbabilities is the class probability distribution returned by
// the classifier.
type LabelProbabilities struct {
	Fake float64 `json:"FAKE"`
	Real float64 `json:"REAL"`
}

// SourceData describes the text submitted for classification.
type SourceData struct {
	TextPreview string `json:"text_preview"`
	TextLength  int    `json:"text_length"`
}

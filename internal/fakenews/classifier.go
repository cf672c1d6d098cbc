package fakenews

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/factlens/factlens/internal/config"
	"github.com/factlens/factlens/internal/model"
)

// DefaultEndpoint is the hosted classifier's inference endpoint.
const DefaultEndpoint = "https://api-inference.huggingface.co/models/jy46604790/Fake-News-Bert-Detect"

// maxInputLength caps the cleaned text submitted for classification.
// The model truncates at 512 tokens anyway; sending whole long articles
// only wastes bandwidth.
const maxInputLength = 4000

// previewLength is how much cleaned text is kept in the record for
// human inspection.
const previewLength = 200

// ErrMissingToken is returned when the classifier API token is not set.
// Credential absence is a stage failure, never silently skipped.
var ErrMissingToken = errors.New("classifier API token not set: export " + config.EnvClassifierToken)

var (
	urlPattern        = regexp.MustCompile(`http\S+`)
	nonTextPattern    = regexp.MustCompile(`[^a-zA-Z0-9\s.,!?]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanText normalizes article text for classification: URLs removed,
// punctuation reduced to sentence marks, whitespace collapsed.
func CleanText(text string) string {
	text = urlPattern.ReplaceAllString(text, "")
	text = nonTextPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// Classifier calls the hosted fake-news sequence classifier.
type Classifier struct {
	httpClient *http.Client
	endpoint   string
	token      string
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithClassifierEndpoint overrides the inference endpoint. Used by tests.
func WithClassifierEndpoint(endpoint string) ClassifierOption {
	return func(c *Classifier) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// NewClassifier creates a Classifier using the API token from the
// environment. A missing token returns ErrMissingToken.
func NewClassifier(timeout time.Duration, opts ...ClassifierOption) (*Classifier, error) {
	token := os.Getenv(config.EnvClassifierToken)
	if token == "" {
		return nil, ErrMissingToken
	}

	c := &Classifier{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   DefaultEndpoint,
		token:      token,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// classifierResponse is the label/score list the inference API returns.
// The outer array wraps one inner array of label scores.
type classifierResponse [][]struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify submits cleaned text and returns the analysis. An empty
// cleaning result or a call failure is reported inside the analysis,
// matching how downstream consumers read the record.
func (c *Classifier) Classify(ctx context.Context, text string) *model.FakeNewsAnalysis {
	cleaned := CleanText(text)
	if cleaned == "" {
		return &model.FakeNewsAnalysis{Error: "Text is empty after preprocessing"}
	}
	if len(cleaned) > maxInputLength {
		cleaned = cleaned[:maxInputLength]
	}

	probabilities, err := c.call(ctx, cleaned)
	if err != nil {
		return &model.FakeNewsAnalysis{Error: "Analysis failed: " + err.Error()}
	}

	prediction, confidence := model.LabelReal, probabilities.Real
	if probabilities.Fake > probabilities.Real {
		prediction, confidence = model.LabelFake, probabilities.Fake
	}

	return &model.FakeNewsAnalysis{
		Prediction:    prediction,
		Confidence:    confidence,
		Probabilities: probabilities,
		TextPreview:   preview(cleaned),
	}
}

// call performs one inference request.
func (c *Classifier) call(ctx context.Context, text string) (*model.LabelProbabilities, error) {
	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded classifierResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(decoded) == 0 || len(decoded[0]) == 0 {
		return nil, errors.New("classifier returned no scores")
	}

	// LABEL_0 is FAKE, LABEL_1 is REAL in this model's label space.
	probabilities := &model.LabelProbabilities{}
	for _, score := range decoded[0] {
		switch score.Label {
		case "LABEL_0", model.LabelFake:
			probabilities.Fake = score.Score
		case "LABEL_1", model.LabelReal:
			probabilities.Real = score.Score
		}
	}
	return probabilities, nil
}

// preview truncates cleaned text for the stored record.
func preview(text string) string {
	if len(text) > previewLength {
		return text[:previewLength] + "..."
	}
	return text
}

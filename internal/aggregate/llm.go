package aggregate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/factlens/factlens/internal/config"
)

// DefaultLLMEndpoint is the chat-completions endpoint used for verdict
// summarization. Any endpoint speaking the same request shape works.
const DefaultLLMEndpoint = "https://api.openai.com/v1/chat/completions"

// DefaultLLMModel is the summarization model.
const DefaultLLMModel = "gpt-4o-mini"

// maxCompletionTokens bounds the summary length. The prompt asks for at
// most 100 words.
const maxCompletionTokens = 200

// Retry policy for throttled or transiently failing completions.
const (
	defaultMaxAttempts = 6
	defaultBaseDelay   = time.Second
	maxJitter          = 500 * time.Millisecond
)

// ErrMissingLLMKey is returned when the LLM API key is not set.
// Credential absence is a stage failure, never silently skipped.
var ErrMissingLLMKey = errors.New("LLM API key not set: export " + config.EnvLLMAPIKey)

// LLMClient calls a chat-completions endpoint with retry on throttling.
type LLMClient struct {
	httpClient  *http.Client
	endpoint    string
	model       string
	apiKey      string
	maxAttempts int
	baseDelay   time.Duration
}

// LLMOption configures an LLMClient.
type LLMOption func(*LLMClient)

// WithLLMEndpoint overrides the completions endpoint. Used by tests.
func WithLLMEndpoint(endpoint string) LLMOption {
	return func(c *LLMClient) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithLLMModel sets the model name.
func WithLLMModel(model string) LLMOption {
	return func(c *LLMClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseDelay sets the initial retry delay. Used by tests to avoid
// real backoff waits.
func WithBaseDelay(d time.Duration) LLMOption {
	return func(c *LLMClient) {
		if d > 0 {
			c.baseDelay = d
		}
	}
}

// NewLLMClient creates an LLMClient using the API key from the
// environment. A missing key returns ErrMissingLLMKey.
func NewLLMClient(timeout time.Duration, opts ...LLMOption) (*LLMClient, error) {
	apiKey := os.Getenv(config.EnvLLMAPIKey)
	if apiKey == "" {
		return nil, ErrMissingLLMKey
	}

	c := &LLMClient{
		httpClient:  &http.Client{Timeout: timeout},
		endpoint:    DefaultLLMEndpoint,
		model:       DefaultLLMModel,
		apiKey:      apiKey,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Complete sends one prompt and returns the model's reply, retrying
// throttling and transient server errors with exponential backoff plus
// jitter.
func (c *LLMClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return "", err
			}
		}

		reply, retryable, err := c.call(ctx, system, prompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return "", fmt.Errorf("completion failed after retries: %w", lastErr)
}

// call performs one completion request. retryable reports whether the
// failure is worth another attempt.
func (c *LLMClient) call(ctx context.Context, system, prompt string) (reply string, retryable bool, err error) {
	payload, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
		"temperature": 0,
		"max_tokens":  maxCompletionTokens,
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport errors are transient unless the context is done.
		return "", ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, fmt.Errorf("completion returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", false, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", false, errors.New("completion returned no choices")
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), false, nil
}

// backoff sleeps baseDelay*2^(attempt-1) plus jitter, or returns early
// when the context is canceled.
func (c *LLMClient) backoff(ctx context.Context, attempt int) error {
	delay := c.baseDelay<<(attempt-1) + time.Duration(rand.Int63n(int64(maxJitter)))
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

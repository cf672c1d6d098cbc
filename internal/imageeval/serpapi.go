package imageeval

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/factlens/factlens/internal/config"
)

// DefaultSearchEndpoint is the SerpAPI search endpoint.
const DefaultSearchEndpoint = "https://serpapi.com/search.json"

// maxSearchResults caps the reverse-image hits kept per image.
const maxSearchResults = 5

// ErrMissingAPIKey is returned when the SerpAPI key is not set.
// Credential absence is a stage failure, never silently skipped.
var ErrMissingAPIKey = errors.New("SerpAPI key not set: export " + config.EnvSerpAPIKey)

// SearchResult is one reverse-image hit, reduced to the fields relevant
// for judging authenticity.
type SearchResult struct {
	Position int    `json:"position"`
	Title    string `json:"title,omitempty"`
	Link     string `json:"link,omitempty"`
	Source   string `json:"source,omitempty"`
	Snippet  string `json:"snippet,omitempty"`

	// Highlighted are the snippet words the search engine matched.
	Highlighted []string `json:"snippet_highlighted_words,omitempty"`
}

// SearchClient performs reverse image searches via SerpAPI.
// Results are cached on disk keyed by image URL hash, so re-running the
// stage against the same store does not repeat paid API calls.
type SearchClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	cacheDir   string
}

// SearchOption configures a SearchClient.
type SearchOption func(*SearchClient)

// WithSearchEndpoint overrides the API endpoint. Used by tests.
func WithSearchEndpoint(endpoint string) SearchOption {
	return func(c *SearchClient) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// NewSearchClient creates a SearchClient using the API key from the
// environment, caching responses under cacheDir. A missing key returns
// ErrMissingAPIKey.
func NewSearchClient(timeout time.Duration, cacheDir string, opts ...SearchOption) (*SearchClient, error) {
	apiKey := os.Getenv(config.EnvSerpAPIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &SearchClient{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   DefaultSearchEndpoint,
		apiKey:     apiKey,
		cacheDir:   cacheDir,
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := os.MkdirAll(c.cacheDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create search cache directory: %w", err)
	}
	return c, nil
}

// ReverseSearch looks up where else the image appears on the web.
func (c *SearchClient) ReverseSearch(ctx context.Context, imageURL string) ([]SearchResult, error) {
	if cached, ok := c.readCache(imageURL); ok {
		return cached, nil
	}

	params := url.Values{
		"engine":    {"google_reverse_image"},
		"image_url": {imageURL},
		"api_key":   {c.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

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
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded struct {
		ImageResults []SearchResult `json:"image_results"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := decoded.ImageResults
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}

	c.writeCache(imageURL, results)
	return results, nil
}

// cachePath derives the cache file for an image URL. Hashing the URL
// gives stable filesystem-safe names regardless of URL length.
func (c *SearchClient) cachePath(imageURL string) string {
	sum := sha3.Sum256([]byte(imageURL))
	return filepath.Join(c.cacheDir, hex.EncodeToString(sum[:])+".json")
}

func (c *SearchClient) readCache(imageURL string) ([]SearchResult, bool) {
	data, err := os.ReadFile(c.cachePath(imageURL))
	if err != nil {
		return nil, false
	}

	var results []SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, false
	}
	return results, true
}

func (c *SearchClient) writeCache(imageURL string, results []SearchResult) {
	data, err := json.Marshal(results)
	if err != nil {
		return
	}
	// Cache misses are harmless; ignore write failures.
	_ = os.WriteFile(c.cachePath(imageURL), data, 0600)
}

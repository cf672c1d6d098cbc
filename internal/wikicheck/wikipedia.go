package wikicheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/factlens/factlens/internal/config"
)

// DefaultAPIEndpoint is the English Wikipedia API.
const DefaultAPIEndpoint = "https://en.wikipedia.org/w/api.php"

// searchLimit is how many search hits to request per query.
const searchLimit = 5

// maxQueryLength caps search queries; the API rejects longer ones.
const maxQueryLength = 300

// maxPageContent caps the page extract kept for similarity scoring.
// Article leads carry the facts; tail sections mostly add noise.
const maxPageContent = 5000

// ErrNoResults is returned when a search matches no pages.
var ErrNoResults = errors.New("no wikipedia results")

// Page is a fetched Wikipedia page.
type Page struct {
	// Title is the canonical page title.
	Title string

	// Content is the plain-text extract, capped at maxPageContent.
	Content string
}

// Client queries the Wikipedia API. Fetched pages are cached by title
// for the lifetime of the client; the cache is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string

	mu    sync.Mutex
	cache map[string]*Page
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithEndpoint overrides the API endpoint. Used by tests.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient creates a Wikipedia API client.
func NewClient(timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   DefaultAPIEndpoint,
		userAgent:  config.DefaultUserAgent,
		cache:      make(map[string]*Page),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BestMatch searches for the query and returns the top hit's page.
// A query with no hits returns ErrNoResults.
func (c *Client) BestMatch(ctx context.Context, query string) (*Page, error) {
	if len(query) > maxQueryLength {
		query = query[:maxQueryLength]
	}

	titles, err := c.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoResults, query)
	}

	return c.page(ctx, titles[0])
}

// search returns page titles matching the query.
func (c *Client) search(ctx context.Context, query string) ([]string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {fmt.Sprint(searchLimit)},
		"format":   {"json"},
	}

	var response struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &response); err != nil {
		return nil, fmt.Errorf("wikipedia search failed: %w", err)
	}

	titles := make([]string, 0, len(response.Query.Search))
	for _, hit := range response.Query.Search {
		titles = append(titles, hit.Title)
	}
	return titles, nil
}

// page fetches a page's plain-text extract, consulting the cache first.
func (c *Client) page(ctx context.Context, title string) (*Page, error) {
	c.mu.Lock()
	if cached, ok := c.cache[title]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"explaintext": {"1"},
		"titles":      {title},
		"format":      {"json"},
	}

	var response struct {
		Query struct {
			Pages map[string]struct {
				Title   string `json:"title"`
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &response); err != nil {
		return nil, fmt.Errorf("wikipedia page fetch failed: %w", err)
	}

	for _, p := range response.Query.Pages {
		if p.Extract == "" {
			continue
		}
		content := p.Extract
		if len(content) > maxPageContent {
			content = content[:maxPageContent]
		}
		page := &Page{Title: p.Title, Content: content}

		c.mu.Lock()
		c.cache[title] = page
		c.mu.Unlock()
		return page, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoResults, title)
}

// get performs one API request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

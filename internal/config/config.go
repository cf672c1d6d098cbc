package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. These match the behavior of typical news
// sites and the external services the analysis stages call.
const (
	// DefaultTimeout is the connection timeout for each outbound HTTP
	// request made by the stages (article fetches, Wikipedia queries,
	// reverse image searches). News sites and public APIs normally
	// respond well within this bound.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestTimeout bounds one whole pipeline invocation when
	// triggered through the HTTP API. The image evaluation stage makes
	// one reverse-image-search call per image, so media-heavy articles
	// need a generous ceiling.
	DefaultRequestTimeout = 300 * time.Second

	// DefaultJoinTimeout of zero means the scheduler waits indefinitely
	// for the background image evaluation stage at the join barrier.
	// A positive value aborts the run when the wait exceeds it.
	DefaultJoinTimeout = 0 * time.Second

	// DefaultStageOutputLimit caps the stdout/stderr captured from each
	// stage subprocess. Diagnostics beyond this are tail-truncated.
	DefaultStageOutputLimit = 64 * 1024

	// DefaultMinContentLength is the minimum character count for an
	// extracted text block to be considered article content rather than
	// navigation chrome.
	DefaultMinContentLength = 10

	// DefaultMaxBodySize limits the response body size read from any
	// fetched page. 5MB covers real article pages while preventing
	// memory exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultUserAgent identifies FactLens in HTTP requests so site
	// operators can recognize the traffic.
	DefaultUserAgent = "FactLens/1.0 (+https://github.com/factlens/factlens)"

	// DefaultListenAddr is the HTTP API's listen address.
	DefaultListenAddr = ":8080"

	// AppName is the application name used for XDG directory paths.
	AppName = "factlens"
)

// Environment variable names for the credentials the stages read at
// startup. A stage whose credential is absent fails immediately; the
// scheduler never retries credential faults.
const (
	// EnvSerpAPIKey is the SerpAPI key used for reverse image search.
	EnvSerpAPIKey = "SERPAPI_KEY"

	// EnvClassifierToken is the API token for the hosted fake-news
	// classifier endpoint.
	EnvClassifierToken = "FAKENEWS_API_TOKEN"

	// EnvLLMAPIKey is the API key for the summarization model endpoint.
	EnvLLMAPIKey = "LLM_API_KEY"
)

// Config holds all configuration options for FactLens.
// It is populated from CLI flags and passed through the application via
// dependency injection rather than global state.
type Config struct {
	// StoreDir is the directory holding the artifact store: the JSON
	// documents through which pipeline stages exchange data.
	// Defaults to the XDG data directory.
	StoreDir string

	// Timeout is the connection timeout for each outbound HTTP request
	// made by the stages.
	Timeout time.Duration

	// RequestTimeout bounds a whole pipeline invocation when run behind
	// the HTTP API. Expiry maps to 408.
	RequestTimeout time.Duration

	// JoinTimeout bounds the wait for the background image evaluation
	// stage at the join barrier. Zero means wait indefinitely, which is
	// the documented historical behavior.
	JoinTimeout time.Duration

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the site configuration file.
	// If empty, the tool searches for .factlens in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site scrape settings loaded from the config
	// file (cookies, headers, content thresholds).
	SiteConfigs *File

	// JSONReport enables JSON verdict output instead of the
	// human-readable format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown verdict output instead of the
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the verdict report.
	// When set, the report is written there instead of stdout.
	ReportFile string

	// Targets is the list of article URLs to analyze. Each target gets
	// its own pipeline run; runs against the same store never overlap.
	Targets []string

	// DBDir is the directory for the SQLite run-history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether to record runs in the history database.
	SaveToDB bool

	// ListenAddr is the HTTP API listen address for the serve command.
	ListenAddr string

	// UserAgent is the User-Agent header sent with article fetches.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read
	// from fetched pages. Zero means DefaultMaxBodySize.
	MaxBodySize int64

	// StageCommand overrides the argv prefix used to invoke stage
	// subprocesses. Empty means re-invoke the current executable with
	// the "stage" subcommand. Used by tests to substitute fake stages.
	StageCommand []string
}

// NewConfig creates a Config with default values.
//
// Design decision: We use a constructor instead of relying on zero
// values because most defaults are non-zero (timeouts, addresses).
// This also documents what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:        DefaultTimeout,
		RequestTimeout: DefaultRequestTimeout,
		JoinTimeout:    DefaultJoinTimeout,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		ListenAddr:     DefaultListenAddr,
	}
}

// XDGDataDir returns the XDG data directory for FactLens.
// On Linux: ~/.local/share/factlens
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for FactLens.
// On Linux: ~/.config/factlens
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid, returning the first
// problem found. Called once after CLI parsing, before any stage runs.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.JoinTimeout < 0 {
		return ErrInvalidJoinTimeout
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}

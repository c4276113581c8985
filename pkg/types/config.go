// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// RequestTimeout is the per-request socket timeout.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`
}

// FetcherConfig holds settings for mirror-based resolution and retrieval.
type FetcherConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxAttempts is the attempt budget for a single fetch (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// RetryDelay is the base backoff delay after a CAPTCHA challenge (default 30s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`

	// CaptchaWait is the floor applied to CAPTCHA backoff (default 60s).
	CaptchaWait time.Duration `json:"captcha_wait" yaml:"captcha_wait" mapstructure:"captcha_wait"`

	// MaxBackoff caps CAPTCHA backoff (default 10m). Zero means no cap.
	MaxBackoff time.Duration `json:"max_backoff" yaml:"max_backoff" mapstructure:"max_backoff"`

	// Proxy is an optional outbound proxy URL (http, https, socks5).
	Proxy string `json:"proxy,omitempty" yaml:"proxy,omitempty" mapstructure:"proxy"`

	// Proxies is the rotation list used when a CAPTCHA is encountered.
	Proxies []string `json:"proxies,omitempty" yaml:"proxies,omitempty" mapstructure:"proxies"`

	// Mirrors seeds the mirror registry. When empty the registry is
	// discovered from MirrorDirectory.
	Mirrors []string `json:"mirrors,omitempty" yaml:"mirrors,omitempty" mapstructure:"mirrors"`

	// MirrorDirectory is the page listing currently reachable mirrors.
	MirrorDirectory string `json:"mirror_directory" yaml:"mirror_directory" mapstructure:"mirror_directory"`

	// MirrorMarker is the substring an anchor href must contain to count as a mirror.
	MirrorMarker string `json:"mirror_marker" yaml:"mirror_marker" mapstructure:"mirror_marker"`
}

// ProxyList returns the configured proxies with the single Proxy first.
func (c FetcherConfig) ProxyList() []string {
	var out []string
	if c.Proxy != "" {
		out = append(out, c.Proxy)
	}
	for _, p := range c.Proxies {
		if p != "" && p != c.Proxy {
			out = append(out, p)
		}
	}
	return out
}

// SearchConfig holds settings for the search client.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Backend selects the search backend: "scholar" or "arxiv".
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// BaseURL overrides the backend endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// PageSize is the number of results per page (fixed at 10 by the source).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// MinDelay and MaxDelay bound the uniform jitter applied before every page request.
	MinDelay time.Duration `json:"min_delay" yaml:"min_delay" mapstructure:"min_delay"`
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay" mapstructure:"max_delay"`

	// MaxRateLimitRetries is the number of HTTP 429 retries per page.
	MaxRateLimitRetries int `json:"max_rate_limit_retries" yaml:"max_rate_limit_retries" mapstructure:"max_rate_limit_retries"`

	// Limit is the default result limit for a standalone search.
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`
}

// AcquisitionConfig holds settings for the search-then-download orchestrator.
type AcquisitionConfig struct {
	// PerQueryLimit caps the candidates taken from each query (default 1).
	PerQueryLimit int `json:"per_query_limit" yaml:"per_query_limit" mapstructure:"per_query_limit"`

	// TotalDesired is the global download quota for a run.
	TotalDesired int `json:"total_desired" yaml:"total_desired" mapstructure:"total_desired"`

	// QueryDelayMin and QueryDelayMax bound the pause between queries.
	QueryDelayMin time.Duration `json:"query_delay_min" yaml:"query_delay_min" mapstructure:"query_delay_min"`
	QueryDelayMax time.Duration `json:"query_delay_max" yaml:"query_delay_max" mapstructure:"query_delay_max"`

	// DownloadDelay is the pause after each download attempt.
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay" mapstructure:"download_delay"`

	// OutputDir is the destination directory for downloaded PDFs.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// HistoryDB is the SQLite acquisition ledger path. Empty disables it.
	HistoryDB string `json:"history_db" yaml:"history_db" mapstructure:"history_db"`
}

// QueryGenConfig holds settings for the LLM query generator.
type QueryGenConfig struct {
	Model       string  `json:"model" yaml:"model" mapstructure:"model"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	APIKey      string  `json:"-" yaml:"-" mapstructure:"api_key"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Development switches to the human-readable console encoder.
	Development bool `json:"development" yaml:"development" mapstructure:"development"`
}

// Config groups every component configuration.
type Config struct {
	Fetcher     FetcherConfig     `json:"fetcher" yaml:"fetcher" mapstructure:"fetcher"`
	Search      SearchConfig      `json:"search" yaml:"search" mapstructure:"search"`
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition" mapstructure:"acquisition"`
	QueryGen    QueryGenConfig    `json:"querygen" yaml:"querygen" mapstructure:"querygen"`
	Log         LogConfig         `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Fetcher: FetcherConfig{
			HTTPConfig:      HTTPConfig{RequestTimeout: 30 * time.Second},
			MaxAttempts:     3,
			RetryDelay:      30 * time.Second,
			CaptchaWait:     60 * time.Second,
			MaxBackoff:      10 * time.Minute,
			MirrorDirectory: "https://sci-hub.now.sh/",
			MirrorMarker:    "sci-hub.",
		},
		Search: SearchConfig{
			HTTPConfig:          HTTPConfig{RequestTimeout: 30 * time.Second},
			Backend:             "scholar",
			PageSize:            10,
			MinDelay:            2 * time.Second,
			MaxDelay:            5 * time.Second,
			MaxRateLimitRetries: 3,
			Limit:               10,
		},
		Acquisition: AcquisitionConfig{
			PerQueryLimit: 1,
			TotalDesired:  1,
			QueryDelayMin: 3 * time.Second,
			QueryDelayMax: 7 * time.Second,
			DownloadDelay: 3 * time.Second,
			OutputDir:     "papers",
			HistoryDB:     "papers/history.db",
		},
		QueryGen: QueryGenConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
		},
		Log: LogConfig{Level: "info"},
	}
}

// MaxFetchAttempts bounds fetcher.max_attempts.
const MaxFetchAttempts = 20

// ErrInvalidConfig is returned by Validate for out-of-range settings.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks ranges that would otherwise make the retry loops misbehave.
func (c Config) Validate() error {
	switch {
	case c.Fetcher.MaxAttempts < 1:
		return fmt.Errorf("%w: fetcher.max_attempts must be at least 1, got %d", ErrInvalidConfig, c.Fetcher.MaxAttempts)
	case c.Fetcher.MaxAttempts > MaxFetchAttempts:
		return fmt.Errorf("%w: fetcher.max_attempts must be at most %d, got %d", ErrInvalidConfig, MaxFetchAttempts, c.Fetcher.MaxAttempts)
	case c.Fetcher.RetryDelay < 0 || c.Fetcher.CaptchaWait < 0 || c.Fetcher.MaxBackoff < 0:
		return fmt.Errorf("%w: fetcher delays must not be negative", ErrInvalidConfig)
	case c.Search.PageSize < 1:
		return fmt.Errorf("%w: search.page_size must be at least 1, got %d", ErrInvalidConfig, c.Search.PageSize)
	case c.Search.MaxDelay < c.Search.MinDelay:
		return fmt.Errorf("%w: search.max_delay (%s) is below search.min_delay (%s)", ErrInvalidConfig, c.Search.MaxDelay, c.Search.MinDelay)
	case c.Acquisition.PerQueryLimit < 1:
		return fmt.Errorf("%w: acquisition.per_query_limit must be at least 1", ErrInvalidConfig)
	case c.Acquisition.QueryDelayMax < c.Acquisition.QueryDelayMin:
		return fmt.Errorf("%w: acquisition.query_delay_max is below acquisition.query_delay_min", ErrInvalidConfig)
	case c.Acquisition.OutputDir == "":
		return fmt.Errorf("%w: acquisition.output_dir is empty", ErrInvalidConfig)
	}
	return nil
}

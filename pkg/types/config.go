package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with API requests
	// (e.g. "dataset-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// BrowserUserAgent is sent when fetching files and landing pages, where
	// some hosts reject non-browser clients.
	BrowserUserAgent string `json:"browser_user_agent" yaml:"browser_user_agent" mapstructure:"browser_user_agent"`

	// Proxy is an optional proxy URL applied to every request.
	Proxy string `json:"proxy,omitempty" yaml:"proxy,omitempty" mapstructure:"proxy"`

	// RatePerHost caps requests per second to any one host (0 disables).
	RatePerHost float64 `json:"rate_per_host" yaml:"rate_per_host" mapstructure:"rate_per_host"`
}

// DownloadConfig holds settings for the download dispatcher.
type DownloadConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Dir is the download root; each reference gets a subdirectory and the
	// history database lives at Dir/history.db.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Workers is the number of references downloaded concurrently (default 4).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// MaxAttempts is the number of tries per strategy for transient errors (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// RetryDelay is the initial backoff between tries (default 2s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`

	// ItemTimeout bounds the total time spent on one reference (default 10m).
	ItemTimeout time.Duration `json:"item_timeout" yaml:"item_timeout" mapstructure:"item_timeout"`

	// Force re-downloads references that already have a success record.
	Force bool `json:"force" yaml:"force" mapstructure:"force"`
}

// BrowserConfig holds settings for the browser automation strategy.
type BrowserConfig struct {
	// Enabled turns the browser strategy on. When false it is left out of
	// every chain.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Headless runs the browser without a window (default true).
	Headless bool `json:"headless" yaml:"headless" mapstructure:"headless"`

	// ExecPath overrides the browser binary.
	ExecPath string `json:"exec_path,omitempty" yaml:"exec_path,omitempty" mapstructure:"exec_path"`

	// Timeout bounds one page load plus download wait (default 2m).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// PollInterval is the settle-polling period for the download directory (default 1s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" mapstructure:"poll_interval"`

	// MaxClicks caps the number of download controls clicked per page (default 3).
	MaxClicks int `json:"max_clicks" yaml:"max_clicks" mapstructure:"max_clicks"`
}

// ExtractionConfig holds settings for the reference extractor.
type ExtractionConfig struct {
	// AccessionPatterns replaces the generic accession pattern. Each entry
	// is a regular expression whose first capture group (or whole match) is
	// the accession.
	AccessionPatterns []string `json:"accession_patterns,omitempty" yaml:"accession_patterns,omitempty" mapstructure:"accession_patterns"`

	// DisableGenericAccession drops the generic letter+digits pattern.
	DisableGenericAccession bool `json:"disable_generic_accession" yaml:"disable_generic_accession" mapstructure:"disable_generic_accession"`
}

// LogConfig selects the log level and encoding for the engine logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Development switches to the human-readable console encoder.
	Development bool `json:"development" yaml:"development" mapstructure:"development"`

	// OutputPaths lists log sinks (default stderr).
	OutputPaths []string `json:"output_paths,omitempty" yaml:"output_paths,omitempty" mapstructure:"output_paths"`
}

// EngineConfig groups all configuration for the engine.
type EngineConfig struct {
	Download   DownloadConfig   `json:"download" yaml:"download" mapstructure:"download"`
	Browser    BrowserConfig    `json:"browser" yaml:"browser" mapstructure:"browser"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction" mapstructure:"extraction"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}

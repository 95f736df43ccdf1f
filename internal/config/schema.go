// Package config handles YAML configuration loading, environment layering,
// defaults and validation for chatwork-autoread.
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/flemzord/chatwork-autoread/internal/security"
)

// Default values applied to unset fields.
const (
	DefaultBaseURL      = "https://api.chatwork.com/v2"
	DefaultMaxAttempts  = 5
	DefaultInitialDelay = 10 * time.Second
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultSweepTimeout = 10 * time.Minute
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

// Config is the top-level configuration structure.
type Config struct {
	Chatwork ChatworkConfig `yaml:"chatwork"`
	Retry    RetryConfig    `yaml:"retry"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// ChatworkConfig holds the API credentials and the operator's exclusions.
type ChatworkConfig struct {
	APIToken string `yaml:"api_token"`
	BaseURL  string `yaml:"base_url"`

	// ExcludeAccountIDs are accounts whose [To:<id>] mentions stop the read
	// pointer. Order is preserved.
	ExcludeAccountIDs []string `yaml:"exclude_account_ids"`

	// ExcludeRoomIDs are rooms the sweep never touches.
	ExcludeRoomIDs []int64 `yaml:"exclude_room_ids"`
}

// RetryConfig controls the 429 backoff loop.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
}

// HTTPConfig tunes the outbound HTTP client.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`

	// RequestsPerSecond paces outgoing requests client-side. 0 disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ScheduleConfig drives the built-in scheduler (the `schedule` command).
type ScheduleConfig struct {
	// Cron is a 5-field cron expression or a descriptor such as "@every 15m".
	Cron         string        `yaml:"cron"`
	RunOnStart   bool          `yaml:"run_on_start"`
	SweepTimeout time.Duration `yaml:"sweep_timeout"`
}

// GatewayConfig exposes health and metrics over HTTP in scheduler mode.
// An empty Bind disables the listener.
type GatewayConfig struct {
	Bind string `yaml:"bind"`
}

// TracingConfig enables OTLP/HTTP span export. An empty Endpoint disables it.
type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// applyDefaults fills zero values with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Chatwork.BaseURL == "" {
		c.Chatwork.BaseURL = DefaultBaseURL
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = DefaultMaxAttempts
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = DefaultInitialDelay
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = DefaultHTTPTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Schedule.SweepTimeout == 0 {
		c.Schedule.SweepTimeout = DefaultSweepTimeout
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}
}

// SlogLevel returns the configured level. Unknown values fall back to info;
// Validate reports them.
func (l LogConfig) SlogLevel() slog.Level {
	level, err := parseLevel(l.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s))))
	return level, err
}

// Redacted returns a copy safe for display, with the API token masked.
func (c Config) Redacted() Config {
	if c.Chatwork.APIToken != "" {
		c.Chatwork.APIToken = security.RedactPlaceholder
	}
	c.Chatwork.ExcludeAccountIDs = append([]string(nil), c.Chatwork.ExcludeAccountIDs...)
	c.Chatwork.ExcludeRoomIDs = append([]int64(nil), c.Chatwork.ExcludeRoomIDs...)
	return c
}

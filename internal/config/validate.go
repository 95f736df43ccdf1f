package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks the structural validity of a Config after defaults have
// been applied. All problems are reported at once.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateChatwork(cfg.Chatwork)...)

	if cfg.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("config: retry.max_attempts must be >= 1, got %d", cfg.Retry.MaxAttempts))
	}
	if cfg.Retry.InitialDelay <= 0 {
		errs = append(errs, fmt.Errorf("config: retry.initial_delay must be positive, got %s", cfg.Retry.InitialDelay))
	}

	if cfg.HTTP.Timeout < 0 {
		errs = append(errs, fmt.Errorf("config: http.timeout must not be negative, got %s", cfg.HTTP.Timeout))
	}
	if cfg.HTTP.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("config: http.requests_per_second must not be negative, got %g", cfg.HTTP.RequestsPerSecond))
	}

	if _, err := parseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("config: log.level %q is not one of debug, info, warn, error", cfg.Log.Level))
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format must be text or json, got %q", cfg.Log.Format))
	}

	errs = append(errs, validateSchedule(cfg.Schedule)...)

	if cfg.Gateway.Bind != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.Gateway.Bind); err != nil {
			errs = append(errs, fmt.Errorf("config: gateway.bind %q is not a valid address: %w", cfg.Gateway.Bind, err))
		}
	}

	if cfg.Tracing.Endpoint != "" {
		if err := validateHTTPURL(cfg.Tracing.Endpoint); err != nil {
			errs = append(errs, fmt.Errorf("config: tracing.endpoint: %w", err))
		}
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("config: tracing.sample_ratio must be within 0-1, got %g", cfg.Tracing.SampleRatio))
	}

	return errors.Join(errs...)
}

func validateChatwork(c ChatworkConfig) []error {
	var errs []error

	if strings.TrimSpace(c.APIToken) == "" {
		errs = append(errs, errors.New("config: chatwork.api_token is required"))
	}

	if err := validateHTTPURL(c.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("config: chatwork.base_url: %w", err))
	}

	for i, id := range c.ExcludeAccountIDs {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, fmt.Errorf("config: chatwork.exclude_account_ids[%d]: empty account id", i))
		}
	}

	for i, id := range c.ExcludeRoomIDs {
		if id <= 0 {
			errs = append(errs, fmt.Errorf("config: chatwork.exclude_room_ids[%d]: room id must be positive, got %d", i, id))
		}
	}

	return errs
}

func validateSchedule(s ScheduleConfig) []error {
	var errs []error

	if s.Cron != "" {
		if _, err := cron.ParseStandard(s.Cron); err != nil {
			errs = append(errs, fmt.Errorf("config: schedule.cron %q: %w", s.Cron, err))
		}
	}
	if s.SweepTimeout < 0 {
		errs = append(errs, fmt.Errorf("config: schedule.sweep_timeout must not be negative, got %s", s.SweepTimeout))
	}

	return errs
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be a valid http/https URL, got %q", raw)
	}
	return nil
}

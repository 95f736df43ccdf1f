package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// EnvRunMode selects the optional overlay file (<mode>.yaml).
	EnvRunMode = "RUN_MODE"
	// DefaultRunMode is used when RUN_MODE is unset.
	DefaultRunMode = "development"

	baseFile  = "default.yaml"
	envPrefix = "APP_"
)

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads a single YAML configuration file, expands environment variables,
// applies APP_* overrides and defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := decodeFile(path, &cfg, true); err != nil {
		return nil, err
	}
	return finish(&cfg)
}

// LoadLayered reads <dir>/default.yaml, then overlays <dir>/<mode>.yaml when
// it exists, then applies APP_* overrides and defaults. An empty mode falls
// back to $RUN_MODE, then to DefaultRunMode.
func LoadLayered(dir, mode string) (*Config, error) {
	if mode == "" {
		mode = RunMode()
	}

	var cfg Config
	if err := decodeFile(filepath.Join(dir, baseFile), &cfg, true); err != nil {
		return nil, err
	}
	if err := decodeFile(filepath.Join(dir, mode+".yaml"), &cfg, false); err != nil {
		return nil, err
	}
	return finish(&cfg)
}

// RunMode returns $RUN_MODE or DefaultRunMode.
func RunMode() string {
	if mode := os.Getenv(EnvRunMode); mode != "" {
		return mode
	}
	return DefaultRunMode
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config: loading %s: %w", p, err)
		}
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// decodeFile decodes path on top of cfg: keys present in the file replace
// the current values, absent keys are left untouched.
func decodeFile(path string, cfg *Config, required bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// expandEnv replaces ${VAR} and ${VAR:-default} patterns in raw YAML bytes.
// As in the shell, the default also applies when VAR is set but empty.
// Returns an error listing all unresolved variables (no default, no env value).
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	result := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])
		hasDefault := len(subs) > 2 && subs[2] != nil

		if value, ok := os.LookupEnv(name); ok && (value != "" || !hasDefault) {
			return []byte(value)
		}
		if hasDefault {
			return subs[2]
		}

		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return result, errors.Join(errs...)
}

// applyEnvOverrides lets APP_<SECTION>_<KEY> variables win over file values.
func applyEnvOverrides(cfg *Config) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}

	str("CHATWORK_API_TOKEN", &cfg.Chatwork.APIToken)
	str("CHATWORK_BASE_URL", &cfg.Chatwork.BaseURL)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("SCHEDULE_CRON", &cfg.Schedule.Cron)
	str("GATEWAY_BIND", &cfg.Gateway.Bind)
	str("TRACING_ENDPOINT", &cfg.Tracing.Endpoint)

	if v, ok := os.LookupEnv(envPrefix + "CHATWORK_EXCLUDE_ACCOUNT_IDS"); ok {
		cfg.Chatwork.ExcludeAccountIDs = splitList(v)
	}

	if v, ok := os.LookupEnv(envPrefix + "CHATWORK_EXCLUDE_ROOM_IDS"); ok {
		var ids []int64
		for _, item := range splitList(v) {
			id, err := strconv.ParseInt(item, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %sCHATWORK_EXCLUDE_ROOM_IDS: invalid room id %q", envPrefix, item))
				continue
			}
			ids = append(ids, id)
		}
		cfg.Chatwork.ExcludeRoomIDs = ids
	}

	return errors.Join(errs...)
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

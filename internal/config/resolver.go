package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvConfigDir overrides the configuration directory search.
const EnvConfigDir = "CHATWORK_AUTOREAD_CONFIG_DIR"

// ResolveDir returns the first directory containing default.yaml.
// Search order: $CHATWORK_AUTOREAD_CONFIG_DIR → ./config →
// $XDG_CONFIG_HOME/chatwork-autoread (or ~/.config/chatwork-autoread).
func ResolveDir() (string, error) {
	var candidates []string

	if dir, ok := os.LookupEnv(EnvConfigDir); ok && dir != "" {
		candidates = append(candidates, dir)
	}

	candidates = append(candidates, "config")

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "chatwork-autoread"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "chatwork-autoread"))
	}

	for _, dir := range candidates {
		if _, err := os.Stat(filepath.Join(dir, baseFile)); err == nil {
			return dir, nil
		}
	}

	return "", fmt.Errorf("config: no %s found (searched: %v)", baseFile, candidates)
}

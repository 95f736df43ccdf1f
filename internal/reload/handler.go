package reload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flemzord/chatwork-autoread/internal/config"
)

// LoadFunc loads and validates a fresh configuration.
type LoadFunc func() (*config.Config, error)

// ApplyFunc installs a configuration into the running application.
type ApplyFunc func(*config.Config) error

// Handler reloads configuration and hands it to the application. A failed
// load leaves the running configuration untouched.
type Handler struct {
	load   LoadFunc
	apply  ApplyFunc
	logger *slog.Logger
}

// NewHandler creates a reload handler.
func NewHandler(load LoadFunc, apply ApplyFunc, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{load: load, apply: apply, logger: logger}
}

// Reload loads the configuration and applies it.
func (h *Handler) Reload(ctx context.Context, reason string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("reload: context cancelled before reload: %w", err)
	}

	cfg, err := h.load()
	if err != nil {
		h.logger.Error("reload: keeping current configuration", "reason", reason, "error", err)
		return fmt.Errorf("reload: loading config: %w", err)
	}
	if err := h.apply(cfg); err != nil {
		return fmt.Errorf("reload: applying config: %w", err)
	}

	h.logger.Info("reload: configuration reloaded", "reason", reason)
	return nil
}

// Package daemon runs the scheduler as an OS service (systemd, launchd or
// the Windows service manager).
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/kardianos/service"
)

// DefaultStopTimeout bounds how long Stop waits for the runner.
const DefaultStopTimeout = 30 * time.Second

// Actions accepted by Control, besides service.ControlAction.
const (
	ActionStatus = "status"
	ActionRun    = "run"
)

// Runner is the long-running workload. Start must not block.
type Runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Config describes the service registration.
type Config struct {
	Name        string
	DisplayName string
	Description string
	// Arguments are passed to the executable when the service manager
	// starts it, e.g. {"service", "run", "--config-dir", "/etc/chatwork-autoread"}.
	Arguments   []string
	StopTimeout time.Duration
}

// Program adapts a Runner to service.Interface.
type Program struct {
	runner      Runner
	logger      *slog.Logger
	stopTimeout time.Duration
}

var _ service.Interface = (*Program)(nil)

// NewProgram wraps runner. A nil logger discards output.
func NewProgram(runner Runner, stopTimeout time.Duration, logger *slog.Logger) *Program {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Program{runner: runner, logger: logger, stopTimeout: stopTimeout}
}

// Start implements service.Interface.
func (p *Program) Start(_ service.Service) error {
	p.logger.Info("daemon: starting")
	if err := p.runner.Start(context.Background()); err != nil {
		return fmt.Errorf("daemon: start: %w", err)
	}
	return nil
}

// Stop implements service.Interface.
func (p *Program) Stop(_ service.Service) error {
	p.logger.Info("daemon: stopping")
	ctx, cancel := context.WithTimeout(context.Background(), p.stopTimeout)
	defer cancel()
	if err := p.runner.Stop(ctx); err != nil {
		return fmt.Errorf("daemon: stop: %w", err)
	}
	return nil
}

// New registers runner with the platform service manager.
func New(runner Runner, cfg Config, logger *slog.Logger) (service.Service, error) {
	svc, err := service.New(NewProgram(runner, cfg.StopTimeout, logger), &service.Config{
		Name:        cfg.Name,
		DisplayName: cfg.DisplayName,
		Description: cfg.Description,
		Arguments:   cfg.Arguments,
	})
	if err != nil {
		return nil, fmt.Errorf("daemon: %w", err)
	}
	return svc, nil
}

// Actions lists every action accepted by Control.
func Actions() []string {
	return append(service.ControlAction[:], ActionStatus, ActionRun)
}

// Control performs action on svc and returns a human-readable result.
// "run" blocks until the service manager (or a signal) stops the program.
func Control(svc service.Service, action string) (string, error) {
	switch action {
	case ActionRun:
		if err := svc.Run(); err != nil {
			return "", fmt.Errorf("daemon: run: %w", err)
		}
		return "stopped", nil
	case ActionStatus:
		st, err := svc.Status()
		if errors.Is(err, service.ErrNotInstalled) {
			return "not installed", nil
		}
		if err != nil {
			return "", fmt.Errorf("daemon: status: %w", err)
		}
		return statusText(st), nil
	}

	if !slices.Contains(service.ControlAction[:], action) {
		return "", fmt.Errorf("daemon: unknown action %q (valid: %v)", action, Actions())
	}
	if err := service.Control(svc, action); err != nil {
		return "", fmt.Errorf("daemon: %s: %w", action, err)
	}
	return action + " ok", nil
}

func statusText(st service.Status) string {
	switch st {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

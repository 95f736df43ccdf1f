// Package app provides the shared entry point for the chatwork-autoread
// commands: configuration loading, logger construction and component wiring.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/flemzord/chatwork-autoread/internal/config"
	"github.com/flemzord/chatwork-autoread/internal/daemon"
	"github.com/flemzord/chatwork-autoread/internal/reload"
	"github.com/flemzord/chatwork-autoread/internal/security"
)

// DefaultShutdownTimeout bounds graceful shutdown in scheduler mode.
const DefaultShutdownTimeout = 30 * time.Second

// Params configures one invocation.
type Params struct {
	// ConfigPath loads a single YAML file instead of the layered directory.
	ConfigPath string
	// ConfigDir holds default.yaml and <mode>.yaml. Empty = config.ResolveDir.
	ConfigDir string
	// Mode selects the overlay file. Empty = $RUN_MODE or "development".
	Mode string
	// DotEnv lists .env files loaded before configuration. Nil = [".env"].
	DotEnv []string

	// LogLevel overrides log.level when non-empty.
	LogLevel string
	// DryRun selects targets without marking anything as read.
	DryRun bool
	// Timeout bounds a one-shot sweep. 0 = no deadline.
	Timeout time.Duration

	// Version, Commit and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// Stderr receives log output. Nil = os.Stderr.
	Stderr io.Writer
	// HTTPClient replaces the Chatwork HTTP client (tests).
	HTTPClient *http.Client
	// ReloadInterval is how often scheduler mode polls the configuration
	// files. 0 = the watcher default.
	ReloadInterval time.Duration
}

func (p Params) stderr() io.Writer {
	if p.Stderr != nil {
		return p.Stderr
	}
	return os.Stderr
}

// LoadConfig loads .env files, then the YAML configuration (single file or
// layered directory), applies the log level override and validates.
func LoadConfig(p Params) (*config.Config, error) {
	dotenv := p.DotEnv
	if dotenv == nil {
		dotenv = []string{".env"}
	}
	if err := config.LoadDotEnv(dotenv...); err != nil {
		return nil, err
	}

	var (
		cfg *config.Config
		err error
	)
	if p.ConfigPath != "" {
		cfg, err = config.Load(p.ConfigPath)
	} else {
		dir := p.ConfigDir
		if dir == "" {
			if dir, err = config.ResolveDir(); err != nil {
				return nil, err
			}
		}
		cfg, err = config.LoadLayered(dir, p.Mode)
	}
	if err != nil {
		return nil, err
	}

	if p.LogLevel != "" {
		cfg.Log.Level = p.LogLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigFiles lists the YAML files LoadConfig reads for p, including an
// overlay that may not exist yet.
func ConfigFiles(p Params) ([]string, error) {
	if p.ConfigPath != "" {
		return []string{p.ConfigPath}, nil
	}
	dir := p.ConfigDir
	if dir == "" {
		var err error
		if dir, err = config.ResolveDir(); err != nil {
			return nil, err
		}
	}
	mode := p.Mode
	if mode == "" {
		mode = config.RunMode()
	}
	return []string{
		filepath.Join(dir, "default.yaml"),
		filepath.Join(dir, mode+".yaml"),
	}, nil
}

// NewLogger builds the process logger. The API token and any extra secrets
// are redacted from every record.
func NewLogger(cfg config.LogConfig, w io.Writer, secrets ...string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var inner slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}

	redactor := security.NewRedactor()
	for _, s := range secrets {
		redactor.AddLiteral(s)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

// setup loads configuration and wires the application.
func setup(ctx context.Context, p Params) (*App, *slog.Logger, error) {
	cfg, err := LoadConfig(p)
	if err != nil {
		return nil, nil, err
	}
	logger := NewLogger(cfg.Log, p.stderr(), cfg.Chatwork.APIToken)
	logger.Info("app: configuration loaded",
		"version", p.Version,
		"commit", p.Commit,
		"excluded_accounts", len(cfg.Chatwork.ExcludeAccountIDs),
		"excluded_rooms", len(cfg.Chatwork.ExcludeRoomIDs),
		"dry_run", p.DryRun,
	)

	a, err := New(ctx, cfg, logger, p)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}

// RunOnce performs a single sweep. SIGINT and SIGTERM cancel it. The error
// is non-nil only when configuration, the room listing or the sweep as a
// whole failed; per-room failures are logged and counted.
func RunOnce(p Params) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	a, logger, err := setup(ctx, p)
	if err != nil {
		return err
	}
	defer closeApp(a, logger)

	report, err := a.Sweep(ctx)
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		logger.Warn("app: sweep completed with room failures", "failed", report.Failed)
	}
	return nil
}

// RunScheduled starts the scheduler (and gateway) and blocks until SIGINT or
// SIGTERM. Edits to the configuration files and SIGHUP reload the exclusion
// lists. .env files are read once at startup: variables they set are already
// in the environment and are not overridden by a reload.
func RunScheduled(p Params) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, logger, err := setup(ctx, p)
	if err != nil {
		return err
	}
	defer closeApp(a, logger)

	files, err := ConfigFiles(p)
	if err != nil {
		return err
	}

	if err := a.Start(ctx); err != nil {
		return err
	}

	watcher := reload.NewWatcher(reload.WatcherConfig{Paths: files, PollInterval: p.ReloadInterval})
	watcher.Start(ctx)
	defer watcher.Stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	reloader := reload.NewHandler(func() (*config.Config, error) {
		return LoadConfig(p)
	}, a.ApplyConfig, logger)

	watchReloads(ctx, reloader, watcher.Events(), hup)
	logger.Info("app: shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := a.Stop(stopCtx); err != nil {
		return fmt.Errorf("app: shutdown: %w", err)
	}
	logger.Info("app: shutdown complete")
	return nil
}

// watchReloads applies configuration reloads until ctx is done. Failed
// reloads are logged by the handler and keep the previous configuration.
func watchReloads(ctx context.Context, h *reload.Handler, events <-chan reload.Event, hup <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			_ = h.Reload(ctx, "file "+string(evt.Type)+": "+evt.Path)
		case <-hup:
			_ = h.Reload(ctx, "SIGHUP")
		}
	}
}

// ServiceConfig describes the OS service registration for the scheduler.
func ServiceConfig(p Params) daemon.Config {
	args := []string{"service", "run"}
	switch {
	case p.ConfigPath != "":
		args = append(args, "--config", p.ConfigPath)
	case p.ConfigDir != "":
		args = append(args, "--config-dir", p.ConfigDir)
	}
	if p.Mode != "" {
		args = append(args, "--mode", p.Mode)
	}
	return daemon.Config{
		Name:        "chatwork-autoread",
		DisplayName: "Chatwork auto-read",
		Description: "Marks Chatwork rooms as read on a schedule, leaving mentions unread.",
		Arguments:   args,
		StopTimeout: DefaultShutdownTimeout,
	}
}

// RunService performs a service action. "run" loads configuration and hands
// the scheduler to the service manager; the other actions only talk to it.
func RunService(p Params, action string, out io.Writer) error {
	var runner daemon.Runner = noopRunner{}
	logger := slog.New(slog.NewTextHandler(p.stderr(), nil))

	if action == daemon.ActionRun {
		a, l, err := setup(context.Background(), p)
		if err != nil {
			return err
		}
		defer closeApp(a, l)
		runner, logger = a, l
	}

	svc, err := daemon.New(runner, ServiceConfig(p), logger)
	if err != nil {
		return err
	}
	result, err := daemon.Control(svc, action)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, result)
	return nil
}

type noopRunner struct{}

func (noopRunner) Start(context.Context) error { return nil }
func (noopRunner) Stop(context.Context) error  { return nil }

func closeApp(a *App, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		logger.Warn("app: flushing telemetry", "error", err)
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/chatwork-autoread/internal/chatwork"
	"github.com/flemzord/chatwork-autoread/internal/config"
	"github.com/flemzord/chatwork-autoread/internal/cron"
	"github.com/flemzord/chatwork-autoread/internal/daemon"
	"github.com/flemzord/chatwork-autoread/internal/gateway"
	"github.com/flemzord/chatwork-autoread/internal/metrics"
	"github.com/flemzord/chatwork-autoread/internal/sweep"
	"github.com/flemzord/chatwork-autoread/internal/telemetry"
)

// App holds the wired components of one process.
type App struct {
	cfgMu     sync.Mutex
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	client    *chatwork.Client
	processor atomic.Pointer[sweep.Processor]
	tracker   *gateway.Tracker
	tracer    trace.TracerProvider
	dryRun    bool

	shutdownTelemetry telemetry.ShutdownFunc

	scheduler *cron.Scheduler
	gateway   *gateway.Gateway
}

var _ daemon.Runner = (*App)(nil)

// New wires the Chatwork client, the processor and their observers from cfg.
// Call Close when done to flush telemetry.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, params Params) (*App, error) {
	tp, shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		Version:     params.Version,
	}, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:               cfg,
		logger:            logger,
		metrics:           metrics.New(),
		tracker:           gateway.NewTracker(),
		tracer:            tp,
		dryRun:            params.DryRun,
		shutdownTelemetry: shutdown,
	}
	a.client = newClient(cfg, logger, a.metrics, tp, params)
	a.processor.Store(a.newProcessor(cfg.Chatwork))
	return a, nil
}

func (a *App) newProcessor(cw config.ChatworkConfig) *sweep.Processor {
	return sweep.NewProcessor(a.client, sweep.Config{
		ExcludeAccountIDs: cw.ExcludeAccountIDs,
		ExcludeRoomIDs:    cw.ExcludeRoomIDs,
		DryRun:            a.dryRun,
	},
		sweep.WithLogger(a.logger),
		sweep.WithRecorder(a.metrics),
		sweep.WithTracerProvider(a.tracer),
	)
}

// ApplyConfig swaps in the exclusion lists of cfg. A sweep already running
// finishes with the lists it started with. Other settings need a restart;
// the warning is logged once per change.
func (a *App) ApplyConfig(cfg *config.Config) error {
	a.cfgMu.Lock()
	prev := a.cfg
	a.cfg = cfg
	a.cfgMu.Unlock()

	if cfg.Chatwork.APIToken != prev.Chatwork.APIToken ||
		cfg.Chatwork.BaseURL != prev.Chatwork.BaseURL ||
		cfg.Schedule != prev.Schedule {
		a.logger.Warn("app: connection and schedule changes apply after restart")
	}
	a.processor.Store(a.newProcessor(cfg.Chatwork))
	a.logger.Info("app: exclusions updated",
		"excluded_accounts", len(cfg.Chatwork.ExcludeAccountIDs),
		"excluded_rooms", len(cfg.Chatwork.ExcludeRoomIDs),
	)
	return nil
}

func newClient(cfg *config.Config, logger *slog.Logger, rec chatwork.Recorder, tp trace.TracerProvider, params Params) *chatwork.Client {
	opts := []chatwork.Option{
		chatwork.WithBaseURL(cfg.Chatwork.BaseURL),
		chatwork.WithTimeout(cfg.HTTP.Timeout),
		chatwork.WithRetry(chatwork.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
		}),
		chatwork.WithRateLimit(cfg.HTTP.RequestsPerSecond),
		chatwork.WithLogger(logger),
		chatwork.WithRecorder(rec),
		chatwork.WithTracerProvider(tp),
	}
	if params.HTTPClient != nil {
		opts = append(opts, chatwork.WithHTTPClient(params.HTTPClient))
	}
	return chatwork.NewClient(cfg.Chatwork.APIToken, opts...)
}

// Sweep runs a single sweep.
func (a *App) Sweep(ctx context.Context) (sweep.Report, error) {
	return a.processor.Load().ProcessAllRooms(ctx)
}

// ProcessAllRooms lets the scheduler pick up the current processor on
// every run.
func (a *App) ProcessAllRooms(ctx context.Context) (sweep.Report, error) {
	return a.Sweep(ctx)
}

// Start launches the scheduler and, when configured, the gateway. It does
// not block.
func (a *App) Start(ctx context.Context) error {
	a.scheduler = cron.NewScheduler(a.logger)
	job := &cron.SweepJob{
		Sweeper:      a,
		ScheduleExpr: a.cfg.Schedule.Cron,
		Timeout:      a.cfg.Schedule.SweepTimeout,
		Logger:       a.logger,
		Sink:         a.tracker,
	}
	if err := a.scheduler.RegisterJob(job); err != nil {
		return err
	}

	if a.cfg.Gateway.Bind != "" {
		a.gateway = gateway.New(gateway.Config{Bind: a.cfg.Gateway.Bind}, a.tracker,
			gateway.WithLogger(a.logger),
			gateway.WithMetrics(a.metrics.Handler()),
		)
		if err := a.gateway.Start(ctx); err != nil {
			return err
		}
	}

	if err := a.scheduler.Start(); err != nil {
		if a.gateway != nil {
			_ = a.gateway.Stop(ctx)
		}
		return err
	}
	a.logger.Info("app: scheduler running", "schedule", job.Schedule(), "gateway", a.cfg.Gateway.Bind)

	if a.cfg.Schedule.RunOnStart {
		if err := a.scheduler.Trigger(cron.SweepJobName); err != nil {
			return fmt.Errorf("app: initial sweep: %w", err)
		}
	}
	return nil
}

// Stop halts the scheduler (cancelling any running sweep) and the gateway.
func (a *App) Stop(ctx context.Context) error {
	var errs []error
	if a.scheduler != nil {
		errs = append(errs, a.scheduler.Stop(ctx))
	}
	if a.gateway != nil {
		errs = append(errs, a.gateway.Stop(ctx))
	}
	return errors.Join(errs...)
}

// Close flushes pending spans.
func (a *App) Close(ctx context.Context) error {
	if a.shutdownTelemetry == nil {
		return nil
	}
	return a.shutdownTelemetry(ctx)
}

// Tracker exposes the scheduled sweep status.
func (a *App) Tracker() *gateway.Tracker {
	return a.tracker
}

// Metrics exposes the Prometheus collectors.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

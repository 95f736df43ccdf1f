// Package gateway serves health, status and Prometheus metrics over HTTP
// while the scheduler runs.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Gateway is the optional HTTP listener of scheduler mode.
type Gateway struct {
	config    Config
	logger    *slog.Logger
	tracker   *Tracker
	metrics   http.Handler
	server    *http.Server
	addr      net.Addr
	startedAt time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(g *Gateway) {
		g.metrics = h
	}
}

// New creates a gateway reporting the sweeps recorded by tracker.
func New(cfg Config, tracker *Tracker, opts ...Option) *Gateway {
	cfg.defaults()
	if tracker == nil {
		tracker = NewTracker()
	}
	g := &Gateway{
		config:    cfg,
		logger:    slog.New(slog.DiscardHandler),
		tracker:   tracker,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handler returns the routed handler without starting a listener.
func (g *Gateway) Handler() http.Handler {
	return g.routes()
}

// Start binds the listener and serves in the background.
func (g *Gateway) Start(ctx context.Context) error {
	g.startedAt = time.Now()
	g.server = &http.Server{
		Handler:      g.routes(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen %s: %w", g.config.Bind, err)
	}
	g.addr = ln.Addr()

	go func() {
		g.logger.Info("gateway: listening", "addr", g.addr.String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway: serve error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or nil before Start.
func (g *Gateway) Addr() net.Addr {
	return g.addr
}

// Stop shuts the server down gracefully within the configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway: shutting down")
	return g.server.Shutdown(shutdownCtx)
}

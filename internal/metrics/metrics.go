// Package metrics exposes Prometheus counters for Chatwork API traffic and
// sweep outcomes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flemzord/chatwork-autoread/internal/chatwork"
	"github.com/flemzord/chatwork-autoread/internal/sweep"
)

const namespace = "chatwork_autoread"

// Metrics owns a private registry so tests and embedders never collide with
// the global default registry. All methods are safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
	requestErrors *prometheus.CounterVec
	rooms         *prometheus.CounterVec
	sweeps        *prometheus.CounterVec
	sweepDuration prometheus.Histogram
	lastSweep     prometheus.Gauge

	now func() time.Time
}

var (
	_ chatwork.Recorder = (*Metrics)(nil)
	_ sweep.Recorder    = (*Metrics)(nil)
)

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Chatwork API request attempts, retries included.",
		}, []string{"op"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Chatwork API responses with status 429.",
		}, []string{"op"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_errors_total",
			Help:      "Chatwork API calls that ended in an error, by kind.",
		}, []string{"op", "kind"}),
		rooms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_total",
			Help:      "Rooms visited by sweeps, by outcome.",
		}, []string{"outcome"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Completed sweeps, by result.",
		}, []string{"result"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall-clock duration of a sweep.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		lastSweep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sweep_timestamp_seconds",
			Help:      "Unix time at which the last sweep finished.",
		}),
		now: time.Now,
	}

	m.registry.MustRegister(
		m.requests,
		m.rateLimited,
		m.requestErrors,
		m.rooms,
		m.sweeps,
		m.sweepDuration,
		m.lastSweep,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RequestAttempt counts one HTTP attempt.
func (m *Metrics) RequestAttempt(op string) {
	m.requests.WithLabelValues(op).Inc()
}

// RateLimited counts one 429 response.
func (m *Metrics) RateLimited(op string) {
	m.rateLimited.WithLabelValues(op).Inc()
}

// RequestFailed counts a call that returned an error of the given kind.
func (m *Metrics) RequestFailed(op, kind string) {
	m.requestErrors.WithLabelValues(op, kind).Inc()
}

// RoomOutcome counts one room result.
func (m *Metrics) RoomOutcome(o sweep.Outcome) {
	m.rooms.WithLabelValues(string(o)).Inc()
}

// SweepFinished observes the duration and result of a sweep.
func (m *Metrics) SweepFinished(d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.sweeps.WithLabelValues(result).Inc()
	m.sweepDuration.Observe(d.Seconds())
	m.lastSweep.Set(float64(m.now().Unix()))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

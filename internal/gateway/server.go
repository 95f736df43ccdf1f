package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Read-only endpoints served in scheduler mode.
const (
	pathHealth  = "/health"
	pathStatus  = "/status"
	pathMetrics = "/metrics"
)

// routes mounts the sweep endpoints; /metrics only when a handler was given.
func (g *Gateway) routes() http.Handler {
	mux := chi.NewRouter()
	mux.Get(pathHealth, g.handleHealth())
	mux.Get(pathStatus, g.handleStatus())
	if g.metrics != nil {
		mux.Method(http.MethodGet, pathMetrics, g.metrics)
	}
	return mux
}

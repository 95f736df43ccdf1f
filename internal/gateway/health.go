package gateway

import (
	"encoding/json"
	"net/http"
	"time"
)

// Health states reported by GET /health.
const (
	HealthOK      = "ok"
	HealthPending = "pending"
	HealthFailing = "failing"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status       string    `json:"status"`
	LastFinished time.Time `json:"last_finished,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 503 when the most recent sweep failed.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := g.tracker.Snapshot()
		resp := HealthResponse{
			Status:       HealthOK,
			LastFinished: snap.LastFinished,
			LastError:    snap.LastError,
		}

		switch {
		case snap.Sweeps == 0:
			resp.Status = HealthPending
		case snap.LastError != "":
			resp.Status = HealthFailing
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == HealthFailing {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

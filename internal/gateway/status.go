package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/flemzord/chatwork-autoread/internal/sweep"
)

// SweepStatus is a point-in-time view of scheduled sweep results.
type SweepStatus struct {
	Sweeps       int64         `json:"sweeps"`
	Failures     int64         `json:"failures"`
	LastFinished time.Time     `json:"last_finished,omitzero"`
	LastDuration time.Duration `json:"last_duration_ns,omitempty"`
	LastError    string        `json:"last_error,omitempty"`
	LastReport   *sweep.Report `json:"last_report,omitempty"`
}

// Tracker remembers the outcome of the most recent sweep. It is safe for
// concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	status SweepStatus
	now    func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// SweepCompleted records the result of one sweep.
func (t *Tracker) SweepCompleted(report sweep.Report, d time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Sweeps++
	t.status.LastFinished = t.now()
	t.status.LastDuration = d
	t.status.LastReport = &report
	t.status.LastError = ""
	if err != nil {
		t.status.Failures++
		t.status.LastError = err.Error()
	}
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() SweepStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := t.status
	if snap.LastReport != nil {
		r := *snap.LastReport
		snap.LastReport = &r
	}
	return snap
}

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime int64       `json:"uptime_seconds"`
	Sweep  SweepStatus `json:"sweep"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime: int64(time.Since(g.startedAt).Seconds()),
			Sweep:  g.tracker.Snapshot(),
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

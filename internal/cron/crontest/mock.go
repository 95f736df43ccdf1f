// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"sync"
	"time"

	"github.com/flemzord/chatwork-autoread/internal/cron"
	"github.com/flemzord/chatwork-autoread/internal/sweep"
)

// MockJob is a configurable test double for cron.Job.
type MockJob struct {
	NameVal     string
	ScheduleVal string
	RunFunc     func(ctx context.Context) error

	mu       sync.Mutex
	calls    int
	lastCall time.Time
}

var _ cron.Job = (*MockJob)(nil)

// Name implements cron.Job.
func (m *MockJob) Name() string { return m.NameVal }

// Schedule implements cron.Job.
func (m *MockJob) Schedule() string { return m.ScheduleVal }

// Run implements cron.Job and increments the call counter.
func (m *MockJob) Run(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.lastCall = time.Now()
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return nil
}

// CallCount returns the number of times Run was called.
func (m *MockJob) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastCall returns the time of the last Run call.
func (m *MockJob) LastCall() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCall
}

// MockSweeper is a test double for cron.Sweeper.
type MockSweeper struct {
	ProcessFunc func(ctx context.Context) (sweep.Report, error)

	mu    sync.Mutex
	calls int
}

var _ cron.Sweeper = (*MockSweeper)(nil)

// ProcessAllRooms implements cron.Sweeper.
func (m *MockSweeper) ProcessAllRooms(ctx context.Context) (sweep.Report, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx)
	}
	return sweep.Report{}, nil
}

// CallCount returns the number of sweeps run.
func (m *MockSweeper) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// SinkCall is one recorded SweepCompleted invocation.
type SinkCall struct {
	Report   sweep.Report
	Duration time.Duration
	Err      error
}

// MockSink records results passed to cron.ResultSink.
type MockSink struct {
	mu    sync.Mutex
	calls []SinkCall
}

var _ cron.ResultSink = (*MockSink)(nil)

// SweepCompleted implements cron.ResultSink.
func (m *MockSink) SweepCompleted(report sweep.Report, d time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, SinkCall{Report: report, Duration: d, Err: err})
}

// Calls returns a copy of the recorded calls.
func (m *MockSink) Calls() []SinkCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SinkCall(nil), m.calls...)
}

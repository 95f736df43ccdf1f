package cron_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/flemzord/chatwork-autoread/internal/cron"
	"github.com/flemzord/chatwork-autoread/internal/cron/crontest"
	"github.com/flemzord/chatwork-autoread/internal/sweep"
)

func TestSweepJob_NameAndSchedule(t *testing.T) {
	t.Parallel()

	j := &cron.SweepJob{}
	if j.Name() != cron.SweepJobName {
		t.Errorf("name = %q, want %q", j.Name(), cron.SweepJobName)
	}
	if j.Schedule() != cron.DefaultSweepSchedule {
		t.Errorf("schedule = %q, want %q", j.Schedule(), cron.DefaultSweepSchedule)
	}

	j.ScheduleExpr = "@every 5m"
	if j.Schedule() != "@every 5m" {
		t.Errorf("schedule = %q, want @every 5m", j.Schedule())
	}
}

func TestSweepJob_RunReportsToSink(t *testing.T) {
	t.Parallel()

	sweeper := &crontest.MockSweeper{
		ProcessFunc: func(context.Context) (sweep.Report, error) {
			return sweep.Report{Rooms: 3, Marked: 2}, nil
		},
	}
	sink := &crontest.MockSink{}
	j := &cron.SweepJob{Sweeper: sweeper, Sink: sink, Logger: slog.New(slog.DiscardHandler)}

	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	calls := sink.Calls()
	if len(calls) != 1 {
		t.Fatalf("sink calls = %d, want 1", len(calls))
	}
	if calls[0].Report.Marked != 2 || calls[0].Err != nil {
		t.Errorf("sink call = %+v, want marked=2 without error", calls[0])
	}
}

func TestSweepJob_RunError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	sweeper := &crontest.MockSweeper{
		ProcessFunc: func(context.Context) (sweep.Report, error) {
			return sweep.Report{}, boom
		},
	}
	sink := &crontest.MockSink{}
	j := &cron.SweepJob{Sweeper: sweeper, Sink: sink}

	err := j.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want wrapped boom", err)
	}
	if calls := sink.Calls(); len(calls) != 1 || !errors.Is(calls[0].Err, boom) {
		t.Errorf("sink calls = %+v, want one failed call", calls)
	}
}

func TestSweepJob_Timeout(t *testing.T) {
	t.Parallel()

	sweeper := &crontest.MockSweeper{
		ProcessFunc: func(ctx context.Context) (sweep.Report, error) {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("expected a deadline on the sweep context")
			}
			<-ctx.Done()
			return sweep.Report{}, ctx.Err()
		},
	}
	j := &cron.SweepJob{Sweeper: sweeper, Timeout: 20 * time.Millisecond}

	err := j.Run(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run error = %v, want DeadlineExceeded", err)
	}
}

func TestSweepJob_ScheduledAndTriggered(t *testing.T) {
	t.Parallel()

	done := make(chan struct{}, 1)
	sweeper := &crontest.MockSweeper{
		ProcessFunc: func(context.Context) (sweep.Report, error) {
			done <- struct{}{}
			return sweep.Report{}, nil
		},
	}

	s := cron.NewScheduler(slog.New(slog.DiscardHandler))
	if err := s.RegisterJob(&cron.SweepJob{Sweeper: sweeper, ScheduleExpr: "@yearly"}); err != nil {
		t.Fatalf("RegisterJob: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = s.Stop(context.Background()) }()

	if err := s.Trigger(cron.SweepJobName); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run")
	}
	if sweeper.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", sweeper.CallCount())
	}
}

func TestMockJob(t *testing.T) {
	t.Parallel()

	m := &crontest.MockJob{NameVal: "n", ScheduleVal: "@daily"}
	var _ cron.Job = m

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.CallCount() != 1 || m.LastCall().IsZero() {
		t.Errorf("calls = %d, last = %v", m.CallCount(), m.LastCall())
	}
}

package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/chatwork-autoread/internal/sweep"
)

// SweepJobName identifies the sweep in logs and Trigger calls.
const SweepJobName = "chatwork_sweep"

// DefaultSweepSchedule is used when no expression is configured.
const DefaultSweepSchedule = "*/15 * * * *"

// Sweeper runs one sweep. *sweep.Processor satisfies it.
type Sweeper interface {
	ProcessAllRooms(ctx context.Context) (sweep.Report, error)
}

// ResultSink receives the result of every scheduled sweep.
type ResultSink interface {
	SweepCompleted(report sweep.Report, d time.Duration, err error)
}

// SweepJob runs the Chatwork auto-read sweep on a schedule.
type SweepJob struct {
	Sweeper      Sweeper
	ScheduleExpr string        // empty = DefaultSweepSchedule
	Timeout      time.Duration // 0 = no per-run deadline
	Logger       *slog.Logger
	Sink         ResultSink // optional
}

var (
	_ Job     = (*SweepJob)(nil)
	_ Sweeper = (*sweep.Processor)(nil)
)

// Name implements Job.
func (j *SweepJob) Name() string { return SweepJobName }

// Schedule implements Job.
func (j *SweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultSweepSchedule
}

// Run performs one sweep bounded by Timeout and reports the result to Sink.
func (j *SweepJob) Run(ctx context.Context) error {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	report, err := j.Sweeper.ProcessAllRooms(ctx)
	elapsed := time.Since(start)

	if j.Sink != nil {
		j.Sink.SweepCompleted(report, elapsed, err)
	}
	if err != nil {
		return fmt.Errorf("cron: sweep: %w", err)
	}

	if j.Logger != nil {
		j.Logger.Info("cron: sweep finished",
			"duration", elapsed.Round(time.Millisecond),
			"marked", report.Marked,
			"failed", report.Failed,
		)
	}
	return nil
}

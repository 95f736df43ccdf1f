// Package cron runs periodic jobs, chiefly the Chatwork sweep, on cron
// expressions.
package cron

import "context"

// Job is something the Scheduler runs on a schedule.
type Job interface {
	// Name identifies the job in logs and in Trigger. It must be unique
	// within a Scheduler.
	Name() string

	// Schedule is parsed with Parser: five fields ("*/15 * * * *") or a
	// descriptor ("@hourly", "@every 15m").
	Schedule() string

	// Run performs one execution. ctx is cancelled when the scheduler stops.
	Run(ctx context.Context) error
}

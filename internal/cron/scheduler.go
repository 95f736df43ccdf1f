package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Parser accepts standard 5-field expressions plus descriptors.
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ErrNotStarted is returned by Trigger before Start.
var ErrNotStarted = errors.New("cron: scheduler not started")

// Scheduler manages periodic job execution using cron expressions.
// Each job is protected by a per-job mutex so a tick never overlaps a
// running instance of the same job (TryLock, atomic).
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   []Job
	names  map[string]struct{}
	locks  map[string]*sync.Mutex
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. Jobs must be registered before Start().
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		names:  make(map[string]struct{}),
		locks:  make(map[string]*sync.Mutex),
		logger: logger,
	}
}

// RegisterJob adds a job to the scheduler. Must be called before Start().
// Returns an error if a job with the same name is already registered.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.names[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}

	s.names[name] = struct{}{}
	s.locks[name] = &sync.Mutex{}
	s.jobs = append(s.jobs, j)
	return nil
}

// Start initializes the cron scheduler and begins executing registered jobs.
// Returns an error if any job has an invalid schedule expression.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithParser(Parser))

	for _, job := range s.jobs {
		lock := s.locks[job.Name()]
		if _, err := c.AddFunc(job.Schedule(), func() { s.run(ctx, job, lock) }); err != nil {
			cancel()
			return fmt.Errorf("cron: invalid schedule for job %q: %w", job.Name(), err)
		}
	}

	s.ctx, s.cancel, s.cron = ctx, cancel, c
	s.cron.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.jobs))
	return nil
}

// Trigger runs the named job once in the background, outside its schedule.
// The run is skipped if the job is already running.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return ErrNotStarted
	}
	lock, ok := s.locks[name]
	if !ok {
		return fmt.Errorf("cron: unknown job %q", name)
	}

	var job Job
	for _, j := range s.jobs {
		if j.Name() == name {
			job = j
			break
		}
	}

	ctx := s.ctx
	s.wg.Go(func() { s.run(ctx, job, lock) })
	return nil
}

func (s *Scheduler) run(ctx context.Context, job Job, lock *sync.Mutex) {
	// If the previous run is still in flight, skip this one.
	if !lock.TryLock() {
		s.logger.Warn("cron: job still running, skipping tick", "job", job.Name())
		return
	}
	defer lock.Unlock()

	s.logger.Debug("cron: job started", "job", job.Name())
	if err := job.Run(ctx); err != nil {
		s.logger.Error("cron: job failed", "job", job.Name(), "error", err)
		return
	}
	s.logger.Debug("cron: job completed", "job", job.Name())
}

// Stop cancels running jobs and waits for them to return, or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.ctx = nil
	if s.cron == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		<-s.cron.Stop().Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("cron: scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cron: stop: %w", ctx.Err())
	}
}

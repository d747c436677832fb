// Package scheduler runs the periodic background jobs: calendar reload,
// staleness warnings and session sweeping.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "campusweb/internal/log"
)

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 2 * time.Minute

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

// cronLogger routes cron's own messages through the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}

// Scheduler wraps a cron runner. Overlapping runs of the same job are
// skipped.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

// New creates a scheduler evaluating specs in loc.
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger{}),
			cron.WithChain(
				cron.Recover(cronLogger{}),
				cron.SkipIfStillRunning(cronLogger{}),
			),
		),
		timeout: DefaultJobTimeout,
	}
}

// Add registers job under a standard 5-field cron spec or a descriptor
// such as "@every 10m".
func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, job) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	appLog.Info("scheduler: job registered", "job", name, "spec", spec)
	return nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	appLog.Info("scheduler: started", "jobs", s.Len())
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		appLog.Warn("scheduler: stop timed out with jobs still running")
	}
}

func (s *Scheduler) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	if err := job(ctx); err != nil {
		appLog.Error("scheduler: job failed", err, "job", name, "duration", time.Since(started).String())
		return
	}
	appLog.Debug("scheduler: job finished", "job", name, "duration", time.Since(started).String())
}

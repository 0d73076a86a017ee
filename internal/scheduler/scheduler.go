// Package scheduler wires up the cron job that periodically refreshes the cached
// salary records and the learning-path catalogue.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonathan/openpay/internal/fetch"
	"github.com/jonathan/openpay/internal/roadmaps"
)

// Job is one unit of periodic work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Refresher reloads cached data and reports how many records it now holds.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// RefreshJob reloads the cached salary records.
func RefreshJob(r Refresher, logger *slog.Logger) Job {
	return Job{
		Name: "refresh_records",
		Run: func(ctx context.Context) error {
			n, err := r.Refresh(ctx)
			if err != nil {
				return err
			}
			logger.Info("salary cache refreshed", "records", n)
			return nil
		},
	}
}

// CatalogJob adds the learning paths listed on pageURL to catalog.
func CatalogJob(catalog *roadmaps.Catalog, pageURL string, opts *fetch.Options, logger *slog.Logger) Job {
	return Job{
		Name: "refresh_roadmaps",
		Run: func(ctx context.Context) error {
			added, err := catalog.Refresh(ctx, pageURL, opts)
			if err != nil {
				return err
			}
			logger.Info("learning paths refreshed", "added", added, "total", catalog.Len())
			return nil
		},
	}
}

// Scheduler wraps robfig/cron and runs every job on a fixed interval.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	interval time.Duration
	jobs     []Job
	logger   *slog.Logger
}

// New creates a Scheduler that fires every interval. A zero interval disables it.
func New(interval time.Duration, logger *slog.Logger, jobs ...Job) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	adapter := cronLogger{logger: logger}
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(adapter), cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter))),
		schedule: fmt.Sprintf("@every %s", interval),
		interval: interval,
		jobs:     jobs,
		logger:   logger,
	}
}

// Enabled reports whether the scheduler has a positive interval.
func (s *Scheduler) Enabled() bool {
	return s.interval > 0
}

// Start registers the jobs and starts the scheduler. It also runs them once
// immediately, without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.Enabled() {
		s.logger.Info("scheduled refresh disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunNow(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.schedule, "jobs", len(s.jobs))

	go s.RunNow(ctx)
	return nil
}

// Stop stops the scheduler and waits for a running cycle to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.logger.Info("scheduler stopped")
}

// RunNow runs every job once, in order. A failing job does not stop the others.
func (s *Scheduler) RunNow(ctx context.Context) {
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			s.logger.Warn("scheduled job failed", "job", job.Name, "error", err)
			continue
		}
		s.logger.Debug("scheduled job done", "job", job.Name, "duration", time.Since(start))
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

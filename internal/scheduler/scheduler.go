package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ibeckermayer/tikfollow/internal/config"
)

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler repeats runs on a cron schedule. A run that is still going when
// its next tick fires makes that tick a no-op.
type Scheduler struct {
	mu         sync.Mutex
	cron       *cron.Cron
	jobs       map[string]cron.EntryID
	timezone   *time.Location
	runTimeout time.Duration
	logger     *zap.Logger
}

// New creates a new scheduler from cfg
func New(cfg config.ScheduleConfig, logger *zap.Logger) (*Scheduler, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = "Local"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", tz, err)
	}

	cl := cronLogger{logger.Sugar()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &Scheduler{
		cron:       c,
		jobs:       make(map[string]cron.EntryID),
		timezone:   loc,
		runTimeout: cfg.RunTimeout,
		logger:     logger,
	}, nil
}

// AddJob adds a job with a cron schedule. Each run gets a context derived
// from ctx and bounded by the run timeout.
// schedule format: "0 7 * * *" (at 7:00 AM daily) or "@every 6h"
func (s *Scheduler) AddJob(ctx context.Context, name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, s.wrap(ctx, name, job))
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.mu.Lock()
	s.jobs[name] = entryID
	s.mu.Unlock()
	s.logger.Info("Added job", zap.String("job", name), zap.String("schedule", schedule))

	return nil
}

func (s *Scheduler) wrap(ctx context.Context, name string, job Job) func() {
	return func() {
		if ctx.Err() != nil {
			return
		}
		runCtx, cancel := s.runContext(ctx)
		defer cancel()

		s.logger.Info("Starting job", zap.String("job", name))
		start := time.Now()

		if err := job(runCtx); err != nil {
			s.logger.Error("Job failed", zap.String("job", name), zap.Error(err))
		} else {
			s.logger.Info("Job completed", zap.String("job", name), zap.Duration("took", time.Since(start)))
		}
	}
}

func (s *Scheduler) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.runTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.runTimeout)
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.logger.Info("Removed job", zap.String("job", name))
	}
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler", zap.Stringer("timezone", s.timezone))
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("Stopping scheduler")
	return s.cron.Stop()
}

// RunNow immediately executes a job with the same bounds as a scheduled run
func (s *Scheduler) RunNow(ctx context.Context, name string, job Job) error {
	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	s.logger.Info("Running job now", zap.String("job", name))
	return job(runCtx)
}

// ListJobs returns info about scheduled jobs. Before Start, NextRun is
// computed from the schedule.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.cron.Entries()
	infos := make([]JobInfo, 0, len(entries))

	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				next := entry.Next
				if next.IsZero() {
					next = entry.Schedule.Next(time.Now().In(s.timezone))
				}
				infos = append(infos, JobInfo{
					Name:    name,
					NextRun: next,
					LastRun: entry.Prev,
				})
				break
			}
		}
	}

	return infos
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

// cronLogger routes cron's own logging through zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultJobTimeout = 5 * time.Minute

// Job is one periodic task. An empty Spec disables it.
type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu   sync.Mutex
	jobs map[string]Job
}

func New(logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		), cron.WithLogger(cl)),
		logger: logger,
		jobs:   make(map[string]Job),
	}
}

// Register schedules the job and reports whether it was scheduled. Jobs with an empty spec are skipped.
func (s *Scheduler) Register(job Job) (bool, error) {
	if strings.TrimSpace(job.Spec) == "" {
		s.logger.Info("scheduled job disabled", "job", job.Name)
		return false, nil
	}
	if job.Run == nil {
		return false, fmt.Errorf("job %s has no run function", job.Name)
	}
	if job.Timeout <= 0 {
		job.Timeout = defaultJobTimeout
	}

	if _, err := s.cron.AddFunc(job.Spec, func() { s.execute(context.Background(), job) }); err != nil {
		return false, fmt.Errorf("schedule job %s (%q): %w", job.Name, job.Spec, err)
	}

	s.mu.Lock()
	s.jobs[job.Name] = job
	s.mu.Unlock()

	s.logger.Info("scheduled job registered", "job", job.Name, "spec", job.Spec, "timeout", job.Timeout)
	return true, nil
}

// Jobs returns the names of registered jobs.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// RunNow executes a registered job immediately on the calling goroutine.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	return s.execute(ctx, job)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.Jobs()))
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) execute(parent context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(parent, job.Timeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("scheduled job failed", "job", job.Name, "duration_ms", duration.Milliseconds(), "error", err)
		return err
	}
	s.logger.Info("scheduled job finished", "job", job.Name, "duration_ms", duration.Milliseconds())
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

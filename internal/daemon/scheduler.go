package daemon

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts standard five-field expressions and descriptors such as
// @daily or @every 6h
var parser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule validates a cron expression
func ParseSchedule(expr string) (cron.Schedule, error) {
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return schedule, nil
}

// Scheduler runs a single job on a cron schedule. A run that is still in
// progress when the next one is due causes that one to be skipped.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	entry    cron.EntryID
	mu       sync.Mutex
	running  bool
	logger   *slog.Logger
}

// NewScheduler creates a scheduler for expr
func NewScheduler(expr string, logger *slog.Logger) (*Scheduler, error) {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}

	cl := cronLogger{logger}
	c := cron.New(cron.WithParser(parser), cron.WithLogger(cl), cron.WithChain(
		cron.Recover(cl),
		cron.SkipIfStillRunning(cl),
	))

	return &Scheduler{
		cron:     c,
		schedule: schedule,
		logger:   logger,
	}, nil
}

// Start schedules job and starts the cron loop
func (s *Scheduler) Start(job func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.entry = s.cron.Schedule(s.schedule, cron.FuncJob(job))
	s.cron.Start()
	s.running = true

	s.logger.Info("scheduler started", "next_run", s.cron.Entry(s.entry).Next)
	return nil
}

// Stop stops the scheduler and waits up to timeout for a running job
func (s *Scheduler) Stop(timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(timeout):
		s.logger.Warn("scheduler stop timed out", "timeout", timeout)
	}

	s.cron.Remove(s.entry)
	s.running = false
	s.logger.Info("scheduler stopped")
}

// NextRun returns when the job runs next, or the zero time when stopped
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// cronLogger adapts slog to cron.Logger
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

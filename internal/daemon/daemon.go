// Package daemon keeps the process alive and runs maintenance on a cron
// schedule until it receives SIGINT or SIGTERM.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fenilsonani/uploads-maintenance/internal/maintenance"
)

// stopTimeout bounds how long shutdown waits for an in-flight run
const stopTimeout = 30 * time.Second

// ErrAlreadyRunning is returned when the PID lock is held by another process
var ErrAlreadyRunning = errors.New("daemon already running")

// Job is one maintenance pass
type Job interface {
	Run(ctx context.Context) (*maintenance.RunSummary, error)
}

// Daemon runs a Job on a schedule
type Daemon struct {
	job       Job
	scheduler *Scheduler
	logger    *slog.Logger
	pidFile   string
	onRun     func(*maintenance.RunSummary)

	mu         sync.RWMutex
	running    bool
	cancelFunc context.CancelFunc
}

// Option configures a Daemon
type Option func(*Daemon)

// WithPidFile writes the process id to path while running. A second
// daemon with the same path refuses to start.
func WithPidFile(path string) Option {
	return func(d *Daemon) {
		d.pidFile = path
	}
}

// WithRunHook is called with the summary of every completed run
func WithRunHook(fn func(*maintenance.RunSummary)) Option {
	return func(d *Daemon) {
		d.onRun = fn
	}
}

// New creates a daemon running job on the cron expression schedule
func New(schedule string, job Job, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}

	scheduler, err := NewScheduler(schedule, logger)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		job:       job,
		scheduler: scheduler,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start blocks until ctx is done, Stop is called, or the process receives
// SIGINT or SIGTERM. A run in progress at shutdown is interrupted at the
// next folder boundary.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon already started")
	}
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.running = true
	d.cancelFunc = cancel
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.cancelFunc = nil
		d.mu.Unlock()
	}()

	if d.pidFile != "" {
		if err := d.writePidFile(); err != nil {
			return err
		}
		defer d.removePidFile()
	}

	if err := d.scheduler.Start(func() { d.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer d.scheduler.Stop(stopTimeout)

	d.logger.Info("daemon started", "pid", os.Getpid())
	<-ctx.Done()
	d.logger.Info("daemon shutting down")

	return nil
}

// Stop asks a started daemon to shut down
func (d *Daemon) Stop() {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.cancelFunc != nil {
		d.cancelFunc()
	}
}

// IsRunning returns whether the daemon is running
func (d *Daemon) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// NextRun returns when the next scheduled run is due
func (d *Daemon) NextRun() time.Time {
	return d.scheduler.NextRun()
}

// RunOnce executes the job immediately
func (d *Daemon) RunOnce(ctx context.Context) {
	summary, err := d.job.Run(ctx)
	if err != nil {
		d.logger.Warn("scheduled run did not complete", "error", err)
	}
	if summary != nil && d.onRun != nil {
		d.onRun(summary)
	}
	d.logger.Info("next run scheduled", "next_run", d.NextRun())
}

// writePidFile creates the PID file exclusively
func (d *Daemon) writePidFile() error {
	file, err := os.OpenFile(d.pidFile, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w (pid file %s exists)", ErrAlreadyRunning, d.pidFile)
		}
		return fmt.Errorf("write pid file: %w", err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

func (d *Daemon) removePidFile() {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		d.logger.Warn("cannot remove pid file", "path", d.pidFile, "error", err)
	}
}

package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fenilsonani/uploads-maintenance/internal/logging"
	"github.com/fenilsonani/uploads-maintenance/internal/maintenance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
}

func (j *countingJob) Run(ctx context.Context) (*maintenance.RunSummary, error) {
	j.runs.Add(1)
	return &maintenance.RunSummary{RunID: "test"}, ctx.Err()
}

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 3 * * *", false},
		{"*/15 * * * *", false},
		{"@daily", false},
		{"@every 6h", false},
		{"0 0 3 * * *", true},
		{"tomorrow", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := ParseSchedule(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	_, err := New("not a schedule", &countingJob{}, nil)
	assert.Error(t, err)
}

func TestRunOnceCallsHook(t *testing.T) {
	job := &countingJob{}
	var seen string
	d, err := New("@daily", job, logging.Discard().Logger, WithRunHook(func(s *maintenance.RunSummary) {
		seen = s.RunID
	}))
	require.NoError(t, err)

	d.RunOnce(context.Background())

	assert.Equal(t, int32(1), job.runs.Load())
	assert.Equal(t, "test", seen)
}

func TestStartRunsOnScheduleUntilCancelled(t *testing.T) {
	job := &countingJob{}
	pidFile := filepath.Join(t.TempDir(), "uploads-maintenance.pid")

	d, err := New("@every 1s", job, logging.Discard().Logger, WithPidFile(pidFile))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	require.Eventually(t, d.IsRunning, time.Second, 10*time.Millisecond)
	_, err = os.Stat(pidFile)
	assert.NoError(t, err, "pid file is written while running")
	assert.False(t, d.NextRun().IsZero())

	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, job.runs.Load(), int32(1))
	assert.False(t, d.IsRunning())

	_, err = os.Stat(pidFile)
	assert.True(t, os.IsNotExist(err), "pid file is removed on shutdown")
}

func TestStopEndsStart(t *testing.T) {
	d, err := New("@daily", &countingJob{}, logging.Discard().Logger)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- d.Start(context.Background()) }()
	require.Eventually(t, d.IsRunning, time.Second, 10*time.Millisecond)

	d.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestPidFileLock(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "uploads-maintenance.pid")
	require.NoError(t, os.WriteFile(pidFile, []byte("1\n"), 0644))

	d, err := New("@daily", &countingJob{}, logging.Discard().Logger, WithPidFile(pidFile))
	require.NoError(t, err)

	err = d.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.False(t, d.IsRunning())
}

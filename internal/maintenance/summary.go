package maintenance

import (
	"time"

	"github.com/fenilsonani/uploads-maintenance/internal/cleaner"
	"github.com/fenilsonani/uploads-maintenance/internal/notifier"
	"github.com/fenilsonani/uploads-maintenance/internal/policy"
)

// FolderOutcome is what happened to one folder during a run
type FolderOutcome struct {
	Name string
	Path string

	// ScanError is set when the folder could not be listed. Nothing else
	// is filled in then.
	ScanError error

	ScannedFiles int
	ScannedBytes int64
	Excluded     int

	// UsageBytes is the usage left once every selected file is gone
	UsageBytes       int64
	MaxStorageBytes  int64
	WarnStorageBytes int64
	WarnDisabled     bool

	Deleted      []policy.Decision
	DeletedBytes int64
	DeleteErrors []*cleaner.DeletionError

	Warned   bool
	Delivery notifier.Delivery
	Duration time.Duration
}

// Failed reports whether the folder could not be processed at all
func (o FolderOutcome) Failed() bool {
	return o.ScanError != nil
}

// RunSummary is the result of one pass over every configured folder
type RunSummary struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	DryRun    bool
	// Cancelled is set when the context ended before every folder was done
	Cancelled bool
	Folders   []FolderOutcome
}

// DeletedFiles returns the number of files deleted across all folders
func (s *RunSummary) DeletedFiles() int {
	n := 0
	for _, f := range s.Folders {
		n += len(f.Deleted)
	}
	return n
}

// DeletedBytes returns the bytes freed across all folders
func (s *RunSummary) DeletedBytes() int64 {
	var total int64
	for _, f := range s.Folders {
		total += f.DeletedBytes
	}
	return total
}

// Warnings returns the names of folders above their warning threshold
func (s *RunSummary) Warnings() []string {
	var names []string
	for _, f := range s.Folders {
		if f.Warned {
			names = append(names, f.Name)
		}
	}
	return names
}

// Errors returns the number of folder and file failures
func (s *RunSummary) Errors() int {
	n := 0
	for _, f := range s.Folders {
		if f.Failed() {
			n++
		}
		n += len(f.DeleteErrors)
	}
	return n
}

package cleaner

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fenilsonani/uploads-maintenance/internal/policy"
	"github.com/fenilsonani/uploads-maintenance/internal/security"
)

// CleanResult represents the result of a clean operation
type CleanResult struct {
	DeletedFiles []policy.Decision
	DeletedSize  int64
	Errors       []*DeletionError
	DryRun       bool
}

// Cleaner deletes the files selected by the policy engine
type Cleaner struct {
	dryRun bool
	logger *slog.Logger
	remove func(string) error
}

// New creates a new Cleaner. With dryRun set nothing is removed but the
// result reports what would have been.
func New(dryRun bool, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		dryRun: dryRun,
		logger: logger,
		remove: os.Remove,
	}
}

// Clean removes every decided file under root. A file that fails
// validation or removal is recorded in Errors and skipped. The returned
// error is set only when root itself cannot be resolved.
func (c *Cleaner) Clean(root string, decisions []policy.Decision) (*CleanResult, error) {
	result := &CleanResult{
		DeletedFiles: []policy.Decision{},
		Errors:       []*DeletionError{},
		DryRun:       c.dryRun,
	}
	if len(decisions) == 0 {
		return result, nil
	}

	validator, err := security.NewPathValidator(root)
	if err != nil {
		return nil, fmt.Errorf("prepare deletions: %w", err)
	}

	for _, d := range decisions {
		path := d.Record.Path
		if err := validator.ValidatePathForDeletion(path); err != nil {
			c.fail(result, path, err)
			continue
		}

		if !c.dryRun {
			if err := c.remove(path); err != nil {
				c.fail(result, path, err)
				continue
			}
		}

		result.DeletedFiles = append(result.DeletedFiles, d)
		result.DeletedSize += d.Record.SizeBytes
		c.logger.Info("deleted file",
			"path", path,
			"reason", d.Reason,
			"size", d.Record.SizeBytes,
			"modified", d.Record.ModTime,
			"dry_run", c.dryRun,
		)
	}

	return result, nil
}

func (c *Cleaner) fail(result *CleanResult, path string, err error) {
	delErr := CategorizeError(path, err)
	result.Errors = append(result.Errors, delErr)
	c.logger.Warn("could not delete file", "path", path, "reason", delErr.Reason.String(), "error", err)
}

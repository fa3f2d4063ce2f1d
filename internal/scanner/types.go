package scanner

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotDirectory is returned when an upload path exists but is not a directory
var ErrNotDirectory = errors.New("not a directory")

// FileRecord represents a regular file found in an upload folder
type FileRecord struct {
	Path      string    `json:"path" yaml:"path"`
	SizeBytes int64     `json:"size_bytes" yaml:"size_bytes"`
	AgeDays   float64   `json:"age_days" yaml:"age_days"`
	ModTime   time.Time `json:"mod_time" yaml:"mod_time"`
}

// ScanResult represents the result of scanning one folder. Files are in
// directory listing order.
type ScanResult struct {
	Folder     string
	Root       string
	Files      []FileRecord
	TotalSize  int64
	TotalCount int
	Excluded   int
	Errors     []error
}

func (r *ScanResult) add(rec FileRecord) {
	r.Files = append(r.Files, rec)
	r.TotalSize += rec.SizeBytes
	r.TotalCount++
}

// ScanError reports a folder that could not be scanned at all
type ScanError struct {
	Folder string
	Path   string
	Err    error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan folder %s (%s): %v", e.Folder, e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

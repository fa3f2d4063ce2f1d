// Package policy decides which files of a folder to delete. It never
// touches the filesystem.
package policy

import (
	"sort"

	"github.com/fenilsonani/uploads-maintenance/internal/config"
	"github.com/fenilsonani/uploads-maintenance/internal/scanner"
	"github.com/fenilsonani/uploads-maintenance/pkg/utils"
)

// Reason explains why a file was selected for deletion
type Reason string

const (
	// ReasonExpired marks files older than the folder's max age
	ReasonExpired Reason = "expired"
	// ReasonOverQuota marks the oldest files removed to get under max storage
	ReasonOverQuota Reason = "over_quota"
)

// Decision is one file selected for deletion
type Decision struct {
	Record scanner.FileRecord `json:"record" yaml:"record"`
	Reason Reason             `json:"reason" yaml:"reason"`
}

// Result is the outcome of evaluating a folder
type Result struct {
	// ToDelete lists expired files in scan order, then over-quota files
	// oldest first
	ToDelete []Decision
	// TotalUsageBytes is the usage left once ToDelete is applied
	TotalUsageBytes int64
	// Warn is set when the remaining usage is above the warning threshold
	Warn bool
}

// TotalUsageMB returns the remaining usage in decimal megabytes
func (r Result) TotalUsageMB() float64 {
	return utils.ToMB(r.TotalUsageBytes)
}

// Count returns how many decisions carry the given reason
func (r Result) Count(reason Reason) int {
	n := 0
	for _, d := range r.ToDelete {
		if d.Reason == reason {
			n++
		}
	}
	return n
}

// Size returns the bytes freed by decisions with the given reason
func (r Result) Size(reason Reason) int64 {
	var total int64
	for _, d := range r.ToDelete {
		if d.Reason == reason {
			total += d.Record.SizeBytes
		}
	}
	return total
}

// Evaluate applies the folder's age limit and storage cap to records.
//
// Every record older than MaxAgeDays is deleted. If the rest still uses
// more than MaxStorage, the oldest remaining records go next, one at a
// time, until usage fits or nothing is left; equal ages keep scan order.
// Warn compares the final usage with the warning threshold.
func Evaluate(p config.FolderPolicy, records []scanner.FileRecord) Result {
	var (
		result    Result
		remaining []scanner.FileRecord
	)

	maxAge := float64(p.MaxAgeDays)
	for _, rec := range records {
		if rec.AgeDays > maxAge {
			result.ToDelete = append(result.ToDelete, Decision{Record: rec, Reason: ReasonExpired})
			continue
		}
		remaining = append(remaining, rec)
		result.TotalUsageBytes += rec.SizeBytes
	}

	maxStorage := p.MaxStorageBytes()
	if result.TotalUsageBytes > maxStorage {
		sort.SliceStable(remaining, func(i, j int) bool {
			return remaining[i].AgeDays > remaining[j].AgeDays
		})
		for _, rec := range remaining {
			if result.TotalUsageBytes <= maxStorage {
				break
			}
			result.ToDelete = append(result.ToDelete, Decision{Record: rec, Reason: ReasonOverQuota})
			result.TotalUsageBytes -= rec.SizeBytes
		}
	}

	result.Warn = !p.WarnDisabled && result.TotalUsageBytes > p.WarnStorageBytes()
	return result
}

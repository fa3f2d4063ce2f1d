package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/IGLOU-EU/go-wildcard"
	"github.com/fenilsonani/uploads-maintenance/internal/config"
)

// Scanner lists the files of an upload folder
type Scanner struct {
	now func() time.Time
}

// Option configures a Scanner
type Option func(*Scanner)

// WithClock replaces time.Now, so ages can be computed against a fixed instant
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		s.now = now
	}
}

// New creates a new Scanner
func New(opts ...Option) *Scanner {
	s := &Scanner{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan lists the regular files under policy.Path. Only the top level is
// read unless policy.Recursive is set. Symlinks and other non-regular
// entries are ignored. A missing or unreadable folder returns *ScanError;
// problems with individual entries are collected in ScanResult.Errors.
func (s *Scanner) Scan(policy config.FolderPolicy) (*ScanResult, error) {
	result := &ScanResult{
		Folder: policy.Name,
		Root:   policy.Path,
		Files:  []FileRecord{},
		Errors: []error{},
	}

	info, err := os.Stat(policy.Path)
	if err != nil {
		return nil, &ScanError{Folder: policy.Name, Path: policy.Path, Err: err}
	}
	if !info.IsDir() {
		return nil, &ScanError{Folder: policy.Name, Path: policy.Path, Err: ErrNotDirectory}
	}

	now := s.now()
	if policy.Recursive {
		err = s.scanTree(policy, now, result)
	} else {
		err = s.scanTopLevel(policy, now, result)
	}
	if err != nil {
		return nil, &ScanError{Folder: policy.Name, Path: policy.Path, Err: err}
	}

	return result, nil
}

func (s *Scanner) scanTopLevel(policy config.FolderPolicy, now time.Time, result *ScanResult) error {
	entries, err := os.ReadDir(policy.Path)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if excluded(policy.Exclude, entry.Name()) {
			result.Excluded++
			continue
		}

		path := filepath.Join(policy.Path, entry.Name())
		info, err := entry.Info()
		if err != nil {
			// removed between listing and stat
			if !os.IsNotExist(err) {
				result.Errors = append(result.Errors, err)
			}
			continue
		}
		result.add(newRecord(path, info, now))
	}

	return nil
}

func (s *Scanner) scanTree(policy config.FolderPolicy, now time.Time, result *ScanResult) error {
	return filepath.WalkDir(policy.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == policy.Path {
				return err
			}
			result.Errors = append(result.Errors, err)
			return nil
		}
		if path == policy.Path {
			return nil
		}

		rel, relErr := filepath.Rel(policy.Path, path)
		if relErr != nil {
			result.Errors = append(result.Errors, relErr)
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if excluded(policy.Exclude, rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if excluded(policy.Exclude, rel) {
			result.Excluded++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			if !os.IsNotExist(err) {
				result.Errors = append(result.Errors, err)
			}
			return nil
		}
		result.add(newRecord(path, info, now))
		return nil
	})
}

// excluded matches rel (slash separated, relative to the folder) and its
// base name against each pattern
func excluded(patterns []string, rel string) bool {
	base := filepath.Base(rel)
	for _, pattern := range patterns {
		if wildcard.Match(pattern, rel) || wildcard.Match(pattern, base) {
			return true
		}
	}
	return false
}

func newRecord(path string, info fs.FileInfo, now time.Time) FileRecord {
	age := now.Sub(info.ModTime()).Hours() / 24
	if age < 0 {
		age = 0
	}
	return FileRecord{
		Path:      path,
		SizeBytes: info.Size(),
		AgeDays:   age,
		ModTime:   info.ModTime(),
	}
}

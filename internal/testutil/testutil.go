// Package testutil provides test helpers and fixtures for upload folder tests.
// All file operations use t.TempDir() for safe, isolated testing.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Day is one day of file age
const Day = 24 * time.Hour

// TestFixture holds an upload directory and a frozen clock. File ages are
// relative to Now, so tests do not drift with wall time.
type TestFixture struct {
	T       *testing.T
	RootDir string
	Now     time.Time
}

// NewFixture creates a new test fixture rooted in a fresh temp directory
func NewFixture(t *testing.T) *TestFixture {
	t.Helper()

	return &TestFixture{
		T:       t,
		RootDir: t.TempDir(),
		Now:     time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC),
	}
}

// Clock returns a clock frozen at f.Now
func (f *TestFixture) Clock() func() time.Time {
	return func() time.Time { return f.Now }
}

// =============================================================================
// File Creation Helpers
// =============================================================================

// CreateFile creates a file with specified content and returns its path
func (f *TestFixture) CreateFile(relPath string, content []byte) string {
	f.T.Helper()

	fullPath := f.Path(relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		f.T.Fatalf("failed to create directory for %s: %v", fullPath, err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		f.T.Fatalf("failed to create file %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateSizedFile creates a sparse file of the given logical size, aged
// ageDays before f.Now. Sparse files keep large fixtures cheap on disk.
func (f *TestFixture) CreateSizedFile(relPath string, size int64, ageDays float64) string {
	f.T.Helper()

	fullPath := f.CreateFile(relPath, nil)
	if err := os.Truncate(fullPath, size); err != nil {
		f.T.Fatalf("failed to size file %s: %v", fullPath, err)
	}
	f.SetAge(fullPath, ageDays)

	return fullPath
}

// SetAge sets a file's modification time to ageDays before f.Now
func (f *TestFixture) SetAge(fullPath string, ageDays float64) {
	f.T.Helper()

	modTime := f.Now.Add(-time.Duration(ageDays * float64(Day)))
	if err := os.Chtimes(fullPath, modTime, modTime); err != nil {
		f.T.Fatalf("failed to set file time for %s: %v", fullPath, err)
	}
}

// CreateDir creates a directory
func (f *TestFixture) CreateDir(relPath string) string {
	f.T.Helper()

	fullPath := f.Path(relPath)
	if err := os.MkdirAll(fullPath, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", fullPath, err)
	}
	return fullPath
}

// CreateSymlink creates a symlink at linkPath pointing to target
func (f *TestFixture) CreateSymlink(target, linkPath string) string {
	f.T.Helper()

	fullLink := f.Path(linkPath)
	if err := os.Symlink(target, fullLink); err != nil {
		f.T.Fatalf("failed to create symlink %s: %v", fullLink, err)
	}
	return fullLink
}

// =============================================================================
// Path and Assertion Helpers
// =============================================================================

// Path returns the absolute path of relPath inside the fixture
func (f *TestFixture) Path(relPath string) string {
	return filepath.Join(f.RootDir, relPath)
}

// FileExists reports whether path exists (without following symlinks)
func (f *TestFixture) FileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// AssertFileExists fails the test if path does not exist
func (f *TestFixture) AssertFileExists(path string) {
	f.T.Helper()
	if !f.FileExists(path) {
		f.T.Errorf("expected file to exist: %s", path)
	}
}

// AssertFileNotExists fails the test if path exists
func (f *TestFixture) AssertFileNotExists(path string) {
	f.T.Helper()
	if f.FileExists(path) {
		f.T.Errorf("expected file to not exist: %s", path)
	}
}

// IsRoot reports whether the tests run as root
func IsRoot() bool {
	return os.Geteuid() == 0
}

// SkipIfRoot skips tests that rely on permission errors
func SkipIfRoot(t *testing.T) {
	t.Helper()
	if IsRoot() {
		t.Skip("skipping test when running as root")
	}
}

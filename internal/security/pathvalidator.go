package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsafePath marks a path the cleaner must not touch
var ErrUnsafePath = errors.New("unsafe path")

var systemPaths = []string{
	// Unix system directories
	"/",
	"/bin",
	"/boot",
	"/dev",
	"/etc",
	"/home",
	"/lib",
	"/lib64",
	"/proc",
	"/root",
	"/sbin",
	"/sys",
	"/tmp",
	"/usr",
	"/var",
	// macOS system directories
	"/System",
	"/Applications",
	"/Library",
	"/Users",
}

// PathValidator confines deletions to one upload directory
type PathValidator struct {
	root           string
	protectedPaths []string
}

// NewPathValidator creates a PathValidator rooted at root. The root is
// resolved through symlinks once, so later checks compare real paths.
func NewPathValidator(root string) (*PathValidator, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}

	return &PathValidator{
		root:           filepath.Clean(resolved),
		protectedPaths: append([]string(nil), systemPaths...),
	}, nil
}

// Root returns the resolved root directory
func (pv *PathValidator) Root() string {
	return pv.root
}

// ValidatePathForDeletion checks that path names an entry strictly inside
// the root. Only the parent directory is resolved: removing a symlink
// removes the link, never its target.
func (pv *PathValidator) ValidatePathForDeletion(path string) error {
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("%w: path contains a null byte: %q", ErrUnsafePath, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnsafePath, path, err)
	}

	dir, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		return fmt.Errorf("resolve parent of %s: %w", path, err)
	}
	candidate := filepath.Join(dir, filepath.Base(abs))

	rel, err := filepath.Rel(pv.root, candidate)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s is outside %s", ErrUnsafePath, path, pv.root)
	}

	return pv.checkProtectedPaths(candidate)
}

// checkProtectedPaths refuses a path that is itself a system directory
func (pv *PathValidator) checkProtectedPaths(cleanPath string) error {
	for _, protected := range pv.protectedPaths {
		if cleanPath == protected {
			return fmt.Errorf("%w: refusing to delete protected path: %s", ErrUnsafePath, cleanPath)
		}
	}
	return nil
}

// IsSystemPath reports whether path is one of the well-known system
// directories, which can never be an upload directory.
func IsSystemPath(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	abs = filepath.Clean(abs)
	for _, protected := range systemPaths {
		if abs == protected {
			return true
		}
	}
	return false
}

// ValidateGlobPattern validates that an exclude pattern is usable
func ValidateGlobPattern(pattern string) error {
	if pattern == "" {
		return errors.New("pattern is empty")
	}
	if strings.Contains(pattern, "..") {
		return fmt.Errorf("glob pattern contains directory traversal: %s", pattern)
	}
	if strings.ContainsRune(pattern, 0) {
		return fmt.Errorf("glob pattern contains a null byte: %q", pattern)
	}
	return nil
}

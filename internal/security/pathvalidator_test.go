package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathForDeletion(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "nested"), 0755))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	pv, err := NewPathValidator(root)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file in root", filepath.Join(root, "a.bin"), false},
		{"file in nested dir", filepath.Join(root, "nested", "b.bin"), false},
		{"root itself", root, true},
		{"sibling directory", filepath.Join(outside, "c.bin"), true},
		{"dot-dot traversal", filepath.Join(root, "..", filepath.Base(outside), "c.bin"), true},
		{"through symlinked directory", filepath.Join(root, "escape", "d.bin"), true},
		{"null byte", filepath.Join(root, "bad\x00name"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pv.ValidatePathForDeletion(tt.path)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnsafePath)
		})
	}
}

func TestValidatePathForDeletionSymlinkEntryIsAllowed(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(t.TempDir(), "target.bin")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))

	link := filepath.Join(root, "link.bin")
	require.NoError(t, os.Symlink(target, link))

	pv, err := NewPathValidator(root)
	require.NoError(t, err)

	// the link lives inside the root; removing it leaves the target alone
	assert.NoError(t, pv.ValidatePathForDeletion(link))
}

func TestNewPathValidatorMissingRoot(t *testing.T) {
	_, err := NewPathValidator(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestIsSystemPath(t *testing.T) {
	assert.True(t, IsSystemPath("/"))
	assert.True(t, IsSystemPath("/etc"))
	assert.True(t, IsSystemPath("/usr/"))
	assert.False(t, IsSystemPath("/srv/uploads"))
	assert.False(t, IsSystemPath("/var/www/uploads"))
}

func TestValidateGlobPattern(t *testing.T) {
	assert.NoError(t, ValidateGlobPattern("*.partial"))
	assert.NoError(t, ValidateGlobPattern(".gitkeep"))
	assert.Error(t, ValidateGlobPattern(""))
	assert.Error(t, ValidateGlobPattern("../*"))
}

package cleaner

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/fenilsonani/uploads-maintenance/internal/security"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason ErrorReason
	}{
		{"EACCES - permission denied", syscall.EACCES, ErrorPermissionDenied},
		{"EPERM - operation not permitted", syscall.EPERM, ErrorPermissionDenied},
		{"ENOENT - file not found", syscall.ENOENT, ErrorFileNotFound},
		{"EBUSY - resource busy", syscall.EBUSY, ErrorFileInUse},
		{"ETXTBSY - text file busy", syscall.ETXTBSY, ErrorFileInUse},
		{"EISDIR - is directory", syscall.EISDIR, ErrorIsDirectory},
		{"wrapped EACCES", fmt.Errorf("failed to remove: %w", syscall.EACCES), ErrorPermissionDenied},
		{"os.PathError with EACCES", &os.PathError{Op: "remove", Path: "/test/file.txt", Err: syscall.EACCES}, ErrorPermissionDenied},
		{"os.PathError with EBUSY", fmt.Errorf("failed: %w", &os.PathError{Op: "remove", Path: "/x", Err: syscall.EBUSY}), ErrorFileInUse},
		{"os.ErrNotExist", os.ErrNotExist, ErrorFileNotFound},
		{"os.ErrPermission", os.ErrPermission, ErrorPermissionDenied},
		{"unsafe path", fmt.Errorf("%w: outside root", security.ErrUnsafePath), ErrorInvalidPath},
		{"generic error", errors.New("unknown error"), ErrorUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delErr := CategorizeError("/uploads/file.txt", tt.err)
			if delErr == nil {
				t.Fatal("unexpected nil result")
			}
			if delErr.Reason != tt.reason {
				t.Errorf("CategorizeError(%v) reason = %v, want %v", tt.err, delErr.Reason, tt.reason)
			}
			if delErr.Path != "/uploads/file.txt" {
				t.Errorf("Path = %q, want /uploads/file.txt", delErr.Path)
			}
			if !errors.Is(delErr, tt.err) {
				t.Errorf("DeletionError should unwrap to %v", tt.err)
			}
		})
	}

	if CategorizeError("/x", nil) != nil {
		t.Error("CategorizeError(nil) should return nil")
	}
}

func TestErrorReasonString(t *testing.T) {
	tests := []struct {
		reason   ErrorReason
		expected string
	}{
		{ErrorPermissionDenied, "Permission denied"},
		{ErrorFileNotFound, "File not found"},
		{ErrorFileInUse, "File is in use"},
		{ErrorIsDirectory, "Is a directory"},
		{ErrorInvalidPath, "Invalid path"},
		{ErrorUnknown, "Unknown error"},
		{ErrorReason(99), "Unspecified error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.reason.String(); got != tt.expected {
				t.Errorf("ErrorReason(%d).String() = %s, want %s", tt.reason, got, tt.expected)
			}
		})
	}
}

func TestFormatErrorSummary(t *testing.T) {
	delErrors := []*DeletionError{
		{Path: "/a", Reason: ErrorPermissionDenied, Original: os.ErrPermission},
		{Path: "/b", Reason: ErrorPermissionDenied, Original: os.ErrPermission},
		{Path: "/c", Reason: ErrorFileInUse, Original: errors.New("busy")},
		{Path: "/d", Reason: ErrorFileNotFound, Original: os.ErrNotExist},
	}

	summary := FormatErrorSummary(delErrors)

	if !strings.Contains(summary, "Permission denied: 2 files") {
		t.Errorf("expected permission count in summary, got:\n%s", summary)
	}
	if !strings.Contains(summary, "File is in use: 1 files") {
		t.Errorf("expected busy count in summary, got:\n%s", summary)
	}
	if strings.Contains(summary, "Unknown") {
		t.Errorf("unexpected unknown group in summary:\n%s", summary)
	}

	if FormatErrorSummary(nil) != "" {
		t.Error("expected empty summary for nil errors")
	}
}

func TestGroupErrors(t *testing.T) {
	grouped := GroupErrors([]*DeletionError{
		{Reason: ErrorPermissionDenied, Path: "/a"},
		{Reason: ErrorFileInUse, Path: "/b"},
		{Reason: ErrorPermissionDenied, Path: "/c"},
	})

	if len(grouped[ErrorPermissionDenied]) != 2 {
		t.Errorf("expected 2 permission errors, got %d", len(grouped[ErrorPermissionDenied]))
	}
	if len(grouped[ErrorUnknown]) != 0 {
		t.Errorf("expected 0 unknown errors, got %d", len(grouped[ErrorUnknown]))
	}
}

func TestDeletionErrorUserMessage(t *testing.T) {
	tests := []struct {
		delErr        *DeletionError
		shouldContain string
	}{
		{&DeletionError{Path: "/f", Reason: ErrorPermissionDenied}, "Permission denied"},
		{&DeletionError{Path: "/f", Reason: ErrorFileInUse}, "being used"},
		{&DeletionError{Path: "/f", Reason: ErrorFileNotFound}, "Already deleted"},
		{&DeletionError{Path: "/f", Reason: ErrorInvalidPath}, "unsafe"},
		{&DeletionError{Path: "/f", Reason: ErrorUnknown, Original: errors.New("boom")}, "boom"},
	}

	for _, tt := range tests {
		if got := tt.delErr.UserMessage(); !strings.Contains(got, tt.shouldContain) {
			t.Errorf("UserMessage() = %s, should contain %s", got, tt.shouldContain)
		}
	}
}

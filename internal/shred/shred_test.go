package shred

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	kerrors "github.com/PolarWolf314/knox/internal/errors"

	"github.com/gofrs/flock"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func TestShredRemovesFileAndName(t *testing.T) {
	dir := t.TempDir()
	original := bytes.Repeat([]byte("top secret "), 10000)
	path := writeFile(t, dir, "secret-plan.txt", original)

	s := New()
	var intermediate [][]byte
	s.afterPass = func(pass int, p string) {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("pass %d: failed to read intermediate state: %v", pass, err)
		}
		intermediate = append(intermediate, data)
	}

	report, err := s.Shred(context.Background(), path, 3)
	if err != nil {
		t.Fatalf("Shred failed: %v", err)
	}

	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected %s to be gone, stat returned %v", path, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected empty directory, found %d entries", len(entries))
	}

	if report.Passes != 3 || report.BytesOverwritten != int64(len(original))*3 || report.Caveat == "" {
		t.Errorf("Unexpected report: %+v", report)
	}

	if len(intermediate) != 3 {
		t.Fatalf("Expected 3 intermediate states, got %d", len(intermediate))
	}
	for i, data := range intermediate {
		if len(data) != len(original) {
			t.Errorf("pass %d: expected length %d, got %d", i+1, len(original), len(data))
		}
		if bytes.Contains(data, []byte("top secret")) {
			t.Errorf("pass %d: original content still present", i+1)
		}
	}
	if !bytes.Equal(intermediate[0], bytes.Repeat([]byte{0x00}, len(original))) {
		t.Error("Expected pass 1 to write zeros")
	}
	if !bytes.Equal(intermediate[1], bytes.Repeat([]byte{0xFF}, len(original))) {
		t.Error("Expected pass 2 to write 0xFF")
	}
}

func TestShredEmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty", nil)

	if _, err := New().Shred(context.Background(), path, 1); err != nil {
		t.Fatalf("Shred failed: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected file to be gone, stat returned %v", err)
	}
}

func TestShredRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "f", []byte("x"))

	tests := []struct {
		name   string
		path   string
		passes int
		want   error
	}{
		{"zero passes", path, 0, kerrors.ErrValidation},
		{"too many passes", path, MaxPasses + 1, kerrors.ErrValidation},
		{"directory", dir, 1, kerrors.ErrValidation},
		{"missing", filepath.Join(dir, "missing"), 1, kerrors.ErrFileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Shred(context.Background(), tt.path, tt.passes)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected rejected calls to leave %s alone: %v", path, err)
	}
}

func TestShredRefusesSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on Windows")
	}
	dir := t.TempDir()
	target := writeFile(t, dir, "target", []byte("keep me"))
	link := filepath.Join(dir, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	if _, err := New().Shred(context.Background(), link, 1); !errors.Is(err, kerrors.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
	if data, _ := os.ReadFile(target); string(data) != "keep me" {
		t.Error("Expected symlink target to be untouched")
	}
}

func TestShredReportsLockedFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "busy", []byte("in use"))

	holder := flock.New(path)
	if err := holder.Lock(); err != nil {
		t.Fatalf("Failed to lock file: %v", err)
	}
	defer holder.Unlock()

	_, err := New().Shred(context.Background(), path, 1)
	if !errors.Is(err, kerrors.ErrLocked) {
		t.Fatalf("Expected ErrLocked, got %v", err)
	}
	var se *kerrors.ShredError
	if !errors.As(err, &se) || se.Kind != kerrors.ShredLocked {
		t.Errorf("Expected ShredError of kind Locked, got %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "in use" {
		t.Error("Expected locked file to be untouched")
	}
}

func TestShredCancellationCompletesCurrentPass(t *testing.T) {
	path := writeFile(t, t.TempDir(), "f", bytes.Repeat([]byte("a"), 4096))
	ctx, cancel := context.WithCancel(context.Background())

	s := New()
	s.afterPass = func(pass int, _ string) {
		if pass == 1 {
			cancel()
		}
	}

	_, err := s.Shred(ctx, path, 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected file to remain after cancellation: %v", err)
	}
	if !bytes.Equal(data, make([]byte, 4096)) {
		t.Error("Expected the first pass to have completed before cancellation")
	}
}

func TestPattern(t *testing.T) {
	if b, fixed := Pattern(1); !fixed || b != 0x00 {
		t.Errorf("pass 1: got %#x fixed=%v", b, fixed)
	}
	if b, fixed := Pattern(2); !fixed || b != 0xFF {
		t.Errorf("pass 2: got %#x fixed=%v", b, fixed)
	}
	for _, pass := range []int{3, 4, 35} {
		if _, fixed := Pattern(pass); fixed {
			t.Errorf("pass %d: expected random pattern", pass)
		}
	}
}

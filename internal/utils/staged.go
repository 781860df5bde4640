package utils

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	kerrors "github.com/PolarWolf314/knox/internal/errors"

	"github.com/natefinch/atomic"
)

// StagedFile writes to a temporary file beside its destination and only
// moves it into place on Commit. The destination name is reserved up front
// with O_EXCL so that two writers can never target the same path, and an
// aborted write leaves nothing behind.
type StagedFile struct {
	dest     string
	tmp      *os.File
	finished bool
}

// CreateStaged reserves dest and opens a temporary file in the same directory.
// Returns an error wrapping ErrAlreadyExists if dest is taken.
func CreateStaged(dest string, perm os.FileMode) (*StagedFile, error) {
	placeholder, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrAlreadyExists, dest)
		}
		return nil, kerrors.NewIOError("create", dest, err)
	}
	_ = placeholder.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		_ = os.Remove(dest)
		return nil, kerrors.NewIOError("create temp for", dest, err)
	}
	if err := tmp.Chmod(perm); err != nil && !errors.Is(err, errors.ErrUnsupported) {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		_ = os.Remove(dest)
		return nil, kerrors.NewIOError("chmod", tmp.Name(), err)
	}

	return &StagedFile{dest: dest, tmp: tmp}, nil
}

// CreateStagedUnique is CreateStaged on the first free name among dest,
// "name (1).ext", "name (2).ext" and so on. Each candidate is claimed with
// O_EXCL, so concurrent callers never settle on the same name.
func CreateStagedUnique(dest string, perm os.FileMode) (*StagedFile, error) {
	for n := 0; n <= maxUniqueAttempts; n++ {
		s, err := CreateStaged(numberedPath(dest, n), perm)
		if errors.Is(err, kerrors.ErrAlreadyExists) {
			continue
		}
		return s, err
	}
	return nil, fmt.Errorf("%w: no free file name for %s", kerrors.ErrAlreadyExists, dest)
}

// Write appends to the temporary file.
func (s *StagedFile) Write(p []byte) (int, error) {
	return s.tmp.Write(p)
}

// Path returns the destination path.
func (s *StagedFile) Path() string {
	return s.dest
}

// Commit flushes the temporary file to disk and atomically replaces the
// reserved destination with it.
func (s *StagedFile) Commit() error {
	if s.finished {
		return fmt.Errorf("staged file %s already finished", s.dest)
	}
	s.finished = true

	if err := s.tmp.Sync(); err != nil {
		s.cleanup()
		return kerrors.NewIOError("sync", s.tmp.Name(), err)
	}
	if err := s.tmp.Close(); err != nil {
		s.cleanup()
		return kerrors.NewIOError("close", s.tmp.Name(), err)
	}
	if err := atomic.ReplaceFile(s.tmp.Name(), s.dest); err != nil {
		s.cleanup()
		return kerrors.NewIOError("replace", s.dest, err)
	}
	SyncDir(filepath.Dir(s.dest))
	return nil
}

// Abort discards everything written and releases the reserved name.
// It is a no-op after Commit.
func (s *StagedFile) Abort() {
	if s.finished {
		return
	}
	s.finished = true
	s.cleanup()
}

func (s *StagedFile) cleanup() {
	_ = s.tmp.Close()
	_ = os.Remove(s.tmp.Name())
	_ = os.Remove(s.dest)
}

// WriteFileAtomic replaces path with data so readers see either the old or
// the new content, never a partial write.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return kerrors.NewIOError("write", path, err)
	}
	if err := os.Chmod(path, perm); err != nil {
		return kerrors.NewIOError("chmod", path, err)
	}
	return nil
}

// SyncDir flushes directory metadata so renames and unlinks survive a crash.
// Errors are ignored because not every platform supports syncing directories.
func SyncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

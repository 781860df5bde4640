package shred

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/utils"

	"github.com/gofrs/flock"
)

const (
	// DefaultPasses is used when the caller does not choose a pass count.
	DefaultPasses = 3
	// MaxPasses matches the longest classic overwrite scheme.
	MaxPasses = 35

	bufferSize = 64 << 10
)

// Caveat is attached to every report. Overwriting in place cannot reach
// blocks the storage layer has already moved elsewhere.
const Caveat = "overwrite guarantees do not hold on SSD/flash storage with wear levelling, " +
	"copy-on-write or journaling filesystems, or snapshotted volumes"

// Report describes a completed shred.
type Report struct {
	// Path is the file that was destroyed.
	Path string

	// Passes is the number of overwrite passes performed.
	Passes int

	// BytesOverwritten is the file length times the number of passes.
	BytesOverwritten int64

	// Caveat states the limits of in-place overwriting.
	Caveat string
}

// Shredder overwrites files before unlinking them.
type Shredder struct {
	random io.Reader

	// afterPass runs after each completed and flushed pass. Tests use it to
	// inspect intermediate file content.
	afterPass func(pass int, path string)
}

// New returns a Shredder that draws random passes from crypto/rand.
func New() *Shredder {
	return &Shredder{random: rand.Reader}
}

// Pattern returns the fill byte of a fixed pass and false for random passes.
func Pattern(pass int) (byte, bool) {
	switch pass {
	case 1:
		return 0x00, true
	case 2:
		return 0xFF, true
	default:
		return 0, false
	}
}

// Shred overwrites path passes times, truncates it, renames it to a random
// name and unlinks it. Each pass is forced to the device before the next
// begins. Cancellation is only observed between passes; a pass that has
// started always completes.
func (s *Shredder) Shred(ctx context.Context, path string, passes int) (*Report, error) {
	if passes < 1 || passes > MaxPasses {
		return nil, kerrors.Invalid("passes", "must be between 1 and %d, got %d", MaxPasses, passes)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, path)
		}
		return nil, &kerrors.ShredError{Kind: classify(err), Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, kerrors.Invalid("path", "%s is not a regular file", path)
	}

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, &kerrors.ShredError{Kind: classify(err), Path: path, Err: err}
	}
	if !locked {
		return nil, &kerrors.ShredError{Kind: kerrors.ShredLocked, Path: path}
	}
	// Windows locks are mandatory and would block our own writes.
	if runtime.GOOS == "windows" {
		_ = lock.Unlock()
	} else {
		defer lock.Unlock()
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, &kerrors.ShredError{Kind: classify(err), Path: path, Err: err}
	}
	defer f.Close()

	size := info.Size()
	buf := make([]byte, min(int64(bufferSize), max(size, 1)))

	for pass := 1; pass <= passes; pass++ {
		if pass > 1 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if err := s.overwrite(f, buf, size, pass); err != nil {
			return nil, &kerrors.ShredError{Kind: classify(err), Path: path, Pass: pass, Err: err}
		}
		if err := flushDevice(f); err != nil {
			return nil, &kerrors.ShredError{Kind: classifyFlush(err), Path: path, Pass: pass, Err: err}
		}
		if s.afterPass != nil {
			s.afterPass(pass, path)
		}
	}

	if err := f.Truncate(0); err != nil {
		return nil, &kerrors.ShredError{Kind: classify(err), Path: path, Err: err}
	}
	if err := flushDevice(f); err != nil {
		return nil, &kerrors.ShredError{Kind: classifyFlush(err), Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return nil, &kerrors.ShredError{Kind: classify(err), Path: path, Err: err}
	}

	if err := unlinkObscured(path); err != nil {
		return nil, &kerrors.ShredError{Kind: classify(err), Path: path, Err: err}
	}

	return &Report{
		Path:             path,
		Passes:           passes,
		BytesOverwritten: size * int64(passes),
		Caveat:           Caveat,
	}, nil
}

func (s *Shredder) overwrite(f *os.File, buf []byte, size int64, pass int) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	fill, fixed := Pattern(pass)
	if fixed {
		for i := range buf {
			buf[i] = fill
		}
	}

	for written := int64(0); written < size; {
		n := min(int64(len(buf)), size-written)
		chunk := buf[:n]
		if !fixed {
			if _, err := io.ReadFull(s.random, chunk); err != nil {
				return fmt.Errorf("reading random data: %w", err)
			}
		}
		if _, err := f.Write(chunk); err != nil {
			return err
		}
		written += n
	}
	return nil
}

// unlinkObscured renames path to a random name in the same directory so the
// original name does not linger in directory metadata, then removes it.
func unlinkObscured(path string) error {
	dir := filepath.Dir(path)

	var name [16]byte
	if _, err := rand.Read(name[:]); err != nil {
		return err
	}
	obscured := filepath.Join(dir, hex.EncodeToString(name[:]))

	if err := os.Rename(path, obscured); err != nil {
		return err
	}
	utils.SyncDir(dir)

	if err := os.Remove(obscured); err != nil {
		return err
	}
	utils.SyncDir(dir)
	return nil
}

package vault

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	kerrors "github.com/PolarWolf314/knox/internal/errors"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 25 * time.Millisecond

// locker serializes manifest updates per vault. The in-process mutex orders
// goroutines; the file lock orders processes.
type locker struct {
	mu    sync.Mutex
	byDir map[string]*sync.Mutex
}

func (l *locker) mutex(dir string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.byDir == nil {
		l.byDir = make(map[string]*sync.Mutex)
	}
	m, ok := l.byDir[dir]
	if !ok {
		m = &sync.Mutex{}
		l.byDir[dir] = m
	}
	return m
}

// lock acquires both locks for dir and returns the release function.
func (l *locker) lock(ctx context.Context, dir string) (func(), error) {
	m := l.mutex(dir)
	m.Lock()

	fl := flock.New(filepath.Join(dir, LockName))
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		m.Unlock()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, kerrors.NewIOError("lock", fl.Path(), err)
	}
	if !ok {
		m.Unlock()
		return nil, fmt.Errorf("%w: could not lock %s", kerrors.ErrIO, fl.Path())
	}

	return func() {
		_ = fl.Unlock()
		m.Unlock()
	}, nil
}

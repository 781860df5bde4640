//go:build unix

package secrets

import "golang.org/x/sys/unix"

// lockMemory keeps b out of swap. Failure is expected under a low
// RLIMIT_MEMLOCK and only means the key may be paged out.
func lockMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Mlock(b)
}

func unlockMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Munlock(b)
}

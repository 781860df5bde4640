// Package shred destroys files by overwriting them before unlinking.
//
// Pass 1 writes 0x00, pass 2 writes 0xFF and every later pass writes
// random data. After each pass the data is forced to the storage device
// (fdatasync on Linux, F_FULLFSYNC on macOS, fsync elsewhere). After the
// final pass the file is truncated, renamed to a random name and removed.
//
// Failures are reported as *errors.ShredError with a kind the caller can
// act on: the file is locked by another process, the filesystem is
// read-only, or the device cannot flush writes. Every successful Report
// carries a caveat: on flash storage and copy-on-write filesystems the
// old blocks may survive.
package shred

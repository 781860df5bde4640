package shred

import (
	"os"

	"golang.org/x/sys/unix"
)

// flushDevice forces written data to the device. fsync on macOS only
// reaches the drive cache; F_FULLFSYNC asks the drive to flush it.
func flushDevice(f *os.File) error {
	_, err := unix.FcntlInt(f.Fd(), unix.F_FULLFSYNC, 0)
	return err
}

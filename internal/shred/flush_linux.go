package shred

import (
	"os"

	"golang.org/x/sys/unix"
)

// flushDevice forces written data to the device.
func flushDevice(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}

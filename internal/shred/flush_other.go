//go:build !linux && !darwin

package shred

import "os"

func flushDevice(f *os.File) error {
	return f.Sync()
}

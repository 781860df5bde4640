package errors

import "errors"

// UserMessage maps err to a message that is safe to show in the UI.
//
// Authentication failures never reveal whether the passphrase or the data
// was at fault. Other errors keep their text, which already names the file
// or field involved.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthenticationFailed):
		return "Decryption failed: wrong passphrase or corrupted file"
	case errors.Is(err, ErrUnsupportedVersion):
		return "This file was created by a newer version and cannot be read"
	case errors.Is(err, ErrFormat):
		return "Not a valid encrypted file: " + err.Error()
	case errors.Is(err, ErrLocked):
		return "The file is in use by another program"
	case errors.Is(err, ErrReadOnlyFilesystem):
		return "The file is on a read-only filesystem"
	case errors.Is(err, ErrDeviceFlushUnsupported):
		return "The storage device does not support flushing writes; the file was not shredded"
	default:
		return err.Error()
	}
}

//go:build unix

package shred

import (
	"errors"

	kerrors "github.com/PolarWolf314/knox/internal/errors"

	"golang.org/x/sys/unix"
)

func classify(err error) kerrors.ShredKind {
	switch {
	case errors.Is(err, unix.EROFS):
		return kerrors.ShredReadOnlyFilesystem
	case errors.Is(err, unix.ETXTBSY), errors.Is(err, unix.EWOULDBLOCK):
		return kerrors.ShredLocked
	default:
		return kerrors.ShredFailed
	}
}

func classifyFlush(err error) kerrors.ShredKind {
	switch {
	case errors.Is(err, unix.ENOTSUP), errors.Is(err, unix.EOPNOTSUPP), errors.Is(err, unix.EINVAL), errors.Is(err, unix.ENOSYS):
		return kerrors.ShredDeviceFlushUnsupported
	default:
		return classify(err)
	}
}

//go:build !unix

package shred

import (
	"errors"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
)

func classify(err error) kerrors.ShredKind {
	return kerrors.ShredFailed
}

func classifyFlush(err error) kerrors.ShredKind {
	if errors.Is(err, errors.ErrUnsupported) {
		return kerrors.ShredDeviceFlushUnsupported
	}
	return kerrors.ShredFailed
}

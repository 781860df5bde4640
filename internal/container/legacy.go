package container

import (
	"context"
	"fmt"
	"io"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/secrets"
)

// readVersion1 parses the remainder of a version 1 header:
//
//	algorithm u8 | salt len u16 | salt | nonce len u16 | nonce |
//	name len u16 | name | original size u64
func readVersion1(fr *fieldReader, h *Header) {
	h.Algorithm = secrets.Algorithm(fr.u8())
	if fr.err == nil && !h.Algorithm.Known() {
		fr.err = formatErr("unrecognized algorithm id %d", uint8(h.Algorithm))
		return
	}
	h.Salt = fr.bytes(int(fr.u16()))
	h.Nonce = fr.bytes(int(fr.u16()))
	h.OriginalName = string(fr.bytes(int(fr.u16())))
	h.OriginalSize = fr.u64()

	h.KDF = secrets.DefaultKDFParams()
	h.ChunkSize = uint32(max(h.OriginalSize, 1))
}

// decryptVersion1 opens the single sealed chunk of a version 1 body. The
// whole body is authenticated before any plaintext is written.
func decryptVersion1(ctx context.Context, dst io.Writer, src io.Reader, c secrets.Cipher, h *Header) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body := make([]byte, h.BodySize())
	if _, err := io.ReadFull(src, body); err != nil {
		return formatErr("ciphertext truncated")
	}

	plain, err := c.Open(body[:0], h.Nonce, body, h.raw)
	if err != nil {
		return err
	}
	if _, err := dst.Write(plain); err != nil {
		return fmt.Errorf("%w: writing plaintext: %v", kerrors.ErrIO, err)
	}
	return nil
}

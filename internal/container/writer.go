package container

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/secrets"
	"github.com/PolarWolf314/knox/internal/utils"
)

const writeBufferSize = 256 << 10

// Writer produces a container at a reserved destination. Nothing is visible
// under the destination name until Commit succeeds.
type Writer struct {
	header *Header
	staged *utils.StagedFile
	buf    *bufio.Writer
}

// Create reserves path and writes the encoded header. The header must be
// complete: salt, nonce, chunk size, original size and name.
func Create(path string, h *Header) (*Writer, error) {
	return create(path, h, utils.CreateStaged)
}

// CreateUnique is Create on the first free "name (n).ext" variant of path.
// Path reports the name that was claimed.
func CreateUnique(path string, h *Header) (*Writer, error) {
	return create(path, h, utils.CreateStagedUnique)
}

func create(path string, h *Header, stage func(string, os.FileMode) (*utils.StagedFile, error)) (*Writer, error) {
	raw, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}

	staged, err := stage(path, 0600)
	if err != nil {
		return nil, err
	}

	w := &Writer{header: h, staged: staged, buf: bufio.NewWriterSize(staged, writeBufferSize)}
	if _, err := w.buf.Write(raw); err != nil {
		staged.Abort()
		return nil, kerrors.NewIOError("write header", staged.Path(), err)
	}
	return w, nil
}

// Header returns the header being written.
func (w *Writer) Header() *Header {
	return w.header
}

// Path returns the destination path.
func (w *Writer) Path() string {
	return w.staged.Path()
}

// EncryptFrom seals exactly Header().OriginalSize bytes from src into the
// body and returns the tag of the final chunk.
func (w *Writer) EncryptFrom(ctx context.Context, src io.Reader, c secrets.Cipher) ([]byte, error) {
	if c.Algorithm() != w.header.Algorithm {
		return nil, fmt.Errorf("%w: cipher is %s, header declares %s", kerrors.ErrUnsupportedAlgorithm, c.Algorithm(), w.header.Algorithm)
	}

	return secrets.EncryptStream(ctx, w.buf, src, c, secrets.StreamParams{
		BaseNonce: w.header.Nonce,
		Header:    w.header.raw,
		ChunkSize: w.header.ChunkSize,
		Size:      int64(w.header.OriginalSize),
	})
}

// Commit flushes the container and moves it into place.
func (w *Writer) Commit() error {
	if err := w.buf.Flush(); err != nil {
		w.staged.Abort()
		return kerrors.NewIOError("write", w.Path(), err)
	}
	return w.staged.Commit()
}

// Abort discards the partial container and frees the destination name.
func (w *Writer) Abort() {
	w.staged.Abort()
}

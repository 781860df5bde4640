package container

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/secrets"
)

const readBufferSize = 256 << 10

// Reader gives access to a validated container.
type Reader struct {
	Header *Header

	path string
	f    *os.File
	body *bufio.Reader
}

// withPath attaches path to a FormatError so diagnostics name the file.
func withPath(err error, path string) error {
	var fe *kerrors.FormatError
	if errors.As(err, &fe) && fe.Path == "" {
		fe.Path = path
	}
	return err
}

// Open parses and validates the header at path and checks that the body
// has exactly the length the header declares.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, path)
		}
		return nil, kerrors.NewIOError("open", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, kerrors.NewIOError("stat", path, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, &kerrors.FormatError{Path: path, Reason: "not a regular file"}
	}

	br := bufio.NewReaderSize(f, readBufferSize)
	h, err := ReadHeader(br)
	if err != nil {
		_ = f.Close()
		return nil, withPath(err, path)
	}

	actual := info.Size() - int64(len(h.raw))
	if expected := h.BodySize(); actual != expected {
		_ = f.Close()
		return nil, &kerrors.FormatError{
			Path:   path,
			Reason: fmt.Sprintf("body is %d bytes but header declares %d", actual, expected),
		}
	}

	return &Reader{Header: h, path: path, f: f, body: br}, nil
}

// Path returns the container path.
func (r *Reader) Path() string {
	return r.path
}

// DecryptTo authenticates and decrypts the body into dst. For chunked
// containers dst only ever receives authenticated chunks, but a failure
// after the first chunk leaves earlier plaintext in dst, so callers must
// discard dst on error.
func (r *Reader) DecryptTo(ctx context.Context, dst io.Writer, c secrets.Cipher) error {
	if c.Algorithm() != r.Header.Algorithm {
		return fmt.Errorf("%w: cipher is %s, container uses %s", kerrors.ErrUnsupportedAlgorithm, c.Algorithm(), r.Header.Algorithm)
	}

	var err error
	switch r.Header.Version {
	case Version1:
		err = decryptVersion1(ctx, dst, r.body, c, r.Header)
	default:
		err = secrets.DecryptStream(ctx, dst, r.body, c, secrets.StreamParams{
			BaseNonce: r.Header.Nonce,
			Header:    r.Header.raw,
			ChunkSize: r.Header.ChunkSize,
			Size:      int64(r.Header.OriginalSize),
		})
	}
	return withPath(err, r.path)
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// Inspect returns the validated header of the container at path.
func Inspect(path string) (*Header, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Header, nil
}

// Sniff reports whether the file at path starts with the container magic.
// Short or empty files are not containers.
func Sniff(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, path)
		}
		return false, kerrors.NewIOError("open", path, err)
	}
	defer f.Close()

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return false, nil
	}
	return string(magic) == Magic, nil
}

package secrets

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
)

const (
	// DefaultChunkSize is the plaintext size of each sealed chunk for
	// files above the streaming threshold.
	DefaultChunkSize = 1 << 20
	// MaxChunkSize bounds the buffer a container header may request.
	MaxChunkSize = 64 << 20
)

// ChunkCount returns how many chunks a plaintext of size bytes occupies.
// An empty plaintext still produces one (empty) chunk so that it carries a tag.
func ChunkCount(size int64, chunkSize uint32) int64 {
	if size <= 0 {
		return 1
	}
	cs := int64(chunkSize)
	return (size + cs - 1) / cs
}

// SealedSize returns the body length of a chunked stream.
func SealedSize(size int64, chunkSize uint32, overhead int) int64 {
	return size + ChunkCount(size, chunkSize)*int64(overhead)
}

// chunkNonce derives the nonce for chunk index by XORing the big-endian
// index into the last 8 bytes of the base nonce.
func chunkNonce(dst, base []byte, index uint64) []byte {
	dst = append(dst[:0], base...)
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], index)
	off := len(dst) - len(ctr)
	for i := range ctr {
		dst[off+i] ^= ctr[i]
	}
	return dst
}

// chunkAAD binds each chunk to the header, its position and whether it is
// the last one, so reordering, truncation and header edits fail to open.
func chunkAAD(dst, header []byte, index uint64, final bool) []byte {
	dst = append(dst[:0], header...)
	dst = binary.BigEndian.AppendUint64(dst, index)
	if final {
		return append(dst, 1)
	}
	return append(dst, 0)
}

// StreamParams describes a chunked AEAD stream.
type StreamParams struct {
	// BaseNonce is the per-file random nonce. Chunk nonces are derived from it.
	BaseNonce []byte

	// Header is authenticated with every chunk.
	Header []byte

	// ChunkSize is the plaintext length of every chunk but the last.
	ChunkSize uint32

	// Size is the exact plaintext length.
	Size int64
}

func (p StreamParams) validate(c Cipher) error {
	if p.ChunkSize == 0 || p.ChunkSize > MaxChunkSize {
		return kerrors.Invalid("chunk size", "must be between 1 and %d, got %d", MaxChunkSize, p.ChunkSize)
	}
	if len(p.BaseNonce) != c.NonceSize() {
		return kerrors.Invalid("nonce", "must be %d bytes, got %d", c.NonceSize(), len(p.BaseNonce))
	}
	if p.Size < 0 {
		return kerrors.Invalid("size", "must not be negative")
	}
	return nil
}

// EncryptStream reads exactly p.Size bytes from src and writes sealed chunks
// to dst. It returns the tag of the final chunk. The context is checked
// before every chunk.
func EncryptStream(ctx context.Context, dst io.Writer, src io.Reader, c Cipher, p StreamParams) ([]byte, error) {
	if err := p.validate(c); err != nil {
		return nil, err
	}

	n := ChunkCount(p.Size, p.ChunkSize)
	plain := make([]byte, min(int64(p.ChunkSize), max(p.Size, 0)))
	sealed := make([]byte, 0, len(plain)+c.Overhead())
	var nonce, aad []byte
	remaining := p.Size

	for i := int64(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunk := plain[:min(int64(p.ChunkSize), remaining)]
		if _, err := io.ReadFull(src, chunk); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: source ended %d bytes early", kerrors.ErrIO, remaining)
			}
			return nil, fmt.Errorf("%w: reading source: %v", kerrors.ErrIO, err)
		}
		remaining -= int64(len(chunk))

		final := i == n-1
		nonce = chunkNonce(nonce, p.BaseNonce, uint64(i))
		aad = chunkAAD(aad, p.Header, uint64(i), final)
		sealed = c.Seal(sealed[:0], nonce, chunk, aad)

		if _, err := dst.Write(sealed); err != nil {
			return nil, fmt.Errorf("%w: writing chunk %d: %v", kerrors.ErrIO, i, err)
		}
	}

	// The size is committed to the header, so a source that grew while we
	// were reading would silently lose data.
	var extra [1]byte
	if k, _ := src.Read(extra[:]); k > 0 {
		return nil, fmt.Errorf("%w: source grew during encryption", kerrors.ErrIO)
	}

	tag := make([]byte, c.Overhead())
	copy(tag, sealed[len(sealed)-c.Overhead():])
	return tag, nil
}

// DecryptStream reads sealed chunks from src and writes plaintext to dst.
// Each chunk is authenticated before any of its plaintext is written.
func DecryptStream(ctx context.Context, dst io.Writer, src io.Reader, c Cipher, p StreamParams) error {
	if err := p.validate(c); err != nil {
		return err
	}

	n := ChunkCount(p.Size, p.ChunkSize)
	sealed := make([]byte, min(int64(p.ChunkSize), max(p.Size, 0))+int64(c.Overhead()))
	plain := make([]byte, 0, len(sealed))
	var nonce, aad []byte
	remaining := p.Size

	for i := int64(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk := sealed[:min(int64(p.ChunkSize), remaining)+int64(c.Overhead())]
		if _, err := io.ReadFull(src, chunk); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return &kerrors.FormatError{Reason: fmt.Sprintf("ciphertext truncated at chunk %d", i)}
			}
			return fmt.Errorf("%w: reading chunk %d: %v", kerrors.ErrIO, i, err)
		}

		final := i == n-1
		nonce = chunkNonce(nonce, p.BaseNonce, uint64(i))
		aad = chunkAAD(aad, p.Header, uint64(i), final)

		var err error
		plain, err = c.Open(plain[:0], nonce, chunk, aad)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		remaining -= int64(len(plain))

		if _, err := dst.Write(plain); err != nil {
			return fmt.Errorf("%w: writing plaintext: %v", kerrors.ErrIO, err)
		}
	}

	var extra [1]byte
	if k, _ := src.Read(extra[:]); k > 0 {
		return &kerrors.FormatError{Reason: "trailing data after final chunk"}
	}
	return nil
}

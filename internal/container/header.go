package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/secrets"
	"github.com/PolarWolf314/knox/internal/utils"
)

const (
	// Magic identifies a Knox container.
	Magic = "KNXE"

	// Version1 containers hold a single sealed chunk and imply default
	// Argon2id parameters. They are read but never written.
	Version1 uint8 = 1
	// Version2 containers carry their KDF parameters and a chunked body.
	Version2 uint8 = 2

	CurrentVersion = Version2

	// Extension is the conventional suffix of container files.
	Extension = ".knxenc"

	MaxNameLength = 1024
	maxFieldLen   = math.MaxUint8

	// MaxVersion1Size bounds the single-chunk body of a version 1 container.
	MaxVersion1Size = 64 << 20
)

// Header describes an encrypted file. It is written in the clear and
// authenticated as associated data of every chunk.
type Header struct {
	Version      uint8
	Algorithm    secrets.Algorithm
	KDF          secrets.KDFParams
	Salt         []byte
	Nonce        []byte
	ChunkSize    uint32
	OriginalSize uint64
	OriginalName string

	raw []byte
}

// Raw returns the encoded header bytes. It is nil until the header has been
// marshalled or parsed.
func (h *Header) Raw() []byte {
	return h.raw
}

// BodySize returns the exact ciphertext length that must follow the header.
func (h *Header) BodySize() int64 {
	return secrets.SealedSize(int64(h.OriginalSize), h.ChunkSize, h.Algorithm.TagSize())
}

func formatErr(format string, args ...any) error {
	return &kerrors.FormatError{Reason: fmt.Sprintf(format, args...)}
}

// Validate checks every field against the structural limits of the format.
func (h *Header) Validate() error {
	switch h.Version {
	case Version1, Version2:
	default:
		return &kerrors.FormatError{Reason: fmt.Sprintf("version %d", h.Version), Err: kerrors.ErrUnsupportedVersion}
	}

	if !h.Algorithm.Known() {
		return formatErr("unrecognized algorithm id %d", uint8(h.Algorithm))
	}
	if err := h.KDF.Validate(); err != nil {
		return &kerrors.FormatError{Reason: "invalid key derivation parameters", Err: err}
	}
	if len(h.Salt) < secrets.MinSaltSize || len(h.Salt) > maxFieldLen {
		return formatErr("salt length %d out of range", len(h.Salt))
	}
	if len(h.Nonce) != h.Algorithm.NonceSize() {
		return formatErr("nonce length %d, %s requires %d", len(h.Nonce), h.Algorithm, h.Algorithm.NonceSize())
	}
	if h.ChunkSize == 0 || h.ChunkSize > secrets.MaxChunkSize {
		return formatErr("chunk size %d out of range", h.ChunkSize)
	}
	if h.OriginalSize > math.MaxInt64/2 {
		return formatErr("original size %d out of range", h.OriginalSize)
	}
	if h.Version == Version1 && h.OriginalSize > MaxVersion1Size {
		return formatErr("version 1 body of %d bytes exceeds %d", h.OriginalSize, MaxVersion1Size)
	}
	if !ValidName(h.OriginalName) {
		return formatErr("invalid original name %q", h.OriginalName)
	}
	return nil
}

// ValidName reports whether name can be stored as an original file name.
func ValidName(name string) bool {
	return len(name) <= MaxNameLength && utf8.ValidString(name) && utils.IsPlainName(name)
}

// MarshalBinary encodes the header in the current format version.
func (h *Header) MarshalBinary() ([]byte, error) {
	h.Version = CurrentVersion
	if err := h.Validate(); err != nil {
		return nil, err
	}

	var b bytes.Buffer
	b.WriteString(Magic)
	b.WriteByte(h.Version)
	b.WriteByte(byte(h.Algorithm))
	b.WriteByte(byte(h.KDF.Algorithm))
	_ = binary.Write(&b, binary.LittleEndian, h.KDF.MemoryKiB)
	_ = binary.Write(&b, binary.LittleEndian, h.KDF.Iterations)
	b.WriteByte(h.KDF.Parallelism)
	b.WriteByte(byte(len(h.Salt)))
	b.Write(h.Salt)
	b.WriteByte(byte(len(h.Nonce)))
	b.Write(h.Nonce)
	_ = binary.Write(&b, binary.LittleEndian, h.ChunkSize)
	_ = binary.Write(&b, binary.LittleEndian, h.OriginalSize)
	_ = binary.Write(&b, binary.LittleEndian, uint16(len(h.OriginalName)))
	b.WriteString(h.OriginalName)

	h.raw = b.Bytes()
	return h.raw, nil
}

// fieldReader reads header fields while recording the raw bytes consumed.
type fieldReader struct {
	r   io.Reader
	raw []byte
	err error
}

func (fr *fieldReader) bytes(n int) []byte {
	if fr.err != nil {
		return nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(fr.r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			fr.err = formatErr("truncated header")
		} else {
			fr.err = kerrors.NewIOError("read header", "", err)
		}
		return nil
	}
	fr.raw = append(fr.raw, buf...)
	return buf
}

func (fr *fieldReader) u8() uint8 {
	b := fr.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (fr *fieldReader) u16() uint16 {
	b := fr.bytes(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (fr *fieldReader) u32() uint32 {
	b := fr.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (fr *fieldReader) u64() uint64 {
	b := fr.bytes(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// ReadHeader parses a header of any supported version from r. The magic and
// version are checked before anything else is read, and the result is
// validated before it is returned.
func ReadHeader(r io.Reader) (*Header, error) {
	fr := &fieldReader{r: r}

	magic := fr.bytes(len(Magic))
	if fr.err != nil {
		return nil, fr.err
	}
	if string(magic) != Magic {
		return nil, formatErr("not a knox container")
	}

	h := &Header{Version: fr.u8()}
	if fr.err != nil {
		return nil, fr.err
	}

	switch h.Version {
	case Version2:
		readVersion2(fr, h)
	case Version1:
		readVersion1(fr, h)
	default:
		return nil, &kerrors.FormatError{Reason: fmt.Sprintf("version %d", h.Version), Err: kerrors.ErrUnsupportedVersion}
	}
	if fr.err != nil {
		return nil, fr.err
	}

	h.raw = fr.raw
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

func readVersion2(fr *fieldReader, h *Header) {
	h.Algorithm = secrets.Algorithm(fr.u8())
	if fr.err == nil && !h.Algorithm.Known() {
		fr.err = formatErr("unrecognized algorithm id %d", uint8(h.Algorithm))
		return
	}
	h.KDF.Algorithm = secrets.KDF(fr.u8())
	h.KDF.MemoryKiB = fr.u32()
	h.KDF.Iterations = fr.u32()
	h.KDF.Parallelism = fr.u8()
	h.Salt = fr.bytes(int(fr.u8()))
	h.Nonce = fr.bytes(int(fr.u8()))
	h.ChunkSize = fr.u32()
	h.OriginalSize = fr.u64()
	h.OriginalName = string(fr.bytes(int(fr.u16())))
}

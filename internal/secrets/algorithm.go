package secrets

import (
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
)

// Algorithm identifies an encryption scheme. The numeric value is written
// into container headers and must never be reassigned.
type Algorithm uint8

const (
	AlgorithmUnknown Algorithm = iota
	AES256GCM
	ChaCha20Poly1305
	// NTRU and Kyber are reserved for post-quantum hybrids. They parse and
	// round-trip through headers but NewCipher refuses them.
	NTRU
	Kyber
)

// DefaultAlgorithm is used when a caller does not name one.
const DefaultAlgorithm = AES256GCM

type algorithmInfo struct {
	name      string
	keySize   int
	nonceSize int
	supported bool
}

var algorithms = map[Algorithm]algorithmInfo{
	AES256GCM:        {name: "aes-256-gcm", keySize: 32, nonceSize: 12, supported: true},
	ChaCha20Poly1305: {name: "chacha20-poly1305", keySize: 32, nonceSize: 12, supported: true},
	NTRU:             {name: "ntru", keySize: 32, nonceSize: 12},
	Kyber:            {name: "kyber", keySize: 32, nonceSize: 12},
}

// Algorithms returns every recognized algorithm, supported or not.
func Algorithms() []Algorithm {
	return []Algorithm{AES256GCM, ChaCha20Poly1305, NTRU, Kyber}
}

func (a Algorithm) String() string {
	if info, ok := algorithms[a]; ok {
		return info.name
	}
	return fmt.Sprintf("algorithm(%d)", uint8(a))
}

// Known reports whether a is a recognized variant.
func (a Algorithm) Known() bool {
	_, ok := algorithms[a]
	return ok
}

// Supported reports whether a has a working cipher implementation.
func (a Algorithm) Supported() bool {
	return algorithms[a].supported
}

// PostQuantum reports whether a is one of the reserved post-quantum variants.
func (a Algorithm) PostQuantum() bool {
	return a == NTRU || a == Kyber
}

// KeySize returns the key length in bytes, or zero for unknown algorithms.
func (a Algorithm) KeySize() int { return algorithms[a].keySize }

// NonceSize returns the nonce length in bytes, or zero for unknown algorithms.
func (a Algorithm) NonceSize() int { return algorithms[a].nonceSize }

// TagSize returns the authentication tag length. Every variant uses a
// 16-byte tag, the reserved ones included.
func (a Algorithm) TagSize() int {
	if !a.Known() {
		return 0
	}
	return 16
}

// MarshalText encodes the algorithm by name.
func (a Algorithm) MarshalText() ([]byte, error) {
	if !a.Known() {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrUnsupportedAlgorithm, a)
	}
	return []byte(a.String()), nil
}

// UnmarshalText decodes an algorithm name.
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAlgorithm accepts the canonical names as well as the spellings used
// by the desktop UI ("AES-256-GCM", "ChaCha20-Poly1305", "Kyber", ...).
// Matching ignores case, dashes, underscores and spaces.
func ParseAlgorithm(s string) (Algorithm, error) {
	norm := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch norm {
	case "":
		return AlgorithmUnknown, kerrors.Invalid("algorithm", "must not be empty")
	case "aes256gcm", "aes256", "aesgcm":
		return AES256GCM, nil
	case "chacha20poly1305", "chacha20", "chacha":
		return ChaCha20Poly1305, nil
	case "ntru":
		return NTRU, nil
	case "kyber", "mlkem":
		return Kyber, nil
	default:
		return AlgorithmUnknown, fmt.Errorf("%w: %q", kerrors.ErrUnsupportedAlgorithm, s)
	}
}

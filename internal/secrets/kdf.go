package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/knox/internal/errors"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// KDF identifies a password-based key derivation function. Like Algorithm,
// its numeric value is part of the container format.
type KDF uint8

const (
	KDFUnknown KDF = iota
	KDFArgon2id
	KDFPBKDF2SHA256
)

func (k KDF) String() string {
	switch k {
	case KDFArgon2id:
		return "argon2id"
	case KDFPBKDF2SHA256:
		return "pbkdf2-sha256"
	default:
		return fmt.Sprintf("kdf(%d)", uint8(k))
	}
}

// ParseKDF parses a KDF name such as "argon2id" or "pbkdf2".
func ParseKDF(s string) (KDF, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "argon2id", "argon2":
		return KDFArgon2id, nil
	case "pbkdf2", "pbkdf2-sha256", "pbkdf2-hmac-sha256":
		return KDFPBKDF2SHA256, nil
	default:
		return KDFUnknown, fmt.Errorf("%w: unknown kdf %q", kerrors.ErrKeyDerivation, s)
	}
}

const (
	// SaltSize is the length of freshly generated salts.
	SaltSize = 32
	// MinSaltSize is the shortest salt accepted when reading a container.
	MinSaltSize = 16

	DefaultArgon2Memory      = 64 * 1024 // KiB
	DefaultArgon2Iterations  = 3
	DefaultArgon2Parallelism = 4

	// MaxArgon2Memory bounds the memory a container header may demand (4 GiB).
	MaxArgon2Memory     = 4 * 1024 * 1024
	MaxArgon2Iterations = 64

	MinPBKDF2Iterations     = 310_000
	DefaultPBKDF2Iterations = 600_000
	MaxPBKDF2Iterations     = 50_000_000
)

// KDFParams fully describes a key derivation. Memory and Parallelism are
// only meaningful for Argon2id.
type KDFParams struct {
	Algorithm   KDF
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
}

// DefaultKDFParams returns the Argon2id parameters used for new containers.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Algorithm:   KDFArgon2id,
		MemoryKiB:   DefaultArgon2Memory,
		Iterations:  DefaultArgon2Iterations,
		Parallelism: DefaultArgon2Parallelism,
	}
}

// DefaultPBKDF2Params returns the PBKDF2-HMAC-SHA256 fallback parameters.
func DefaultPBKDF2Params() KDFParams {
	return KDFParams{
		Algorithm:  KDFPBKDF2SHA256,
		Iterations: DefaultPBKDF2Iterations,
	}
}

// Validate rejects parameters that are too weak to protect a passphrase or
// too expensive to evaluate. Values read from a container header go through
// the same checks, so a hostile header cannot request unbounded memory.
func (p KDFParams) Validate() error {
	switch p.Algorithm {
	case KDFArgon2id:
		if p.Parallelism == 0 {
			return fmt.Errorf("%w: argon2id parallelism must be at least 1", kerrors.ErrKeyDerivation)
		}
		if p.Iterations == 0 || p.Iterations > MaxArgon2Iterations {
			return fmt.Errorf("%w: argon2id iterations must be between 1 and %d, got %d",
				kerrors.ErrKeyDerivation, MaxArgon2Iterations, p.Iterations)
		}
		if p.MemoryKiB < 8*uint32(p.Parallelism) || p.MemoryKiB > MaxArgon2Memory {
			return fmt.Errorf("%w: argon2id memory must be between %d and %d KiB, got %d",
				kerrors.ErrKeyDerivation, 8*uint32(p.Parallelism), MaxArgon2Memory, p.MemoryKiB)
		}
	case KDFPBKDF2SHA256:
		if p.Iterations < MinPBKDF2Iterations || p.Iterations > MaxPBKDF2Iterations {
			return fmt.Errorf("%w: pbkdf2 iterations must be between %d and %d, got %d",
				kerrors.ErrKeyDerivation, MinPBKDF2Iterations, MaxPBKDF2Iterations, p.Iterations)
		}
	default:
		return fmt.Errorf("%w: unknown kdf %s", kerrors.ErrKeyDerivation, p.Algorithm)
	}
	return nil
}

// NewSalt returns SaltSize bytes from the system CSPRNG.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("%w: generating salt: %v", kerrors.ErrKeyDerivation, err)
	}
	return salt, nil
}

// DeriveKey stretches passphrase into a keyLen-byte key. The caller owns the
// returned key and must Destroy it; WithKey does that automatically.
func DeriveKey(passphrase, salt []byte, params KDFParams, keyLen int) (*Key, error) {
	if len(passphrase) == 0 {
		return nil, kerrors.Invalid("passphrase", "must not be empty")
	}
	if len(salt) < MinSaltSize {
		return nil, fmt.Errorf("%w: salt must be at least %d bytes, got %d", kerrors.ErrKeyDerivation, MinSaltSize, len(salt))
	}
	if keyLen <= 0 {
		return nil, fmt.Errorf("%w: invalid key length %d", kerrors.ErrKeyDerivation, keyLen)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var raw []byte
	switch params.Algorithm {
	case KDFArgon2id:
		raw = argon2.IDKey(passphrase, salt, params.Iterations, params.MemoryKiB, params.Parallelism, uint32(keyLen))
	case KDFPBKDF2SHA256:
		raw = pbkdf2.Key(passphrase, salt, int(params.Iterations), keyLen, sha256.New)
	}

	return newKey(raw), nil
}

// WithKey derives a key, passes it to fn and destroys it on every exit path.
func WithKey(passphrase, salt []byte, params KDFParams, keyLen int, fn func(*Key) error) error {
	key, err := DeriveKey(passphrase, salt, params, keyLen)
	if err != nil {
		return err
	}
	defer key.Destroy()

	return fn(key)
}

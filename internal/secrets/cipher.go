package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	kerrors "github.com/PolarWolf314/knox/internal/errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// Cipher is an AEAD bound to a single key.
type Cipher interface {
	// Algorithm returns the variant this cipher implements.
	Algorithm() Algorithm

	// NonceSize returns the size of nonces in bytes.
	NonceSize() int

	// Overhead returns the authentication tag size.
	Overhead() int

	// Seal encrypts and authenticates plaintext, appending the result to dst.
	Seal(dst, nonce, plaintext, aad []byte) []byte

	// Open authenticates and decrypts ciphertext, appending the result to dst.
	// Any failure is reported as ErrAuthenticationFailed.
	Open(dst, nonce, ciphertext, aad []byte) ([]byte, error)
}

type aeadCipher struct {
	alg  Algorithm
	aead cipher.AEAD
}

func (c *aeadCipher) Algorithm() Algorithm { return c.alg }
func (c *aeadCipher) NonceSize() int       { return c.aead.NonceSize() }
func (c *aeadCipher) Overhead() int        { return c.aead.Overhead() }

func (c *aeadCipher) Seal(dst, nonce, plaintext, aad []byte) []byte {
	return c.aead.Seal(dst, nonce, plaintext, aad)
}

func (c *aeadCipher) Open(dst, nonce, ciphertext, aad []byte) ([]byte, error) {
	if len(nonce) != c.aead.NonceSize() || len(ciphertext) < c.aead.Overhead() {
		return nil, kerrors.ErrAuthenticationFailed
	}
	out, err := c.aead.Open(dst, nonce, ciphertext, aad)
	if err != nil {
		return nil, kerrors.ErrAuthenticationFailed
	}
	return out, nil
}

// AESGCMCipher implements Cipher using AES-256-GCM.
type AESGCMCipher struct{ aeadCipher }

// NewAESGCMCipher creates an AES-256-GCM cipher from a 32-byte key.
func NewAESGCMCipher(key []byte) (*AESGCMCipher, error) {
	if len(key) != AES256GCM.KeySize() {
		return nil, fmt.Errorf("AES-256 requires a %d-byte key, got %d bytes", AES256GCM.KeySize(), len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCMCipher{aeadCipher{alg: AES256GCM, aead: aead}}, nil
}

// ChaChaCipher implements Cipher using ChaCha20-Poly1305.
type ChaChaCipher struct{ aeadCipher }

// NewChaChaCipher creates a ChaCha20-Poly1305 cipher from a 32-byte key.
func NewChaChaCipher(key []byte) (*ChaChaCipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("ChaCha20-Poly1305 requires a %d-byte key, got %d bytes",
			chacha20poly1305.KeySize, len(key))
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 cipher: %w", err)
	}

	return &ChaChaCipher{aeadCipher{alg: ChaCha20Poly1305, aead: aead}}, nil
}

// NewCipher returns the implementation for alg.
func NewCipher(alg Algorithm, key []byte) (Cipher, error) {
	switch alg {
	case AES256GCM:
		return NewAESGCMCipher(key)
	case ChaCha20Poly1305:
		return NewChaChaCipher(key)
	case NTRU, Kyber:
		return nil, fmt.Errorf("%w: %s is reserved and not implemented", kerrors.ErrUnsupportedAlgorithm, alg)
	default:
		return nil, fmt.Errorf("%w: %s", kerrors.ErrUnsupportedAlgorithm, alg)
	}
}

// NewNonce generates a random base nonce for alg.
func NewNonce(alg Algorithm) ([]byte, error) {
	if !alg.Supported() {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrUnsupportedAlgorithm, alg)
	}

	nonce := make([]byte, alg.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}

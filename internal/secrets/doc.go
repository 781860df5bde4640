// Package secrets provides the cryptographic primitives for Knox.
//
// # Algorithms
//
// Algorithm is a closed set of variants. AES-256-GCM and ChaCha20-Poly1305
// are implemented; NTRU and Kyber are reserved identifiers that parse and
// survive a round trip through container headers, but NewCipher rejects
// them with ErrUnsupportedAlgorithm. Each variant carries its key and nonce
// length, and each implementation satisfies the Cipher interface.
//
// # Key Derivation
//
// Keys are derived from a passphrase and a random salt with Argon2id
// (64 MiB, 3 iterations, 4 lanes by default) or PBKDF2-HMAC-SHA256 with at
// least 310,000 iterations. Parameters read from a file are validated with
// the same bounds as parameters chosen locally.
//
// Derived keys are returned as *Key. Prefer WithKey, which destroys the key
// when the callback returns:
//
//	err := secrets.WithKey(passphrase, salt, params, alg.KeySize(), func(k *secrets.Key) error {
//	    c, err := secrets.NewCipher(alg, k.Bytes())
//	    ...
//	})
//
// # Streams
//
// EncryptStream and DecryptStream process plaintext in fixed-size chunks,
// each sealed with its own tag. The nonce of chunk i is the base nonce with
// i XORed into its last 8 bytes, and every chunk authenticates the container
// header, its index and a final-chunk flag. Decryption therefore fails fast
// on the first bad chunk and never releases unauthenticated plaintext.
//
// # Passwords
//
// GeneratePassword builds random passwords from selectable character classes
// using crypto/rand.
package secrets

package errors

import "errors"

// Input errors indicate the caller supplied something the engine refuses to act on.
var (
	// ErrValidation indicates a missing or malformed input.
	ErrValidation = errors.New("invalid input")

	// ErrFileNotFound indicates a specific file could not be located.
	ErrFileNotFound = errors.New("file not found")

	// ErrNoFilesFound indicates no files matched the provided patterns.
	ErrNoFilesFound = errors.New("no matching files found")

	// ErrAlreadyExists indicates the destination is already occupied.
	ErrAlreadyExists = errors.New("destination already exists")
)

// Cryptographic errors indicate failures during key derivation, encryption or decryption.
var (
	// ErrAuthenticationFailed indicates the AEAD tag did not verify. A wrong
	// passphrase and a corrupted file are deliberately indistinguishable.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrUnsupportedAlgorithm indicates the algorithm is unknown or not implemented.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")

	// ErrKeyDerivation indicates the key could not be derived from the passphrase.
	ErrKeyDerivation = errors.New("key derivation failed")

	// ErrEncryptFailed indicates file encryption failed.
	ErrEncryptFailed = errors.New("failed to encrypt file")

	// ErrDecryptFailed indicates file decryption failed.
	ErrDecryptFailed = errors.New("failed to decrypt file")
)

// Container errors indicate a file that is not a well-formed encrypted container.
var (
	// ErrFormat indicates the container header or body is malformed.
	ErrFormat = errors.New("invalid container format")

	// ErrUnsupportedVersion indicates a container or manifest version this build cannot read.
	ErrUnsupportedVersion = errors.New("unsupported format version")
)

// Filesystem errors indicate a failed read, write, rename or delete.
var (
	// ErrIO indicates an underlying filesystem operation failed.
	ErrIO = errors.New("i/o error")
)

// Vault errors indicate issues with vault directories and manifests.
var (
	// ErrVaultNotFound indicates the vault id or path does not resolve to a vault.
	ErrVaultNotFound = errors.New("vault not found")

	// ErrVaultFileNotFound indicates the manifest has no entry with the given stored name.
	ErrVaultFileNotFound = errors.New("file not found in vault")

	// ErrManifestCorrupt indicates the vault manifest could not be parsed.
	ErrManifestCorrupt = errors.New("vault manifest is corrupt")

	// ErrPartialDelete indicates some vault members could not be destroyed.
	ErrPartialDelete = errors.New("vault partially deleted")
)

// Shred errors indicate why a secure deletion could not complete.
var (
	// ErrShredFailed indicates secure deletion failed.
	ErrShredFailed = errors.New("secure deletion failed")

	// ErrLocked indicates another process holds a lock on the file.
	ErrLocked = errors.New("file is locked by another process")

	// ErrReadOnlyFilesystem indicates the file lives on a read-only filesystem.
	ErrReadOnlyFilesystem = errors.New("filesystem is read-only")

	// ErrDeviceFlushUnsupported indicates the device refused to flush written data.
	ErrDeviceFlushUnsupported = errors.New("device does not support flushing writes")
)

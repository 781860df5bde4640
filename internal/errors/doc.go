// Package errors provides typed error values for the Knox application.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. Structured
// failures carry a typed error (ValidationError, FormatError, IOError,
// ShredError, PartialDeleteError) that unwraps to the matching sentinel.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Input errors: rejected arguments (ErrValidation, ErrAlreadyExists)
//   - Crypto errors: key derivation and AEAD failures (ErrAuthenticationFailed)
//   - Container errors: malformed or unknown files (ErrFormat, ErrUnsupportedVersion)
//   - Vault errors: vault state issues (ErrVaultNotFound, ErrManifestCorrupt)
//   - Shred errors: secure deletion failures (ErrLocked, ErrReadOnlyFilesystem)
//
// # Usage
//
// Return errors from internal packages:
//
//	if passes < 1 {
//	    return nil, errors.Invalid("passes", "must be at least 1, got %d", passes)
//	}
//
// Handle errors at the boundary:
//
//	result, err := svc.Decrypt(ctx, opts)
//	if errors.Is(err, kerrors.ErrAuthenticationFailed) {
//	    // Show user-friendly message
//	}
//
// UserMessage renders any error for display without leaking which part of
// an authentication check failed.
package errors

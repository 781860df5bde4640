// Package workflows is the encryption service facade.
//
// A Service coordinates the lower packages (secrets, container, shred,
// audit, metrics) to implement complete operations. It is independent of
// transport concerns: the CLI and the IPC dispatcher both parse their input,
// call the service, and format the result.
//
// # Design Philosophy
//
// Callers should be a thin layer that:
//   - Collects paths, passphrases and flags
//   - Calls the appropriate Service method
//   - Formats the result for display
//
// The Service handles everything else:
//   - Validating inputs before touching the filesystem
//   - Deriving keys and wiping them when the operation ends
//   - Writing outputs through staged files so partial results never appear
//   - Recording audit entries and metrics
//
// # Operations
//
//   - Encrypt: Seals a file into a .knxenc container
//   - Decrypt: Authenticates and restores a container, or a raw ciphertext
//     when IV and salt are supplied
//   - Shred: Overwrites and unlinks a file
//   - EncryptBatch, DecryptBatch: Bounded concurrent versions of the above
//
// # Error Handling
//
// Methods return typed errors from the internal/errors package. Use
// errors.Is() to check for specific conditions:
//
//	result, err := svc.Decrypt(ctx, opts)
//	if errors.Is(err, kerrors.ErrAuthenticationFailed) {
//	    // Wrong passphrase or tampered file
//	}
//
// A requested shred that fails after a successful encrypt or decrypt does not
// fail the call; it is reported in the result's Shred field.
//
// # Context Usage
//
// Every operation takes a context.Context. Cancellation is honored between
// chunks and between shred passes, and a cancelled operation leaves no
// output behind.
package workflows

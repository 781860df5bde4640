// Package utils provides shared utility functions for knox.
//
// This package contains general-purpose helpers used across multiple packages.
// Functions are organized into logical groups:
//
// # Filesystem Utilities
//
// Functions for writing files safely:
//   - CreateStaged: reserves a name and writes through a temporary file
//     that is atomically renamed on Commit
//   - WriteFileAtomic: whole-file atomic replacement
//   - CreateStagedUnique: like CreateStaged on the first free "name (n).ext"
//   - IsPlainName: rejects names containing path separators
//
// # System Utilities
//
//   - GetUsername: returns the current system username
//
// # String Utilities
//
//   - FormatPaths: formats file paths for human-readable output
//   - FormatSize: renders byte counts with binary units
//
// # I/O Utilities
//
// Functions for reading from stdin:
//   - ReadStdin: reads all data from standard input
//   - ReadPassphraseStdin: reads a piped passphrase
//
// # Terminal Utilities
//
//   - ReadPassphrase: prompts without echo
//   - IsTerminal: checks if stdin is a terminal
package utils

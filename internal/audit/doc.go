// Package audit provides the audit trail sink for Knox operations.
//
// The engine never owns log storage. It reports events through the
// Recorder interface, and the process decides where they go: FileRecorder
// appends to a JSON Lines file, Nop drops them.
//
// # Log Format
//
// Each line of the log is one JSON object containing:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - User name
//   - Operation name and status
//   - Operation-specific details (files, vault, algorithm, error)
//
// Passphrases and key material are never recorded.
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the operation continues without error.
//
// # Reading Logs
//
// Use ReadEntries() to parse the audit log for display or analysis.
// Malformed entries are silently skipped to handle partial writes.
package audit

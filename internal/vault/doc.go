// Package vault manages vaults: directories holding encrypted files and a
// vault.knxmeta manifest that lists them.
//
// A Manager is the only writer of vault directories. Every manifest update
// is a read-modify-write performed under a per-vault lock (an in-process
// mutex plus an advisory lock on .vault.lock) and lands through an atomic
// replace, so a reader sees either the old or the new manifest.
//
// Vaults are addressed by id, through a Registry, or by directory path.
// Members are stored under random names; the original name lives in the
// container header and in the manifest entry.
package vault

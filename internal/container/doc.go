// Package container reads and writes the self-describing .knxenc format.
//
// A container is a cleartext header followed by a sealed body. The header
// records everything needed to decrypt the file except the passphrase: the
// cipher, the key derivation parameters, the salt and base nonce, the chunk
// size, and the original name and size. All integers are little-endian.
//
// Version 2 layout:
//
//	"KNXE" | version u8 | algorithm u8 | kdf u8 | kdf memory KiB u32 |
//	kdf iterations u32 | kdf parallelism u8 | salt len u8 | salt |
//	nonce len u8 | nonce | chunk size u32 | original size u64 |
//	name len u16 | name | body
//
// The body is a sequence of chunks produced by secrets.EncryptStream, with
// the raw header bytes as associated data. Version 1 containers, which hold
// a single sealed chunk and imply default Argon2id parameters, are still
// readable. Writers always produce the current version.
//
// Open validates the magic and version before any other field, then checks
// lengths against the limits of the format and the size of the file, so a
// truncated, foreign or hostile file fails with an error wrapping
// errors.ErrFormat before any key derivation happens.
package container

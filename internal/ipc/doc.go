// Package ipc is the boundary the desktop shell talks to.
//
// Handlers mirror the shell's API one method per operation and always return
// a JSON envelope {success, error, ...}; errors are reduced to messages that
// are safe to display. Binary values (iv, salt, authTag) are hex encoded and
// timestamps are epoch milliseconds.
//
// Server carries the handlers over newline-delimited JSON on any reader and
// writer pair, typically stdin and stdout of "knox ipc":
//
//	→ {"id":1,"channel":"encrypt-file","args":["/tmp/a.pdf","/tmp","pw","aes-256-gcm",false]}
//	← {"id":1,"result":{"success":true,"encryptedFilePath":"/tmp/a.pdf.knxenc",...}}
//
// Channel names match the shell's invoke channels.
package ipc

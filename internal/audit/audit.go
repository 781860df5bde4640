package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Operation names, matching the activity log of the desktop shell.
const (
	OpEncrypt      = "encrypt"
	OpDecrypt      = "decrypt"
	OpShred        = "shred"
	OpVaultCreate  = "vault_create"
	OpVaultDelete  = "vault_delete"
	OpVaultAdd     = "vault_add"
	OpVaultRemove  = "vault_remove"
	OpVaultExtract = "vault_extract"
	OpVaultList    = "vault_list_contents"
	OpKeyGenerate  = "key_generate"
)

// Status values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusWarning = "warning"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`             // RFC3339 with microseconds.
	User      string `json:"user,omitempty"` // OS user performing the action.
	Operation string `json:"op"`             // Operation name.
	Status    string `json:"status"`         // success, failure or warning.

	// Optional fields depending on operation.
	Files     []string `json:"files,omitempty"`     // For encrypt/decrypt/shred.
	Output    string   `json:"output,omitempty"`    // For encrypt/decrypt.
	Algorithm string   `json:"algorithm,omitempty"` // For encrypt/decrypt/vault_add.
	VaultID   string   `json:"vault_id,omitempty"`  // For vault operations.
	VaultPath string   `json:"vault,omitempty"`     // For vault operations.
	Passes    int      `json:"passes,omitempty"`    // For shred.
	Error     string   `json:"error,omitempty"`     // For failures and shred side-effect warnings.
}

// Recorder is the narrow interface the engine reports events through. It
// never returns an error: operations must not fail because auditing did.
type Recorder interface {
	Record(entry Entry)
}

// Nop discards every entry.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(Entry) {}

// FileRecorder appends entries to a JSON Lines file.
type FileRecorder struct {
	path string
	user string
	mu   sync.Mutex
}

// NewFileRecorder returns a recorder writing to path. User is stamped on
// entries that do not name one.
func NewFileRecorder(path, user string) *FileRecorder {
	return &FileRecorder{path: path, user: user}
}

// Path returns the path to the audit log file.
func (r *FileRecorder) Path() string {
	return r.path
}

// Record appends an entry to the audit log.
// If logging fails, the entry is dropped silently.
func (r *FileRecorder) Record(entry Entry) {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}
	if entry.User == "" {
		entry.User = r.user
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	// Write entry with newline.
	_, _ = f.Write(append(data, '\n'))
}

// ReadEntries reads all entries from the audit log at path.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				// Skip malformed entries.
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

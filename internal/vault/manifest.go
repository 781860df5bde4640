package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/secrets"
	"github.com/PolarWolf314/knox/internal/utils"
)

const (
	// ManifestName is the fixed name of the manifest inside a vault directory.
	ManifestName = "vault.knxmeta"

	// LockName is the advisory lock file guarding manifest updates.
	LockName = ".vault.lock"

	// ManifestFormatVersion is the manifest layout this build reads and writes.
	ManifestFormatVersion = 1
)

// Metadata describes a vault.
type Metadata struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Path               string    `json:"path"`
	CreatedAt          time.Time `json:"created_at"`
	EncryptedFileCount int       `json:"encrypted_file_count"`
	TotalSizeEncrypted int64     `json:"total_size_encrypted"`
}

// FileEntry describes one encrypted member of a vault.
type FileEntry struct {
	// Name is the original file name.
	Name string `json:"name"`

	// StoredName is the container file name inside the vault directory.
	StoredName string `json:"stored_name"`

	OriginalSize  int64             `json:"original_size"`
	EncryptedSize int64             `json:"encrypted_size"`
	EncryptedAt   time.Time         `json:"encrypted_at"`
	Algorithm     secrets.Algorithm `json:"algorithm"`
}

// Manifest is the on-disk content of vault.knxmeta.
type Manifest struct {
	FormatVersion int         `json:"format_version"`
	Vault         Metadata    `json:"vault"`
	Files         []FileEntry `json:"files"`
}

// recount derives the summary fields of the metadata from the entries.
func (m *Manifest) recount() {
	m.Vault.EncryptedFileCount = len(m.Files)
	m.Vault.TotalSizeEncrypted = 0
	for _, f := range m.Files {
		m.Vault.TotalSizeEncrypted += f.EncryptedSize
	}
}

// find returns the index of the entry with storedName, or -1.
func (m *Manifest) find(storedName string) int {
	for i, f := range m.Files {
		if f.StoredName == storedName {
			return i
		}
	}
	return -1
}

// readManifest loads the manifest of the vault at dir. A missing or
// unparsable manifest is reported as ErrManifestCorrupt; a newer layout as
// ErrUnsupportedVersion.
func readManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s is missing", kerrors.ErrManifestCorrupt, path)
		}
		return nil, kerrors.NewIOError("read", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrManifestCorrupt, path, err)
	}
	if m.FormatVersion != ManifestFormatVersion {
		return nil, &kerrors.FormatError{
			Path:   path,
			Reason: fmt.Sprintf("manifest format %d", m.FormatVersion),
			Err:    kerrors.ErrUnsupportedVersion,
		}
	}
	if m.Vault.ID == "" {
		return nil, fmt.Errorf("%w: %s has no vault id", kerrors.ErrManifestCorrupt, path)
	}

	// The directory is authoritative; vaults can be moved.
	m.Vault.Path = dir
	if m.Files == nil {
		m.Files = []FileEntry{}
	}
	m.recount()
	return &m, nil
}

// writeManifest atomically replaces the manifest of the vault at dir.
func writeManifest(dir string, m *Manifest) error {
	m.FormatVersion = ManifestFormatVersion
	m.Vault.Path = dir
	if m.Files == nil {
		m.Files = []FileEntry{}
	}
	m.recount()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return utils.WriteFileAtomic(filepath.Join(dir, ManifestName), append(data, '\n'), 0600)
}

package ipc

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/PolarWolf314/knox/internal/vault"
)

// Response is the envelope every operation returns.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// EncryptFileResponse answers encrypt-file.
type EncryptFileResponse struct {
	Response
	EncryptedFilePath string `json:"encryptedFilePath,omitempty"`
	Algorithm         string `json:"algorithm,omitempty"`
	IV                string `json:"iv,omitempty"`
	Salt              string `json:"salt,omitempty"`
	AuthTag           string `json:"authTag,omitempty"`
	ShredOutcome
}

// DecryptFileResponse answers decrypt-file and decrypt-file-from-vault.
type DecryptFileResponse struct {
	Response
	DecryptedFilePath string `json:"decryptedFilePath,omitempty"`
	ShredOutcome
}

// ShredOutcome reports a shred requested alongside another operation. It is
// separate from Success: the main operation can succeed while it fails.
type ShredOutcome struct {
	Shredded   bool   `json:"shredded,omitempty"`
	ShredError string `json:"shredError,omitempty"`
}

// ShredFileResponse answers shred-file.
type ShredFileResponse struct {
	Response
	Passes           int    `json:"passes,omitempty"`
	BytesOverwritten int64  `json:"bytesOverwritten,omitempty"`
	Caveat           string `json:"caveat,omitempty"`
}

// VaultItem is the UI representation of a vault.
type VaultItem struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Path               string `json:"path"`
	CreatedAt          int64  `json:"createdAt"`
	EncryptedFileCount int    `json:"encryptedFileCount"`
	TotalSizeEncrypted int64  `json:"totalSizeEncrypted"`
}

// VaultFile is the UI representation of a vault member.
type VaultFile struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	StoredName    string `json:"storedName"`
	OriginalSize  int64  `json:"originalSize"`
	EncryptedSize int64  `json:"encryptedSize"`
	EncryptedAt   int64  `json:"encryptedAt"`
	Type          string `json:"type,omitempty"`
	Algorithm     string `json:"algorithm"`
}

// CreateVaultResponse answers create-vault-directory.
type CreateVaultResponse struct {
	Response
	NewVaultItem *VaultItem `json:"newVaultItem,omitempty"`
}

// DeleteVaultResponse answers delete-vault-directory.
type DeleteVaultResponse struct {
	Response
	Remaining []string `json:"remaining,omitempty"`
}

// ListVaultResponse answers list-vault-contents.
type ListVaultResponse struct {
	Response
	Files           []VaultFile `json:"files"`
	ManifestCorrupt bool        `json:"manifestCorrupt,omitempty"`
}

// VaultIssue is a vault that could not be loaded.
type VaultIssue struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// LoadVaultsResponse answers load-all-vaults-metadata.
type LoadVaultsResponse struct {
	Response
	Vaults []VaultItem  `json:"vaults"`
	Issues []VaultIssue `json:"issues,omitempty"`
}

// AddFileResponse answers add-file-to-vault.
type AddFileResponse struct {
	Response
	AddedFile *VaultFile `json:"addedFile,omitempty"`
}

func toVaultItem(m vault.Metadata) VaultItem {
	return VaultItem{
		ID:                 m.ID,
		Name:               m.Name,
		Path:               m.Path,
		CreatedAt:          m.CreatedAt.UnixMilli(),
		EncryptedFileCount: m.EncryptedFileCount,
		TotalSizeEncrypted: m.TotalSizeEncrypted,
	}
}

func toVaultFile(dir string, e vault.FileEntry) VaultFile {
	return VaultFile{
		Name:          e.Name,
		Path:          filepath.Join(dir, e.StoredName),
		StoredName:    e.StoredName,
		OriginalSize:  e.OriginalSize,
		EncryptedSize: e.EncryptedSize,
		EncryptedAt:   e.EncryptedAt.UnixMilli(),
		Type:          fileType(e.Name),
		Algorithm:     e.Algorithm.String(),
	}
}

// fileType returns the MIME type of name, falling back to its extension.
func fileType(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}
	if t := mime.TypeByExtension(ext); t != "" {
		t, _, _ = strings.Cut(t, ";")
		return t
	}
	return strings.TrimPrefix(ext, ".")
}

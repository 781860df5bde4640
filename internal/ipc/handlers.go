package ipc

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/secrets"
	"github.com/PolarWolf314/knox/internal/vault"
	"github.com/PolarWolf314/knox/internal/workflows"
)

// Handlers implements the operations the desktop shell invokes. Every method
// returns an envelope and never panics on bad input.
type Handlers struct {
	svc        *workflows.Service
	vaults     *vault.Manager
	vaultRoots []string
	version    string
}

// NewHandlers wires the handlers to an engine. vaultRoots are searched by
// LoadAllVaultsMetadata in addition to the vault registry.
func NewHandlers(svc *workflows.Service, vaults *vault.Manager, vaultRoots []string, version string) *Handlers {
	return &Handlers{svc: svc, vaults: vaults, vaultRoots: vaultRoots, version: version}
}

func failure(err error) Response {
	return Response{Success: false, Error: kerrors.UserMessage(err)}
}

var succeeded = Response{Success: true}

// parseAlgorithm treats an empty name as "use the configured default".
func parseAlgorithm(name string) (secrets.Algorithm, error) {
	if name == "" {
		return secrets.AlgorithmUnknown, nil
	}
	return secrets.ParseAlgorithm(name)
}

func decodeHex(field, value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(value)
	if err != nil {
		return nil, kerrors.Invalid(field, "must be hex encoded")
	}
	return b, nil
}

func shredOutcome(o workflows.ShredOutcome) ShredOutcome {
	if !o.Requested {
		return ShredOutcome{}
	}
	if o.Err != nil {
		return ShredOutcome{ShredError: kerrors.UserMessage(o.Err)}
	}
	return ShredOutcome{Shredded: true}
}

// EncryptFile encrypts originalPath into outputDir.
func (h *Handlers) EncryptFile(ctx context.Context, originalPath, outputDir, passphrase, algorithm string, shredOriginal bool) EncryptFileResponse {
	alg, err := parseAlgorithm(algorithm)
	if err != nil {
		return EncryptFileResponse{Response: failure(err)}
	}

	pass := []byte(passphrase)
	defer clear(pass)

	res, err := h.svc.Encrypt(ctx, workflows.EncryptOptions{
		InputPath:     originalPath,
		OutputDir:     outputDir,
		Passphrase:    pass,
		Algorithm:     alg,
		ShredOriginal: shredOriginal,
	})
	if err != nil {
		return EncryptFileResponse{Response: failure(err)}
	}
	return EncryptFileResponse{
		Response:          succeeded,
		EncryptedFilePath: res.EncryptedPath,
		Algorithm:         res.Algorithm.String(),
		IV:                hex.EncodeToString(res.IV),
		Salt:              hex.EncodeToString(res.Salt),
		AuthTag:           hex.EncodeToString(res.AuthTag),
		ShredOutcome:      shredOutcome(res.Shred),
	}
}

// DecryptFile decrypts encryptedPath into outputDir. iv, salt and authTag
// are hex and only matter for raw ciphertexts without a container header.
func (h *Handlers) DecryptFile(ctx context.Context, encryptedPath, outputDir, passphrase, algorithm, iv, salt, authTag string, shredEncrypted bool) DecryptFileResponse {
	alg, err := parseAlgorithm(algorithm)
	if err != nil {
		return DecryptFileResponse{Response: failure(err)}
	}
	opts := workflows.DecryptOptions{
		InputPath:      encryptedPath,
		OutputDir:      outputDir,
		Algorithm:      alg,
		ShredEncrypted: shredEncrypted,
	}
	if opts.IV, err = decodeHex("iv", iv); err != nil {
		return DecryptFileResponse{Response: failure(err)}
	}
	if opts.Salt, err = decodeHex("salt", salt); err != nil {
		return DecryptFileResponse{Response: failure(err)}
	}
	if opts.AuthTag, err = decodeHex("authTag", authTag); err != nil {
		return DecryptFileResponse{Response: failure(err)}
	}

	opts.Passphrase = []byte(passphrase)
	defer clear(opts.Passphrase)

	res, err := h.svc.Decrypt(ctx, opts)
	if err != nil {
		return DecryptFileResponse{Response: failure(err)}
	}
	return DecryptFileResponse{
		Response:          succeeded,
		DecryptedFilePath: res.DecryptedPath,
		ShredOutcome:      shredOutcome(res.Shred),
	}
}

// ShredFile overwrites and deletes path. Zero passes means the default.
func (h *Handlers) ShredFile(ctx context.Context, path string, passes int) ShredFileResponse {
	report, err := h.svc.Shred(ctx, path, passes)
	if err != nil {
		return ShredFileResponse{Response: failure(err)}
	}
	return ShredFileResponse{
		Response:         succeeded,
		Passes:           report.Passes,
		BytesOverwritten: report.BytesOverwritten,
		Caveat:           report.Caveat,
	}
}

// GeneratePassword returns a random password.
func (h *Handlers) GeneratePassword(opts secrets.PasswordOptions) (string, error) {
	return secrets.GeneratePassword(opts)
}

// GetAppVersion returns the engine version.
func (h *Handlers) GetAppVersion() string {
	return h.version
}

// CreateVaultDirectory creates the vault name inside parentPath.
func (h *Handlers) CreateVaultDirectory(ctx context.Context, parentPath, name string) CreateVaultResponse {
	meta, err := h.vaults.CreateVault(ctx, name, parentPath)
	if err != nil {
		return CreateVaultResponse{Response: failure(err)}
	}
	item := toVaultItem(*meta)
	return CreateVaultResponse{Response: succeeded, NewVaultItem: &item}
}

// DeleteVaultDirectory deletes the vault at path, shredding its contents
// when shred is set.
func (h *Handlers) DeleteVaultDirectory(ctx context.Context, path string, shred bool) DeleteVaultResponse {
	err := h.vaults.DeleteVault(ctx, path, shred)
	if err != nil {
		resp := DeleteVaultResponse{Response: failure(err)}
		var pde *kerrors.PartialDeleteError
		if errors.As(err, &pde) {
			resp.Remaining = pde.Remaining
		}
		return resp
	}
	return DeleteVaultResponse{Response: succeeded}
}

// ListVaultContents lists the members of the vault at path.
func (h *Handlers) ListVaultContents(ctx context.Context, path string) ListVaultResponse {
	contents, err := h.vaults.ListContents(ctx, path)
	if err != nil {
		return ListVaultResponse{Response: failure(err), Files: []VaultFile{}}
	}
	files := make([]VaultFile, 0, len(contents.Files))
	for _, f := range contents.Files {
		files = append(files, toVaultFile(contents.Vault.Path, f))
	}
	return ListVaultResponse{Response: succeeded, Files: files, ManifestCorrupt: contents.ManifestCorrupt}
}

// LoadAllVaultsMetadata returns every vault below the configured roots and
// in the registry. Unreadable vaults are listed as issues.
func (h *Handlers) LoadAllVaultsMetadata(ctx context.Context) LoadVaultsResponse {
	res, err := h.vaults.LoadAll(ctx, h.vaultRoots)
	if err != nil {
		return LoadVaultsResponse{Response: failure(err), Vaults: []VaultItem{}}
	}
	resp := LoadVaultsResponse{Response: succeeded, Vaults: make([]VaultItem, 0, len(res.Vaults))}
	for _, v := range res.Vaults {
		resp.Vaults = append(resp.Vaults, toVaultItem(v))
	}
	for _, issue := range res.Issues {
		resp.Issues = append(resp.Issues, VaultIssue{Path: issue.Path, Error: kerrors.UserMessage(issue.Err)})
	}
	return resp
}

// AddFileToVault encrypts sourcePath into the vault at vaultPath.
func (h *Handlers) AddFileToVault(ctx context.Context, vaultPath, sourcePath, passphrase, algorithm string) AddFileResponse {
	alg, err := parseAlgorithm(algorithm)
	if err != nil {
		return AddFileResponse{Response: failure(err)}
	}
	pass := []byte(passphrase)
	defer clear(pass)

	entry, err := h.vaults.AddFile(ctx, vaultPath, sourcePath, pass, alg)
	if err != nil {
		return AddFileResponse{Response: failure(err)}
	}
	dir, err := h.vaults.Resolve(vaultPath)
	if err != nil {
		return AddFileResponse{Response: failure(fmt.Errorf("added but vault vanished: %w", err))}
	}
	file := toVaultFile(dir, *entry)
	return AddFileResponse{Response: succeeded, AddedFile: &file}
}

// DecryptFileFromVault decrypts a member of the vault into outputDir.
func (h *Handlers) DecryptFileFromVault(ctx context.Context, vaultPath, storedName, outputDir, passphrase string) DecryptFileResponse {
	pass := []byte(passphrase)
	defer clear(pass)

	res, err := h.vaults.ExtractFile(ctx, vaultPath, storedName, outputDir, pass, false)
	if err != nil {
		return DecryptFileResponse{Response: failure(err)}
	}
	return DecryptFileResponse{Response: succeeded, DecryptedFilePath: res.DecryptedPath}
}

// RemoveFileFromVault deletes a member of the vault.
func (h *Handlers) RemoveFileFromVault(ctx context.Context, vaultPath, storedName string, shred bool) Response {
	if err := h.vaults.RemoveFile(ctx, vaultPath, storedName, shred); err != nil {
		return failure(err)
	}
	return succeeded
}

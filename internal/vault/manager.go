package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PolarWolf314/knox/internal/audit"
	"github.com/PolarWolf314/knox/internal/container"
	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/secrets"
	"github.com/PolarWolf314/knox/internal/utils"
	"github.com/PolarWolf314/knox/internal/workflows"

	"github.com/google/uuid"
)

// Manager owns vault directories. It is the only component that mutates
// them, and it is safe for concurrent use: updates to the same vault are
// serialized, different vaults proceed independently.
type Manager struct {
	svc      *workflows.Service
	registry Registry
	locks    locker
}

// NewManager returns a Manager that encrypts through svc. A nil registry
// means vaults can only be addressed by path.
func NewManager(svc *workflows.Service, registry Registry) *Manager {
	if registry == nil {
		registry = NewMemoryRegistry()
	}
	return &Manager{svc: svc, registry: registry}
}

// Contents is the result of listing a vault.
type Contents struct {
	Vault Metadata
	Files []FileEntry

	// ManifestCorrupt is set when the manifest could not be read and Files
	// was rebuilt by scanning container headers.
	ManifestCorrupt bool
}

func (m *Manager) finish(entry audit.Entry, start time.Time, err error) {
	entry.Status = audit.StatusSuccess
	if err != nil {
		entry.Status = audit.StatusFailure
		entry.Error = kerrors.UserMessage(err)
	}
	m.svc.Metrics().ObserveOperation(entry.Operation, entry.Status, time.Since(start))
	m.svc.Recorder().Record(entry)
}

// Resolve turns a vault reference, either a registered id or a directory
// path, into the vault directory.
// Returns ErrVaultNotFound if ref names neither.
func (m *Manager) Resolve(ref string) (string, error) {
	if ref == "" {
		return "", kerrors.Invalid("vault", "must not be empty")
	}
	if err := uuid.Validate(ref); err == nil {
		path, ok, err := m.registry.Lookup(ref)
		if err != nil {
			return "", err
		}
		if ok {
			ref = path
		}
	}

	dir, err := filepath.Abs(ref)
	if err != nil {
		return "", kerrors.NewIOError("resolve", ref, err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", kerrors.ErrVaultNotFound, ref)
	}
	return dir, nil
}

// resolveManaged resolves ref and additionally requires a manifest file, so
// destructive operations never act on an arbitrary directory.
func (m *Manager) resolveManaged(ref string) (string, error) {
	dir, err := m.Resolve(ref)
	if err != nil {
		return "", err
	}
	if _, err := os.Lstat(filepath.Join(dir, ManifestName)); err != nil {
		return "", fmt.Errorf("%w: %s has no %s", kerrors.ErrVaultNotFound, dir, ManifestName)
	}
	return dir, nil
}

// CreateVault creates the vault directory name under parent and writes an
// empty manifest. An existing empty directory is adopted.
//
// Returns ValidationError if name is not a single path element or parent is
// not a directory.
// Returns ErrAlreadyExists if the directory exists and is not empty.
func (m *Manager) CreateVault(ctx context.Context, name, parent string) (meta *Metadata, err error) {
	start := time.Now()
	entry := audit.Entry{Operation: audit.OpVaultCreate}
	defer func() { m.finish(entry, start, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if !utils.IsPlainName(name) {
		return nil, kerrors.Invalid("vault name", "%q must be a single file name", name)
	}
	info, err := os.Stat(parent)
	if err != nil || !info.IsDir() {
		return nil, kerrors.Invalid("parent directory", "%s is not a directory", parent)
	}
	parent, err = filepath.Abs(parent)
	if err != nil {
		return nil, kerrors.NewIOError("resolve", parent, err)
	}

	dir := filepath.Join(parent, name)
	entry.VaultPath = dir
	created := true
	if err := os.Mkdir(dir, 0700); err != nil {
		if !errors.Is(err, os.ErrExist) {
			return nil, kerrors.NewIOError("create", dir, err)
		}
		entries, rerr := os.ReadDir(dir)
		if rerr != nil || len(entries) > 0 {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrAlreadyExists, dir)
		}
		created = false
	}

	manifest := &Manifest{
		Vault: Metadata{
			ID:        uuid.NewString(),
			Name:      name,
			CreatedAt: time.Now().UTC(),
		},
	}
	if err := writeManifest(dir, manifest); err != nil {
		if created {
			_ = os.RemoveAll(dir)
		}
		return nil, err
	}
	utils.SyncDir(parent)

	entry.VaultID = manifest.Vault.ID
	if err := m.registry.Register(manifest.Vault.ID, dir); err != nil {
		m.svc.Logger().WarnfAlways("Vault %s created but not registered: %v", dir, err)
	}
	m.svc.Metrics().SetVaultFiles(manifest.Vault.ID, 0)
	m.svc.Logger().Infof("Created vault %s at %s", name, dir)

	meta = &manifest.Vault
	return meta, nil
}

// DeleteVault removes a vault. With shred set, every regular file inside it
// is shredded first and the directory is only removed once all of them are
// gone; otherwise the directory is deleted recursively.
//
// Returns ErrVaultNotFound if ref does not resolve to a vault.
// Returns PartialDeleteError listing the survivors if any file could not be
// shredded. The manifest is rewritten to the remaining entries.
func (m *Manager) DeleteVault(ctx context.Context, ref string, shred bool) (err error) {
	start := time.Now()
	entry := audit.Entry{Operation: audit.OpVaultDelete}
	defer func() { m.finish(entry, start, err) }()

	dir, err := m.resolveManaged(ref)
	if err != nil {
		return err
	}
	entry.VaultPath = dir

	unlock, err := m.locks.lock(ctx, dir)
	if err != nil {
		return err
	}
	locked := true
	defer func() {
		if locked {
			unlock()
		}
	}()

	manifest, merr := readManifest(dir)
	if merr == nil {
		entry.VaultID = manifest.Vault.ID
	} else {
		m.svc.Logger().Warnf("Deleting vault %s with unreadable manifest: %v", dir, merr)
	}

	if shred {
		if err := m.shredContents(ctx, dir, manifest); err != nil {
			return err
		}
	}

	unlock()
	locked = false
	if err := os.RemoveAll(dir); err != nil {
		return kerrors.NewIOError("remove", dir, err)
	}
	utils.SyncDir(filepath.Dir(dir))

	if manifest != nil {
		if err := m.registry.Unregister(manifest.Vault.ID); err != nil {
			m.svc.Logger().Warnf("Could not unregister vault %s: %v", manifest.Vault.ID, err)
		}
		m.svc.Metrics().ForgetVault(manifest.Vault.ID)
	}
	m.svc.Logger().Infof("Deleted vault %s", dir)
	return nil
}

// shredContents shreds every regular file under dir except the lock file.
// The manifest goes last so a partial failure can still be described by it.
func (m *Manager) shredContents(ctx context.Context, dir string, manifest *Manifest) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && d.Name() != LockName && path != filepath.Join(dir, ManifestName) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return kerrors.NewIOError("walk", dir, err)
	}

	var remaining []string
	var errs []error
	for _, path := range files {
		if _, err := m.svc.Shred(ctx, path, 0); err != nil {
			remaining = append(remaining, path)
			errs = append(errs, err)
		}
	}

	if len(remaining) > 0 {
		if manifest != nil {
			kept := manifest.Files[:0]
			for _, f := range manifest.Files {
				if _, err := os.Lstat(filepath.Join(dir, f.StoredName)); err == nil {
					kept = append(kept, f)
				}
			}
			manifest.Files = kept
			if err := writeManifest(dir, manifest); err != nil {
				errs = append(errs, err)
			}
			m.svc.Metrics().SetVaultFiles(manifest.Vault.ID, len(kept))
		}
		return &kerrors.PartialDeleteError{VaultPath: dir, Remaining: remaining, Err: errors.Join(errs...)}
	}

	manifestPath := filepath.Join(dir, ManifestName)
	if _, err := m.svc.Shred(ctx, manifestPath, 0); err != nil {
		return &kerrors.PartialDeleteError{VaultPath: dir, Remaining: []string{manifestPath}, Err: err}
	}
	return nil
}

// AddFile encrypts source into the vault under a random stored name and
// records it in the manifest.
//
// Returns ErrManifestCorrupt if the manifest cannot be read; nothing is
// encrypted in that case.
// Returns the encrypt errors of workflows.Service.Encrypt.
func (m *Manager) AddFile(ctx context.Context, ref, source string, passphrase []byte, alg secrets.Algorithm) (added *FileEntry, err error) {
	start := time.Now()
	entry := audit.Entry{Operation: audit.OpVaultAdd, Files: []string{source}}
	defer func() { m.finish(entry, start, err) }()

	dir, err := m.resolveManaged(ref)
	if err != nil {
		return nil, err
	}
	entry.VaultPath = dir
	if _, err := readManifest(dir); err != nil {
		return nil, err
	}

	storedName := uuid.NewString() + container.Extension
	res, err := m.svc.Encrypt(ctx, workflows.EncryptOptions{
		InputPath:  source,
		OutputPath: filepath.Join(dir, storedName),
		Passphrase: passphrase,
		Algorithm:  alg,
	})
	if err != nil {
		return nil, err
	}
	entry.Algorithm = res.Algorithm.String()
	entry.Output = res.EncryptedPath

	added = &FileEntry{
		Name:          res.OriginalName,
		StoredName:    storedName,
		OriginalSize:  res.OriginalSize,
		EncryptedSize: res.EncryptedSize,
		EncryptedAt:   time.Now().UTC(),
		Algorithm:     res.Algorithm,
	}

	err = m.update(ctx, dir, func(manifest *Manifest) error {
		entry.VaultID = manifest.Vault.ID
		manifest.Files = append(manifest.Files, *added)
		return nil
	})
	if err != nil {
		_ = os.Remove(res.EncryptedPath)
		return nil, err
	}

	m.svc.Logger().Infof("Added %s to vault %s as %s", source, dir, storedName)
	return added, nil
}

// RemoveFile deletes a member and its manifest entry. With shred set the
// container is shredded instead of unlinked.
//
// Returns ErrVaultFileNotFound if the manifest has no such entry.
// Returns the shred error, with the entry still listed, if shredding fails.
func (m *Manager) RemoveFile(ctx context.Context, ref, storedName string, shred bool) (err error) {
	start := time.Now()
	entry := audit.Entry{Operation: audit.OpVaultRemove, Files: []string{storedName}}
	defer func() { m.finish(entry, start, err) }()

	if !utils.IsPlainName(storedName) {
		return kerrors.Invalid("stored name", "%q must be a single file name", storedName)
	}
	dir, err := m.resolveManaged(ref)
	if err != nil {
		return err
	}
	entry.VaultPath = dir

	return m.update(ctx, dir, func(manifest *Manifest) error {
		entry.VaultID = manifest.Vault.ID
		i := manifest.find(storedName)
		if i < 0 {
			return fmt.Errorf("%w: %s", kerrors.ErrVaultFileNotFound, storedName)
		}

		path := filepath.Join(dir, storedName)
		if _, err := os.Lstat(path); errors.Is(err, os.ErrNotExist) {
			m.svc.Logger().Warnf("%s was already missing from %s", storedName, dir)
		} else if shred {
			if _, err := m.svc.Shred(ctx, path, 0); err != nil {
				return err
			}
		} else if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return kerrors.NewIOError("remove", path, err)
		}

		manifest.Files = append(manifest.Files[:i], manifest.Files[i+1:]...)
		return nil
	})
}

// ExtractFile decrypts a member into outputDir under its original name. With
// remove set the member is then removed from the vault.
//
// Returns ErrVaultFileNotFound if the manifest has no such entry.
// Returns the decrypt errors of workflows.Service.Decrypt.
func (m *Manager) ExtractFile(ctx context.Context, ref, storedName, outputDir string, passphrase []byte, remove bool) (res *workflows.DecryptResult, err error) {
	start := time.Now()
	entry := audit.Entry{Operation: audit.OpVaultExtract, Files: []string{storedName}}
	defer func() { m.finish(entry, start, err) }()

	dir, err := m.resolveManaged(ref)
	if err != nil {
		return nil, err
	}
	entry.VaultPath = dir

	manifest, err := readManifest(dir)
	if err != nil {
		return nil, err
	}
	entry.VaultID = manifest.Vault.ID
	if manifest.find(storedName) < 0 {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrVaultFileNotFound, storedName)
	}

	res, err = m.svc.Decrypt(ctx, workflows.DecryptOptions{
		InputPath:  filepath.Join(dir, storedName),
		OutputDir:  outputDir,
		Passphrase: passphrase,
	})
	if err != nil {
		return nil, err
	}
	entry.Output = res.DecryptedPath

	if remove {
		if err := m.RemoveFile(ctx, dir, storedName, false); err != nil {
			return res, fmt.Errorf("extracted to %s but could not remove from vault: %w", res.DecryptedPath, err)
		}
	}
	return res, nil
}

// ListContents returns the vault metadata and its entries. If the manifest
// is missing or unparsable the entries are rebuilt from container headers
// and ManifestCorrupt is set.
func (m *Manager) ListContents(ctx context.Context, ref string) (contents *Contents, err error) {
	start := time.Now()
	entry := audit.Entry{Operation: audit.OpVaultList}
	defer func() { m.finish(entry, start, err) }()

	dir, err := m.Resolve(ref)
	if err != nil {
		return nil, err
	}
	entry.VaultPath = dir

	manifest, err := readManifest(dir)
	if err == nil {
		entry.VaultID = manifest.Vault.ID
		m.svc.Metrics().SetVaultFiles(manifest.Vault.ID, len(manifest.Files))
		return &Contents{Vault: manifest.Vault, Files: manifest.Files}, nil
	}
	if !errors.Is(err, kerrors.ErrManifestCorrupt) {
		return nil, err
	}

	m.svc.Logger().Warnf("%v; rebuilding listing from %s", err, dir)
	files, err := scanContainers(ctx, dir)
	if err != nil {
		return nil, err
	}
	contents = &Contents{
		Vault:           Metadata{Name: filepath.Base(dir), Path: dir},
		Files:           files,
		ManifestCorrupt: true,
	}
	contents.Vault.EncryptedFileCount = len(files)
	for _, f := range files {
		contents.Vault.TotalSizeEncrypted += f.EncryptedSize
	}
	return contents, nil
}

// update runs fn on the current manifest under the vault lock and writes the
// result. Nothing is written if fn fails.
func (m *Manager) update(ctx context.Context, dir string, fn func(*Manifest) error) error {
	unlock, err := m.locks.lock(ctx, dir)
	if err != nil {
		return err
	}
	defer unlock()

	manifest, err := readManifest(dir)
	if err != nil {
		return err
	}
	if err := fn(manifest); err != nil {
		return err
	}
	if err := writeManifest(dir, manifest); err != nil {
		return err
	}
	m.svc.Metrics().SetVaultFiles(manifest.Vault.ID, len(manifest.Files))
	return nil
}

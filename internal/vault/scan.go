package vault

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/PolarWolf314/knox/internal/container"
	kerrors "github.com/PolarWolf314/knox/internal/errors"
)

// MaxScanDepth bounds how far below a search root LoadAll looks for vaults.
const MaxScanDepth = 4

// Issue is a per-vault problem found while loading.
type Issue struct {
	Path string
	Err  error
}

// LoadResult is the outcome of LoadAll.
type LoadResult struct {
	Vaults []Metadata
	Issues []Issue
}

// scanContainers rebuilds entries from the headers of the containers in dir.
// Files whose header cannot be read are skipped.
func scanContainers(ctx context.Context, dir string) ([]FileEntry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, kerrors.NewIOError("read", dir, err)
	}

	files := []FileEntry{}
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !de.Type().IsRegular() || !strings.HasSuffix(de.Name(), container.Extension) {
			continue
		}
		path := filepath.Join(dir, de.Name())
		h, err := container.Inspect(path)
		if err != nil {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		files = append(files, FileEntry{
			Name:          h.OriginalName,
			StoredName:    de.Name(),
			OriginalSize:  int64(h.OriginalSize),
			EncryptedSize: info.Size(),
			EncryptedAt:   info.ModTime().UTC(),
			Algorithm:     h.Algorithm,
		})
	}
	return files, nil
}

// LoadAll finds vaults below roots, up to MaxScanDepth levels deep, and
// every registered vault. A vault whose manifest cannot be read is reported
// in Issues instead of failing the scan. Hidden directories are skipped.
func (m *Manager) LoadAll(ctx context.Context, roots []string) (*LoadResult, error) {
	result := &LoadResult{Vaults: []Metadata{}}
	seen := make(map[string]bool)
	var candidates []string

	for _, root := range roots {
		root, err := filepath.Abs(root)
		if err != nil {
			result.Issues = append(result.Issues, Issue{Path: root, Err: err})
			continue
		}
		found, err := findManifests(ctx, root)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			result.Issues = append(result.Issues, Issue{Path: root, Err: err})
		}
		candidates = append(candidates, found...)
	}

	registered, err := m.registry.Entries()
	if err != nil {
		m.svc.Logger().Warnf("Could not read vault registry: %v", err)
	}
	for id, path := range registered {
		if _, err := os.Stat(filepath.Join(path, ManifestName)); err != nil {
			result.Issues = append(result.Issues, Issue{Path: path, Err: errors.Join(kerrors.ErrVaultNotFound, err)})
			m.svc.Logger().Debugf("Registered vault %s missing at %s", id, path)
			continue
		}
		candidates = append(candidates, path)
	}

	for _, dir := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if seen[dir] {
			continue
		}
		seen[dir] = true

		manifest, err := readManifest(dir)
		if err != nil {
			result.Issues = append(result.Issues, Issue{Path: dir, Err: err})
			continue
		}
		m.svc.Metrics().SetVaultFiles(manifest.Vault.ID, len(manifest.Files))
		result.Vaults = append(result.Vaults, manifest.Vault)
	}

	slices.SortFunc(result.Vaults, func(a, b Metadata) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return result, nil
}

// findManifests returns the directories below root holding a manifest. It
// does not descend into vaults.
func findManifests(ctx context.Context, root string) ([]string, error) {
	var dirs []string
	rootDepth := strings.Count(root, string(filepath.Separator))

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if _, err := os.Stat(filepath.Join(path, ManifestName)); err == nil {
			dirs = append(dirs, path)
			return fs.SkipDir
		}
		if strings.Count(path, string(filepath.Separator))-rootDepth >= MaxScanDepth {
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return dirs, kerrors.NewIOError("scan", root, err)
	}
	return dirs, nil
}

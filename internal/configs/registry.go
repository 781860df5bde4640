package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// RegistryFile is the on-disk layout of the vault registry.
type RegistryFile struct {
	Vaults map[string]RegistryEntry `toml:"vaults"`
}

// RegistryEntry records where a vault lives.
type RegistryEntry struct {
	Path         string    `toml:"path"`
	RegisteredAt time.Time `toml:"registered_at"`
}

// FileRegistry is a vault registry persisted as TOML. Updates hold an
// advisory lock on a sibling .lock file so concurrent processes do not lose
// each other's entries.
type FileRegistry struct {
	path string
	mu   sync.Mutex
}

// NewFileRegistry returns a registry stored at path. The file is created on
// the first Register.
func NewFileRegistry(path string) *FileRegistry {
	return &FileRegistry{path: path}
}

// Path returns the registry file location.
func (r *FileRegistry) Path() string {
	return r.path
}

func (r *FileRegistry) load() (*RegistryFile, error) {
	rf := &RegistryFile{Vaults: map[string]RegistryEntry{}}
	if err := LoadTOML(r.path, rf); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rf, nil
		}
		return nil, fmt.Errorf("loading vault registry: %w", err)
	}
	if rf.Vaults == nil {
		rf.Vaults = map[string]RegistryEntry{}
	}
	return rf, nil
}

// modify runs fn on the registry under both locks and saves the result.
func (r *FileRegistry) modify(fn func(*RegistryFile)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}
	lock := flock.New(r.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking vault registry: %w", err)
	}
	defer lock.Unlock()

	rf, err := r.load()
	if err != nil {
		return err
	}
	fn(rf)
	return SaveTOML(r.path, rf)
}

// Register records the vault id at path.
func (r *FileRegistry) Register(id, path string) error {
	return r.modify(func(rf *RegistryFile) {
		rf.Vaults[id] = RegistryEntry{Path: path, RegisteredAt: time.Now().UTC()}
	})
}

// Unregister forgets the vault id. Unknown ids are ignored.
func (r *FileRegistry) Unregister(id string) error {
	return r.modify(func(rf *RegistryFile) {
		delete(rf.Vaults, id)
	})
}

// Lookup returns the path registered for id.
func (r *FileRegistry) Lookup(id string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rf, err := r.load()
	if err != nil {
		return "", false, err
	}
	e, ok := rf.Vaults[id]
	return e.Path, ok, nil
}

// Entries returns every registered id and path.
func (r *FileRegistry) Entries() (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rf, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rf.Vaults))
	for id, e := range rf.Vaults {
		out[id] = e.Path
	}
	return out, nil
}

package vault

import (
	"maps"
	"sync"
)

// Registry maps vault ids to directories so vaults can be addressed by id.
// Implementations must be safe for concurrent use.
type Registry interface {
	Register(id, path string) error
	Unregister(id string) error
	Lookup(id string) (path string, ok bool, err error)
	Entries() (map[string]string, error)
}

// MemoryRegistry is a Registry that lives for the process only.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryRegistry returns an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[string]string)}
}

// Register implements Registry.
func (r *MemoryRegistry) Register(id, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = path
	return nil
}

// Unregister implements Registry.
func (r *MemoryRegistry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	return nil
}

// Lookup implements Registry.
func (r *MemoryRegistry) Lookup(id string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	path, ok := r.entries[id]
	return path, ok, nil
}

// Entries implements Registry.
func (r *MemoryRegistry) Entries() (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.entries), nil
}

package configs

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "registry.toml")
	reg := NewFileRegistry(path)

	entries, err := reg.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries, "missing file is an empty registry")

	require.NoError(t, reg.Register("id-1", "/vaults/one"))
	require.NoError(t, reg.Register("id-2", "/vaults/two"))

	// A second instance sees what the first persisted.
	other := NewFileRegistry(path)
	got, ok, err := other.Lookup("id-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/vaults/one", got)

	require.NoError(t, other.Unregister("id-1"))
	require.NoError(t, other.Unregister("unknown"))

	entries, err = reg.Entries()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id-2": "/vaults/two"}, entries)
}

func TestFileRegistryConcurrentRegister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.toml")

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Separate instances exercise the file lock, not just the mutex.
			reg := NewFileRegistry(path)
			assert.NoError(t, reg.Register(string(rune('a'+i)), "/v"))
		}()
	}
	wg.Wait()

	entries, err := NewFileRegistry(path).Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 10)
}

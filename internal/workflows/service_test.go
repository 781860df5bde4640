package workflows

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/PolarWolf314/knox/internal/audit"
	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/metrics"
	"github.com/PolarWolf314/knox/internal/secrets"
)

var testPassphrase = []byte("correct horse battery staple")

// memRecorder collects audit entries in memory.
type memRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *memRecorder) Record(e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *memRecorder) ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ops []string
	for _, e := range r.entries {
		ops = append(ops, e.Operation+":"+e.Status)
	}
	return ops
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.KDF = secrets.KDFParams{Algorithm: secrets.KDFArgon2id, MemoryKiB: 64, Iterations: 1, Parallelism: 1}
	cfg.ShredPasses = 1
	cfg.Workers = 2
	return cfg
}

func newTestService(t *testing.T, mutate ...func(*Config)) (*Service, *memRecorder) {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	rec := &memRecorder{}
	svc, err := New(cfg, WithRecorder(rec), WithMetrics(metrics.New()))
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	return svc, rec
}

func writeInput(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return data
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"reserved algorithm", func(c *Config) { c.Algorithm = secrets.Kyber }, kerrors.ErrUnsupportedAlgorithm},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, kerrors.ErrValidation},
		{"huge chunk size", func(c *Config) { c.ChunkSize = secrets.MaxChunkSize + 1 }, kerrors.ErrValidation},
		{"no shred passes", func(c *Config) { c.ShredPasses = 0 }, kerrors.ErrValidation},
		{"no workers", func(c *Config) { c.Workers = 0 }, kerrors.ErrValidation},
		{"weak pbkdf2", func(c *Config) {
			c.KDF = secrets.KDFParams{Algorithm: secrets.KDFPBKDF2SHA256, Iterations: 1000}
		}, kerrors.ErrKeyDerivation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			if !errors.Is(err, tt.target) {
				t.Errorf("Expected %v, got: %v", tt.target, err)
			}
		})
	}
}

func TestChunkSizeFor(t *testing.T) {
	svc, _ := newTestService(t, func(c *Config) {
		c.StreamThreshold = 100
		c.ChunkSize = 32
	})

	cases := map[int64]uint32{0: 1, 1: 1, 100: 100, 101: 32, 1 << 20: 32}
	for size, want := range cases {
		if got := svc.chunkSizeFor(size); got != want {
			t.Errorf("chunkSizeFor(%d) = %d, want %d", size, got, want)
		}
	}
}

func TestWriteStagedAbortsOnError(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out")
	boom := errors.New("boom")

	_, err := writeStaged(dest, true, func(w io.Writer) error {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 10))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Dir(dest))
	if len(entries) != 0 {
		t.Errorf("Expected empty directory, found %d entries", len(entries))
	}
}

func TestWriteStagedPicksFreeName(t *testing.T) {
	dir := t.TempDir()
	dest := writeInput(t, dir, "notes.txt", []byte("occupied"))

	got, err := writeStaged(dest, false, func(w io.Writer) error {
		_, err := w.Write([]byte("fresh"))
		return err
	})
	if err != nil {
		t.Fatalf("writeStaged failed: %v", err)
	}
	if got != filepath.Join(dir, "notes (1).txt") {
		t.Errorf("Expected notes (1).txt, got: %s", got)
	}
	if string(readFile(t, got)) != "fresh" || string(readFile(t, dest)) != "occupied" {
		t.Error("Content ended up in the wrong file")
	}

	if _, err := writeStaged(dest, true, func(io.Writer) error { return nil }); !errors.Is(err, kerrors.ErrAlreadyExists) {
		t.Errorf("Exact destination should fail with ErrAlreadyExists, got: %v", err)
	}
}

package utils

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
)

func TestStagedFileCommit(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.knxenc")

	s, err := CreateStaged(dest, 0600)
	if err != nil {
		t.Fatalf("CreateStaged failed: %v", err)
	}

	// The name is reserved but empty until Commit.
	info, err := os.Stat(dest)
	if err != nil || info.Size() != 0 {
		t.Fatalf("Expected an empty placeholder, got %v, %v", info, err)
	}
	if _, err := CreateStaged(dest, 0600); !errors.Is(err, kerrors.ErrAlreadyExists) {
		t.Errorf("Second writer should get ErrAlreadyExists, got %v", err)
	}

	if _, err := s.Write([]byte("sealed")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "sealed" {
		t.Errorf("Committed content = %q, err %v", data, err)
	}
	if err := s.Commit(); err == nil {
		t.Error("Second Commit should fail")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Temporary files left behind: %v", entries)
	}
}

func TestStagedFileAbort(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.knxenc")

	s, err := CreateStaged(dest, 0600)
	if err != nil {
		t.Fatalf("CreateStaged failed: %v", err)
	}
	_, _ = s.Write([]byte("partial"))
	s.Abort()
	s.Abort()

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Abort should leave nothing behind, found %v", entries)
	}
}

func TestCreateStagedUniqueSkipsTakenNames(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(dest, []byte("occupied"), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := CreateStagedUnique(dest, 0600)
	if err != nil {
		t.Fatalf("CreateStagedUnique failed: %v", err)
	}
	if want := filepath.Join(dir, "report (1).pdf"); s.Path() != want {
		t.Errorf("Expected %s, got %s", want, s.Path())
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "occupied" {
		t.Error("Existing file was overwritten")
	}
}

func TestCreateStagedUniqueConcurrent(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "report.txt")
	const writers = 16

	var wg sync.WaitGroup
	paths := make([]string, writers)
	errs := make([]error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := CreateStagedUnique(dest, 0600)
			if err != nil {
				errs[i] = err
				return
			}
			paths[i] = s.Path()
			errs[i] = s.Commit()
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := range writers {
		if errs[i] != nil {
			t.Fatalf("Writer %d failed: %v", i, errs[i])
		}
		if seen[paths[i]] {
			t.Errorf("Name %s handed out twice", paths[i])
		}
		seen[paths[i]] = true
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != writers {
		t.Errorf("Expected %d files, found %d", writers, len(entries))
	}
}

func TestNumberedPath(t *testing.T) {
	tests := []struct {
		path string
		n    int
		want string
	}{
		{"a.txt", 0, "a.txt"},
		{"a.txt", 2, "a (2).txt"},
		{"report.pdf.knxenc", 1, "report.pdf (1).knxenc"},
		{"decrypted", 3, "decrypted (3)"},
		{filepath.Join("dir", "x.bin"), 1, filepath.Join("dir", "x (1).bin")},
	}
	for _, tt := range tests {
		if got := numberedPath(tt.path, tt.n); got != tt.want {
			t.Errorf("numberedPath(%q, %d) = %q, want %q", tt.path, tt.n, got, tt.want)
		}
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.knxmeta")
	for _, content := range []string{"first", "second"} {
		if err := WriteFileAtomic(path, []byte(content), 0600); err != nil {
			t.Fatalf("WriteFileAtomic failed: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil || string(data) != content {
			t.Errorf("Content = %q, want %q (err %v)", data, content, err)
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Mode = %o, want 600", info.Mode().Perm())
	}
}

func TestIsPlainName(t *testing.T) {
	tests := map[string]bool{
		"Docs":        true,
		"My Vault":    true,
		"":            false,
		".":           false,
		"..":          false,
		"../escape":   false,
		"a/b":         false,
		`a\b`:         runtime.GOOS != "windows",
		"nul\x00byte": false,
	}
	for name, want := range tests {
		if got := IsPlainName(name); got != want {
			t.Errorf("IsPlainName(%q) = %t, want %t", name, got, want)
		}
	}
}

package configs

import (
	"os"
	"path/filepath"
	"testing"
)

type tomlSample struct {
	Name   string
	Passes int
	Roots  []string
}

func TestSaveAndLoadTOML(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "subdir", "test.toml")

	original := tomlSample{Name: "Docs", Passes: 3, Roots: []string{"/a", "/b"}}
	if err := SaveTOML(testFile, original); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	info, err := os.Stat(testFile)
	if err != nil {
		t.Fatalf("File was not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	var loaded tomlSample
	if err := LoadTOML(testFile, &loaded); err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}
	if loaded.Name != original.Name || loaded.Passes != original.Passes || len(loaded.Roots) != 2 {
		t.Errorf("Expected %+v, got %+v", original, loaded)
	}
}

func TestLoadTOMLNonExistent(t *testing.T) {
	var data tomlSample
	if err := LoadTOML(filepath.Join(t.TempDir(), "nonexistent.toml"), &data); err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}
}

func TestTOMLFileProvider(t *testing.T) {
	dir := t.TempDir()

	values, err := tomlFile{path: filepath.Join(dir, "missing.toml")}.Read()
	if err != nil {
		t.Fatalf("Missing file should be ignored, got: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("Expected no values, got %v", values)
	}

	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("workers = 2\n[kdf]\nmemory = \"32MiB\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	values, err = tomlFile{path: path}.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	kdf, ok := values["kdf"].(map[string]any)
	if !ok || kdf["memory"] != "32MiB" {
		t.Errorf("Expected nested kdf.memory, got %v", values)
	}

	if err := os.WriteFile(path, []byte("workers = = 2"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := (tomlFile{path: path}).Read(); err == nil {
		t.Error("Expected parse error for malformed file")
	}
}

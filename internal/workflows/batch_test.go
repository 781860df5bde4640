package workflows

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/shred"
)

func TestBatchIsolatesFailures(t *testing.T) {
	svc, _ := newTestService(t)
	dir := t.TempDir()

	var reqs []EncryptOptions
	for i := range 5 {
		path := writeInput(t, dir, fmt.Sprintf("f%d.txt", i), []byte(fmt.Sprintf("content %d", i)))
		reqs = append(reqs, EncryptOptions{InputPath: path, Passphrase: testPassphrase})
	}
	reqs = append(reqs, EncryptOptions{InputPath: filepath.Join(dir, "missing.txt"), Passphrase: testPassphrase})

	items := svc.EncryptBatch(context.Background(), reqs)
	if len(items) != len(reqs) {
		t.Fatalf("Expected %d items, got %d", len(reqs), len(items))
	}

	var dreqs []DecryptOptions
	for i, item := range items[:5] {
		if item.Err != nil {
			t.Fatalf("Item %d failed: %v", i, item.Err)
		}
		if item.InputPath != reqs[i].InputPath {
			t.Errorf("Item %d out of order: %s", i, item.InputPath)
		}
		dreqs = append(dreqs, DecryptOptions{InputPath: item.Result.EncryptedPath, OutputDir: t.TempDir(), Passphrase: testPassphrase})
	}
	if !errors.Is(items[5].Err, kerrors.ErrValidation) {
		t.Errorf("Expected validation error for missing file, got: %v", items[5].Err)
	}

	for i, item := range svc.DecryptBatch(context.Background(), dreqs) {
		if item.Err != nil {
			t.Fatalf("Decrypt item %d failed: %v", i, item.Err)
		}
		if got := string(readFile(t, item.Result.DecryptedPath)); got != fmt.Sprintf("content %d", i) {
			t.Errorf("Item %d content mismatch: %q", i, got)
		}
	}
}

func TestBatchSharedOutputNames(t *testing.T) {
	svc, _ := newTestService(t, func(c *Config) { c.Workers = 8 })
	const n = 8

	for round := range 5 {
		encDir := t.TempDir()
		var reqs []EncryptOptions
		for i := range n {
			src := t.TempDir()
			path := writeInput(t, src, "report.txt", []byte(fmt.Sprintf("round %d copy %d", round, i)))
			reqs = append(reqs, EncryptOptions{InputPath: path, OutputDir: encDir, Passphrase: testPassphrase})
		}

		var dreqs []DecryptOptions
		outDir := t.TempDir()
		for i, item := range svc.EncryptBatch(context.Background(), reqs) {
			if item.Err != nil {
				t.Fatalf("Round %d: encrypt item %d failed: %v", round, i, item.Err)
			}
			dreqs = append(dreqs, DecryptOptions{InputPath: item.Result.EncryptedPath, OutputDir: outDir, Passphrase: testPassphrase})
		}

		want := make(map[string]bool)
		for i := range n {
			want[fmt.Sprintf("round %d copy %d", round, i)] = true
		}
		seen := make(map[string]bool)
		for i, item := range svc.DecryptBatch(context.Background(), dreqs) {
			if item.Err != nil {
				t.Fatalf("Round %d: decrypt item %d failed: %v", round, i, item.Err)
			}
			if seen[item.Result.DecryptedPath] {
				t.Fatalf("Round %d: %s written twice", round, item.Result.DecryptedPath)
			}
			seen[item.Result.DecryptedPath] = true
			content := string(readFile(t, item.Result.DecryptedPath))
			if !want[content] {
				t.Errorf("Round %d: unexpected content %q", round, content)
			}
			delete(want, content)
		}

		entries, _ := os.ReadDir(outDir)
		if len(entries) != n {
			t.Errorf("Round %d: expected %d plaintexts, found %d", round, n, len(entries))
		}
	}
}

func TestServiceShred(t *testing.T) {
	svc, rec := newTestService(t)
	dir := t.TempDir()
	path := writeInput(t, dir, "wipe.me", []byte("0123456789"))

	report, err := svc.Shred(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("Shred failed: %v", err)
	}
	if report.Passes != 1 || report.BytesOverwritten != 10 || report.Caveat != shred.Caveat {
		t.Errorf("Unexpected report: %+v", report)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("File should be gone")
	}

	if _, err := svc.Shred(context.Background(), path, shred.MaxPasses+1); !errors.Is(err, kerrors.ErrValidation) {
		t.Errorf("Expected validation error, got: %v", err)
	}
	if ops := rec.ops(); len(ops) != 2 || ops[0] != "shred:success" || ops[1] != "shred:failure" {
		t.Errorf("Unexpected audit trail: %v", ops)
	}
}

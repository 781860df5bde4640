package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVaultCommands(t *testing.T) {
	env := setupTestEnvironment(t)
	src := env.writeTestFile(t, "report.pdf", "%PDF-1.7")
	vaultDir := filepath.Join(env.vaultRoot, "Docs")

	output, err := env.run(t, "", "vault", "create", "Docs")
	if err != nil {
		t.Fatalf("vault create failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, vaultDir) {
		t.Errorf("Vault should be created in the first vault root, got: %s", output)
	}

	output, err = env.run(t, "pw\n", "vault", "add", vaultDir, src)
	if err != nil {
		t.Fatalf("vault add failed: %v\n%s", err, output)
	}

	output, err = env.run(t, "", "vault", "list", vaultDir)
	if err != nil {
		t.Fatalf("vault list failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "report.pdf") || !strings.Contains(output, "aes-256-gcm") {
		t.Errorf("Listing should show the member, got: %s", output)
	}

	output, err = env.run(t, "", "vault", "load", "--json")
	if err != nil {
		t.Fatalf("vault load failed: %v\n%s", err, output)
	}
	var vaults []struct {
		Name               string `json:"name"`
		EncryptedFileCount int    `json:"encrypted_file_count"`
	}
	if err := json.Unmarshal([]byte(output), &vaults); err != nil {
		t.Fatalf("vault load --json is not JSON: %v\n%s", err, output)
	}
	if len(vaults) != 1 || vaults[0].Name != "Docs" || vaults[0].EncryptedFileCount != 1 {
		t.Errorf("Unexpected vaults: %+v", vaults)
	}

	outDir := t.TempDir()
	output, err = env.run(t, "pw\n", "vault", "extract", "-o", outDir, vaultDir, "report.pdf")
	if err != nil {
		t.Fatalf("vault extract failed: %v\n%s", err, output)
	}
	data, err := os.ReadFile(filepath.Join(outDir, "report.pdf"))
	if err != nil || string(data) != "%PDF-1.7" {
		t.Errorf("Extracted content = %q, err %v", data, err)
	}

	output, err = env.run(t, "", "vault", "remove", vaultDir, "report.pdf")
	if err != nil {
		t.Fatalf("vault remove failed: %v\n%s", err, output)
	}
	output, err = env.run(t, "", "vault", "list", vaultDir)
	if err != nil || !strings.Contains(output, "No files.") {
		t.Errorf("Vault should be empty, err %v: %s", err, output)
	}

	output, err = env.run(t, "", "vault", "delete", "--force", vaultDir)
	if err != nil {
		t.Fatalf("vault delete failed: %v\n%s", err, output)
	}
	if _, err := os.Stat(vaultDir); !os.IsNotExist(err) {
		t.Errorf("Vault directory should be gone, stat err: %v", err)
	}
}

func TestVaultCommandsUnknownMember(t *testing.T) {
	env := setupTestEnvironment(t)
	if output, err := env.run(t, "", "vault", "create", "Empty"); err != nil {
		t.Fatalf("vault create failed: %v\n%s", err, output)
	}

	output, err := env.run(t, "", "vault", "remove", filepath.Join(env.vaultRoot, "Empty"), "nothing.txt")
	if !IsReported(err) {
		t.Fatalf("Expected a reported failure, got %v", err)
	}
	if !strings.Contains(output, "file not found in vault") {
		t.Errorf("Unexpected output: %s", output)
	}
}

func TestVaultCreateRejectsBadNames(t *testing.T) {
	env := setupTestEnvironment(t)
	if output, err := env.run(t, "", "vault", "create", "Docs"); err != nil {
		t.Fatalf("vault create failed: %v\n%s", err, output)
	}

	output, err := env.run(t, "", "vault", "create", "Docs")
	if !IsReported(err) {
		t.Errorf("Expected an existing vault to be refused, got %v: %s", err, output)
	}

	output, err = env.run(t, "", "vault", "create", "../escape")
	if !IsReported(err) {
		t.Errorf("Expected path-like names to be refused, got %v: %s", err, output)
	}
	if _, err := os.Stat(filepath.Join(env.dir, "escape")); !os.IsNotExist(err) {
		t.Errorf("Nothing should be created outside the vault root, stat err: %v", err)
	}
}

// Package cmd contains testing utilities shared between the command tests.
// This file provides common functions for setting up an isolated
// configuration, feeding stdin and capturing output.
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
)

// testEnv is an isolated knox installation rooted in a temporary directory.
type testEnv struct {
	dir        string
	configPath string
	auditPath  string
	vaultRoot  string
}

// setupTestEnvironment writes a config with a fast KDF whose audit log,
// registry and vault root all live below a temporary directory.
func setupTestEnvironment(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	dir := t.TempDir()
	env := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.toml"),
		auditPath:  filepath.Join(dir, "data", "audit.jsonl"),
		vaultRoot:  filepath.Join(dir, "vaults"),
	}
	if err := os.MkdirAll(env.vaultRoot, 0700); err != nil {
		t.Fatalf("Failed to create vault root: %v", err)
	}

	config := fmt.Sprintf(`algorithm = "aes-256-gcm"
chunk_size = "64KiB"
shred_passes = 1
workers = 2
audit_log = %q
registry = %q
vault_roots = [%q]

[kdf]
algorithm = "argon2id"
memory = "64KiB"
iterations = 1
parallelism = 1
`, env.auditPath, filepath.Join(dir, "data", "registry.toml"), env.vaultRoot)
	if err := os.WriteFile(env.configPath, []byte(config), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Cleanup(ResetGlobalState)
	return env
}

// writeTestFile creates a file with content inside the environment.
func (e *testEnv) writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// run executes the CLI with args, feeding stdin, and returns everything
// written to stdout and stderr.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	ResetGlobalState()
	restore := withStdin(t, stdin)
	defer restore()

	RootCmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	return captureOutput(RootCmd.Execute)
}

// withStdin replaces os.Stdin with a file holding content.
func withStdin(t *testing.T, content string) func() {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stdin")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write stdin: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open stdin: %v", err)
	}
	original := os.Stdin
	os.Stdin = f
	return func() {
		os.Stdin = original
		f.Close()
	}
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	stdoutChan := make(chan string, 1)
	stderrChan := make(chan string, 1)
	drain := func(r io.Reader, out chan<- string) {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, r); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		out <- buf.String()
	}
	go drain(stdoutReader, stdoutChan)
	go drain(stderrReader, stderrChan)

	err := fn()

	// Close writers to signal EOF
	stdoutWriter.Close()
	stderrWriter.Close()

	os.Stdout = originalStdout
	os.Stderr = originalStderr

	return <-stdoutChan + <-stderrChan, err
}

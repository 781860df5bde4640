package ipc

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/PolarWolf314/knox/internal/metrics"
	"github.com/PolarWolf314/knox/internal/secrets"
	"github.com/PolarWolf314/knox/internal/vault"
	"github.com/PolarWolf314/knox/internal/workflows"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	h       *Handlers
	metrics *metrics.Collector
	root    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := workflows.DefaultConfig()
	cfg.KDF = secrets.KDFParams{Algorithm: secrets.KDFArgon2id, MemoryKiB: 64, Iterations: 1, Parallelism: 1}
	cfg.ShredPasses = 1
	m := metrics.New()
	svc, err := workflows.New(cfg, workflows.WithMetrics(m))
	require.NoError(t, err)

	root := t.TempDir()
	mgr := vault.NewManager(svc, vault.NewMemoryRegistry())
	return &fixture{h: NewHandlers(svc, mgr, []string{root}, "1.2.3"), metrics: m, root: root}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestEncryptDecryptFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := t.TempDir()
	src := writeFile(t, dir, "letter.txt", "dear reader")

	enc := f.h.EncryptFile(ctx, src, dir, "pw", "ChaCha20-Poly1305", false)
	require.True(t, enc.Success, enc.Error)
	assert.Equal(t, src+".knxenc", enc.EncryptedFilePath)
	assert.Equal(t, "chacha20-poly1305", enc.Algorithm)
	iv, err := hex.DecodeString(enc.IV)
	require.NoError(t, err)
	assert.Len(t, iv, 12)
	assert.Len(t, enc.Salt, 64)
	assert.Len(t, enc.AuthTag, 32)
	assert.False(t, enc.Shredded)

	wrong := f.h.DecryptFile(ctx, enc.EncryptedFilePath, t.TempDir(), "nope", "", "", "", "", false)
	assert.False(t, wrong.Success)
	assert.Equal(t, "Decryption failed: wrong passphrase or corrupted file", wrong.Error)

	out := t.TempDir()
	dec := f.h.DecryptFile(ctx, enc.EncryptedFilePath, out, "pw", "aes-256-gcm", "", "", "", true)
	require.True(t, dec.Success, dec.Error)
	assert.Equal(t, filepath.Join(out, "letter.txt"), dec.DecryptedFilePath)
	assert.True(t, dec.Shredded)
	assert.NoFileExists(t, enc.EncryptedFilePath)

	data, err := os.ReadFile(dec.DecryptedFilePath)
	require.NoError(t, err)
	assert.Equal(t, "dear reader", string(data))
}

func TestHandlersRejectBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := writeFile(t, t.TempDir(), "a.txt", "a")

	resp := f.h.EncryptFile(ctx, src, "", "pw", "aes-512-gcm", false)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unsupported")

	resp = f.h.EncryptFile(ctx, src, "", "", "", false)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "passphrase")

	dec := f.h.DecryptFile(ctx, src, "", "pw", "", "zz", "", "", false)
	assert.False(t, dec.Success)
	assert.Contains(t, dec.Error, "iv")

	shred := f.h.ShredFile(ctx, filepath.Join(t.TempDir(), "missing"), 0)
	assert.False(t, shred.Success)
}

func TestShredFile(t *testing.T) {
	f := newFixture(t)
	path := writeFile(t, t.TempDir(), "wipe", "0123456789")

	resp := f.h.ShredFile(context.Background(), path, 2)
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, 2, resp.Passes)
	assert.Equal(t, int64(20), resp.BytesOverwritten)
	assert.NotEmpty(t, resp.Caveat)
	assert.NoFileExists(t, path)
}

func TestVaultHandlers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := writeFile(t, t.TempDir(), "report.pdf", "%PDF-1.7")

	created := f.h.CreateVaultDirectory(ctx, f.root, "Docs")
	require.True(t, created.Success, created.Error)
	item := created.NewVaultItem
	require.NotNil(t, item)
	assert.Equal(t, "Docs", item.Name)
	assert.Positive(t, item.CreatedAt)

	added := f.h.AddFileToVault(ctx, item.Path, src, "pw", "aes-256-gcm")
	require.True(t, added.Success, added.Error)
	assert.Equal(t, "report.pdf", added.AddedFile.Name)
	assert.Equal(t, "application/pdf", added.AddedFile.Type)
	assert.Equal(t, int64(8), added.AddedFile.OriginalSize)
	assert.FileExists(t, added.AddedFile.Path)

	listed := f.h.ListVaultContents(ctx, item.Path)
	require.True(t, listed.Success, listed.Error)
	require.Len(t, listed.Files, 1)
	assert.Equal(t, *added.AddedFile, listed.Files[0])

	loaded := f.h.LoadAllVaultsMetadata(ctx)
	require.True(t, loaded.Success, loaded.Error)
	require.Len(t, loaded.Vaults, 1)
	assert.Equal(t, 1, loaded.Vaults[0].EncryptedFileCount)

	out := t.TempDir()
	dec := f.h.DecryptFileFromVault(ctx, item.Path, added.AddedFile.StoredName, out, "pw")
	require.True(t, dec.Success, dec.Error)
	assert.Equal(t, filepath.Join(out, "report.pdf"), dec.DecryptedFilePath)

	removed := f.h.RemoveFileFromVault(ctx, item.Path, added.AddedFile.StoredName, true)
	require.True(t, removed.Success, removed.Error)

	deleted := f.h.DeleteVaultDirectory(ctx, item.Path, true)
	require.True(t, deleted.Success, deleted.Error)
	assert.NoDirExists(t, item.Path)

	missing := f.h.ListVaultContents(ctx, item.Path)
	assert.False(t, missing.Success)
	assert.NotNil(t, missing.Files)
}

func TestFileType(t *testing.T) {
	assert.Equal(t, "application/pdf", fileType("a.pdf"))
	assert.Equal(t, "", fileType("README"))
	assert.Equal(t, "knxunknown", fileType("x.knxunknown"))
}

package workflows

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/PolarWolf314/knox/internal/audit"
	"github.com/PolarWolf314/knox/internal/container"
	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/secrets"
)

// EncryptOptions configures the encrypt workflow.
type EncryptOptions struct {
	// InputPath is the plaintext file to encrypt.
	InputPath string

	// OutputDir is where the container is written. Defaults to the
	// directory of InputPath.
	OutputDir string

	// OutputPath names the container exactly and overrides OutputDir.
	// It must not exist.
	OutputPath string

	// Passphrase is the secret the key is derived from.
	Passphrase []byte

	// Algorithm selects the cipher. Zero means the configured default.
	Algorithm secrets.Algorithm

	// ShredOriginal securely deletes InputPath once the container is durable.
	ShredOriginal bool
}

// EncryptResult contains the outcome of an encrypt operation.
type EncryptResult struct {
	// EncryptedPath is the container that was written.
	EncryptedPath string

	// Algorithm is the cipher used.
	Algorithm secrets.Algorithm

	// IV is the base nonce stored in the header.
	IV []byte

	// Salt is the key derivation salt stored in the header.
	Salt []byte

	// AuthTag is the tag of the final chunk.
	AuthTag []byte

	// OriginalName is the plaintext file name stored in the header.
	OriginalName string

	// OriginalSize is the plaintext length in bytes.
	OriginalSize int64

	// EncryptedSize is the container length in bytes.
	EncryptedSize int64

	// Shred reports the optional deletion of the plaintext.
	Shred ShredOutcome
}

// Encrypt seals InputPath into a new container. The container appears under
// its final name only once fully written and flushed, and the source is
// never modified unless ShredOriginal is set.
//
// Returns ValidationError if the input is missing, not a regular file, or
// the passphrase is empty.
// Returns ErrUnsupportedAlgorithm if the algorithm cannot be used.
// Returns ErrAlreadyExists if OutputPath is taken. A derived output name never
// collides: the first free "name (n).knxenc" variant is claimed instead.
// Returns context.Canceled if ctx is cancelled mid-stream; nothing is left on disk.
func (s *Service) Encrypt(ctx context.Context, opts EncryptOptions) (result *EncryptResult, err error) {
	start := time.Now()
	entry := audit.Entry{Operation: audit.OpEncrypt, Files: []string{opts.InputPath}}
	defer func() { s.finish(entry, start, err) }()

	alg, err := s.resolveAlgorithm(opts.Algorithm)
	if err != nil {
		return nil, err
	}
	entry.Algorithm = alg.String()

	info, err := statInput(opts.InputPath)
	if err != nil {
		return nil, err
	}
	if len(opts.Passphrase) == 0 {
		return nil, kerrors.Invalid("passphrase", "must not be empty")
	}

	name := filepath.Base(opts.InputPath)
	if !container.ValidName(name) {
		return nil, kerrors.Invalid("input path", "file name %q cannot be stored in a container", name)
	}
	dest, create := opts.OutputPath, container.Create
	if dest == "" {
		dir, err := outputDir(opts.OutputDir, opts.InputPath)
		if err != nil {
			return nil, err
		}
		dest, create = filepath.Join(dir, name+container.Extension), container.CreateUnique
	}

	src, err := os.Open(opts.InputPath)
	if err != nil {
		return nil, kerrors.NewIOError("open", opts.InputPath, err)
	}
	defer src.Close()

	salt, err := secrets.NewSalt()
	if err != nil {
		return nil, err
	}
	nonce, err := secrets.NewNonce(alg)
	if err != nil {
		return nil, err
	}

	size := info.Size()
	header := &container.Header{
		Algorithm:    alg,
		KDF:          s.cfg.KDF,
		Salt:         salt,
		Nonce:        nonce,
		ChunkSize:    s.chunkSizeFor(size),
		OriginalSize: uint64(size),
		OriginalName: name,
	}

	w, err := create(dest, header)
	if err != nil {
		return nil, err
	}
	dest = w.Path()
	s.log.Debugf("Encrypting %s to %s with %s", opts.InputPath, dest, alg)

	var tag []byte
	err = secrets.WithKey(opts.Passphrase, salt, s.cfg.KDF, alg.KeySize(), func(key *secrets.Key) error {
		c, err := secrets.NewCipher(alg, key.Bytes())
		if err != nil {
			return err
		}
		tag, err = w.EncryptFrom(ctx, src, c)
		return err
	})
	if err != nil {
		w.Abort()
		return nil, wrapEncryptErr(opts.InputPath, err)
	}
	if err := w.Commit(); err != nil {
		return nil, err
	}
	_ = src.Close()

	entry.Output = dest
	s.metrics.AddBytes(audit.OpEncrypt, size)
	s.log.Infof("Encrypted %s to %s", opts.InputPath, dest)

	result = &EncryptResult{
		EncryptedPath: dest,
		Algorithm:     alg,
		IV:            nonce,
		Salt:          salt,
		AuthTag:       tag,
		OriginalName:  name,
		OriginalSize:  size,
		EncryptedSize: int64(len(header.Raw())) + header.BodySize(),
	}
	if opts.ShredOriginal {
		result.Shred = s.sideShred(ctx, opts.InputPath)
	}
	return result, nil
}

// wrapEncryptErr tags failures that are not already classified.
func wrapEncryptErr(path string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, kerrors.ErrIO), errors.Is(err, kerrors.ErrValidation),
		errors.Is(err, kerrors.ErrKeyDerivation), errors.Is(err, kerrors.ErrUnsupportedAlgorithm):
		return err
	}
	return fmt.Errorf("%w: %s: %w", kerrors.ErrEncryptFailed, path, err)
}

// statInput checks that path names an existing regular file.
func statInput(path string) (os.FileInfo, error) {
	if path == "" {
		return nil, kerrors.Invalid("input path", "must not be empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, kerrors.Invalid("input path", "%s does not exist", path)
		}
		return nil, kerrors.NewIOError("stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, kerrors.Invalid("input path", "%s is not a regular file", path)
	}
	return info, nil
}

// outputDir returns dir, or the directory of input when dir is empty, after
// checking that it is a directory.
func outputDir(dir, input string) (string, error) {
	if dir == "" {
		return filepath.Dir(input), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", kerrors.Invalid("output directory", "%s does not exist", dir)
		}
		return "", kerrors.NewIOError("stat", dir, err)
	}
	if !info.IsDir() {
		return "", kerrors.Invalid("output directory", "%s is not a directory", dir)
	}
	return dir, nil
}

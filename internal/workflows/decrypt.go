package workflows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PolarWolf314/knox/internal/audit"
	"github.com/PolarWolf314/knox/internal/container"
	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/secrets"
)

// legacyFallbackName is used when a raw ciphertext has no recognizable suffix.
const legacyFallbackName = "decrypted"

// DecryptOptions configures the decrypt workflow.
type DecryptOptions struct {
	// InputPath is the container to decrypt.
	InputPath string

	// OutputDir is where the plaintext is written. Defaults to the directory
	// of InputPath.
	OutputDir string

	// OutputPath names the plaintext exactly and overrides both OutputDir and
	// the name stored in the container. It must not exist.
	OutputPath string

	// Passphrase is the secret the key is derived from.
	Passphrase []byte

	// Algorithm is a hint. The container header is authoritative; for raw
	// ciphertexts it selects the cipher.
	Algorithm secrets.Algorithm

	// IV, Salt and AuthTag are only used for raw ciphertexts without a
	// container header.
	IV      []byte
	Salt    []byte
	AuthTag []byte

	// ShredEncrypted securely deletes InputPath once the plaintext is durable.
	ShredEncrypted bool
}

// DecryptResult contains the outcome of a decrypt operation.
type DecryptResult struct {
	// DecryptedPath is the plaintext file that was written.
	DecryptedPath string

	// Algorithm is the cipher that was used.
	Algorithm secrets.Algorithm

	// OriginalName is the file name recovered from the header.
	OriginalName string

	// Size is the plaintext length in bytes.
	Size int64

	// FormatVersion is the container version, or zero for raw ciphertexts.
	FormatVersion uint8

	// Legacy is true if the input was a raw ciphertext.
	Legacy bool

	// Shred reports the optional deletion of the container.
	Shred ShredOutcome
}

// Decrypt authenticates and decrypts a container. No plaintext appears under
// the output name unless every chunk authenticated.
//
// Returns ValidationError if the input is missing or the passphrase is empty.
// Returns ErrAuthenticationFailed if the passphrase is wrong or the data was
// altered. The two cases are indistinguishable.
// Returns ErrFormat if the input is neither a container nor a raw ciphertext
// accompanied by IV and Salt.
// Returns ErrUnsupportedVersion or ErrUnsupportedAlgorithm for containers this
// build cannot open.
func (s *Service) Decrypt(ctx context.Context, opts DecryptOptions) (result *DecryptResult, err error) {
	start := time.Now()
	entry := audit.Entry{Operation: audit.OpDecrypt, Files: []string{opts.InputPath}}
	defer func() { s.finish(entry, start, err) }()

	if _, err := statInput(opts.InputPath); err != nil {
		return nil, err
	}
	if len(opts.Passphrase) == 0 {
		return nil, kerrors.Invalid("passphrase", "must not be empty")
	}
	dir, err := outputDir(opts.OutputDir, opts.InputPath)
	if err != nil {
		return nil, err
	}

	isContainer, err := container.Sniff(opts.InputPath)
	if err != nil {
		return nil, err
	}
	if isContainer {
		result, err = s.decryptContainer(ctx, opts, dir)
	} else {
		result, err = s.decryptLegacy(opts, dir)
	}
	if err != nil {
		return nil, err
	}

	entry.Algorithm = result.Algorithm.String()
	entry.Output = result.DecryptedPath
	s.metrics.AddBytes(audit.OpDecrypt, result.Size)
	s.log.Infof("Decrypted %s to %s", opts.InputPath, result.DecryptedPath)

	if opts.ShredEncrypted {
		result.Shred = s.sideShred(ctx, opts.InputPath)
	}
	return result, nil
}

func (s *Service) decryptContainer(ctx context.Context, opts DecryptOptions, dir string) (*DecryptResult, error) {
	r, err := container.Open(opts.InputPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	h := r.Header
	if opts.Algorithm != secrets.AlgorithmUnknown && opts.Algorithm != h.Algorithm {
		s.log.Debugf("%s declares %s, ignoring requested %s", opts.InputPath, h.Algorithm, opts.Algorithm)
	}
	if !h.Algorithm.Supported() {
		return nil, fmt.Errorf("%w: %s uses %s", kerrors.ErrUnsupportedAlgorithm, opts.InputPath, h.Algorithm)
	}

	dest, exact := opts.OutputPath, true
	if dest == "" {
		dest, exact = filepath.Join(dir, h.OriginalName), false
	}
	s.log.Debugf("Decrypting %s (v%d, %s) into %s", opts.InputPath, h.Version, h.Algorithm, filepath.Dir(dest))

	dest, err = writeStaged(dest, exact, func(w io.Writer) error {
		return secrets.WithKey(opts.Passphrase, h.Salt, h.KDF, h.Algorithm.KeySize(), func(key *secrets.Key) error {
			c, err := secrets.NewCipher(h.Algorithm, key.Bytes())
			if err != nil {
				return err
			}
			return r.DecryptTo(ctx, w, c)
		})
	})
	if err != nil {
		return nil, err
	}

	return &DecryptResult{
		DecryptedPath: dest,
		Algorithm:     h.Algorithm,
		OriginalName:  h.OriginalName,
		Size:          int64(h.OriginalSize),
		FormatVersion: h.Version,
	}, nil
}

// decryptLegacy handles a raw ciphertext whose IV and salt travel outside
// the file. The key is always derived with the default Argon2id parameters.
func (s *Service) decryptLegacy(opts DecryptOptions, dir string) (*DecryptResult, error) {
	if len(opts.IV) == 0 || len(opts.Salt) == 0 {
		return nil, &kerrors.FormatError{Path: opts.InputPath, Reason: "not a knox container"}
	}

	alg, err := s.resolveAlgorithm(opts.Algorithm)
	if err != nil {
		return nil, err
	}
	if len(opts.IV) != alg.NonceSize() {
		return nil, kerrors.Invalid("iv", "must be %d bytes for %s", alg.NonceSize(), alg)
	}

	info, err := os.Stat(opts.InputPath)
	if err != nil {
		return nil, kerrors.NewIOError("stat", opts.InputPath, err)
	}
	if info.Size() > container.MaxVersion1Size+int64(alg.TagSize()) {
		return nil, kerrors.Invalid("input path", "raw ciphertext larger than %d bytes", container.MaxVersion1Size)
	}

	data, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return nil, kerrors.NewIOError("read", opts.InputPath, err)
	}
	if len(opts.AuthTag) > 0 {
		data = append(data, opts.AuthTag...)
	}

	var plaintext []byte
	err = secrets.WithKey(opts.Passphrase, opts.Salt, secrets.DefaultKDFParams(), alg.KeySize(), func(key *secrets.Key) error {
		c, err := secrets.NewCipher(alg, key.Bytes())
		if err != nil {
			return err
		}
		plaintext, err = c.Open(nil, opts.IV, data, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer clear(plaintext)

	name := legacyOutputName(filepath.Base(opts.InputPath))
	dest, exact := opts.OutputPath, true
	if dest == "" {
		dest, exact = filepath.Join(dir, name), false
	}
	s.log.Debugf("Decrypting raw ciphertext %s into %s", opts.InputPath, filepath.Dir(dest))

	dest, err = writeStaged(dest, exact, func(w io.Writer) error {
		if _, err := w.Write(plaintext); err != nil {
			return kerrors.NewIOError("write", opts.InputPath, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &DecryptResult{
		DecryptedPath: dest,
		Algorithm:     alg,
		OriginalName:  name,
		Size:          int64(len(plaintext)),
		Legacy:        true,
	}, nil
}

// legacyOutputName strips a known encrypted suffix from name.
func legacyOutputName(name string) string {
	for _, ext := range []string{container.Extension, ".enc"} {
		if base, ok := strings.CutSuffix(name, ext); ok && base != "" {
			return base
		}
	}
	return legacyFallbackName
}

// IsAuthFailure reports whether err means the passphrase was wrong or the
// data was tampered with.
func IsAuthFailure(err error) bool {
	return errors.Is(err, kerrors.ErrAuthenticationFailed)
}

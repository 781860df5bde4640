package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/ui"
	"github.com/PolarWolf314/knox/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	decryptOutputDir string
	decryptOutput    string
	decryptAlgorithm string
	decryptIV        string
	decryptSalt      string
	decryptAuthTag   string
	decryptShred     bool
)

func init() {
	decryptCmd.Flags().StringVarP(&decryptOutputDir, "output-dir", "o", "", "directory for the plaintext (default is next to each container)")
	decryptCmd.Flags().StringVar(&decryptOutput, "output", "", "exact plaintext path, only with a single input")
	decryptCmd.Flags().StringVarP(&decryptAlgorithm, "algorithm", "a", "", "cipher of a raw ciphertext; containers name their own")
	decryptCmd.Flags().StringVar(&decryptIV, "iv", "", "hex nonce of a raw ciphertext without a container header")
	decryptCmd.Flags().StringVar(&decryptSalt, "salt", "", "hex salt of a raw ciphertext")
	decryptCmd.Flags().StringVar(&decryptAuthTag, "auth-tag", "", "hex tag of a raw ciphertext stored apart from it")
	decryptCmd.Flags().BoolVar(&decryptShred, "shred", false, "securely delete each container after it is decrypted")
}

func decodeHexFlag(name, value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(value)
	if err != nil {
		return nil, kerrors.Invalid("--"+name, "must be hex encoded")
	}
	return b, nil
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt <path>...",
	Short: "Decrypts .knxenc containers",
	Long: `Decrypts containers with a passphrase. The plaintext is restored under the
file name stored in the container, or a free "name (n)" variant if taken.

A raw ciphertext without a container header can be decrypted by passing its
--iv and --salt (and --auth-tag if the tag is stored separately).

Examples:
  knox decrypt report.pdf.knxenc
  knox decrypt -o ~/restored vault-export/
  knox decrypt --iv 0a1b... --salt 99ff... old.bin`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting decrypt command")

		alg, err := parseAlgorithm(decryptAlgorithm)
		if err != nil {
			return err
		}
		iv, err := decodeHexFlag("iv", decryptIV)
		if err != nil {
			return err
		}
		salt, err := decodeHexFlag("salt", decryptSalt)
		if err != nil {
			return err
		}
		tag, err := decodeHexFlag("auth-tag", decryptAuthTag)
		if err != nil {
			return err
		}

		cwd, err := os.Getwd()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to get working directory: %w", err)
		}

		var files []string
		if iv != nil || salt != nil {
			// Raw ciphertexts carry no extension to select them by.
			if len(args) != 1 {
				return kerrors.Invalid("--iv", "applies to exactly one input, got %d", len(args))
			}
			path := args[0]
			if !filepath.IsAbs(path) {
				path = filepath.Join(cwd, path)
			}
			files = []string{path}
		} else {
			files, err = workflows.ResolveFiles(args, cwd, false)
			if err != nil {
				fmt.Println(failureMessage("Nothing to decrypt", err))
				return errReported
			}
		}
		Logger.Debugf("Resolved %d input files", len(files))
		if decryptOutput != "" && len(files) > 1 {
			return kerrors.Invalid("--output", "requires exactly one input, got %d", len(files))
		}

		eng, err := newEngine()
		if err != nil {
			return err
		}

		passphrase, err := readPassphrase(false)
		if err != nil {
			return err
		}
		defer clear(passphrase)

		spinner, cleanup := startSpinner(fmt.Sprintf("Decrypting %d file(s)...", len(files)), verbose)
		defer cleanup()

		reqs := make([]workflows.DecryptOptions, len(files))
		for i, f := range files {
			reqs[i] = workflows.DecryptOptions{
				InputPath:      f,
				OutputDir:      decryptOutputDir,
				OutputPath:     decryptOutput,
				Passphrase:     passphrase,
				Algorithm:      alg,
				IV:             iv,
				Salt:           salt,
				AuthTag:        tag,
				ShredEncrypted: decryptShred,
			}
		}
		items := eng.svc.DecryptBatch(cmd.Context(), reqs)

		var b strings.Builder
		failed := 0
		for _, item := range items {
			if item.Err != nil {
				failed++
				Logger.Errorf("Failed to decrypt %s: %v", item.InputPath, item.Err)
				b.WriteString(failureMessage("Failed to decrypt "+ui.Path.Sprint(item.InputPath), item.Err) + "\n")
				continue
			}
			res := item.Result
			b.WriteString(ui.OK(ui.Path.Sprint(item.InputPath)).To(ui.Path.Sprint(res.DecryptedPath)).String() + "\n")
			if res.Legacy {
				Logger.Infof("%s had no container header and was decrypted as a raw ciphertext", item.InputPath)
			}
			if res.Shred.Failed() {
				b.WriteString(shredWarning(item.InputPath, res.Shred.Err) + "\n")
			}
		}

		Logger.Infof("Decrypt command finished: %d succeeded, %d failed", len(items)-failed, failed)
		spinner.FinalMSG = b.String()
		if failed > 0 {
			return errReported
		}
		return nil
	},
}

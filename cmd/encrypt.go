package cmd

import (
	"fmt"
	"os"
	"strings"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/ui"
	"github.com/PolarWolf314/knox/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	encryptOutputDir string
	encryptOutput    string
	encryptAlgorithm string
	encryptShred     bool
)

func init() {
	encryptCmd.Flags().StringVarP(&encryptOutputDir, "output-dir", "o", "", "directory for the containers (default is next to each input)")
	encryptCmd.Flags().StringVar(&encryptOutput, "output", "", "exact container path, only with a single input")
	encryptCmd.Flags().StringVarP(&encryptAlgorithm, "algorithm", "a", "", "cipher: aes-256-gcm or chacha20-poly1305 (default from config)")
	encryptCmd.Flags().BoolVar(&encryptShred, "shred", false, "securely delete each original after it is encrypted")
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt <path>...",
	Short: "Encrypts files into .knxenc containers",
	Long: `Encrypts files with a passphrase. Each input becomes <name>.knxenc; an
existing container is never overwritten, a free "name (n)" variant is used
instead.

Paths may be files, directories (all plaintext files below them) or glob
patterns such as "docs/**/*.pdf".

Examples:
  knox encrypt report.pdf
  knox encrypt --shred -a chacha20-poly1305 "photos/**/*.jpg"
  echo "$PASS" | knox encrypt --passphrase-stdin notes.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting encrypt command")

		alg, err := parseAlgorithm(encryptAlgorithm)
		if err != nil {
			return err
		}

		cwd, err := os.Getwd()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to get working directory: %w", err)
		}
		files, err := workflows.ResolveFiles(args, cwd, true)
		if err != nil {
			fmt.Println(failureMessage("Nothing to encrypt", err))
			return errReported
		}
		Logger.Debugf("Resolved %d input files", len(files))
		if encryptOutput != "" && len(files) > 1 {
			return kerrors.Invalid("--output", "requires exactly one input, got %d", len(files))
		}

		eng, err := newEngine()
		if err != nil {
			return err
		}

		passphrase, err := readPassphrase(true)
		if err != nil {
			return err
		}
		defer clear(passphrase)

		spinner, cleanup := startSpinner(fmt.Sprintf("Encrypting %d file(s)...", len(files)), verbose)
		defer cleanup()

		reqs := make([]workflows.EncryptOptions, len(files))
		for i, f := range files {
			reqs[i] = workflows.EncryptOptions{
				InputPath:     f,
				OutputDir:     encryptOutputDir,
				OutputPath:    encryptOutput,
				Passphrase:    passphrase,
				Algorithm:     alg,
				ShredOriginal: encryptShred,
			}
		}
		items := eng.svc.EncryptBatch(cmd.Context(), reqs)

		var b strings.Builder
		failed := 0
		for _, item := range items {
			if item.Err != nil {
				failed++
				Logger.Errorf("Failed to encrypt %s: %v", item.InputPath, item.Err)
				b.WriteString(failureMessage("Failed to encrypt "+ui.Path.Sprint(item.InputPath), item.Err) + "\n")
				continue
			}
			res := item.Result
			b.WriteString(ui.OK(ui.Path.Sprint(item.InputPath)).To(ui.Path.Sprint(res.EncryptedPath)).
				Detail("%s", res.Algorithm).String() + "\n")
			if res.Shred.Failed() {
				b.WriteString(shredWarning(item.InputPath, res.Shred.Err) + "\n")
			}
		}

		Logger.Infof("Encrypt command finished: %d succeeded, %d failed", len(items)-failed, failed)
		spinner.FinalMSG = b.String()
		if failed > 0 {
			return errReported
		}
		return nil
	},
}

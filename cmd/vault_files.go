package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PolarWolf314/knox/internal/ui"
	"github.com/PolarWolf314/knox/internal/utils"

	"github.com/spf13/cobra"
)

var (
	vaultAddAlgorithm  string
	vaultRemoveNoShred bool
	vaultExtractDir    string
	vaultExtractRemove bool
)

func init() {
	vaultAddCmd.Flags().StringVarP(&vaultAddAlgorithm, "algorithm", "a", "", "cipher: aes-256-gcm or chacha20-poly1305 (default from config)")
	vaultRemoveCmd.Flags().BoolVar(&vaultRemoveNoShred, "no-shred", false, "remove the container without overwriting it first")
	vaultExtractCmd.Flags().StringVarP(&vaultExtractDir, "output-dir", "o", "", "directory for the plaintext (default is the working directory)")
	vaultExtractCmd.Flags().BoolVar(&vaultExtractRemove, "remove", false, "remove the container from the vault after extracting")
}

var vaultAddCmd = &cobra.Command{
	Use:   "add <vault> <file>...",
	Short: "Encrypts files into a vault",
	Long: `Encrypts each file into the vault under a random stored name and records it
in the manifest. The original files are left untouched.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting vault add command")
		alg, err := parseAlgorithm(vaultAddAlgorithm)
		if err != nil {
			return err
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

		ref, sources := args[0], args[1:]
		spinner, cleanup := startSpinner(fmt.Sprintf("Adding %d file(s) to vault...", len(sources)), verbose)
		defer cleanup()

		var b strings.Builder
		failed := 0
		for _, src := range sources {
			abs, err := filepath.Abs(src)
			if err != nil {
				abs = src
			}
			entry, err := eng.vaults.AddFile(cmd.Context(), ref, abs, passphrase, alg)
			if err != nil {
				failed++
				b.WriteString(failureMessage("Failed to add "+ui.Path.Sprint(src), err) + "\n")
				continue
			}
			b.WriteString(ui.OK(ui.Path.Sprint(src)).To(entry.StoredName).
				Detail("%s", utils.FormatSize(entry.EncryptedSize)).String() + "\n")
		}

		spinner.FinalMSG = b.String()
		if failed > 0 {
			return errReported
		}
		return nil
	},
}

var vaultRemoveCmd = &cobra.Command{
	Use:   "remove <vault> <file>...",
	Short: "Removes files from a vault",
	Long: `Removes files from a vault by stored name or by original name. Containers
are shredded unless --no-shred is given.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting vault remove command")
		eng, err := newEngine()
		if err != nil {
			return err
		}

		ref, members := args[0], args[1:]
		spinner, cleanup := startSpinner(fmt.Sprintf("Removing %d file(s) from vault...", len(members)), verbose)
		defer cleanup()

		var b strings.Builder
		failed := 0
		for _, member := range members {
			stored, err := memberName(cmd.Context(), eng, ref, member)
			if err == nil {
				err = eng.vaults.RemoveFile(cmd.Context(), ref, stored, !vaultRemoveNoShred)
			}
			if err != nil {
				failed++
				b.WriteString(failureMessage("Failed to remove "+ui.Highlight.Sprint(member), err) + "\n")
				continue
			}
			b.WriteString(ui.OK("Removed "+ui.Highlight.Sprint(member)).String() + "\n")
		}

		spinner.FinalMSG = b.String()
		if failed > 0 {
			return errReported
		}
		return nil
	},
}

var vaultExtractCmd = &cobra.Command{
	Use:   "extract <vault> <file>...",
	Short: "Decrypts files out of a vault",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting vault extract command")
		eng, err := newEngine()
		if err != nil {
			return err
		}

		outDir := vaultExtractDir
		if outDir == "" {
			outDir = "."
		}
		if outDir, err = filepath.Abs(outDir); err != nil {
			return Logger.ErrorfAndReturn("failed to resolve output directory: %w", err)
		}

		passphrase, err := readPassphrase(false)
		if err != nil {
			return err
		}
		defer clear(passphrase)

		ref, members := args[0], args[1:]
		spinner, cleanup := startSpinner(fmt.Sprintf("Extracting %d file(s)...", len(members)), verbose)
		defer cleanup()

		var b strings.Builder
		failed := 0
		for _, member := range members {
			stored, err := memberName(cmd.Context(), eng, ref, member)
			if err != nil {
				failed++
				b.WriteString(failureMessage("Failed to extract "+ui.Highlight.Sprint(member), err) + "\n")
				continue
			}
			res, err := eng.vaults.ExtractFile(cmd.Context(), ref, stored, outDir, passphrase, vaultExtractRemove)
			if err != nil {
				failed++
				b.WriteString(failureMessage("Failed to extract "+ui.Highlight.Sprint(member), err) + "\n")
				continue
			}
			b.WriteString(ui.OK(ui.Highlight.Sprint(member)).To(ui.Path.Sprint(res.DecryptedPath)).String() + "\n")
		}

		spinner.FinalMSG = b.String()
		if failed > 0 {
			return errReported
		}
		return nil
	},
}

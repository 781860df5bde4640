package cmd

import (
	"os"

	"github.com/PolarWolf314/knox/internal/ui"

	"github.com/spf13/cobra"
)

var vaultCreateParent string

func init() {
	vaultCreateCmd.Flags().StringVarP(&vaultCreateParent, "parent", "p", "", "directory to create the vault in (default is the first vault root, else the working directory)")
}

var vaultCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Creates a new vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting vault create command")
		eng, err := newEngine()
		if err != nil {
			return err
		}

		parent := vaultCreateParent
		if parent == "" && len(eng.settings.VaultRoots) > 0 {
			parent = eng.settings.VaultRoots[0]
		}
		if parent == "" {
			if parent, err = os.Getwd(); err != nil {
				return Logger.ErrorfAndReturn("failed to get working directory: %w", err)
			}
		}
		Logger.Debugf("Creating vault %q in %s", args[0], parent)

		spinner, cleanup := startSpinner("Creating vault...", verbose)
		defer cleanup()

		meta, err := eng.vaults.CreateVault(cmd.Context(), args[0], parent)
		if err != nil {
			spinner.FinalMSG = failureMessage("Failed to create vault "+ui.Highlight.Sprint(args[0]), err)
			return errReported
		}

		spinner.FinalMSG = ui.OK("Vault "+ui.Highlight.Sprint(meta.Name)+" created at "+ui.Path.Sprint(meta.Path)).String() + "\n" +
			ui.Hint("Vault id: "+meta.ID).String() + "\n" +
			ui.Hint("Run "+ui.Code.Sprint("knox vault add "+meta.ID+" <file>")+" to add files").String()
		return nil
	},
}

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/ui"
	"github.com/PolarWolf314/knox/internal/utils"

	"github.com/spf13/cobra"
)

var (
	vaultDeleteNoShred bool
	vaultDeleteForce   bool
)

func init() {
	vaultDeleteCmd.Flags().BoolVar(&vaultDeleteNoShred, "no-shred", false, "remove the files without overwriting them first")
	vaultDeleteCmd.Flags().BoolVarP(&vaultDeleteForce, "force", "f", false, "do not ask for confirmation")
}

var vaultDeleteCmd = &cobra.Command{
	Use:   "delete <vault>",
	Short: "Deletes a vault and everything in it",
	Long: `Deletes a vault directory. By default every file in it is shredded first.
If some files cannot be shredded the vault is kept, its manifest lists what
remains, and the command fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting vault delete command")

		if !vaultDeleteForce {
			if !utils.IsTerminal() {
				return fmt.Errorf("refusing to delete a vault without confirmation; pass --force")
			}
			fmt.Fprintf(os.Stderr, "Permanently delete vault %s and all of its files? [y/N] ", args[0])
			var answer string
			_, _ = fmt.Scanln(&answer)
			if !strings.EqualFold(strings.TrimSpace(answer), "y") {
				fmt.Println(ui.Hint("Vault was not deleted"))
				return nil
			}
		}

		eng, err := newEngine()
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner("Deleting vault...", verbose)
		defer cleanup()

		if err := eng.vaults.DeleteVault(cmd.Context(), args[0], !vaultDeleteNoShred); err != nil {
			msg := failureMessage("Failed to delete vault "+ui.Path.Sprint(args[0]), err)
			var pde *kerrors.PartialDeleteError
			if errors.As(err, &pde) && len(pde.Remaining) > 0 {
				msg += "\nFiles still present:" + utils.FormatPaths(pde.Remaining)
			}
			spinner.FinalMSG = msg
			return errReported
		}

		spinner.FinalMSG = ui.OK("Vault " + ui.Path.Sprint(args[0]) + " deleted").String()
		return nil
	},
}

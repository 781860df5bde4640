package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/utils"

	"github.com/spf13/cobra"
)

var (
	vaultLoadRoots []string
	vaultLoadJSON  bool
)

func init() {
	vaultLoadCmd.Flags().StringArrayVar(&vaultLoadRoots, "root", nil, "directory to search (repeatable, default from config)")
	vaultLoadCmd.Flags().BoolVar(&vaultLoadJSON, "json", false, "output as JSON")
}

var vaultLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Lists every known vault",
	Long: `Lists the vaults found below the configured vault roots and those in the
vault registry. Vaults whose manifest cannot be read are reported separately.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting vault load command")
		eng, err := newEngine()
		if err != nil {
			return err
		}

		roots := vaultLoadRoots
		if len(roots) == 0 {
			roots = eng.settings.VaultRoots
		}
		Logger.Debugf("Searching vault roots: %v", roots)

		res, err := eng.vaults.LoadAll(cmd.Context(), roots)
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load vaults: %w", err)
		}

		if vaultLoadJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res.Vaults)
		}

		out := cmd.OutOrStdout()
		if len(res.Vaults) == 0 {
			fmt.Fprintln(out, "No vaults found.")
		} else {
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tFILES\tSIZE\tID\tPATH")
			for _, v := range res.Vaults {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
					v.Name, v.EncryptedFileCount, utils.FormatSize(v.TotalSizeEncrypted), v.ID, v.Path)
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
		for _, issue := range res.Issues {
			Logger.WarnfUser("%s: %s", issue.Path, kerrors.UserMessage(issue.Err))
		}
		return nil
	},
}

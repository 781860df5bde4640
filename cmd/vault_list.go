package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/PolarWolf314/knox/internal/ui"
	"github.com/PolarWolf314/knox/internal/utils"

	"github.com/spf13/cobra"
)

var vaultListJSON bool

func init() {
	vaultListCmd.Flags().BoolVar(&vaultListJSON, "json", false, "output as JSON")
}

var vaultListCmd = &cobra.Command{
	Use:   "list <vault>",
	Short: "Lists the files in a vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting vault list command")
		eng, err := newEngine()
		if err != nil {
			return err
		}

		contents, err := eng.vaults.ListContents(cmd.Context(), args[0])
		if err != nil {
			fmt.Println(failureMessage("Failed to read vault "+ui.Path.Sprint(args[0]), err))
			return errReported
		}

		if vaultListJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(contents)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Vault %s %s\n", ui.Highlight.Sprint(contents.Vault.Name), ui.Muted.Sprint(contents.Vault.ID))
		if contents.ManifestCorrupt {
			Logger.WarnfUser("The manifest is unreadable; this list was rebuilt from the container headers")
		}
		if len(contents.Files) == 0 {
			fmt.Fprintln(out, "No files.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tALGORITHM\tENCRYPTED\tSTORED AS")
		for _, f := range contents.Files {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				f.Name, utils.FormatSize(f.OriginalSize), f.Algorithm,
				f.EncryptedAt.Local().Format("2006-01-02 15:04"), f.StoredName)
		}
		return w.Flush()
	},
}

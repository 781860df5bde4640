package cmd

import (
	"context"
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/vault"

	"github.com/spf13/cobra"
)

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage vault directories of encrypted files",
	Long: `A vault is a directory of .knxenc containers described by a vault.knxmeta
manifest. Vaults are referred to by their directory or by their id.`,
}

func init() {
	vaultCmd.AddCommand(vaultCreateCmd)
	vaultCmd.AddCommand(vaultDeleteCmd)
	vaultCmd.AddCommand(vaultListCmd)
	vaultCmd.AddCommand(vaultAddCmd)
	vaultCmd.AddCommand(vaultRemoveCmd)
	vaultCmd.AddCommand(vaultExtractCmd)
	vaultCmd.AddCommand(vaultLoadCmd)
}

// memberName maps a user-supplied member reference to its stored name. A
// reference ending in the container extension is taken as a stored name;
// anything else must match exactly one original file name.
func memberName(ctx context.Context, eng *engine, ref, member string) (string, error) {
	if strings.HasSuffix(member, ".knxenc") {
		return member, nil
	}
	contents, err := eng.vaults.ListContents(ctx, ref)
	if err != nil {
		return "", err
	}
	var matches []vault.FileEntry
	for _, f := range contents.Files {
		if f.Name == member {
			matches = append(matches, f)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", kerrors.ErrVaultFileNotFound, member)
	case 1:
		return matches[0].StoredName, nil
	default:
		return "", kerrors.Invalid("file", "%d files are named %q; use the stored name", len(matches), member)
	}
}

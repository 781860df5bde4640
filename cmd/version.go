package cmd

import (
	"fmt"
	"runtime"

	"github.com/PolarWolf314/knox/internal/container"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the knox version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "knox %s (container format v%d, %s/%s)\n",
			Version, container.CurrentVersion, runtime.GOOS, runtime.GOARCH)
	},
}

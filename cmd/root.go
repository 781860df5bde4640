package cmd

import (
	"errors"

	logger "github.com/PolarWolf314/knox/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose         bool
	debug           bool
	configPath      string
	passphraseStdin bool
	Logger          logger.Logger

	// Version is overridden at build time with -ldflags "-X".
	Version = "dev"

	RootCmd = &cobra.Command{
		Use:   "knox",
		Short: "Knox - local file encryption with vaults and secure deletion",
		Long: `Knox encrypts files with a passphrase into self-describing .knxenc
containers, keeps groups of them in vault directories, and securely deletes
plaintext that is no longer needed.

Usage:
  knox <command> [flags]

Run 'knox help <command>' for more details on a specific command.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing %s command with verbose=%t, debug=%t", cmd.Name(), verbose, debug)
		},
	}
)

// errReported is returned by commands that already printed their failure.
// The process should exit non-zero without printing it again.
var errReported = errors.New("operation failed")

// IsReported reports whether err was already shown to the user.
func IsReported(err error) bool {
	return errors.Is(err, errReported)
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/knox/config.toml)")
	RootCmd.PersistentFlags().BoolVar(&passphraseStdin, "passphrase-stdin", false, "read the passphrase from stdin instead of prompting")

	RootCmd.AddCommand(encryptCmd)
	RootCmd.AddCommand(decryptCmd)
	RootCmd.AddCommand(shredCmd)
	RootCmd.AddCommand(vaultCmd)
	RootCmd.AddCommand(genpassCmd)
	RootCmd.AddCommand(logCmd)
	RootCmd.AddCommand(ipcCmd)
	RootCmd.AddCommand(versionCmd)
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	configPath = ""
	passphraseStdin = false
	resetCommandFlags(RootCmd)
}

package cmd

import (
	"fmt"

	"github.com/PolarWolf314/knox/internal/audit"
	"github.com/PolarWolf314/knox/internal/secrets"

	"github.com/spf13/cobra"
)

var (
	genpassLength    int
	genpassNoUpper   bool
	genpassNoLower   bool
	genpassNoNumbers bool
	genpassNoSymbols bool
)

func init() {
	genpassCmd.Flags().IntVarP(&genpassLength, "length", "l", secrets.DefaultPasswordLength, "password length")
	genpassCmd.Flags().BoolVar(&genpassNoUpper, "no-upper", false, "exclude uppercase letters")
	genpassCmd.Flags().BoolVar(&genpassNoLower, "no-lower", false, "exclude lowercase letters")
	genpassCmd.Flags().BoolVar(&genpassNoNumbers, "no-numbers", false, "exclude digits")
	genpassCmd.Flags().BoolVar(&genpassNoSymbols, "no-symbols", false, "exclude symbols")
}

var genpassCmd = &cobra.Command{
	Use:   "genpass",
	Short: "Generates a random passphrase",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting genpass command")
		eng, err := newEngine()
		if err != nil {
			return err
		}

		password, err := secrets.GeneratePassword(secrets.PasswordOptions{
			Length:           genpassLength,
			IncludeUppercase: !genpassNoUpper,
			IncludeLowercase: !genpassNoLower,
			IncludeNumbers:   !genpassNoNumbers,
			IncludeSymbols:   !genpassNoSymbols,
		})
		entry := audit.Entry{Operation: audit.OpKeyGenerate, Status: audit.StatusSuccess}
		if err != nil {
			entry.Status = audit.StatusFailure
			entry.Error = err.Error()
		}
		eng.svc.Recorder().Record(entry)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), password)
		return nil
	},
}

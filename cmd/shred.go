package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PolarWolf314/knox/internal/ui"
	"github.com/PolarWolf314/knox/internal/utils"

	"github.com/spf13/cobra"
)

var (
	shredPasses int
	shredForce  bool
)

func init() {
	shredCmd.Flags().IntVarP(&shredPasses, "passes", "n", 0, "overwrite passes (default from config)")
	shredCmd.Flags().BoolVarP(&shredForce, "force", "f", false, "do not ask for confirmation")
}

var shredCmd = &cobra.Command{
	Use:   "shred <file>...",
	Short: "Overwrites and deletes files",
	Long: `Overwrites each file in place with alternating zero, one and random passes,
flushes every pass to the device, then renames and unlinks it.

Overwriting in place cannot reach copies left by copy-on-write filesystems,
SSD wear levelling, snapshots or backups.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting shred command")

		if !shredForce {
			if !utils.IsTerminal() {
				return fmt.Errorf("refusing to shred without confirmation; pass --force")
			}
			fmt.Fprintf(os.Stderr, "Permanently destroy %d file(s)? [y/N] ", len(args))
			var answer string
			_, _ = fmt.Scanln(&answer)
			if !strings.EqualFold(strings.TrimSpace(answer), "y") {
				fmt.Println(ui.Hint("Nothing was shredded"))
				return nil
			}
		}

		eng, err := newEngine()
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner(fmt.Sprintf("Shredding %d file(s)...", len(args)), verbose)
		defer cleanup()

		var b strings.Builder
		failed := 0
		var caveat string
		for _, path := range args {
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			report, err := eng.svc.Shred(cmd.Context(), abs, shredPasses)
			if err != nil {
				failed++
				Logger.Errorf("Failed to shred %s: %v", abs, err)
				b.WriteString(failureMessage("Failed to shred "+ui.Path.Sprint(path), err) + "\n")
				continue
			}
			caveat = report.Caveat
			b.WriteString(ui.OK(ui.Path.Sprint(path)).
				Detail("%d passes, %s overwritten", report.Passes, utils.FormatSize(report.BytesOverwritten)).String() + "\n")
		}
		if caveat != "" {
			b.WriteString(ui.Hint(caveat).String() + "\n")
		}

		spinner.FinalMSG = b.String()
		if failed > 0 {
			return errReported
		}
		return nil
	},
}

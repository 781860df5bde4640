package cmd

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/PolarWolf314/knox/internal/audit"
	"github.com/PolarWolf314/knox/internal/ui"

	"github.com/spf13/cobra"
)

var (
	logLimit     int
	logReverse   bool
	logOperation string
	logJSON      bool
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "limit number of entries shown")
	logCmd.Flags().BoolVar(&logReverse, "reverse", false, "show most recent entries first")
	logCmd.Flags().StringVar(&logOperation, "operation", "", "filter by operation type (comma-separated)")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "output as JSON array")
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View the audit log",
	Long: `Displays the audit log of knox operations. Passphrases and file contents
are never logged.

Examples:
  knox log -n 10                        # Last 10 entries
  knox log --reverse                    # Most recent first
  knox log --operation encrypt,decrypt  # Filter by operation
  knox log --json                       # JSON output`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting log command")
		eng, err := newEngine()
		if err != nil {
			return err
		}

		entries, err := audit.ReadEntries(eng.audit.Path())
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read audit log: %w", err)
		}
		total := len(entries)
		entries = filterEntries(entries, logOperation, logLimit, logReverse)
		Logger.Debugf("Showing %d of %d audit entries", len(entries), total)

		out := cmd.OutOrStdout()
		if logJSON {
			if entries == nil {
				entries = []audit.Entry{}
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		if len(entries) == 0 {
			if total == 0 {
				fmt.Fprintln(out, "No audit log entries found.")
			} else {
				fmt.Fprintln(out, "No audit log entries found matching the filters.")
			}
			return nil
		}
		for _, e := range entries {
			fmt.Fprintln(out, formatEntry(e))
		}
		return nil
	},
}

// filterEntries keeps entries whose operation is in ops (all when empty),
// then applies the limit to the most recent ones and the ordering.
func filterEntries(entries []audit.Entry, ops string, limit int, reverse bool) []audit.Entry {
	if ops != "" {
		wanted := strings.Split(ops, ",")
		for i := range wanted {
			wanted[i] = strings.TrimSpace(wanted[i])
		}
		entries = slices.DeleteFunc(entries, func(e audit.Entry) bool {
			return !slices.Contains(wanted, e.Operation)
		})
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	if reverse {
		slices.Reverse(entries)
	}
	return entries
}

func formatEntry(e audit.Entry) string {
	status := ui.Success.Sprint(ui.MarkOK)
	switch e.Status {
	case audit.StatusFailure:
		status = ui.Error.Sprint(ui.MarkFail)
	case audit.StatusWarning:
		status = ui.Warning.Sprint(ui.MarkWarn)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %-20s", ui.Muted.Sprint(e.Timestamp), status, e.Operation)
	if e.User != "" {
		fmt.Fprintf(&b, " %s", ui.Highlight.Sprint(e.User))
	}
	if len(e.Files) > 0 {
		fmt.Fprintf(&b, " %s", strings.Join(e.Files, ", "))
	}
	if e.VaultPath != "" {
		fmt.Fprintf(&b, " vault=%s", e.VaultPath)
	}
	if e.Algorithm != "" {
		fmt.Fprintf(&b, " %s", e.Algorithm)
	}
	if e.Error != "" {
		fmt.Fprintf(&b, " %s", ui.Error.Sprint(e.Error))
	}
	return b.String()
}

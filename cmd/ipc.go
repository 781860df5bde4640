package cmd

import (
	"os"

	"github.com/PolarWolf314/knox/internal/ipc"
	logger "github.com/PolarWolf314/knox/internal/logging"

	"github.com/spf13/cobra"
)

var ipcCmd = &cobra.Command{
	Use:   "ipc",
	Short: "Serves the desktop shell over stdin and stdout",
	Long: `Reads newline-delimited JSON requests of the form
{"id": 1, "channel": "encrypt-file", "args": [...]} from stdin and writes one
{"id": 1, "result": {...}} line per request to stdout. Requests run
concurrently, up to the configured worker count, and may complete out of
order. Logs go to stderr.`,
	Args: cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// stdout carries the protocol.
		Logger = logger.Logger{
			Verbose: verbose,
			Debug:   debug,
			Out:     os.Stderr,
			Err:     os.Stderr,
		}
		Logger.Debugf("Initializing ipc command with verbose=%t, debug=%t", verbose, debug)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		handlers := ipc.NewHandlers(eng.svc, eng.vaults, eng.settings.VaultRoots, Version)
		server := ipc.NewServer(handlers, eng.metrics, eng.settings.Workers)
		Logger.Infof("Serving requests on stdin with %d workers", eng.settings.Workers)

		if err := server.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
			return Logger.ErrorfAndReturn("ipc server stopped: %w", err)
		}
		Logger.Infof("Input closed, shutting down")
		return nil
	},
}

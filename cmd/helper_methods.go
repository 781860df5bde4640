package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/secrets"
	"github.com/PolarWolf314/knox/internal/ui"
	"github.com/PolarWolf314/knox/internal/utils"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string, verbose bool) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		// If we can't set spinner color, just continue without it.
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	quiet := !verbose && !debug
	if quiet {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if quiet {
			log.SetOutput(os.Stderr)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if quiet {
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// readPassphrase reads the passphrase from stdin when piped or requested,
// otherwise prompts on the terminal. With confirm the prompt is repeated
// and both entries must match.
func readPassphrase(confirm bool) ([]byte, error) {
	if passphraseStdin || !utils.IsTerminal() {
		Logger.Debugf("Reading passphrase from stdin")
		return utils.ReadPassphraseStdin()
	}

	pass, err := utils.ReadPassphrase("Passphrase: ")
	if err != nil {
		return nil, err
	}
	if len(pass) == 0 {
		return nil, kerrors.Invalid("passphrase", "must not be empty")
	}
	if !confirm {
		return pass, nil
	}

	again, err := utils.ReadPassphrase("Confirm passphrase: ")
	defer clear(again)
	if err != nil {
		clear(pass)
		return nil, err
	}
	if !bytes.Equal(pass, again) {
		clear(pass)
		return nil, errors.New("passphrases do not match")
	}
	return pass, nil
}

// parseAlgorithm treats an empty flag as "use the configured default".
func parseAlgorithm(name string) (secrets.Algorithm, error) {
	if name == "" {
		return secrets.AlgorithmUnknown, nil
	}
	alg, err := secrets.ParseAlgorithm(name)
	if err != nil {
		return alg, err
	}
	if !alg.Supported() {
		return alg, fmt.Errorf("%w: %s is reserved and not implemented", kerrors.ErrUnsupportedAlgorithm, alg)
	}
	return alg, nil
}

// failureMessage formats a failed operation for the final spinner message.
func failureMessage(what string, err error) string {
	return ui.Fail(what).String() + "\n" +
		ui.Error.Sprint("Error: ") + kerrors.UserMessage(err)
}

// shredWarning describes a requested shred that did not complete.
func shredWarning(path string, err error) string {
	return ui.Warn("Could not securely delete " + ui.Path.Sprint(path) + ": " + kerrors.UserMessage(err)).String()
}

// resetCommandFlags restores every flag below c to its default value.
func resetCommandFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetCommandFlags(sub)
	}
}

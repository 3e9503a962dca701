package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	"github.com/PolarWolf314/rakau/internal/ui"
	"github.com/PolarWolf314/rakau/internal/versioning"
	"github.com/briandowns/spinner"
)

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
// This ensures consistent output formatting across all commands.
func startSpinner(message string, verbose bool) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message

	err := s.Color("cyan")
	if err != nil {
		// If we can't set spinner color, just continue without it.
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	if !verbose && !debug {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		// Restore log output first.
		if !verbose && !debug {
			log.SetOutput(os.Stdout)
		}

		// Ensure final message ends with a newline.
		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		// Stop the spinner first to clear the spinner line.
		if !verbose && !debug {
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// formatError turns a workflow error into a user-facing message.
func formatError(action string, err error) string {
	var rerr *kerrors.ReencryptError
	switch {
	case errors.Is(err, kerrors.ErrStoreNotInitialized):
		return ui.Error.Sprint("✗") + " The password store has not been initialized\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("rakau init <key-id>") + " first"

	case errors.Is(err, kerrors.ErrAlreadyInitialized):
		return ui.Error.Sprint("✗") + " The password store has already been initialized\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("rakau init --reinit <key-id>...") + " to change its recipients"

	case errors.Is(err, kerrors.ErrEntryExists):
		return ui.Error.Sprint("✗") + " " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Use " + ui.Flag.Sprint("--force") + " to overwrite it"

	case errors.Is(err, kerrors.ErrIsDirectory):
		return ui.Error.Sprint("✗") + " " + err.Error()

	case errors.Is(err, kerrors.ErrEntryNotFound):
		return ui.Error.Sprint("✗") + " " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("rakau ls") + " to see what is stored"

	case errors.Is(err, kerrors.ErrInvalidEntryPath), errors.Is(err, kerrors.ErrInvalidPattern),
		errors.Is(err, kerrors.ErrFieldNotFound), errors.Is(err, kerrors.ErrInvalidConfig):
		return ui.Error.Sprint("✗") + " " + err.Error()

	case errors.Is(err, kerrors.ErrInvalidRecipient):
		return ui.Error.Sprint("✗") + " " + err.Error()

	case errors.Is(err, kerrors.ErrSignatureInvalid):
		return ui.Error.Sprint("✗") + " " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("rakau validate") + " to find every affected declaration"

	case errors.Is(err, kerrors.ErrNoRecipientsConfigured):
		return ui.Error.Sprint("✗") + " " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Declare recipients with " + ui.Code.Sprint("rakau init <key-id>")

	case errors.Is(err, kerrors.ErrDecryptionUnavailable):
		return ui.Error.Sprint("✗") + " The cipher backend is not available: " + err.Error()

	case errors.Is(err, kerrors.ErrDecryptionFailed):
		return ui.Error.Sprint("✗") + " Failed to decrypt: no usable key\n" +
			ui.Info.Sprint("→") + " " + err.Error()

	case errors.As(err, &rerr):
		return ui.Error.Sprint("✗") + fmt.Sprintf(" Re-encryption stopped at %s after %d entries: %v\n", ui.Entry.Sprint(rerr.Path), len(rerr.Converted), rerr.Err) +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("rakau reencrypt --only-stale") + " to finish"

	case errors.Is(err, kerrors.ErrVersioningFailed):
		return ui.Warning.Sprint("⚠") + " " + kerrors.ErrVersioningFailed.Error() + "\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("rakau commit") + " once the problem is fixed\n" +
			ui.Muted.Sprint(err.Error())

	default:
		return ui.Error.Sprint("✗") + " Failed to " + action + ": " + err.Error()
	}
}

// isUnexpectedError returns true if the error is unexpected and should cause a non-zero exit.
// Declined overwrites and repeated initialisation leave the store as it was.
func isUnexpectedError(err error) bool {
	switch {
	case errors.Is(err, kerrors.ErrAlreadyInitialized),
		errors.Is(err, kerrors.ErrEntryExists):
		return false
	default:
		return true
	}
}

// fail records err on the spinner and decides the exit status.
func fail(s *spinner.Spinner, action string, err error) error {
	Logger.Debugf("%s failed: %v", action, err)
	s.FinalMSG = formatError(action, err)
	if isUnexpectedError(err) {
		return err
	}
	return nil
}

// printError prints a formatted error when no spinner is running.
func printError(action string, err error) error {
	Logger.Debugf("%s failed: %v", action, err)
	fmt.Fprintln(os.Stderr, formatError(action, err))
	if isUnexpectedError(err) {
		return err
	}
	return nil
}

// versionNote describes a version record for final messages.
func versionNote(rec versioning.Record) string {
	if rec.IsZero() {
		return ""
	}
	id := rec.ID
	if len(id) > 12 {
		id = id[:12]
	}
	return " " + ui.Muted.Sprint(id)
}

package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/rakau/internal/ui"
	"github.com/PolarWolf314/rakau/internal/workflows"
	"github.com/spf13/cobra"
)

var reencryptOnlyStale bool

func init() {
	reencryptCmd.Flags().BoolVar(&reencryptOnlyStale, "only-stale", false, "skip entries already encrypted for their recipients")
}

var reencryptCmd = &cobra.Command{
	Use:   "reencrypt [path]",
	Short: "Re-encrypt entries for their current recipients",
	Long: `Re-encrypts every entry in a folder's scope for the recipients that govern
it now. Folders with their own .gpg-id are separate scopes and are left alone.

An interrupted run keeps what it converted; run it again with --only-stale
to finish.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReencrypt,
}

func runReencrypt(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting reencrypt command")
	var path string
	if len(args) > 0 {
		path = args[0]
	}

	spinner, cleanup := startSpinner("Re-encrypting entries...", verbose)
	defer cleanup()

	return withWire(func(ctx context.Context, w *workflows.Wire) error {
		result, err := workflows.Reencrypt(ctx, w, workflows.ReencryptOptions{Path: path, OnlyStale: reencryptOnlyStale})
		if err != nil && result == nil {
			return fail(spinner, "re-encrypt", err)
		}

		msg := ui.Success.Sprint("✓") + fmt.Sprintf(" Re-encrypted %d entries", len(result.Converted))
		if n := len(result.Skipped); n > 0 {
			msg += fmt.Sprintf(", %d already current", n)
		}
		msg += versionNote(result.Version)
		if err != nil {
			spinner.FinalMSG = msg + "\n" + formatError("re-encrypt", err)
			return err
		}
		spinner.FinalMSG = msg
		return nil
	})
}

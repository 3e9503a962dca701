package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/PolarWolf314/rakau/internal/ui"
	"github.com/PolarWolf314/rakau/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	initPath   string
	initReinit bool
)

func init() {
	initCmd.Flags().StringVarP(&initPath, "path", "p", "", "declare recipients for a subfolder instead of the store root")
	initCmd.Flags().BoolVar(&initReinit, "reinit", false, "replace the root recipients of an existing store")
}

var initCmd = &cobra.Command{
	Use:   "init [--path subfolder] <key-id>...",
	Short: "Initialize the store or change the recipients of a folder",
	Long: `Creates the password store and declares the keys its entries are encrypted for.

With --path, declares recipients for a subfolder instead; every entry below it
is re-encrypted for the new keys. Giving --path without key ids removes the
subfolder's declaration so it inherits from its parent again.

Examples:
  rakau init alice@example.com
  rakau init --path work alice@example.com bob@example.com
  rakau init --path work
  rakau init --reinit alice@example.com carol@example.com`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting init command")

	spinner, cleanup := startSpinner("Initializing password store...", verbose)
	defer cleanup()

	return withWire(func(ctx context.Context, w *workflows.Wire) error {
		result, err := workflows.Init(ctx, w, workflows.InitOptions{
			Recipients:   args,
			Subfolder:    initPath,
			Reinitialize: initReinit,
		})
		if err != nil && result == nil {
			return fail(spinner, "initialize the store", err)
		}

		var msg string
		switch {
		case result.Created:
			msg = ui.Success.Sprint("✓") + " Password store initialized at " + ui.Path.Sprint(result.Root) +
				" for " + ui.Highlight.Sprint(strings.Join(result.Recipients, ", "))
		case len(result.Recipients) == 0:
			msg = ui.Success.Sprint("✓") + " Removed recipients of " + ui.Entry.Sprint(result.Scope.String())
		default:
			scope := "the store root"
			if !result.Scope.IsRoot() {
				scope = ui.Entry.Sprint(result.Scope.String())
			}
			msg = ui.Success.Sprint("✓") + " Recipients of " + scope + " set to " +
				ui.Highlight.Sprint(strings.Join(result.Recipients, ", "))
		}
		if n := len(result.Reencrypted); n > 0 {
			msg += fmt.Sprintf("\n%s Re-encrypted %d entries", ui.Info.Sprint("→"), n)
		}
		msg += versionNote(result.Version)
		if err != nil {
			spinner.FinalMSG = msg + "\n" + formatError("initialize the store", err)
			return err
		}
		spinner.FinalMSG = msg
		return nil
	})
}

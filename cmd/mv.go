package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/rakau/internal/ui"
	"github.com/PolarWolf314/rakau/internal/workflows"
	"github.com/spf13/cobra"
)

var mvForce bool

func init() {
	mvCmd.Flags().BoolVarP(&mvForce, "force", "f", false, "overwrite existing entries at the destination")
}

var mvCmd = &cobra.Command{
	Use:     "mv <from> <to>",
	Aliases: []string{"rename"},
	Short:   "Rename an entry or a folder",
	Long: `Renames an entry or a folder of entries. Moving into an existing folder
keeps the source name. Entries that land under different recipients are
re-encrypted for them.`,
	Args: cobra.ExactArgs(2),
	RunE: runMv,
}

func runMv(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting mv command")
	from, to := args[0], args[1]

	spinner, cleanup := startSpinner(fmt.Sprintf("Moving %s to %s...", from, to), verbose)
	defer cleanup()

	return withWire(func(ctx context.Context, w *workflows.Wire) error {
		result, err := workflows.Move(ctx, w, workflows.MoveOptions{From: from, To: to, Force: mvForce})
		if err != nil && result == nil {
			return fail(spinner, "move "+from, err)
		}

		var reencrypted int
		for _, m := range result.Moved {
			Logger.Debugf("Moved %s to %s (reencrypted=%t)", m.From, m.To, m.Reencrypted)
			if m.Reencrypted {
				reencrypted++
			}
		}
		msg := ui.Success.Sprint("✓") + " Moved " + ui.Entry.Sprint(from) + " to " + ui.Entry.Sprint(to)
		if reencrypted > 0 {
			msg += fmt.Sprintf("\n%s Re-encrypted %d entries for their new recipients", ui.Info.Sprint("→"), reencrypted)
		}
		msg += versionNote(result.Version)
		if err != nil {
			spinner.FinalMSG = msg + "\n" + formatError("move "+from, err)
			return err
		}
		spinner.FinalMSG = msg
		return nil
	})
}

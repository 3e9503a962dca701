package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/rakau/internal/ui"
	"github.com/PolarWolf314/rakau/internal/utils"
	"github.com/PolarWolf314/rakau/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	rmRecursive bool
	rmForce     bool
)

func init() {
	rmCmd.Flags().BoolVarP(&rmRecursive, "recursive", "r", false, "remove a folder and every entry below it")
	rmCmd.Flags().BoolVarP(&rmForce, "force", "f", false, "do not ask for confirmation")
}

var rmCmd = &cobra.Command{
	Use:     "rm <name>",
	Aliases: []string{"remove", "delete"},
	Short:   "Remove an entry or a folder",
	Args:    cobra.ExactArgs(1),
	RunE:    runRm,
}

func runRm(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting rm command")
	name := args[0]

	if !rmForce && isTerminal() {
		what := name
		if rmRecursive {
			what = name + " and everything below it"
		}
		if !utils.Confirm(cmd.InOrStdin(), fmt.Sprintf("Are you sure you would like to delete %s?", what)) {
			fmt.Println(ui.Info.Sprint("→") + " Nothing removed")
			return nil
		}
	}

	spinner, cleanup := startSpinner("Removing "+name+"...", verbose)
	defer cleanup()

	return withWire(func(ctx context.Context, w *workflows.Wire) error {
		result, err := workflows.Remove(ctx, w, workflows.RemoveOptions{Name: name, Recursive: rmRecursive})
		if err != nil && result == nil {
			return fail(spinner, "remove "+name, err)
		}

		msg := ui.Success.Sprint("✓") + " Removed " + ui.Entry.Sprint(name)
		if n := len(result.Removed); n > 1 {
			msg += fmt.Sprintf(" (%d entries)", n)
		}
		msg += versionNote(result.Version)
		if verbose && len(result.Removed) > 1 {
			names := make([]string, 0, len(result.Removed))
			for _, p := range result.Removed {
				names = append(names, p.String())
			}
			msg += utils.FormatPaths(names)
		}
		if err != nil {
			spinner.FinalMSG = msg + "\n" + formatError("remove "+name, err)
			return err
		}
		spinner.FinalMSG = msg
		return nil
	})
}

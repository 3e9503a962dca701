package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/PolarWolf314/rakau/internal/ui"
	"github.com/PolarWolf314/rakau/internal/versioning"
	"github.com/PolarWolf314/rakau/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	commitMessage string
	historyLimit  int
	historyJSON   bool
)

func init() {
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "version message")
	historyCmd.Flags().IntVarP(&historyLimit, "number", "n", 0, "limit number of versions shown")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON array")
}

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Record changes that are saved but not yet versioned",
	Long: `Records every change in the store that has no version yet. Use it after a
command reported that its change was saved but not versioned.`,
	Args: cobra.NoArgs,
	RunE: runCommit,
}

func runCommit(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting commit command")

	spinner, cleanup := startSpinner("Recording pending changes...", verbose)
	defer cleanup()

	return withWire(func(ctx context.Context, w *workflows.Wire) error {
		result, err := workflows.Commit(ctx, w, workflows.CommitOptions{Message: commitMessage})
		if err != nil {
			return fail(spinner, "record changes", err)
		}
		if result.Version.IsZero() {
			spinner.FinalMSG = ui.Info.Sprint("ℹ") + " Nothing to record"
			return nil
		}
		spinner.FinalMSG = ui.Success.Sprint("✓") + fmt.Sprintf(" Recorded %d file(s) with %s", len(result.Version.Paths), result.Backend) +
			versionNote(result.Version)
		return nil
	})
}

var historyCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the version history of the store",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting log command")

	return withWire(func(ctx context.Context, w *workflows.Wire) error {
		result, err := workflows.History(ctx, w, workflows.HistoryOptions{Limit: historyLimit})
		if err != nil {
			return printError("read the history", err)
		}
		if !result.Enabled {
			fmt.Println(ui.Info.Sprint("ℹ") + " Versioning (" + result.Backend + ") is not enabled for this store.")
			return nil
		}
		if historyJSON {
			return outputHistoryJSON(result.Records)
		}
		for _, r := range result.Records {
			printRecord(r)
		}
		return nil
	})
}

func outputHistoryJSON(records []versioning.Record) error {
	if records == nil {
		records = []versioning.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records to JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printRecord(r versioning.Record) {
	id := r.ID
	if len(id) > 12 {
		id = id[:12]
	}
	fmt.Printf("%s  %s  %-25s  %s\n", ui.Warning.Sprint(id), r.Time.Local().Format("2006-01-02 15:04:05"), r.Author, r.Message)
	if verbose {
		for _, p := range r.Paths {
			fmt.Printf("    %s\n", ui.Muted.Sprint(p))
		}
	}
}

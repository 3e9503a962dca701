package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/PolarWolf314/rakau/internal/audit"
	"github.com/PolarWolf314/rakau/internal/ui"
	"github.com/PolarWolf314/rakau/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	auditLimit     int
	auditReverse   bool
	auditUser      string
	auditOperation string
	auditPath      string
	auditSince     string
	auditUntil     string
	auditOneline   bool
	auditJSON      bool
)

func init() {
	auditCmd.Flags().IntVarP(&auditLimit, "number", "n", 0, "limit number of entries shown")
	auditCmd.Flags().BoolVar(&auditReverse, "reverse", false, "show most recent entries first")
	auditCmd.Flags().StringVar(&auditUser, "user", "", "filter by login name")
	auditCmd.Flags().StringVar(&auditOperation, "operation", "", "filter by operation type (comma-separated)")
	auditCmd.Flags().StringVar(&auditPath, "path", "", "filter by entry or folder")
	auditCmd.Flags().StringVar(&auditSince, "since", "", "show entries after date (YYYY-MM-DD)")
	auditCmd.Flags().StringVar(&auditUntil, "until", "", "show entries before date (YYYY-MM-DD)")
	auditCmd.Flags().BoolVar(&auditOneline, "oneline", false, "compact one-line format")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "output as JSON array")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View the audit trail",
	Long: `Displays the audit trail of store operations.

Shows who performed what operation, on which entries and when. Use filters
to narrow down the results.

Examples:
  rakau audit                              # View full trail
  rakau audit -n 10                        # Last 10 entries
  rakau audit --reverse                    # Most recent first
  rakau audit --user alice                 # Filter by user
  rakau audit --operation insert,rm        # Filter by operation
  rakau audit --path work/                 # Entries under a folder
  rakau audit --since 2024-01-01           # Filter by date
  rakau audit --json                       # JSON output`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting audit command")

	opts := workflows.AuditLogOptions{
		Limit:      auditLimit,
		Reverse:    auditReverse,
		User:       auditUser,
		Operations: auditOperation,
		Path:       auditPath,
		Since:      auditSince,
		Until:      auditUntil,
	}

	return withWire(func(ctx context.Context, w *workflows.Wire) error {
		result, err := workflows.AuditLog(ctx, w, opts)
		if err != nil {
			return printError("read the audit trail", err)
		}
		if result.Path == "" {
			fmt.Println(ui.Info.Sprint("ℹ") + " The audit trail is disabled for this store.")
			return nil
		}

		Logger.Debugf("Parsed %d entries from %s", result.TotalEntriesBeforeFilter, result.Path)
		Logger.Debugf("After filtering: %d entries", len(result.Entries))

		if auditJSON {
			return outputAuditJSON(result.Entries)
		}
		if len(result.Entries) == 0 {
			if result.TotalEntriesBeforeFilter == 0 {
				fmt.Println("No audit log entries found.")
			} else {
				fmt.Println("No audit log entries found matching the filters.")
			}
			return nil
		}
		if auditOneline {
			outputAuditOneline(result.Entries)
			return nil
		}
		outputAuditDefault(result.Entries)
		return nil
	})
}

func outputAuditJSON(entries []audit.Entry) error {
	if entries == nil {
		entries = []audit.Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries to JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func outputAuditOneline(entries []audit.Entry) {
	for _, e := range entries {
		date := workflows.FormatDateTime(e.Timestamp)
		if len(date) > 10 {
			date = date[:10]
		}
		fmt.Printf("%s %s %s %s\n", date, e.User, e.Operation, workflows.FormatDetails(e))
	}
}

func outputAuditDefault(entries []audit.Entry) {
	for _, e := range entries {
		datetime := workflows.FormatDateTime(e.Timestamp)
		fmt.Printf("%-19s  %-16s  %-10s  %s\n", datetime, e.User, e.Operation, workflows.FormatDetails(e))
	}
}

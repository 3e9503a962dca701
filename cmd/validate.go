package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/PolarWolf314/rakau/internal/ui"
	"github.com/PolarWolf314/rakau/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	validateJSONOutput bool
	// validateExitFunc is the function called to exit with a specific code.
	// Can be overridden for testing.
	validateExitFunc = os.Exit
)

func init() {
	validateCmd.Flags().BoolVar(&validateJSONOutput, "json", false, "output in JSON format")
}

func resetValidateCommandState() {
	validateJSONOutput = false
	validateExitFunc = os.Exit
}

// SetValidateExitFunc sets the exit function for testing purposes.
func SetValidateExitFunc(f func(int)) {
	validateExitFunc = f
}

var validateCmd = &cobra.Command{
	Use:     "validate",
	Aliases: []string{"doctor"},
	Short:   "Run health and integrity checks on the store",
	Long: `Runs a series of checks on the store and its backends and reports issues.
Nothing is decrypted.

The validate command checks:
  - Configuration file validity
  - Store root existence and permissions
  - Cipher backend availability
  - Versioning backend state
  - Recipient declarations and their signatures
  - Entries encrypted for stale recipients
  - Missing or orphaned metadata and leftover temporary files

Exit codes:
  0 - All checks passed
  1 - Warnings found (non-critical issues)
  2 - Errors found (critical issues)

Use --json for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting validate command")

	var result *workflows.ValidateResult
	err := func() error {
		spinner, cleanup := startSpinner("Running health checks...", verbose)
		defer cleanup()

		return withWire(func(ctx context.Context, w *workflows.Wire) error {
			var err error
			result, err = workflows.Validate(ctx, w, workflows.ValidateOptions{})
			if err != nil {
				spinner.FinalMSG = ui.Error.Sprint("✗") + " Failed to run health checks: " + err.Error()
				return err
			}
			for _, check := range result.Checks {
				Logger.Debugf("Check %s: status=%s, message=%s", check.Name, check.Status.String(), check.Message)
			}
			return nil
		})
	}()
	if err != nil || result == nil {
		return err
	}

	// Output results.
	if validateJSONOutput {
		if err := outputValidateJSON(result); err != nil {
			return err
		}
	} else {
		printValidateResults(result)
		switch {
		case result.Summary.Errors > 0:
			fmt.Println(ui.Error.Sprint("✗") + " Health checks completed with errors")
		case result.Summary.Warnings > 0:
			fmt.Println(ui.Warning.Sprint("⚠") + " Health checks completed with warnings")
		default:
			fmt.Println(ui.Success.Sprint("✓") + " Health checks completed")
		}
	}

	// Set exit code based on results.
	if result.Summary.Errors > 0 {
		validateExitFunc(2)
		return nil
	}
	if result.Summary.Warnings > 0 {
		validateExitFunc(1)
	}
	return nil
}

// outputValidateJSON outputs the result as JSON.
func outputValidateJSON(result *workflows.ValidateResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// printValidateResults prints the validate results in a human-readable format.
func printValidateResults(result *workflows.ValidateResult) {
	fmt.Println("Running health checks...")
	fmt.Println()

	// Print each check result.
	for _, check := range result.Checks {
		fmt.Printf("%s %s\n", statusIcon(check.Status), check.Message)
	}

	if len(result.Findings) > 0 {
		fmt.Println()
		fmt.Println("Findings:")
		for _, f := range result.Findings {
			fmt.Printf("  %s %-18s %s %s\n", statusIcon(f.Status), f.Kind, ui.Path.Sprint(f.Path), ui.Muted.Sprint(f.Detail))
		}
	}

	// Print summary.
	fmt.Println()
	fmt.Printf("Summary: %d passed", result.Summary.Passed)
	if result.Summary.Warnings > 0 {
		fmt.Printf(", %s", ui.Warning.Sprint(fmt.Sprintf("%d warning(s)", result.Summary.Warnings)))
	}
	if result.Summary.Errors > 0 {
		fmt.Printf(", %s", ui.Error.Sprint(fmt.Sprintf("%d error(s)", result.Summary.Errors)))
	}
	fmt.Println()

	// Print suggestions if any.
	if len(result.Suggestions) > 0 {
		fmt.Println()
		fmt.Println("Suggestions:")
		for _, suggestion := range result.Suggestions {
			fmt.Printf("  %s %s\n", ui.Info.Sprint("→"), suggestion)
		}
	}
}

func statusIcon(s workflows.CheckStatus) string {
	switch s {
	case workflows.CheckWarning:
		return ui.Warning.Sprint("⚠")
	case workflows.CheckError:
		return ui.Error.Sprint("✗")
	default:
		return ui.Success.Sprint("✓")
	}
}

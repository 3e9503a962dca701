package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	"github.com/PolarWolf314/rakau/internal/ui"
	"github.com/PolarWolf314/rakau/internal/utils"
	"github.com/PolarWolf314/rakau/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	insertForce     bool
	insertEcho      bool
	insertMultiline bool

	// isTerminal reports whether prompts can be shown. Tests override it.
	isTerminal = utils.IsTerminal
)

func init() {
	insertCmd.Flags().BoolVarP(&insertForce, "force", "f", false, "overwrite an existing entry without asking")
	insertCmd.Flags().BoolVarP(&insertEcho, "echo", "e", false, "echo the secret while typing it")
	insertCmd.Flags().BoolVarP(&insertMultiline, "multiline", "m", false, "read lines from stdin until EOF")
}

// resetInsertCommandState resets the insert command's global state for testing.
func resetInsertCommandState() {
	insertForce = false
	insertEcho = false
	insertMultiline = false
	isTerminal = utils.IsTerminal
}

var insertCmd = &cobra.Command{
	Use:     "insert <name> [secret]",
	Aliases: []string{"add"},
	Short:   "Encrypt a new secret into the store",
	Long: `Encrypts a secret for the recipients governing its folder.

The secret is taken from the second argument, from a hidden prompt asked
twice, from an echoed prompt with --echo, or from stdin until EOF with
--multiline. Piped input without --multiline stores the first line.

Examples:
  rakau insert email/work
  printf 'hunter2\nuser: alice\n' | rakau insert -m email/work
  rakau insert --force wifi/home s3cret`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInsert,
}

func runInsert(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting insert command")
	name := args[0]

	secret, err := readSecret(cmd.InOrStdin(), name, args[1:])
	if err != nil {
		return printError("read the secret", err)
	}

	return withWire(func(ctx context.Context, w *workflows.Wire) error {
		opts := workflows.InsertOptions{Name: name, Secret: secret, Force: insertForce}
		result, err := workflows.Insert(ctx, w, opts)
		if errors.Is(err, kerrors.ErrEntryExists) && isTerminal() &&
			utils.Confirm(cmd.InOrStdin(), fmt.Sprintf("An entry already exists for %s. Overwrite it?", name)) {
			opts.Force = true
			result, err = workflows.Insert(ctx, w, opts)
		}

		spinner, cleanup := startSpinner("Encrypting "+name+"...", verbose)
		defer cleanup()
		if err != nil && result == nil {
			return fail(spinner, "insert "+name, err)
		}

		verb := "Added"
		if result.Replaced {
			verb = "Replaced"
		}
		msg := ui.Success.Sprint("✓") + " " + verb + " " + ui.Entry.Sprint(result.Path.String()) + versionNote(result.Version)
		if err != nil {
			spinner.FinalMSG = msg + "\n" + formatError("insert "+name, err)
			return err
		}
		spinner.FinalMSG = msg
		return nil
	})
}

// readSecret collects the secret for name from args, a prompt or r.
func readSecret(r io.Reader, name string, args []string) ([]byte, error) {
	switch {
	case len(args) > 0:
		return []byte(args[0] + "\n"), nil
	case insertMultiline:
		if isTerminal() {
			fmt.Fprintf(os.Stderr, "Enter contents of %s and press Ctrl+D when finished:\n\n", name)
		}
		return utils.ReadAll(r)
	case insertEcho || !isTerminal():
		line, err := utils.ReadLine(r, fmt.Sprintf("Enter password for %s: ", name))
		if err != nil {
			return nil, err
		}
		if line == "" {
			return nil, errors.New("input is empty")
		}
		return []byte(line + "\n"), nil
	default:
		secret, err := utils.ReadSecretConfirmed(name)
		if err != nil {
			return nil, err
		}
		if len(secret) == 0 {
			return nil, errors.New("input is empty")
		}
		return append(secret, '\n'), nil
	}
}

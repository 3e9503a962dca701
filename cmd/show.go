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
	showField string
	showLine  int
)

func init() {
	showCmd.Flags().StringVar(&showField, "field", "", "print one field of the entry body, such as user")
	showCmd.Flags().IntVarP(&showLine, "line", "l", 0, "print line N of the entry; 1 is the password")
}

var showCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Decrypt and print an entry, or list a folder",
	Long: `Decrypts an entry and prints it. Without a name, or with a folder name,
prints the tree of entries instead.

Entry bodies may carry "key: value" lines or a YAML mapping after the
password line; --field prints one of them.

Examples:
  rakau show email/work
  rakau show --field user email/work
  rakau show --line 1 email/work
  rakau show email`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting show command")
	var name string
	if len(args) > 0 {
		name = args[0]
	}

	return withWire(func(ctx context.Context, w *workflows.Wire) error {
		result, err := workflows.Show(ctx, w, workflows.ShowOptions{Name: name, Field: showField, Line: showLine})
		if err != nil {
			return printError("show "+name, err)
		}
		if result.IsTree() {
			title := "Password Store"
			if !result.Path.IsRoot() {
				title = ui.Entry.Sprint(result.Path.String())
			}
			fmt.Print(ui.RenderTree(title, result.Tree))
			return nil
		}
		if result.Stale {
			Logger.WarnfAlways("%s is encrypted for stale recipients; run 'rakau reencrypt %s'", result.Path, result.Path)
		}
		out := result.Value
		if showField != "" || showLine > 0 {
			out = strings.TrimRight(out, "\n")
		}
		fmt.Print(ui.EnsureNewline(out))
		return nil
	})
}

var lsCmd = &cobra.Command{
	Use:     "ls [prefix]",
	Aliases: []string{"list"},
	Short:   "List entry names",
	Long: `Lists the entries at or below a prefix, one name per line, sorted.

A prefix matches whole path segments: "mail" lists mail/work but not
mailbox.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func runLs(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting ls command")
	var prefix string
	if len(args) > 0 {
		prefix = args[0]
	}

	return withWire(func(ctx context.Context, w *workflows.Wire) error {
		result, err := workflows.List(ctx, w, workflows.ListOptions{Prefix: prefix})
		if err != nil {
			return printError("list "+prefix, err)
		}
		for _, n := range result.Names() {
			fmt.Println(n)
		}
		return nil
	})
}

var findCmd = &cobra.Command{
	Use:     "find <term>...",
	Aliases: []string{"search"},
	Short:   "Find entries by name",
	Long: `Finds entries whose names contain any of the terms, ignoring case.

A single term holding glob characters is matched against full entry names
instead; ** crosses folders.

Examples:
  rakau find mail bank
  rakau find 'work/**/vpn*'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFind,
}

func runFind(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting find command")

	return withWire(func(ctx context.Context, w *workflows.Wire) error {
		result, err := workflows.Find(ctx, w, workflows.FindOptions{Terms: args})
		if err != nil {
			return printError("search the store", err)
		}
		fmt.Print(ui.RenderTree("Search Terms: "+strings.Join(args, ","), result.Names()))
		return nil
	})
}

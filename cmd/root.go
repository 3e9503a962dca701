package cmd

import (
	"context"
	"os"

	"github.com/PolarWolf314/rakau/internal/configs"
	logger "github.com/PolarWolf314/rakau/internal/logging"
	"github.com/PolarWolf314/rakau/internal/workflows"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose        bool
	debug          bool
	storeFlag      string
	configFlag     string
	cipherFlag     string
	versioningFlag string
	Logger         logger.Logger

	// wireFactory builds the services a command runs against. Tests replace
	// it to inject a fake cipher.
	wireFactory = defaultWire

	RootCmd = &cobra.Command{
		Use:   "rakau",
		Short: "rakau - a directory of encrypted secrets",
		Long: `rakau keeps each secret in its own encrypted file under a store directory.

Every directory may declare its own recipients in a .gpg-id file; entries are
encrypted for the nearest declaration above them. Changes are versioned with
git or a local journal.

Run 'rakau init <key-id>' to get started.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing %s command with verbose=%t, debug=%t", cmd.Name(), verbose, debug)
		},
	}
)

func init() {
	flags := RootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVarP(&debug, "debug", "d", false, "enable debug output")
	flags.StringVar(&storeFlag, "store", "", "store directory (overrides PASSWORD_STORE_DIR)")
	flags.StringVar(&configFlag, "config", "", "configuration file (overrides RAKAU_CONFIG)")
	flags.StringVar(&cipherFlag, "cipher", "", "cipher backend: gpg or native")
	flags.StringVar(&versioningFlag, "versioning", "", "versioning backend: git, journal or none")

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(insertCmd)
	RootCmd.AddCommand(showCmd)
	RootCmd.AddCommand(lsCmd)
	RootCmd.AddCommand(findCmd)
	RootCmd.AddCommand(rmCmd)
	RootCmd.AddCommand(mvCmd)
	RootCmd.AddCommand(reencryptCmd)
	RootCmd.AddCommand(validateCmd)
	RootCmd.AddCommand(commitCmd)
	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(auditCmd)
}

// Execute runs the root command and exits non-zero on failure. Commands
// print their own error messages.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultWire() (*workflows.Wire, error) {
	settings, err := configs.Load(configs.Overrides{
		ConfigPath: configFlag,
		StoreDir:   storeFlag,
		Cipher:     cipherFlag,
		Versioning: versioningFlag,
	})
	if err != nil {
		return nil, err
	}
	Logger.Debugf("Resolved store %s from config %s", settings.StoreDir, settings.ConfigPath)
	return workflows.NewWire(workflows.WireOptions{Settings: settings, Log: Logger})
}

// withWire builds the services for one command and releases them after fn.
func withWire(fn func(ctx context.Context, w *workflows.Wire) error) error {
	w, err := wireFactory()
	if err != nil {
		return printError("load configuration", err)
	}
	defer func() {
		if err := w.Close(); err != nil {
			Logger.Warnf("Failed to close versioning backend: %v", err)
		}
	}()
	return fn(context.Background(), w)
}

// Helper functions for testing

// SetWireFactory replaces how commands build their services.
func SetWireFactory(f func() (*workflows.Wire, error)) {
	wireFactory = f
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	storeFlag = ""
	configFlag = ""
	cipherFlag = ""
	versioningFlag = ""
	wireFactory = defaultWire
	for _, c := range RootCmd.Commands() {
		resetFlags(c.Flags())
	}
	resetInsertCommandState()
	resetValidateCommandState()
}

// resetFlags restores every flag of a command to its default value.
func resetFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"

	"github.com/spf13/cobra"

	"wallheaven-sync/pkg/config"
	"wallheaven-sync/pkg/logger"
	"wallheaven-sync/pkg/ui"
)

var (
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	storageRoot string
	apiURL      string
	logLevel    string
	logFile     string
	noColor     bool

	cfg *config.Config

	// stdin feeds interactive prompts
	stdin io.Reader = os.Stdin
)

// errBenign ends a command early without it counting as a failure
var errBenign = errors.New("nothing to do")

var rootCmd = &cobra.Command{
	Use:   "wallheaven-sync [username]",
	Short: "Mirror Wallhaven collections to a local directory",
	Long: `wallheaven-sync keeps a local copy of a Wallhaven user's collections.

Each collection becomes a directory under the storage root holding the
downloaded wallpapers and an index.json describing them. Running the sync
again only downloads what is new.

Storage root: $WALLHEAVEN_SYNC_STORAGE_PATH, or ~/wallheaven_storage.`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", config.Version, gitCommit, buildDate),
	Args:              cobra.ArbitraryArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errBenign) {
			return 0
		}
		ui.PrintError("Error", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.RunE = runRoot

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default is ./.wallheaven-sync.yaml or ~/.config/wallheaven-sync/config.yaml)")
	flags.StringVarP(&storageRoot, "storage", "s", "", "storage root directory")
	flags.StringVar(&apiURL, "api-url", "", "Wallhaven API base URL")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	flags.StringVar(&logFile, "log-file", "", "also write JSON logs to this file")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.SetVersionTemplate(`wallheaven-sync {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// runRoot treats a first argument that is not a command as a username to sync
func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) > 0 && !isKnownCommand(args[0]) {
		return runSync(cmd, args)
	}
	if len(args) == 0 && ui.IsInteractive() {
		return runSync(cmd, args)
	}
	return cmd.Help()
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if noColor {
		ui.SetColor(false)
	}

	flags := map[string]interface{}{
		"storage":   storageRoot,
		"api-url":   apiURL,
		"log-level": logLevel,
		"log-file":  logFile,
	}
	for name, value := range commandFlags(cmd) {
		flags[name] = value
	}

	loaded, err := config.Load(configFile, flags)
	if err != nil {
		return err
	}
	cfg = loaded

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.WithFields(map[string]interface{}{
		"command": cmd.Name(),
		"storage": cfg.Storage.Root,
	}).Debug("Configuration loaded")
	return nil
}

// commandFlags collects the config-backed flags a subcommand set explicitly
func commandFlags(cmd *cobra.Command) map[string]interface{} {
	out := make(map[string]interface{})
	if f := cmd.Flags().Lookup("requests-per-minute"); f != nil && f.Changed {
		out["requests-per-minute"], _ = cmd.Flags().GetInt("requests-per-minute")
	}
	if f := cmd.Flags().Lookup("max-waits"); f != nil && f.Changed {
		out["max-waits"], _ = cmd.Flags().GetInt("max-waits")
	}
	if f := cmd.Flags().Lookup("flush-each-item"); f != nil && f.Changed {
		out["flush-each-item"], _ = cmd.Flags().GetBool("flush-each-item")
	}
	return out
}

func isKnownCommand(arg string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == arg || cmd.HasAlias(arg) {
			return true
		}
	}
	return false
}

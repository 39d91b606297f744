package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"wallheaven-sync/pkg/auth"
	"wallheaven-sync/pkg/config"
	"wallheaven-sync/pkg/ui"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage wallheaven-sync configuration.

Configuration is loaded from, in order of priority:
  - Command line flags
  - Environment variables (WALLHEAVEN_SYNC_*, also read from .env)
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with the default values",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and the storage root",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		path = config.ConfigLocations()[2]
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("configuration file %s already exists, use --force to overwrite", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(ui.Stdout, "\nNext steps:")
	fmt.Fprintln(ui.Stdout, "  1. Set wallhaven.username and storage.root")
	fmt.Fprintln(ui.Stdout, "  2. Run 'wallheaven-sync config validate'")
	fmt.Fprintln(ui.Stdout, "  3. Run 'wallheaven-sync init' to create the storage root")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	display := *cfg
	if display.Wallhaven.APIKey != "" {
		display.Wallhaven.APIKey = auth.MaskKey(display.Wallhaven.APIKey)
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Stdout)
	fmt.Fprint(ui.Stdout, string(data))

	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source == "" {
		source = "(none)"
	}
	fmt.Fprintln(ui.Stdout)
	ui.PrintInfo("Configuration file", source)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	// Load already ran Validate; what is left are warnings
	var warnings []string
	if cfg.Wallhaven.Username == "" {
		warnings = append(warnings, "no default username, sync will ask for one")
	}
	if info, err := os.Stat(cfg.Storage.Root); err != nil {
		warnings = append(warnings, fmt.Sprintf("storage root %s does not exist yet", cfg.Storage.Root))
	} else if !info.IsDir() {
		return fmt.Errorf("storage root %s is not a directory", cfg.Storage.Root)
	}
	if cfg.RateLimit.MaxWaits == 0 {
		warnings = append(warnings, "rate-limit waits are unbounded, a long quota wait blocks the run")
	}

	for _, w := range warnings {
		ui.PrintWarning("Warning", w)
	}
	ui.PrintSuccess("Configuration is valid")

	fmt.Fprintln(ui.Stdout, "\nConfiguration summary:")
	ui.PrintInfo("  API", cfg.Wallhaven.APIURL)
	ui.PrintInfo("  Storage root", cfg.Storage.Root)
	ui.PrintInfo("  Flush each item", fmt.Sprint(cfg.Sync.FlushEachItem))
	ui.PrintInfo("  Requests per minute", fmt.Sprint(cfg.RateLimit.RequestsPerMinute))
	ui.PrintInfo("  Log level", cfg.Logging.Level)
	return nil
}

package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"wallheaven-sync/pkg/ui"
	"wallheaven-sync/pkg/wallhaven"
)

var (
	// Sync command flags
	collectionFlag    string
	assumeYes         bool
	requestsPerMinute int
	maxWaits          int
	flushEachItem     bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [username]",
	Short: "Download new wallpapers of one collection",
	Long: `Download every wallpaper of a Wallhaven collection that is not in the
local index yet.

The username is taken from the argument, the configuration, or asked for.
The collection is chosen from a list unless --collection names it by label
or numeric id. Running sync twice in a row downloads nothing the second time.`,
	Example: `  # Pick a collection interactively
  wallheaven-sync sync TSear

  # Same, without the subcommand
  wallheaven-sync TSear

  # Non-interactive
  wallheaven-sync sync TSear --collection Favorites --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	addSyncFlags(syncCmd.Flags())
	// Also accepted without the sync subcommand
	addSyncFlags(rootCmd.Flags())
}

func addSyncFlags(fs *pflag.FlagSet) {
	fs.StringVar(&collectionFlag, "collection", "", "collection label or id to sync")
	fs.BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
	fs.IntVar(&requestsPerMinute, "requests-per-minute", 0, "client-side request pacing, 0 for none")
	fs.IntVar(&maxWaits, "max-waits", 0, "give up after this many rate-limit waits per request, 0 for unlimited")
	fs.BoolVar(&flushEachItem, "flush-each-item", true, "save the index after every downloaded wallpaper")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	username := cfg.Wallhaven.Username
	if len(args) > 0 {
		username = strings.TrimSpace(args[0])
	}

	a, err := newApp(username, true)
	if err != nil {
		return err
	}
	defer a.close()

	if username == "" {
		if username, err = a.prompter.ReadLine("Wallhaven username: "); err != nil {
			return err
		}
		if username == "" {
			return fmt.Errorf("a username is required")
		}
	}
	ui.PrintInfo("User", username)

	collections, err := a.catalog.ListCollections(ctx, username)
	if err != nil {
		return err
	}
	if len(collections) == 0 {
		ui.PrintWarning("No collections found for " + username)
		return errBenign
	}

	collection, err := chooseCollection(a, collections, collectionFlag)
	if err != nil {
		return err
	}

	question := fmt.Sprintf("Sync %s (%d wallpapers) into %s?", collection.Label, collection.Count, a.store.Root())
	if err := a.confirm(question, assumeYes); err != nil {
		return err
	}

	a.log.WithFields(map[string]interface{}{
		"username":   username,
		"collection": collection.Label,
	}).Info("Starting sync")

	result, err := a.engine.Sync(ctx, username, collection)
	if err != nil {
		return err
	}
	if result.UpToDate() {
		return nil
	}

	ui.PrintSuccess(fmt.Sprintf("Downloaded %d of %d new wallpapers (%s)",
		result.Downloaded, result.Planned, humanize.Bytes(uint64(result.Bytes))))
	if result.Failed > 0 {
		for _, failure := range result.Failures {
			ui.PrintError(failure.ID, failure.Err)
		}
		return fmt.Errorf("%d wallpapers could not be downloaded", result.Failed)
	}
	return nil
}

func chooseCollection(a *app, collections []wallhaven.CollectionSummary, selector string) (wallhaven.CollectionSummary, error) {
	if selector != "" {
		collection, ok := wallhaven.FindCollection(collections, selector)
		if !ok {
			return wallhaven.CollectionSummary{}, fmt.Errorf("collection %q not found", selector)
		}
		return collection, nil
	}

	options := make([]string, len(collections))
	for i, c := range collections {
		options[i] = fmt.Sprintf("%s %s", c.Label, ui.Dim(fmt.Sprintf("(%d)", c.Count)))
	}
	choice, err := a.prompter.SelectFromList("Collections:", options)
	if err != nil {
		return wallhaven.CollectionSummary{}, err
	}
	return collections[choice], nil
}

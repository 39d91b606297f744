package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"wallheaven-sync/pkg/reconcile"
	"wallheaven-sync/pkg/ui"
)

var (
	addSourceURL string
	addTags      []string
)

var addCmd = &cobra.Command{
	Use:   "add <collection> <file-or-url>",
	Short: "Register a wallpaper that did not come from a sync",
	Long: `Copy a local image, or download one from a URL, into a collection and
record it in the index. The collection directory is created if needed.

Accepted types are jpg, jpeg, png, webp and gif.`,
	Example: `  wallheaven-sync add Favorites ~/Pictures/sunset.png --tag sunset --tag beach
  wallheaven-sync add Favorites https://example.com/art.webp --url https://wallhaven.cc/w/8oxreo`,
	Args: cobra.ExactArgs(2),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVar(&addSourceURL, "url", "", "source URL stored in the index (default: the source itself)")
	addCmd.Flags().StringArrayVarP(&addTags, "tag", "t", nil, "tag to record, may be repeated")
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg.Wallhaven.Username, true)
	if err != nil {
		return err
	}
	defer a.close()

	label, source := args[0], args[1]
	record, err := a.engine.Add(cmd.Context(), label, reconcile.AddRequest{
		Source:    source,
		SourceURL: addSourceURL,
		Tags:      addTags,
	})
	if err != nil {
		return err
	}

	size := "unknown size"
	if path, err := a.store.AssetPath(label, record.Filename); err == nil {
		if n, err := fileSize(path); err == nil {
			size = humanize.Bytes(uint64(n))
		}
	}
	ui.PrintSuccess(fmt.Sprintf("Added %s to %s (%s)", record.Filename, label, size))
	return nil
}

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"wallheaven-sync/pkg/ui"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections [username]",
	Short: "List a user's Wallhaven collections",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCollections,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local collections and whether they match their index",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
	rootCmd.AddCommand(statusCmd)
}

func runCollections(cmd *cobra.Command, args []string) error {
	username := cfg.Wallhaven.Username
	if len(args) > 0 {
		username = strings.TrimSpace(args[0])
	}
	if username == "" {
		return fmt.Errorf("a username is required")
	}

	a, err := newApp(username, false)
	if err != nil {
		return err
	}
	defer a.close()

	collections, err := a.catalog.ListCollections(cmd.Context(), username)
	if err != nil {
		return err
	}
	if len(collections) == 0 {
		ui.PrintWarning("No collections found for " + username)
		return nil
	}

	rows := make([][]string, 0, len(collections))
	for _, c := range collections {
		local := ""
		if a.store.CollectionExists(c.Label) {
			local = "yes"
		}
		rows = append(rows, []string{strconv.Itoa(c.ID), c.Label, humanize.Comma(int64(c.Count)), local})
	}
	fmt.Fprintln(ui.Stdout, ui.RenderTable(
		[]string{"ID", "Label", "Wallpapers", "Local"},
		rows,
		[]ui.Alignment{ui.AlignRight, ui.AlignLeft, ui.AlignRight, ui.AlignLeft},
	))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp("", false)
	if err != nil {
		return err
	}
	defer a.close()

	labels, err := a.store.ListCollectionDirectories()
	if err != nil {
		return err
	}
	ui.PrintInfo("Storage", a.store.Root())
	if len(labels) == 0 {
		ui.PrintWarning("No collections yet")
		return nil
	}

	var total int64
	rows := make([][]string, 0, len(labels))
	for _, label := range labels {
		diff, err := a.engine.Inspect(label)
		if err != nil {
			return err
		}
		total += diff.Size
		rows = append(rows, []string{
			label,
			strconv.Itoa(diff.Records),
			strconv.Itoa(diff.Files),
			countCell(len(diff.Missing), ui.Yellow),
			countCell(len(diff.Orphans), ui.Red),
			humanize.Bytes(uint64(diff.Size)),
		})
	}
	rows = append(rows, []string{"Total", "", "", "", "", humanize.Bytes(uint64(total))})

	fmt.Fprintln(ui.Stdout, ui.RenderTable(
		[]string{"Collection", "Records", "Files", "Missing", "Orphans", "Size"},
		rows,
		[]ui.Alignment{ui.AlignLeft, ui.AlignRight, ui.AlignRight, ui.AlignRight, ui.AlignRight, ui.AlignRight},
	))
	return nil
}

func countCell(n int, color func(string) string) string {
	if n == 0 {
		return "0"
	}
	return color(strconv.Itoa(n))
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

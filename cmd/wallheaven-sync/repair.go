package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wallheaven-sync/pkg/ui"
)

var refreshYes bool

var refreshCmd = &cobra.Command{
	Use:     "refresh [collection]",
	Aliases: []string{"prune"},
	Short:   "Make a collection's index and directory agree",
	Long: `Delete files in the collection directory that the index does not
reference, then drop index records whose file is gone.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRefresh,
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [collection]",
	Short: "Re-download wallpapers missing from a collection directory",
	Long: `Download again every indexed wallpaper whose file is missing on disk.
When the stored download location no longer works, the current one is looked
up on Wallhaven. Files already present are not touched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(rebuildCmd)
	refreshCmd.Flags().BoolVarP(&refreshYes, "yes", "y", false, "do not ask for confirmation")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg.Wallhaven.Username, true)
	if err != nil {
		return err
	}
	defer a.close()

	label, err := a.selectLocalCollection(argOrEmpty(args))
	if err != nil {
		return err
	}

	diff, err := a.engine.PlanPrune(label)
	if err != nil {
		return err
	}
	if diff.Consistent() {
		ui.PrintSuccess(fmt.Sprintf("Collection %s is consistent", label))
		return nil
	}

	for _, name := range diff.Orphans {
		fmt.Fprintf(ui.Stdout, "  %s %s\n", ui.Red("delete"), name)
	}
	for _, name := range diff.Missing {
		fmt.Fprintf(ui.Stdout, "  %s %s\n", ui.Yellow("forget"), name)
	}

	question := fmt.Sprintf("Delete %d files and forget %d records of %s?", len(diff.Orphans), len(diff.Missing), label)
	if err := a.confirm(question, refreshYes); err != nil {
		return err
	}

	result, err := a.engine.Prune(cmd.Context(), label)
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Deleted %d files, dropped %d records, %d remain",
		len(result.Deleted), len(result.Dropped), result.Kept))
	return nil
}

func runRebuild(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg.Wallhaven.Username, true)
	if err != nil {
		return err
	}
	defer a.close()

	label, err := a.selectLocalCollection(argOrEmpty(args))
	if err != nil {
		return err
	}

	result, err := a.engine.Rebuild(cmd.Context(), label)
	if err != nil {
		return err
	}
	if result.Missing == 0 {
		return nil
	}

	ui.PrintSuccess(fmt.Sprintf("Restored %d of %d missing files", result.Restored, result.Missing))
	if result.Failed > 0 {
		for _, failure := range result.Failures {
			ui.PrintError(failure.ID, failure.Err)
		}
		return fmt.Errorf("%d files could not be restored", result.Failed)
	}
	return nil
}

func argOrEmpty(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

package main

import (
	"github.com/spf13/cobra"

	"wallheaven-sync/pkg/storage"
	"wallheaven-sync/pkg/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the storage root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := storage.New(cfg.Storage.Root)
		if store.Exists() {
			ui.PrintInfo("Storage already exists", store.Root())
			return nil
		}
		if err := store.Init(); err != nil {
			return err
		}
		ui.PrintSuccess("Created " + store.Root())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"wallheaven-sync/pkg/auth"
	"wallheaven-sync/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Wallhaven API keys",
	Long: `Manage stored Wallhaven API keys.

Keys are stored in the system keychain when available, otherwise in an
encrypted file under the user configuration directory. An API key is only
needed for private collections.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store an API key for a user",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove a stored API key",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List stored API keys",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	prompter := ui.NewPrompter(stdin, ui.Stdout)

	auth.ShowAPIKeyGuide(ui.Stdout)
	fmt.Fprintln(ui.Stdout)

	username := argOrEmpty(args)
	if username == "" {
		username = cfg.Wallhaven.Username
	}
	if username == "" {
		if username, err = prompter.ReadLine("Wallhaven username: "); err != nil {
			return err
		}
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("a username is required")
	}

	key, err := prompter.ReadSecret("API key: ")
	if err != nil {
		return err
	}

	if err := manager.Store(&auth.Credential{Username: username, APIKey: key}); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Stored API key %s for %s", auth.MaskKey(key), username))
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	username := argOrEmpty(args)
	if username == "" {
		creds, err := manager.List()
		if err != nil {
			return err
		}
		if len(creds) == 0 {
			ui.PrintWarning("No stored API keys")
			return errBenign
		}
		names := make([]string, len(creds))
		for i, c := range creds {
			names[i] = c.Username
		}
		choice, err := ui.NewPrompter(stdin, ui.Stdout).SelectFromList("Stored keys:", names)
		if err != nil {
			return err
		}
		username = names[choice]
	}

	if err := manager.Delete(username); err != nil {
		return err
	}
	ui.PrintSuccess("Removed API key for " + username)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	creds, err := manager.List()
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		ui.PrintWarning("No stored API keys")
		fmt.Fprintln(ui.Stdout, "Run 'wallheaven-sync auth login' to add one.")
		return nil
	}

	rows := make([][]string, 0, len(creds))
	for _, c := range creds {
		updated := ""
		if !c.LastModified.IsZero() {
			updated = humanize.Time(c.LastModified)
		}
		rows = append(rows, []string{c.Username, auth.MaskKey(c.APIKey), updated})
	}
	fmt.Fprintln(ui.Stdout, ui.RenderTable([]string{"Username", "API key", "Updated"}, rows, nil))
	return nil
}

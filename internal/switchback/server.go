package switchback

import (
	"context"

	"github.com/evdal/switchback/internal/apiclient"
	"github.com/evdal/switchback/internal/config"
	"github.com/evdal/switchback/internal/ui"
	"github.com/spf13/cobra"
)

func ServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage switchback servers",
		Long:  "Add, remove, and manage connections to switchback servers",
	}

	cmd.AddCommand(ServerAddCmd())
	cmd.AddCommand(ServerRemoveCmd())
	cmd.AddCommand(ServerListCmd())

	return cmd
}

func ServerAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <url> <token>",
		Short: "Add a new switchback server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, token := normalizeServerURL(args[0]), args[1]

			// Verify the URL and token before persisting anything.
			api := apiclient.NewWithToken(url, token)
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultContextTimeout)
			defer cancel()
			if err := api.HealthCheck(ctx); err != nil {
				ui.Warn("Could not reach %s: %v", url, err)
				ui.Warn("Saving it anyway; check the URL and token if requests fail.")
			}

			path, err := config.ClientConfigPath()
			if err != nil {
				return err
			}
			clientConfig, err := config.LoadClientConfig(path)
			if err != nil {
				return err
			}
			if clientConfig == nil {
				clientConfig = &config.ClientConfig{}
			}

			clientConfig.AddServer(url, token)
			if err := clientConfig.Save(path); err != nil {
				return err
			}

			ui.Success("Added server %s", url)
			return nil
		},
	}
}

func ServerRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <url>",
		Aliases: []string{"rm"},
		Short:   "Remove a switchback server",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := normalizeServerURL(args[0])

			path, err := config.ClientConfigPath()
			if err != nil {
				return err
			}
			clientConfig, err := config.LoadClientConfig(path)
			if err != nil {
				return err
			}
			if clientConfig == nil {
				ui.Info("No servers configured.")
				return nil
			}

			if err := clientConfig.RemoveServer(url); err != nil {
				return err
			}
			if err := clientConfig.Save(path); err != nil {
				return err
			}

			ui.Success("Removed server %s", url)
			return nil
		},
	}
}

func ServerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured switchback servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientConfig, err := loadClientConfig()
			if err != nil {
				return err
			}
			if clientConfig == nil || len(clientConfig.Servers) == 0 {
				ui.Info("No servers configured. Use 'switchback server add <url> <token>' to add one.")
				return nil
			}

			ui.Section("Configured servers", clientConfig.ListServers())
			return nil
		},
	}
}

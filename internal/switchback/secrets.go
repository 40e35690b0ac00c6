package switchback

import (
	"context"
	"strings"
	"time"

	"github.com/evdal/switchback/internal/helpers"
	"github.com/evdal/switchback/internal/ui"
	"github.com/spf13/cobra"
)

// SecretsSetCmd encrypts a plain-text value and stores it under the provided name.
func SecretsSetCmd() *cobra.Command {
	var serverFlag string

	cmd := &cobra.Command{
		Use:     "set <name> <value>",
		Short:   "Encrypt a plain-text value and store it under <name>",
		Example: "  switchback secrets set MY_SECRET supersecretvalue\n  switchback secrets set DB_PASSWORD 'p@ssw0rd!'",
		Args:    cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			name := args[0]
			value := strings.Join(args[1:], " ")

			api, server, err := newClient(nil, serverFlag)
			if err != nil {
				ui.Error("%v", err)
				return
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultContextTimeout)
			defer cancel()

			if err := api.SetSecret(ctx, name, value); err != nil {
				ui.Error("Failed to set secret: %v", err)
				return
			}
			ui.Success("Secret '%s' set successfully on %s", name, server)
		},
	}
	cmd.Flags().StringVarP(&serverFlag, "server", "s", "", "Server URL")
	return cmd
}

// SecretsListCmd lists all stored secrets in a table. Values are never shown,
// only a digest of the ciphertext.
func SecretsListCmd() *cobra.Command {
	var serverFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all stored secrets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			api, server, err := newClient(nil, serverFlag)
			if err != nil {
				ui.Error("%v", err)
				return
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultContextTimeout)
			defer cancel()

			response, err := api.SecretsList(ctx)
			if err != nil {
				ui.Error("Failed to list secrets: %v", err)
				return
			}
			if len(response.Secrets) == 0 {
				ui.Info("No secrets found on %s.", server)
				return
			}

			ui.Info("Secrets stored on %s:", server)
			headers := []string{"NAME", "DIGEST", "UPDATED"}
			rows := make([][]string, 0, len(response.Secrets))
			for _, secret := range response.Secrets {
				updated := secret.UpdatedAt
				if parsed, err := time.Parse(time.RFC3339, secret.UpdatedAt); err == nil {
					updated = helpers.FormatRelativeTime(parsed)
				}
				rows = append(rows, []string{secret.Name, secret.DigestValue, updated})
			}
			ui.Table(headers, rows)
		},
	}
	cmd.Flags().StringVarP(&serverFlag, "server", "s", "", "Server URL")
	return cmd
}

func SecretsDeleteCmd() *cobra.Command {
	var serverFlag string

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a secret from the server",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			name := args[0]

			api, server, err := newClient(nil, serverFlag)
			if err != nil {
				ui.Error("%v", err)
				return
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultContextTimeout)
			defer cancel()

			if err := api.DeleteSecret(ctx, name); err != nil {
				ui.Error("Failed to delete secret: %v", err)
				return
			}
			ui.Success("Secret '%s' deleted successfully on %s", name, server)
		},
	}
	cmd.Flags().StringVarP(&serverFlag, "server", "s", "", "Server URL")
	return cmd
}

func SecretsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage encrypted secrets on the server",
	}
	cmd.AddCommand(SecretsSetCmd())
	cmd.AddCommand(SecretsListCmd())
	cmd.AddCommand(SecretsDeleteCmd())
	return cmd
}

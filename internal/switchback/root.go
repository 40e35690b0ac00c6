package switchback

import (
	"github.com/evdal/switchback/internal/config"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	resolvedConfigPath := "."

	cmd := &cobra.Command{
		Use:   "switchback",
		Short: "switchback deploys container artifacts, verifies their health and rolls back failures",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnvFiles() // load environment variables in .env for all commands.
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.AddCommand(
		DeployCmd(&resolvedConfigPath),
		StatusCmd(),
		RollbackCmd(),
		HistoryCmd(),
		LogsCmd(),
		SecretsCmd(),
		ValidateConfigCmd(&resolvedConfigPath),
		ServerCmd(),
		VersionCmd(),
		CompletionCmd(),
	)

	return cmd
}

package switchback

import (
	"context"

	"github.com/evdal/switchback/internal/config"
	"github.com/evdal/switchback/internal/ui"
	"github.com/spf13/cobra"
)

func DeployCmd(configPath *string) *cobra.Command {
	var serverFlag string
	var artifactFlag string
	var noLogsFlag bool

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a target",
		Long:  "Deploy a target using a switchback configuration file. The server probes the new artifact and rolls back automatically if it never turns healthy.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()

			spec, _, err := config.LoadTargetSpec(*configPath)
			if err != nil {
				ui.Error("%v", err)
				return
			}

			api, server, err := newClient(&spec, serverFlag)
			if err != nil {
				ui.Error("%v", err)
				return
			}

			reqCtx, cancel := context.WithTimeout(ctx, defaultContextTimeout)
			resp, err := api.Deploy(reqCtx, spec, artifactFlag)
			cancel()
			if err != nil {
				ui.Error("Deployment request failed: %v", err)
				return
			}

			ui.Info("Deployment %s started for %s on %s", resp.DeploymentID, resp.Target, server)

			if noLogsFlag {
				return
			}
			if err := api.StreamDeploymentLogs(ctx, resp.DeploymentID); err != nil {
				ui.Error("%v", err)
			}
		},
	}

	cmd.Flags().StringVarP(configPath, "config", "c", ".", "Path to config file or directory")
	cmd.Flags().StringVarP(&serverFlag, "server", "s", "", "Server URL (overrides config)")
	cmd.Flags().StringVar(&artifactFlag, "artifact", "", "Artifact to deploy (overrides the image in the config)")
	cmd.Flags().BoolVar(&noLogsFlag, "no-logs", false, "Don't stream deployment logs")

	return cmd
}

package switchback

import (
	"context"
	"fmt"

	"github.com/evdal/switchback/internal/apiclient"
	"github.com/evdal/switchback/internal/helpers"
	"github.com/evdal/switchback/internal/ui"
	"github.com/spf13/cobra"
)

func RollbackCmd() *cobra.Command {
	var serverFlag string
	var listFlag bool
	var noLogsFlag bool

	cmd := &cobra.Command{
		Use:   "rollback <target> [artifact]",
		Short: "Roll a target back to a previous artifact",
		Long:  "Roll a target back to a previous artifact. Without an artifact argument the previously promoted one is used. The rollback is probed like a regular deployment.",
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			target := args[0]

			api, _, err := newClient(nil, serverFlag)
			if err != nil {
				ui.Error("%v", err)
				return
			}

			if listFlag {
				listRollbackTargets(ctx, api, target)
				return
			}

			artifact := ""
			if len(args) == 2 {
				artifact = args[1]
			}

			reqCtx, cancel := context.WithTimeout(ctx, defaultContextTimeout)
			resp, err := api.Rollback(reqCtx, target, artifact)
			cancel()
			if err != nil {
				ui.Error("Rollback request failed: %v", err)
				return
			}

			ui.Info("Rollback %s started for %s, reverting to %s", resp.DeploymentID, resp.Target, resp.Artifact)

			if noLogsFlag {
				return
			}
			if err := api.StreamDeploymentLogs(ctx, resp.DeploymentID); err != nil {
				ui.Error("%v", err)
			}
		},
	}

	cmd.Flags().StringVarP(&serverFlag, "server", "s", "", "Server URL")
	cmd.Flags().BoolVarP(&listFlag, "list", "l", false, "List artifacts the target can roll back to")
	cmd.Flags().BoolVar(&noLogsFlag, "no-logs", false, "Don't stream rollback logs")

	return cmd
}

func listRollbackTargets(ctx context.Context, api *apiclient.APIClient, target string) {
	reqCtx, cancel := context.WithTimeout(ctx, defaultContextTimeout)
	defer cancel()

	resp, err := api.RollbackTargets(reqCtx, target)
	if err != nil {
		ui.Error("Failed to list rollback targets: %v", err)
		return
	}
	if len(resp.Targets) == 0 {
		ui.Info("No rollback targets for %s", target)
		return
	}

	lines := make([]string, 0, len(resp.Targets))
	for _, t := range resp.Targets {
		line := fmt.Sprintf("%s (deployed %s)", t.Artifact, helpers.FormatRelativeTime(t.CreatedAt))
		if t.IsCurrent {
			line += " [current]"
		}
		lines = append(lines, line)
	}
	ui.Section(fmt.Sprintf("Rollback targets for %s", target), lines)
}

package switchback

import (
	"context"
	"fmt"

	"github.com/evdal/switchback/internal/helpers"
	"github.com/evdal/switchback/internal/ui"
	"github.com/spf13/cobra"
)

func HistoryCmd() *cobra.Command {
	var serverFlag string
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "history <target>",
		Short: "Show deployment history for a target",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			target := args[0]

			api, _, err := newClient(nil, serverFlag)
			if err != nil {
				ui.Error("%v", err)
				return
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultContextTimeout)
			defer cancel()

			resp, err := api.History(ctx, target, limitFlag)
			if err != nil {
				ui.Error("Failed to fetch history: %v", err)
				return
			}
			if len(resp.Deployments) == 0 {
				ui.Info("No deployments recorded for %s", target)
				return
			}

			lines := make([]string, 0, len(resp.Deployments))
			for _, d := range resp.Deployments {
				line := fmt.Sprintf("%s  %s  %s  %s",
					d.ID, d.Artifact, displayState(string(d.State)), helpers.FormatRelativeTime(d.CreatedAt))
				if d.RolledBackFrom != "" {
					line += fmt.Sprintf(" (rolled back from %s)", d.RolledBackFrom)
				}
				lines = append(lines, line)
			}
			ui.Section(fmt.Sprintf("Deployment history for %s", target), lines)
		},
	}

	cmd.Flags().StringVarP(&serverFlag, "server", "s", "", "Server URL")
	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 0, "Maximum number of entries to show")

	return cmd
}

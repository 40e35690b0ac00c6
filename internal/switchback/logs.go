package switchback

import (
	"github.com/evdal/switchback/internal/ui"
	"github.com/spf13/cobra"
)

func LogsCmd() *cobra.Command {
	var serverFlag string
	var deploymentFlag string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Stream server logs",
		Long:  "Stream logs from the server. With --deployment only the logs for that deployment are streamed and the stream stops when it finishes.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			api, _, err := newClient(nil, serverFlag)
			if err != nil {
				ui.Error("%v", err)
				return
			}

			if deploymentFlag != "" {
				if err := api.StreamDeploymentLogs(cmd.Context(), deploymentFlag); err != nil {
					ui.Error("%v", err)
				}
				return
			}
			if err := api.StreamLogs(cmd.Context()); err != nil {
				ui.Error("%v", err)
			}
		},
	}

	cmd.Flags().StringVarP(&serverFlag, "server", "s", "", "Server URL")
	cmd.Flags().StringVarP(&deploymentFlag, "deployment", "d", "", "Stream logs for a single deployment ID")

	return cmd
}

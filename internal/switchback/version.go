package switchback

import (
	"context"
	"fmt"

	"github.com/evdal/switchback/internal/constants"
	"github.com/evdal/switchback/internal/ui"
	"github.com/spf13/cobra"
)

func VersionCmd() *cobra.Command {
	var serverFlag string
	var remoteFlag bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current version of switchback",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("switchback %s\n", constants.Version)

			if !remoteFlag && serverFlag == "" {
				return
			}

			api, server, err := newClient(nil, serverFlag)
			if err != nil {
				ui.Error("%v", err)
				return
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultContextTimeout)
			defer cancel()

			resp, err := api.Version(ctx)
			if err != nil {
				ui.Error("Failed to get server version from %s: %v", server, err)
				return
			}
			fmt.Printf("switchbackd %s (%s)\n", resp.Version, server)
		},
	}

	cmd.Flags().StringVarP(&serverFlag, "server", "s", "", "Server URL")
	cmd.Flags().BoolVar(&remoteFlag, "remote", false, "Also print the server version")

	return cmd
}

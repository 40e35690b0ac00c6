package switchback

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/evdal/switchback/internal/apitypes"
	"github.com/evdal/switchback/internal/helpers"
	"github.com/evdal/switchback/internal/ui"
	"github.com/spf13/cobra"
)

func StatusCmd() *cobra.Command {
	var serverFlag string

	cmd := &cobra.Command{
		Use:   "status [target]",
		Short: "Show status for one target or all targets",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			api, _, err := newClient(nil, serverFlag)
			if err != nil {
				ui.Error("%v", err)
				return
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultContextTimeout)
			defer cancel()

			if len(args) == 1 {
				status, err := api.Status(ctx, args[0])
				if err != nil {
					ui.Error("Failed to get status: %v", err)
					return
				}
				printStatus(*status)
				return
			}

			list, err := api.StatusList(ctx)
			if err != nil {
				ui.Error("Failed to get status: %v", err)
				return
			}
			if len(list.Targets) == 0 {
				ui.Info("No targets deployed yet")
				return
			}
			for _, status := range list.Targets {
				printStatus(status)
			}
		},
	}

	cmd.Flags().StringVarP(&serverFlag, "server", "s", "", "Server URL")
	return cmd
}

func printStatus(status apitypes.StatusResponse) {
	running := lipgloss.NewStyle().Foreground(ui.Red).Render("not running")
	if status.Running {
		running = lipgloss.NewStyle().Foreground(ui.Green).Render("running")
	}

	lines := []string{
		fmt.Sprintf("State: %s", displayState(status.State)),
		fmt.Sprintf("Current artifact: %s (%s)", status.CurrentArtifact, running),
	}
	if status.PreviousArtifact != "" {
		lines = append(lines, fmt.Sprintf("Previous artifact: %s", status.PreviousArtifact))
	}
	lines = append(lines, fmt.Sprintf("Last transition: %s", helpers.FormatRelativeTime(status.LastTransition)))

	ui.Section(fmt.Sprintf("Status for %s", status.Target), lines)
}

func displayState(state string) string {
	switch strings.ToLower(state) {
	case "stable", "promoted":
		return lipgloss.NewStyle().Foreground(ui.Green).Render(state)
	case "deploying", "probing":
		return lipgloss.NewStyle().Foreground(ui.Blue).Render(state)
	case "rolling_back":
		return lipgloss.NewStyle().Foreground(ui.Amber).Render(state)
	case "failed":
		return lipgloss.NewStyle().Foreground(ui.Red).Render(state)
	default:
		return lipgloss.NewStyle().Foreground(ui.LightGray).Italic(true).Render(state)
	}
}

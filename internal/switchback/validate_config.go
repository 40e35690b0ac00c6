package switchback

import (
	"path/filepath"

	"github.com/evdal/switchback/internal/config"
	"github.com/evdal/switchback/internal/ui"
	"github.com/spf13/cobra"
)

func ValidateConfigCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Validate a switchback config file",
		Long:  "Validate a switchback target configuration file.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			// Just load the file to validate it.
			_, _, err := config.LoadTargetSpec(*configPath)
			if err != nil {
				ui.Error("Config validation failed: %v", err)
				return
			}

			fileName := filepath.Base(filepath.Clean(*configPath))

			ui.Success("Config file '%s' is valid!", fileName)
		},
	}

	return cmd
}

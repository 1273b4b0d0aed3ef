package cmd

import (
	"github.com/spf13/cobra"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/bootstrap"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the reporting API and run scheduled routines",
		Long: `Starts the reporting API (tasks, logs, clean rows, metrics) and runs the
links, info and clean routines on the cron schedules from the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.Serve(cmd.Context(), cfgFile)
		},
	}
}

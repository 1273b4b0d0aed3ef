package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/bootstrap"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/cleaner"
)

func newCleanCommand() *cobra.Command {
	var opts cleaner.RunOptions

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the raw rows of the newest completed scrape task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := bootstrap.SignalContext(cmd.Context())
			defer stop()

			app, err := bootstrap.Open(ctx, cfgFile)
			if err != nil {
				return err
			}
			defer app.Close()

			summary, err := app.Services.Clean(ctx, opts)
			if err != nil {
				return fmt.Errorf("clean: %w", err)
			}
			renderSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.TaskName, "task", "", "source task name (default from config)")
	cmd.Flags().StringVar(&opts.ProcessorVersion, "version", "", "processor version tag (default from config)")
	cmd.Flags().BoolVar(&opts.Reprocess, "reprocess", false, "clean rows already processed with this version again")
	return cmd
}

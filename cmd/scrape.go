package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/bootstrap"
)

func newScrapeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run a scrape routine",
	}
	cmd.AddCommand(newScrapeLinksCommand())
	cmd.AddCommand(newScrapeInfoCommand())
	return cmd
}

func newScrapeLinksCommand() *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "links",
		Short: "Scrape board game links from the ranked browse pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := bootstrap.SignalContext(cmd.Context())
			defer stop()

			app, err := bootstrap.Open(ctx, cfgFile)
			if err != nil {
				return err
			}
			defer app.Close()

			taskID, err := app.Services.ScrapeLinks(ctx, pages)
			if err != nil {
				return fmt.Errorf("scrape links (task %d): %w", taskID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Links scrape completed as task %d\n", taskID)
			return nil
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 0, "number of browse pages to scrape (default from config)")
	return cmd
}

func newScrapeInfoCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Scrape detail pages of known board games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := bootstrap.SignalContext(cmd.Context())
			defer stop()

			app, err := bootstrap.Open(ctx, cfgFile)
			if err != nil {
				return err
			}
			defer app.Close()

			taskID, err := app.Services.ScrapeInfo(ctx, limit)
			if err != nil {
				return fmt.Errorf("scrape info (task %d): %w", taskID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Info scrape completed as task %d\n", taskID)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of board games to visit (default from config)")
	return cmd
}

// Package cmd implements the command-line interface of the BoardGameGeek pipeline.
package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// rootCmd represents the root command of the CLI.
	rootCmd = &cobra.Command{
		Use:   "bgg",
		Short: "BoardGameGeek scrape and clean pipeline",
		Long: `Scrapes BoardGameGeek into raw rows, cleans them into versioned rows
and tracks every run as a task with an append-only log.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is $CONFIG_PATH or ./config.yml)",
	)

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newScrapeCommand())
	rootCmd.AddCommand(newCleanCommand())
	rootCmd.AddCommand(newTasksCommand())
	rootCmd.AddCommand(newMigrateCommand())
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/bootstrap"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/database"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{database.MigrateUp, database.MigrateDown},
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := bootstrap.NewCommandDeps(cfgFile)
			if err != nil {
				return err
			}

			direction := args[0]
			deps.Logger.Info("Running migrations", logger.String("direction", direction))
			if err = database.Migrate(deps.Config.Database.URL(), direction); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Migrations %s completed\n", direction)
			return nil
		},
	}
}

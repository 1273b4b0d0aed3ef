package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/bootstrap"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/database"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
)

const defaultTaskListLimit = 50

func newTasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect tracked tasks",
	}
	cmd.AddCommand(newTasksListCommand())
	cmd.AddCommand(newTasksLogsCommand())
	return cmd
}

func newTasksListCommand() *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := domain.TaskStatusNone
			if status != "" {
				parsed, err := domain.ParseTaskStatus(status)
				if err != nil {
					return err
				}
				filter = parsed
			}

			app, err := bootstrap.Open(cmd.Context(), cfgFile)
			if err != nil {
				return err
			}
			defer app.Close()

			tasks, err := app.Services.Ledger.Tasks(cmd.Context(), filter, limit)
			if err != nil {
				return fmt.Errorf("failed to list tasks: %w", err)
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks found")
				return nil
			}

			renderTasks(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only tasks with this status (pending, running, completed, failed)")
	cmd.Flags().IntVar(&limit, "limit", defaultTaskListLimit, "maximum number of tasks")
	return cmd
}

func newTasksLogsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs <task-id>",
		Short: "Show the newest log lines of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || taskID <= 0 {
				return fmt.Errorf("invalid task id %q", args[0])
			}

			app, err := bootstrap.Open(cmd.Context(), cfgFile)
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err = app.Services.Ledger.Task(cmd.Context(), taskID); err != nil {
				return fmt.Errorf("task %d: %w", taskID, err)
			}

			lines, err := app.Services.Ledger.RecentLogs(cmd.Context(), taskID, limit)
			if err != nil {
				return fmt.Errorf("failed to read logs: %w", err)
			}

			renderLogLines(cmd.OutOrStdout(), lines)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", database.DefaultRecentLogLimit, "maximum number of lines")
	return cmd
}

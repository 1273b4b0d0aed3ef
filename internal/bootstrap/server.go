package bootstrap

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/api"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/cleaner"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/scheduler"
)

// SetupHTTPServer creates the reporting API server.
func SetupHTTPServer(deps *CommandDeps, db *DatabaseComponents, services *ServiceComponents) *api.Server {
	if deps.Config.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log := deps.Logger.With(logger.String("component", "api"))
	router := api.SetupRouter(
		log,
		api.NewTasksHandler(services.Ledger, log),
		api.NewCleanHandler(db.Clean, log),
		services.Registry,
	)

	return api.NewServer(deps.Config.Server, router, log)
}

// SetupScheduler registers the configured cron jobs. Jobs without a schedule are skipped.
func SetupScheduler(deps *CommandDeps, services *ServiceComponents) (*scheduler.Scheduler, error) {
	cfg := deps.Config.Scheduler
	s := scheduler.New(deps.Logger.With(logger.String("component", "scheduler")))

	jobs := []scheduler.Job{
		{
			Name:     "links",
			Schedule: cfg.LinksCron,
			Run: func(ctx context.Context) error {
				_, err := services.ScrapeLinks(ctx, 0)
				return err
			},
		},
		{
			Name:     "info",
			Schedule: cfg.InfoCron,
			Run: func(ctx context.Context) error {
				_, err := services.ScrapeInfo(ctx, 0)
				return err
			},
		},
		{
			Name:     "clean",
			Schedule: cfg.CleanCron,
			Run: func(ctx context.Context) error {
				_, err := services.Clean(ctx, cleaner.RunOptions{})
				return err
			},
		},
	}

	for _, job := range jobs {
		if err := s.Add(job); err != nil {
			return nil, err
		}
	}
	return s, nil
}

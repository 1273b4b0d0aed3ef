package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/api"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/scheduler"
)

// === Constants ===

const defaultShutdownTimeout = 30 * time.Second

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// RunUntilInterrupt serves the API and runs the scheduler until ctx is
// cancelled or the server fails, then shuts both down.
func RunUntilInterrupt(ctx context.Context, log logger.Logger, server *api.Server, sched *scheduler.Scheduler) error {
	sched.Start(ctx)

	err := server.Run(ctx, defaultShutdownTimeout)
	if err != nil {
		log.Error("Server error", logger.Error(err))
	} else {
		log.Info("Shutdown signal received")
	}

	Shutdown(log, sched)
	return err
}

// Shutdown stops the scheduler, waiting for running jobs up to the shutdown timeout.
func Shutdown(log logger.Logger, sched *scheduler.Scheduler) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	log.Info("Stopping scheduler")
	sched.Stop(shutdownCtx)

	log.Info("Graceful shutdown completed")
}

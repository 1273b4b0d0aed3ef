// Package bootstrap handles application initialization and lifecycle management
// for the pipeline commands.
//
// The bootstrap process follows these phases:
//   - Phase 1: Config & Logger - Load configuration and create logger
//   - Phase 2: Database - Connect to PostgreSQL and create repositories
//   - Phase 3: Services - Create metrics, ledger, cleaner, browser and scrapers
//   - Phase 4: Server - Create the reporting API and the cron scheduler (serve only)
//   - Phase 5: Run - Wait for interrupt signal or error
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
)

// App bundles the components a command runs against.
type App struct {
	Deps     *CommandDeps
	DB       *DatabaseComponents
	Services *ServiceComponents
}

// Open runs phases 1 to 3. Callers must Close the returned App.
func Open(ctx context.Context, configPath string) (*App, error) {
	// Phase 1: Initialize config and logger
	deps, err := NewCommandDeps(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	// Phase 2: Setup database (PostgreSQL) and repositories
	db, err := SetupDatabase(ctx, deps.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	// Phase 3: Setup services
	services := SetupServices(deps, db)

	return &App{Deps: deps, DB: db, Services: services}, nil
}

// Close releases the browser, the database and flushes the logger.
func (a *App) Close() {
	a.Services.Close()
	if err := a.DB.Close(); err != nil {
		a.Deps.Logger.Warn("Failed to close database", logger.Error(err))
	}
	if err := a.Deps.Logger.Sync(); err != nil && !isSyncNoise(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to sync logger: %v\n", err)
	}
}

// Serve runs the reporting API and the scheduled routines until interrupted.
func Serve(ctx context.Context, configPath string) error {
	ctx, stop := SignalContext(ctx)
	defer stop()

	app, err := Open(ctx, configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	// Phase 4: Setup HTTP server and scheduler
	server := SetupHTTPServer(app.Deps, app.DB, app.Services)
	sched, err := SetupScheduler(app.Deps, app.Services)
	if err != nil {
		return fmt.Errorf("failed to setup scheduler: %w", err)
	}

	// Phase 5: Run until interrupted
	return RunUntilInterrupt(ctx, app.Deps.Logger, server, sched)
}

// isSyncNoise reports the errors zap returns when syncing a terminal.
func isSyncNoise(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EBADF)
}

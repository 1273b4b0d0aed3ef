package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/config"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/database"
)

// DatabaseComponents holds the connection and every repository built on it.
type DatabaseComponents struct {
	DB         *sqlx.DB
	Tasks      *database.TaskRepository
	Logs       *database.LogRepository
	Raw        *database.RawDataRepository
	Clean      *database.CleanDataRepository
	BoardGames *database.BoardGameRepository
}

// SetupDatabase connects to PostgreSQL and creates the repositories.
func SetupDatabase(ctx context.Context, cfg config.DatabaseConfig) (*DatabaseComponents, error) {
	db, err := database.NewPostgresConnection(ctx, databaseConfigFromConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return setupRepositories(db), nil
}

// Close releases the connection pool.
func (c *DatabaseComponents) Close() error {
	return c.DB.Close()
}

func databaseConfigFromConfig(cfg config.DatabaseConfig) database.Config {
	return database.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		DBName:   cfg.DBName,
		SSLMode:  cfg.SSLMode,
	}
}

func setupRepositories(db *sqlx.DB) *DatabaseComponents {
	return &DatabaseComponents{
		DB:         db,
		Tasks:      database.NewTaskRepository(db),
		Logs:       database.NewLogRepository(db),
		Raw:        database.NewRawDataRepository(db),
		Clean:      database.NewCleanDataRepository(db),
		BoardGames: database.NewBoardGameRepository(db),
	}
}

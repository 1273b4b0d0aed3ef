package bootstrap

import (
	"errors"
	"fmt"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/config"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
)

// === Errors ===

var (
	// errLoggerRequired is returned when CommandDeps.Logger is nil.
	errLoggerRequired = errors.New("logger is required")
	// errConfigRequired is returned when CommandDeps.Config is nil.
	errConfigRequired = errors.New("config is required")
	// errMissingCredentials is returned by scrape commands run without BGG_USERNAME/BGG_PASSWORD.
	errMissingCredentials = errors.New("BGG_USERNAME and BGG_PASSWORD must be set")
)

// DefaultConfigPath is used when neither --config nor CONFIG_PATH is given.
const DefaultConfigPath = "config.yml"

// serviceName is attached to every log entry.
const serviceName = "bgg-pipeline"

// === Types ===

// CommandDeps holds the dependencies every command needs.
type CommandDeps struct {
	Logger logger.Logger
	Config *config.Config
}

// === Config Loading ===

// NewCommandDeps loads the config at path and creates the logger.
// An empty path falls back to CONFIG_PATH, then DefaultConfigPath.
func NewCommandDeps(path string) (*CommandDeps, error) {
	if path == "" {
		path = config.GetConfigPath(DefaultConfigPath)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	log = log.With(logger.String("service", serviceName))

	deps := &CommandDeps{
		Logger: log,
		Config: cfg,
	}

	if validateErr := deps.Validate(); validateErr != nil {
		return nil, fmt.Errorf("validate deps: %w", validateErr)
	}

	return deps, nil
}

// Validate ensures all required dependencies are set.
func (d *CommandDeps) Validate() error {
	if d.Logger == nil {
		return errLoggerRequired
	}
	if d.Config == nil {
		return errConfigRequired
	}
	return nil
}

// requireCredentials fails fast before a browser is launched for nothing.
func requireCredentials(cfg config.ScraperConfig) error {
	if cfg.Username == "" || cfg.Password == "" {
		return errMissingCredentials
	}
	return nil
}

// Package config loads pipeline configuration from YAML with environment
// overrides. Environment variables are declared with `env` struct tags and
// .env files are honoured (ENV_FILE, .env.local, .env).
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
)

// Defaults.
const (
	defaultDBHost    = "localhost"
	defaultDBPort    = "5432"
	defaultDBUser    = "postgres"
	defaultDBName    = "bgg_analysis_dev"
	defaultDBSSLMode = "disable"

	defaultServerAddress      = ":8080"
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 30 * time.Second

	defaultOperationTimeout  = 5 * time.Second
	defaultNavigationTimeout = 15 * time.Second

	defaultBaseURL            = "https://boardgamegeek.com"
	defaultNavigationAttempts = 3
	defaultBackoffMin         = 500 * time.Millisecond
	defaultBackoffMax         = 1500 * time.Millisecond
	defaultPageDelayMin       = 4 * time.Second
	defaultPageDelayMax       = 5 * time.Second
	defaultLinksPages         = 10
	defaultInfoLimit          = 20

	// DefaultProcessorVersion tags clean rows produced by the current parsing rules.
	DefaultProcessorVersion = "1.0"
	defaultCleanTaskName    = "scrape_boardgames_info"
)

var (
	errMissingDBName       = errors.New("database name is required")
	errMissingBaseURL      = errors.New("scraper base_url is required")
	errInvalidAttempts     = errors.New("scraper navigation_attempts must be at least 1")
	errInvalidBackoffRange = errors.New("scraper backoff_min must not exceed backoff_max")
	errMissingVersion      = errors.New("cleaner processor_version is required")
)

// Config is the root application configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Logging   logger.Config   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Cleaner   CleanerConfig   `yaml:"cleaner"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `env:"DB_HOST"     yaml:"host"`
	Port     string `env:"DB_PORT"     yaml:"port"`
	User     string `env:"DB_USER"     yaml:"user"`
	Password string `env:"DB_PASSWORD" yaml:"password"`
	DBName   string `env:"DB_NAME"     yaml:"dbname"`
	SSLMode  string `env:"DB_SSLMODE"  yaml:"sslmode"`
}

// URL returns the postgres:// form used by the migrator.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// ServerConfig holds the reporting API settings.
type ServerConfig struct {
	Address      string        `env:"SERVER_ADDRESS"       yaml:"address"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT"  yaml:"read_timeout"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" yaml:"write_timeout"`
	Debug        bool          `env:"SERVER_DEBUG"         yaml:"debug"`
}

// BrowserConfig configures the headless browser.
type BrowserConfig struct {
	// RemoteURL is the DevTools websocket of an external Chrome. Empty launches one locally.
	RemoteURL         string        `env:"BROWSER_REMOTE_URL"         yaml:"remote_url"`
	Headful           bool          `env:"BROWSER_HEADFUL"            yaml:"headful"`
	DisableStealth    bool          `env:"BROWSER_DISABLE_STEALTH"    yaml:"disable_stealth"`
	BlockImages       bool          `env:"BROWSER_BLOCK_IMAGES"       yaml:"block_images"`
	OperationTimeout  time.Duration `env:"BROWSER_OPERATION_TIMEOUT"  yaml:"operation_timeout"`
	NavigationTimeout time.Duration `env:"BROWSER_NAVIGATION_TIMEOUT" yaml:"navigation_timeout"`
}

// ScraperConfig configures the scrape session.
type ScraperConfig struct {
	BaseURL            string        `env:"SCRAPER_BASE_URL"            yaml:"base_url"`
	Username           string        `env:"BGG_USERNAME"                yaml:"username"`
	Password           string        `env:"BGG_PASSWORD"                yaml:"-"`
	NavigationAttempts int           `env:"SCRAPER_NAVIGATION_ATTEMPTS" yaml:"navigation_attempts"`
	BackoffMin         time.Duration `env:"SCRAPER_BACKOFF_MIN"         yaml:"backoff_min"`
	BackoffMax         time.Duration `env:"SCRAPER_BACKOFF_MAX"         yaml:"backoff_max"`
	PageDelayMin       time.Duration `env:"SCRAPER_PAGE_DELAY_MIN"      yaml:"page_delay_min"`
	PageDelayMax       time.Duration `env:"SCRAPER_PAGE_DELAY_MAX"      yaml:"page_delay_max"`
	LinksPages         int           `env:"SCRAPER_LINKS_PAGES"         yaml:"links_pages"`
	InfoLimit          int           `env:"SCRAPER_INFO_LIMIT"          yaml:"info_limit"`
}

// CleanerConfig configures the raw→clean transformer.
type CleanerConfig struct {
	ProcessorVersion string `env:"CLEANER_PROCESSOR_VERSION" yaml:"processor_version"`
	TaskName         string `env:"CLEANER_TASK_NAME"         yaml:"task_name"`
	Reprocess        bool   `env:"CLEANER_REPROCESS"         yaml:"reprocess"`
}

// SchedulerConfig holds cron expressions for `serve`. Empty expressions are not scheduled.
type SchedulerConfig struct {
	LinksCron string `env:"SCHEDULE_LINKS" yaml:"links"`
	InfoCron  string `env:"SCHEDULE_INFO"  yaml:"info"`
	CleanCron string `env:"SCHEDULE_CLEAN" yaml:"clean"`
}

// Load reads the configuration at path and applies defaults.
func Load(path string) (*Config, error) {
	return LoadWithDefaults[Config](path, setDefaults)
}

// Validate checks the sections every command relies on.
func (c *Config) Validate() error {
	if c.Database.DBName == "" {
		return fmt.Errorf("database: %w", errMissingDBName)
	}
	if c.Scraper.BaseURL == "" {
		return fmt.Errorf("scraper: %w", errMissingBaseURL)
	}
	if c.Scraper.NavigationAttempts < 1 {
		return fmt.Errorf("scraper: %w", errInvalidAttempts)
	}
	if c.Scraper.BackoffMin > c.Scraper.BackoffMax {
		return fmt.Errorf("scraper: %w", errInvalidBackoffRange)
	}
	if c.Cleaner.ProcessorVersion == "" {
		return fmt.Errorf("cleaner: %w", errMissingVersion)
	}
	return nil
}

func setDefaults(cfg *Config) {
	setDatabaseDefaults(&cfg.Database)

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = logger.DefaultLevel
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultServerAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultServerWriteTimeout
	}

	if cfg.Browser.OperationTimeout == 0 {
		cfg.Browser.OperationTimeout = defaultOperationTimeout
	}
	if cfg.Browser.NavigationTimeout == 0 {
		cfg.Browser.NavigationTimeout = defaultNavigationTimeout
	}

	setScraperDefaults(&cfg.Scraper)

	if cfg.Cleaner.ProcessorVersion == "" {
		cfg.Cleaner.ProcessorVersion = DefaultProcessorVersion
	}
	if cfg.Cleaner.TaskName == "" {
		cfg.Cleaner.TaskName = defaultCleanTaskName
	}
}

func setDatabaseDefaults(db *DatabaseConfig) {
	if db.Host == "" {
		db.Host = defaultDBHost
	}
	if db.Port == "" {
		db.Port = defaultDBPort
	}
	if db.User == "" {
		db.User = defaultDBUser
	}
	if db.DBName == "" {
		db.DBName = defaultDBName
	}
	if db.SSLMode == "" {
		db.SSLMode = defaultDBSSLMode
	}
}

func setScraperDefaults(s *ScraperConfig) {
	if s.BaseURL == "" {
		s.BaseURL = defaultBaseURL
	}
	if s.NavigationAttempts == 0 {
		s.NavigationAttempts = defaultNavigationAttempts
	}
	if s.BackoffMin == 0 {
		s.BackoffMin = defaultBackoffMin
	}
	if s.BackoffMax == 0 {
		s.BackoffMax = defaultBackoffMax
	}
	if s.PageDelayMin == 0 {
		s.PageDelayMin = defaultPageDelayMin
	}
	if s.PageDelayMax == 0 {
		s.PageDelayMax = defaultPageDelayMax
	}
	if s.LinksPages == 0 {
		s.LinksPages = defaultLinksPages
	}
	if s.InfoLimit == 0 {
		s.InfoLimit = defaultInfoLimit
	}
}

package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/config"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func testDeps(t *testing.T, cfg *config.Config) (*CommandDeps, *DatabaseComponents) {
	t.Helper()
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	deps := &CommandDeps{Logger: logger.NewNop(), Config: cfg}
	return deps, setupRepositories(sqlx.NewDb(mockDB, "postgres"))
}

func TestNewCommandDeps(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("BGG_USERNAME", "alice")
	t.Setenv("BGG_PASSWORD", "secret")

	path := writeConfig(t, `
database:
  dbname: bgg_test
scraper:
  links_pages: 3
scheduler:
  clean: "@daily"
`)

	deps, err := NewCommandDeps(path)
	require.NoError(t, err)

	assert.Equal(t, "bgg_test", deps.Config.Database.DBName)
	assert.Equal(t, 3, deps.Config.Scraper.LinksPages)
	assert.Equal(t, "alice", deps.Config.Scraper.Username)
	assert.Equal(t, "secret", deps.Config.Scraper.Password)
	assert.Equal(t, "@daily", deps.Config.Scheduler.CleanCron)
	assert.NotNil(t, deps.Logger)
}

func TestNewCommandDeps_UsesConfigPathEnv(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("CONFIG_PATH", writeConfig(t, "database:\n  dbname: from_env_path\n"))

	deps, err := NewCommandDeps("")
	require.NoError(t, err)
	assert.Equal(t, "from_env_path", deps.Config.Database.DBName)
}

func TestNewCommandDeps_InvalidConfig(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	path := writeConfig(t, "scraper:\n  backoff_min: 5s\n  backoff_max: 1s\n")

	_, err := NewCommandDeps(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestCommandDeps_Validate(t *testing.T) {
	assert.ErrorIs(t, (&CommandDeps{Config: &config.Config{}}).Validate(), errLoggerRequired)
	assert.ErrorIs(t, (&CommandDeps{Logger: logger.NewNop()}).Validate(), errConfigRequired)
	assert.NoError(t, (&CommandDeps{Logger: logger.NewNop(), Config: &config.Config{}}).Validate())
}

func TestScrape_RequiresCredentials(t *testing.T) {
	deps, db := testDeps(t, &config.Config{})
	services := SetupServices(deps, db)

	_, err := services.ScrapeLinks(context.Background(), 1)
	require.ErrorIs(t, err, errMissingCredentials)

	_, err = services.ScrapeInfo(context.Background(), 1)
	require.ErrorIs(t, err, errMissingCredentials)
}

func TestSetupScheduler(t *testing.T) {
	cfg := &config.Config{Scheduler: config.SchedulerConfig{
		LinksCron: "0 3 * * 1",
		CleanCron: "@daily",
	}}
	deps, db := testDeps(t, cfg)

	sched, err := SetupScheduler(deps, SetupServices(deps, db))
	require.NoError(t, err)

	names := make([]string, 0)
	for _, entry := range sched.Entries() {
		names = append(names, entry.Name)
	}
	assert.ElementsMatch(t, []string{"links", "clean"}, names)
}

func TestSetupScheduler_InvalidCron(t *testing.T) {
	deps, db := testDeps(t, &config.Config{Scheduler: config.SchedulerConfig{InfoCron: "not a cron"}})

	_, err := SetupScheduler(deps, SetupServices(deps, db))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "info")
}

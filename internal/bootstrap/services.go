package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/browser"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/cleaner"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/ledger"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/metrics"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/scraper"
)

// ServiceComponents holds the pipeline services.
type ServiceComponents struct {
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Ledger   *ledger.Ledger
	Cleaner  *cleaner.Cleaner
	Browser  *browser.Manager
	Links    *scraper.LinksScraper
	Info     *scraper.InfoScraper

	deps *CommandDeps
}

// SetupServices wires the ledger, cleaner and scrapers. The browser is not
// started until a scrape actually runs.
func SetupServices(deps *CommandDeps, db *DatabaseComponents) *ServiceComponents {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	l := ledger.New(db.Tasks, db.Logs, deps.Logger, m)
	manager := browser.NewManager(deps.Config.Browser, deps.Logger.With(logger.String("component", "browser")))

	scrapeDeps := scraper.Deps{
		Browser:    manager,
		Ledger:     l,
		BoardGames: db.BoardGames,
		Raw:        db.Raw,
		Metrics:    m,
		Config:     deps.Config.Scraper,
		Credentials: scraper.Credentials{
			Username: deps.Config.Scraper.Username,
			Password: deps.Config.Scraper.Password,
		},
	}

	return &ServiceComponents{
		Registry: registry,
		Metrics:  m,
		Ledger:   l,
		Cleaner:  cleaner.New(db.DB, l, db.Raw, db.Clean, m),
		Browser:  manager,
		Links:    scraper.NewLinksScraper(scrapeDeps),
		Info:     scraper.NewInfoScraper(scrapeDeps),
		deps:     deps,
	}
}

// ScrapeLinks runs the links routine over pages browse pages.
func (s *ServiceComponents) ScrapeLinks(ctx context.Context, pages int) (int64, error) {
	if err := s.startBrowser(ctx); err != nil {
		return 0, err
	}
	return s.Links.Run(ctx, pages)
}

// ScrapeInfo runs the info routine over at most limit board games.
func (s *ServiceComponents) ScrapeInfo(ctx context.Context, limit int) (int64, error) {
	if err := s.startBrowser(ctx); err != nil {
		return 0, err
	}
	return s.Info.Run(ctx, limit)
}

// Clean runs the cleaner with the configured defaults overridden by opts.
func (s *ServiceComponents) Clean(ctx context.Context, opts cleaner.RunOptions) (cleaner.Summary, error) {
	cfg := s.deps.Config.Cleaner
	if opts.TaskName == "" {
		opts.TaskName = cfg.TaskName
	}
	if opts.ProcessorVersion == "" {
		opts.ProcessorVersion = cfg.ProcessorVersion
	}
	opts.Reprocess = opts.Reprocess || cfg.Reprocess

	summary, err := s.Cleaner.Run(ctx, opts)
	if err != nil {
		return summary, err
	}

	s.deps.Logger.Info("Clean run finished",
		logger.String("source_task", opts.TaskName),
		logger.Int64("source_task_id", summary.SourceTaskID),
		logger.Int("cleaned", summary.Cleaned),
		logger.Int("failed", summary.Failed),
		logger.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

// Close shuts the browser down if it was started.
func (s *ServiceComponents) Close() {
	if err := s.Browser.Close(); err != nil {
		s.deps.Logger.Warn("Failed to close browser", logger.Error(err))
	}
}

func (s *ServiceComponents) startBrowser(ctx context.Context) error {
	if err := requireCredentials(s.deps.Config.Scraper); err != nil {
		return err
	}
	if err := s.Browser.Start(ctx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	return nil
}

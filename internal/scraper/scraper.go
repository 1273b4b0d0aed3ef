package scraper

import (
	"context"
	"fmt"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/browser"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/config"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/ledger"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/metrics"
)

// Ledger task names of the scrape routines.
const (
	LinksTaskName = "scrape_boardgames_links"
	InfoTaskName  = "scrape_boardgames_info"
)

// PageOpener opens browser pages. *browser.Manager implements it.
type PageOpener interface {
	NewPage(ctx context.Context) (browser.Page, error)
}

// BoardGameStore persists discovered board games.
type BoardGameStore interface {
	BulkUpsert(ctx context.Context, games []*domain.BoardGame) error
	List(ctx context.Context, offset, limit int) ([]*domain.BoardGame, error)
}

// RawStore appends raw rows.
type RawStore interface {
	Create(ctx context.Context, raw *domain.RawData) error
}

// Deps are shared by the scrape routines.
type Deps struct {
	Browser     PageOpener
	Ledger      *ledger.Ledger
	BoardGames  BoardGameStore
	Raw         RawStore
	Metrics     *metrics.Metrics
	Config      config.ScraperConfig
	Credentials Credentials
	// SessionOptions are applied to every session a routine opens.
	SessionOptions []SessionOption
}

// openSession opens a page, logs in and returns the ready session with a close func.
func (d Deps) openSession(ctx context.Context, task *ledger.TaskLogger) (*Session, func(), error) {
	page, err := d.Browser.NewPage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open page: %w", err)
	}
	closePage := func() {
		if closeErr := page.Close(); closeErr != nil {
			task.Logger().Warn("Failed to close page", logger.Error(closeErr))
		}
	}

	session := NewSession(page, d.Config, task.Logger(), d.Metrics, d.SessionOptions...)
	if err = session.Login(ctx, d.Credentials); err != nil {
		closePage()
		return nil, nil, err
	}
	if err = task.Log(ctx, "Login successful"); err != nil {
		closePage()
		return nil, nil, err
	}

	return session, closePage, nil
}

// stageRaw appends one raw row produced by task.
func (d Deps) stageRaw(ctx context.Context, task *ledger.TaskLogger, table string, sourceID int64, payload domain.JSONBMap) error {
	taskID := task.TaskID()
	raw := &domain.RawData{
		SourceTable:  table,
		SourceID:     &sourceID,
		ScrapeTaskID: &taskID,
		Payload:      payload,
	}
	if err := d.Raw.Create(ctx, raw); err != nil {
		return err
	}
	d.Metrics.RawRow(table)
	return nil
}

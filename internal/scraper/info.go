package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/browser"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/ledger"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/parser"
)

// ErrNoBoardGames is returned when the info scrape finds nothing to visit.
var ErrNoBoardGames = errors.New("no boardgames found in database, aborting scrape")

var (
	playerCounts   = browser.CSS(`li[itemprop="numberOfPlayers"]`)
	gameYear       = browser.CSS("span.game-year")
	versionSizes   = browser.CSS(`span[ng-if="ldata.displaytype==='dimensions'"]`)
	storeListings  = browser.CSS("ul.shopping-listings > li.item-listing a[href] span.item-listing__btn-text")
	creditsOutline = "credits-module ul > li.outline-item"
	statsOutline   = "div.panel-body > ul > li.outline-item"
)

// InfoScraper visits the detail pages of stored board games and stages their data.
type InfoScraper struct {
	deps Deps
}

// NewInfoScraper creates an InfoScraper.
func NewInfoScraper(deps Deps) *InfoScraper {
	return &InfoScraper{deps: deps}
}

// Run scrapes the first limit stored board games under the ledger task
// "scrape_boardgames_info" and returns the created task id.
func (s *InfoScraper) Run(ctx context.Context, limit int) (int64, error) {
	if limit <= 0 {
		limit = s.deps.Config.InfoLimit
	}

	tracker := s.deps.Ledger.NewTaskLogger(InfoTaskName)
	err := tracker.Run(ctx, func(ctx context.Context, task *ledger.TaskLogger) error {
		if err := task.Log(ctx, "Started"); err != nil {
			return err
		}

		games, err := s.deps.BoardGames.List(ctx, 0, limit)
		if err != nil {
			return err
		}
		if len(games) == 0 {
			return ErrNoBoardGames
		}

		session, closePage, err := s.deps.openSession(ctx, task)
		if err != nil {
			return err
		}
		defer closePage()

		for i, game := range games {
			payload, scrapeErr := s.scrapeGame(ctx, session, game)
			if scrapeErr != nil {
				return fmt.Errorf("failed to scrape boardgame %d: %w", game.ID, scrapeErr)
			}

			if err = s.deps.stageRaw(ctx, task, domain.SourceBoardGameInfo, game.ID, payload); err != nil {
				return err
			}
			if err = task.Logf(ctx, "Inserted raw boardgame data for '%s'", game.Name); err != nil {
				return err
			}

			progress := float64(i+1) / float64(len(games))
			items := i + 1
			message := "Processed: " + game.Name
			err = task.UpdateProgress(ctx, domain.ProgressUpdate{
				Progress:       &progress,
				ItemsProcessed: &items,
				Message:        &message,
			})
			if err != nil {
				return err
			}
		}

		return nil
	})

	return tracker.TaskID(), err
}

// scrapeGame collects the credits, versions, stores and stats of one game.
func (s *InfoScraper) scrapeGame(ctx context.Context, session *Session, game *domain.BoardGame) (domain.JSONBMap, error) {
	page := session.Page()
	base := session.URL(game.URL)
	payload := domain.JSONBMap{"id": game.ID, "name": game.Name, "url": game.URL}

	if err := s.visit(ctx, session, base+"/credits"); err != nil {
		return nil, err
	}
	if err := copyText(ctx, page, payload, "player_counts", playerCounts); err != nil {
		return nil, err
	}
	if err := copyText(ctx, page, payload, "year", gameYear); err != nil {
		return nil, err
	}
	if err := copyOutline(ctx, page, payload, creditsOutline); err != nil {
		return nil, err
	}

	if err := s.visit(ctx, session, base+"/versions?showcount=50"); err != nil {
		return nil, err
	}
	dimensions, err := page.Texts(ctx, versionSizes)
	if err != nil {
		return nil, err
	}
	payload["dimensions"] = distinct(normalizeAll(dimensions))

	if err = s.visit(ctx, session, base+"/marketplace/stores"); err != nil {
		return nil, err
	}
	prices, err := page.Texts(ctx, storeListings)
	if err != nil {
		return nil, err
	}
	payload["prices"] = normalizeAll(prices)

	if err = s.visit(ctx, session, base+"/stats"); err != nil {
		return nil, err
	}
	if err = copyOutline(ctx, page, payload, statsOutline); err != nil {
		return nil, err
	}

	return payload, nil
}

func (s *InfoScraper) visit(ctx context.Context, session *Session, url string) error {
	if err := session.Goto(ctx, url); err != nil {
		return err
	}
	return session.Settle(ctx)
}

func copyText(ctx context.Context, page browser.Page, payload domain.JSONBMap, key string, sel browser.Selector) error {
	text, found, err := page.Text(ctx, sel)
	if err != nil {
		return err
	}
	if found {
		payload[key] = parser.CollapseSpace(text)
	}
	return nil
}

func copyOutline(ctx context.Context, page browser.Page, payload domain.JSONBMap, selector string) error {
	html, err := page.HTML(ctx)
	if err != nil {
		return err
	}
	items, err := OutlineItems(html, selector)
	if err != nil {
		return err
	}
	for key, value := range items {
		payload[key] = value
	}
	return nil
}

func normalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, parser.CollapseSpace(v))
	}
	return out
}

// distinct drops repeated values, keeping first occurrences in order.
func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

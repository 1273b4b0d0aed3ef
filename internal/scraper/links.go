package scraper

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/browser"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/ledger"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/parser"
)

var browseLinks = browser.CSS("td.collection_objectname a.primary")

// LinksScraper walks the ranked browse pages and records every listed board game.
type LinksScraper struct {
	deps Deps
}

// NewLinksScraper creates a LinksScraper.
func NewLinksScraper(deps Deps) *LinksScraper {
	return &LinksScraper{deps: deps}
}

// Run scrapes browse pages 1..pages under the ledger task "scrape_boardgames_links".
// It returns the created task id.
func (s *LinksScraper) Run(ctx context.Context, pages int) (int64, error) {
	if pages <= 0 {
		pages = s.deps.Config.LinksPages
	}

	tracker := s.deps.Ledger.NewTaskLogger(LinksTaskName)
	err := tracker.Run(ctx, func(ctx context.Context, task *ledger.TaskLogger) error {
		if err := task.Log(ctx, "Started"); err != nil {
			return err
		}

		session, closePage, err := s.deps.openSession(ctx, task)
		if err != nil {
			return err
		}
		defer closePage()

		items := 0
		for page := 1; page <= pages; page++ {
			games, err := s.scrapePage(ctx, session, page)
			if err != nil {
				return err
			}

			if err = s.deps.BoardGames.BulkUpsert(ctx, games); err != nil {
				return err
			}
			for _, game := range games {
				payload := domain.JSONBMap{"id": game.ID, "name": game.Name, "url": game.URL, "page": page}
				if err = s.deps.stageRaw(ctx, task, domain.SourceBoardGameLinks, game.ID, payload); err != nil {
					return err
				}
			}

			if err = task.Logf(ctx, "Inserted/updated %d boardgames from page %d", len(games), page); err != nil {
				return err
			}

			items += len(games)
			progress := float64(page) / float64(pages)
			message := fmt.Sprintf("Processed page %d with %d boardgames", page, len(games))
			current := page
			err = task.UpdateProgress(ctx, domain.ProgressUpdate{
				Progress:       &progress,
				CurrentPage:    &current,
				ItemsProcessed: &items,
				Message:        &message,
			})
			if err != nil {
				return err
			}

			if page < pages {
				if err = session.SleepRandom(ctx, s.deps.Config.PageDelayMin, s.deps.Config.PageDelayMax); err != nil {
					return err
				}
			}
		}

		return nil
	})

	return tracker.TaskID(), err
}

func (s *LinksScraper) scrapePage(ctx context.Context, session *Session, page int) ([]*domain.BoardGame, error) {
	if err := session.Goto(ctx, session.URL(fmt.Sprintf("/browse/boardgame/page/%d", page))); err != nil {
		return nil, err
	}

	names, err := session.Page().Texts(ctx, browseLinks)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape page %d: %w", page, err)
	}
	urls, err := session.Page().Attributes(ctx, browseLinks, "href")
	if err != nil {
		return nil, fmt.Errorf("failed to scrape page %d: %w", page, err)
	}

	if len(names) != len(urls) {
		return nil, fmt.Errorf("%w: page %d has %d names and %d urls", ErrStructure, page, len(names), len(urls))
	}

	games := make([]*domain.BoardGame, 0, len(names))
	for i := range names {
		url := strings.TrimSpace(urls[i])
		id, idErr := boardGameID(url)
		if idErr != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrStructure, page, idErr)
		}
		games = append(games, &domain.BoardGame{
			ID:   id,
			Name: parser.CollapseSpace(names[i]),
			URL:  url,
		})
	}

	return games, nil
}

// boardGameID reads the id from a "/boardgame/<id>/<slug>" link.
func boardGameID(url string) (int64, error) {
	segments := strings.Split(strings.TrimSuffix(url, "/"), "/")
	if len(segments) < 2 {
		return 0, fmt.Errorf("no id in url %q", url)
	}

	id, err := strconv.ParseInt(segments[len(segments)-2], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("no id in url %q: %w", url, err)
	}
	return id, nil
}

package scraper_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/browser"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/config"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/ledger"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/scraper"
	"github.com/FrederikBertelsen/bgg-analysis-dash/testutils"
	browsermocks "github.com/FrederikBertelsen/bgg-analysis-dash/testutils/mocks/browser"
)

const baseURL = "https://bgg.test"

var creds = scraper.Credentials{Username: "user", Password: "secret"}

func testConfig() config.ScraperConfig {
	return config.ScraperConfig{
		BaseURL:            baseURL,
		NavigationAttempts: 3,
		LinksPages:         2,
		InfoLimit:          20,
	}
}

func noSleep(context.Context, time.Duration) error { return nil }

type pageOpener struct {
	page browser.Page
}

func (o pageOpener) NewPage(context.Context) (browser.Page, error) {
	return o.page, nil
}

type fixture struct {
	page   *browsermocks.MockPage
	store  *testutils.LedgerStore
	games  *testutils.MockBoardGameStore
	raw    *testutils.MockRawStore
	ledger *ledger.Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	store := testutils.NewLedgerStore()
	return &fixture{
		page:   browsermocks.NewMockPage(ctrl),
		store:  store,
		games:  &testutils.MockBoardGameStore{},
		raw:    &testutils.MockRawStore{},
		ledger: ledger.New(store, store, logger.NewNop(), nil),
	}
}

func (f *fixture) deps() scraper.Deps {
	return scraper.Deps{
		Browser:        pageOpener{page: f.page},
		Ledger:         f.ledger,
		BoardGames:     f.games,
		Raw:            f.raw,
		Config:         testConfig(),
		Credentials:    creds,
		SessionOptions: []scraper.SessionOption{scraper.WithSleep(noSleep)},
	}
}

// expectLogin records a successful login without a cookie banner.
func (f *fixture) expectLogin() {
	p := f.page.EXPECT()
	p.Navigate(gomock.Any(), baseURL+"/login").Return(nil)
	p.Exists(gomock.Any(), browser.CSS("gg-login-page")).Return(true, nil)
	p.Click(gomock.Any(), browser.ElementWithText("button", "I'm OK with that")).Return(false, nil)
	p.Fill(gomock.Any(), browser.CSS("input#inputUsername"), "user").Return(nil)
	p.Fill(gomock.Any(), browser.CSS("input#inputPassword"), "secret").Return(nil)
	p.Click(gomock.Any(), browser.CSS("button.btn-primary")).Return(true, nil)
	p.WaitForSelector(gomock.Any(), browser.CSS("gg-avatar-letter > span"), gomock.Any()).Return(nil)
}

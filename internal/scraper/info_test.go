package scraper_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/browser"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/scraper"
	"github.com/FrederikBertelsen/bgg-analysis-dash/testutils"
)

const creditsHTML = `<html><body><credits-module><ul>
	<li class="outline-item">
		<div class="outline-item-title">Designer</div>
		<div class="outline-item-description"><a>Klaus   Teuber</a></div>
	</li>
	<li class="outline-item">
		<div class="outline-item-title">Categories</div>
		<div class="outline-item-description"><div><a>Economic</a></div><div><a>Negotiation</a></div></div>
	</li>
	<li class="outline-item"><div class="outline-item-title">Orphan</div></li>
</ul></credits-module></body></html>`

const statsHTML = `<html><body><div class="panel-body"><ul>
	<li class="outline-item">
		<div class="outline-item-title">Avg. Rating</div>
		<div class="outline-item-description">7.1</div>
	</li>
	<li class="outline-item">
		<div class="outline-item-title">No. of Ratings</div>
		<div class="outline-item-description">	123,456 </div>
	</li>
</ul></div></body></html>`

func (f *fixture) expectGamePages(gameURL string) {
	p := f.page.EXPECT()
	p.Navigate(gomock.Any(), gameURL+"/credits").Return(nil)
	p.Text(gomock.Any(), browser.CSS(`li[itemprop="numberOfPlayers"]`)).Return("3–4 Players", true, nil)
	p.Text(gomock.Any(), browser.CSS("span.game-year")).Return("", false, nil)
	p.HTML(gomock.Any()).Return(creditsHTML, nil).Times(1)

	p.Navigate(gomock.Any(), gameURL+"/versions?showcount=50").Return(nil)
	p.Texts(gomock.Any(), browser.CSS(`span[ng-if="ldata.displaytype==='dimensions'"]`)).
		Return([]string{"29.6 x 29.6 x 7.1 cm", "29.6  x 29.6 x 7.1 cm", "10 x 5 x 2 cm"}, nil)

	p.Navigate(gomock.Any(), gameURL+"/marketplace/stores").Return(nil)
	p.Texts(gomock.Any(), browser.CSS("ul.shopping-listings > li.item-listing a[href] span.item-listing__btn-text")).
		Return([]string{"$ 44.99 -\tAmazon"}, nil)

	p.Navigate(gomock.Any(), gameURL+"/stats").Return(nil)
	p.HTML(gomock.Any()).Return(statsHTML, nil).Times(1)
}

func TestInfoScraper_Run(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	catan := &domain.BoardGame{ID: 13, Name: "Catan", URL: "/boardgame/13/catan"}
	f.games.On("List", mock.Anything, 0, 20).Return([]*domain.BoardGame{catan}, nil)
	f.raw.On("Create", mock.Anything, mock.Anything).Return(nil)

	f.expectLogin()
	f.expectGamePages(baseURL + "/boardgame/13/catan")
	f.page.EXPECT().Close().Return(nil)

	taskID, err := scraper.NewInfoScraper(f.deps()).Run(context.Background(), 0)
	require.NoError(t, err)

	f.raw.AssertNumberOfCalls(t, "Create", 1)
	raw, ok := f.raw.Calls[0].Arguments.Get(1).(*domain.RawData)
	require.True(t, ok)
	assert.Equal(t, domain.SourceBoardGameInfo, raw.SourceTable)
	assert.Equal(t, int64(13), *raw.SourceID)
	assert.Equal(t, domain.JSONBMap{
		"id":             int64(13),
		"name":           "Catan",
		"url":            "/boardgame/13/catan",
		"player_counts":  "3–4 Players",
		"Designer":       "Klaus Teuber",
		"Categories":     "Economic\nNegotiation",
		"dimensions":     []string{"29.6 x 29.6 x 7.1 cm", "10 x 5 x 2 cm"},
		"prices":         []string{"$ 44.99 - Amazon"},
		"Avg. Rating":    "7.1",
		"No. of Ratings": "123,456",
	}, raw.Payload)

	task, err := f.store.GetByID(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)
	require.NotNil(t, task.Message)
	assert.Equal(t, "Processed: Catan", *task.Message)
	assert.Contains(t, f.store.Texts(taskID), "Inserted raw boardgame data for 'Catan'")
}

func TestInfoScraper_Run_NoBoardGames(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.games.On("List", mock.Anything, 0, 5).Return([]*domain.BoardGame{}, nil)

	taskID, err := scraper.NewInfoScraper(f.deps()).Run(context.Background(), 5)
	require.ErrorIs(t, err, scraper.ErrNoBoardGames)

	task, getErr := f.store.GetByID(context.Background(), taskID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.TaskStatusFailed, task.Status)
	f.raw.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestInfoScraper_Run_StoreError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.games.On("List", mock.Anything, 0, 20).Return(nil, testutils.ErrStoreDown)

	_, err := scraper.NewInfoScraper(f.deps()).Run(context.Background(), 0)
	require.ErrorIs(t, err, testutils.ErrStoreDown)
}

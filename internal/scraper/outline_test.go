package scraper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/scraper"
)

func TestOutlineItems(t *testing.T) {
	t.Parallel()

	items, err := scraper.OutlineItems(creditsHTML, "credits-module ul > li.outline-item")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"Designer":   "Klaus Teuber",
		"Categories": "Economic\nNegotiation",
	}, items)
}

func TestOutlineItems_NoMatches(t *testing.T) {
	t.Parallel()

	items, err := scraper.OutlineItems("<html><body><p>maintenance</p></body></html>", "div.panel-body > ul > li.outline-item")
	require.NoError(t, err)
	assert.Empty(t, items)
}

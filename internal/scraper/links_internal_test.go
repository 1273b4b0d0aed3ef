package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardGameID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url     string
		want    int64
		wantErr bool
	}{
		{url: "/boardgame/224517/brass-birmingham", want: 224517},
		{url: "https://boardgamegeek.com/boardgame/13/catan/", want: 13},
		{url: "/boardgame/expansion/catan", wantErr: true},
		{url: "catan", wantErr: true},
		{url: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := boardGameID(tt.url)
		if tt.wantErr {
			require.Error(t, err, tt.url)
			continue
		}
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.want, got, tt.url)
	}
}

func TestDistinct(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b"}, distinct([]string{"a", "b", "a"}))
	assert.Empty(t, distinct(nil))
}

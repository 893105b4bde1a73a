package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/pitchside/internal/fetch"
)

type counterCursor struct{ values map[string]int64 }

func (c *counterCursor) Advance(_ context.Context, key string, by int) (int64, error) {
	if c.values == nil {
		c.values = make(map[string]int64)
	}
	c.values[key] += int64(by)
	return c.values[key], nil
}

const newsTemplate = "https://news.test/sport/football/teams/{team}"

func TestNewsURL(t *testing.T) {
	assert.Equal(t, "https://news.test/sport/football/teams/brighton-hove-albion", NewsURL(newsTemplate, "Brighton & Hove Albion"))
	assert.Equal(t, "nottingham-forest", TeamSlug(" Nottingham Forest "))
}

func TestParseHeadlines(t *testing.T) {
	page := `<html><body>
<a href="/sport/football/articles/1">Arsenal beat Chelsea in the London derby</a>
<a href="/sport/football/articles/1">Arsenal beat Chelsea in the London derby</a>
<a href="https://other.test/x">Arsenal confirm new signing ahead of deadline</a>
<a href="/sport/football/articles/2">Short</a>
<a href="/sport/football/articles/3">Liverpool win again at Anfield tonight</a>
</body></html>`
	d, err := fetch.ParseHTML(page)
	require.NoError(t, err)

	got := ParseHeadlines(d, "https://news.test/sport/football/teams/arsenal", "Arsenal FC")
	assert.Equal(t, []Headline{
		{Text: "Arsenal beat Chelsea in the London derby", URL: "https://news.test/sport/football/articles/1"},
		{Text: "Arsenal confirm new signing ahead of deadline", URL: "https://other.test/x"},
	}, got)
}

func TestNewsRotatesThroughTeams(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leagueID := env.league(t)
	names := []string{"Arsenal", "Chelsea", "Everton", "Fulham", "Brentford", "Burnley", "Leeds"}
	for _, n := range names {
		_, err := env.catalog.CreateTeam(ctx, n, leagueID, "")
		require.NoError(t, err)
		env.fetcher.set(fetch.Target{URL: NewsURL(newsTemplate, n)},
			`<a href="/a/`+n+`">`+n+` news story of the day from the ground</a>`)
	}

	job := NewNewsSync(env.Env, &counterCursor{}, newsTemplate, 5)

	_, err := job.SyncLeague(ctx, "GB1", leagueID)
	require.NoError(t, err)
	assert.Len(t, env.fetcher.plains, 5)
	assert.Len(t, env.sleeps.all(), 4)

	_, err = job.SyncLeague(ctx, "GB1", leagueID)
	require.NoError(t, err)
	second := env.fetcher.plains[5:]
	assert.Equal(t, []string{
		NewsURL(newsTemplate, "Burnley"),
		NewsURL(newsTemplate, "Leeds"),
		NewsURL(newsTemplate, "Arsenal"),
		NewsURL(newsTemplate, "Chelsea"),
		NewsURL(newsTemplate, "Everton"),
	}, second)

	teams, err := env.catalog.ListTeams(ctx, leagueID)
	require.NoError(t, err)
	mentions := env.catalog.News(teams[0].ID)
	require.Len(t, mentions, 1, "the same story is stored once")
	assert.Equal(t, "news", mentions[0].SourceType)
}

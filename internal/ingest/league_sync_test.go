package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/pitchside/internal/config"
	"github.com/fortuna/pitchside/internal/store"
)

func TestSyncLeagueEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.set(env.Site.LeagueHome(premierLeague), matchdayPage(1))
	env.fetcher.set(env.Site.Fixtures(premierLeague, 1), fixturePage(
		fixture{date: "Sat 8/16/25", clock: "3:00 PM", home: "Arsenal", homeID: "11", away: "Chelsea", awayID: "631", matchID: "100"},
		fixture{home: "Everton", homeID: "29", away: "Fulham", awayID: "931"},
	))

	job := NewLeagueSync(env.Env, nil, nil)
	res := job.SyncLeague(context.Background(), premierLeague)

	assert.True(t, res.Fetched)
	assert.Equal(t, 1, res.Matchday)
	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, 2, res.Upserted)
	assert.Equal(t, 3, res.Parse.Rows)

	matches := env.catalog.Matches()
	require.Len(t, matches, 2)
	kickoff := time.Date(2025, 8, 16, 15, 0, 0, 0, time.UTC)
	for _, m := range matches {
		assert.Equal(t, kickoff, m.Kickoff)
		assert.Equal(t, 1, m.Matchday)
	}
	assert.Equal(t, "100", matches[0].SourceMatchID.String)

	teams, err := env.catalog.ListTeams(context.Background(), res.LeagueID)
	require.NoError(t, err)
	assert.Len(t, teams, 4)

	ok, skipped, failed := res.Report.Counts()
	assert.Equal(t, 2, ok)
	assert.Zero(t, skipped)
	assert.Zero(t, failed)
}

func TestSyncLeagueReusesAliasedTeamAndUpdatesInPlace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leagueID := env.league(t)
	spurs, err := env.catalog.CreateTeam(ctx, "Tottenham Hotspur", leagueID, "")
	require.NoError(t, err)
	_, err = env.catalog.AddAlias(ctx, store.ClubAlias{TeamID: spurs, AliasName: "Spurs", AliasType: store.AliasShort})
	require.NoError(t, err)

	job := NewLeagueSync(env.Env, nil, nil)

	env.fetcher.set(env.Site.Fixtures(premierLeague, 3), fixturePage(
		fixture{date: "16.08.2025", clock: "18:30", home: "Spurs", homeID: "148", away: "Burnley", awayID: "1132"},
	))
	res := job.SyncMatchday(ctx, premierLeague, 3)
	require.Equal(t, 1, res.Upserted)

	env.fetcher.set(env.Site.Fixtures(premierLeague, 3), fixturePage(
		fixture{date: "17.08.2025", clock: "14:00", home: "Spurs", homeID: "148", away: "Burnley", awayID: "1132", matchID: "555"},
	))
	res = job.SyncMatchday(ctx, premierLeague, 3)
	require.Equal(t, 1, res.Upserted)

	matches := env.catalog.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, spurs, matches[0].HomeTeamID)
	assert.Equal(t, time.Date(2025, 8, 17, 14, 0, 0, 0, time.UTC), matches[0].Kickoff)
	assert.Equal(t, "555", matches[0].SourceMatchID.String)

	teams, err := env.catalog.ListTeams(ctx, leagueID)
	require.NoError(t, err)
	assert.Len(t, teams, 2, "Spurs resolves through its alias")
}

func TestSyncLeagueFetchFailureIsNoDataThisCycle(t *testing.T) {
	env := newTestEnv(t)
	yields := &memoryYields{counts: map[string]int{"GB1": 10}}

	res := NewLeagueSync(env.Env, nil, yields).SyncLeague(context.Background(), premierLeague)

	assert.False(t, res.Fetched)
	assert.False(t, res.Structural, "a failed fetch is not a markup change")
	assert.Equal(t, 1, res.Matchday, "matchday defaults to 1 when the landing page fails")
	_, skipped, failed := res.Report.Counts()
	assert.Equal(t, 1, skipped)
	assert.Zero(t, failed)
	assert.Equal(t, 10, yields.counts["GB1"])
}

func TestStructuralChangeDetector(t *testing.T) {
	env := newTestEnv(t)
	yields := &memoryYields{}
	job := NewLeagueSync(env.Env, nil, yields)
	ctx := context.Background()

	env.fetcher.set(env.Site.Fixtures(premierLeague, 1), fixturePage(
		fixture{date: "8/16/25", clock: "3:00 PM", home: "Arsenal", homeID: "11", away: "Chelsea", awayID: "631"},
	))
	res := job.SyncMatchday(ctx, premierLeague, 1)
	assert.False(t, res.Structural)
	assert.Equal(t, 1, yields.counts["GB1"])

	// the layout changed: rows no longer carry seven cells
	env.fetcher.set(env.Site.Fixtures(premierLeague, 1), `<table class="responsive-table"><tr><td>Arsenal</td><td>Chelsea</td></tr></table>`)
	res = job.SyncMatchday(ctx, premierLeague, 1)
	assert.True(t, res.Fetched)
	assert.True(t, res.Structural)
	assert.Zero(t, res.Candidates)

	// alerts once per healthy-to-empty transition
	res = job.SyncMatchday(ctx, premierLeague, 1)
	assert.False(t, res.Structural)
}

func TestSyncLeagueUsesCurrentMatchday(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.set(env.Site.LeagueHome(premierLeague), matchdayPage(4))
	env.fetcher.set(env.Site.Fixtures(premierLeague, 4), fixturePage(
		fixture{date: "9/13/25", clock: "3:00 PM", home: "Arsenal", homeID: "11", away: "Chelsea", awayID: "631"},
	))

	res := NewLeagueSync(env.Env, nil, nil).SyncLeague(context.Background(), premierLeague)
	assert.Equal(t, 4, res.Matchday)
	require.Len(t, env.catalog.Matches(), 1)
	assert.Equal(t, 4, env.catalog.Matches()[0].Matchday)
	assert.Contains(t, env.fetcher.plains, env.Site.LeagueHome(premierLeague).URL)
}

func TestSyncAllIsolatesLeagues(t *testing.T) {
	env := newTestEnv(t)
	laLiga := config.League{Name: "La Liga", SourceID: "ES1", Slug: "primera-division", Season: "2025", ExpectedTeams: 20}
	env.fetcher.set(env.Site.Fixtures(laLiga, 1), fixturePage(
		fixture{date: "8/17/25", clock: "9:00 PM", home: "Girona", homeID: "12321", away: "Rayo Vallecano", awayID: "367"},
	))

	report, results, err := NewLeagueSync(env.Env, nil, nil).SyncAll(context.Background(), []config.League{premierLeague, laLiga})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Fetched)
	assert.Equal(t, 1, results[1].Upserted)

	ok, skipped, _ := report.Counts()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, skipped)
}

func TestSyncAllRequiresLeagues(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := NewLeagueSync(env.Env, nil, nil).SyncAll(context.Background(), nil)
	assert.Error(t, err)
}

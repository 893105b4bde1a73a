package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/pitchside/internal/store"
)

func seedLeague(t *testing.T, c *Catalog) (int64, int64, int64) {
	t.Helper()
	ctx := context.Background()
	leagueID, err := c.UpsertLeague(ctx, "Premier League", "GB1", "2025")
	require.NoError(t, err)
	home, err := c.CreateTeam(ctx, "Arsenal FC", leagueID, "11")
	require.NoError(t, err)
	away, err := c.CreateTeam(ctx, "Chelsea FC", leagueID, "631")
	require.NoError(t, err)
	return leagueID, home, away
}

func TestUpsertLeagueIsNoOpWhenPresent(t *testing.T) {
	c := NewCatalog()
	ctx := context.Background()

	first, err := c.UpsertLeague(ctx, "Premier League", "GB1", "2025")
	require.NoError(t, err)
	second, err := c.UpsertLeague(ctx, "Renamed", "GB1", "2026")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	league, err := c.GetLeagueBySourceID(ctx, "GB1")
	require.NoError(t, err)
	assert.Equal(t, "Premier League", league.Name)
}

func TestUpsertMatchUpdatesInPlace(t *testing.T) {
	c := NewCatalog()
	ctx := context.Background()
	leagueID, home, away := seedLeague(t, c)

	early := time.Date(2025, 8, 16, 15, 0, 0, 0, time.UTC)
	late := early.Add(150 * time.Minute)

	firstID, err := c.UpsertMatch(ctx, store.MatchUpsert{HomeTeamID: home, AwayTeamID: away, LeagueID: leagueID, Kickoff: early, Matchday: 1})
	require.NoError(t, err)
	c.SaveLineupPrediction(firstID, home, []byte(`{}`))

	secondID, err := c.UpsertMatch(ctx, store.MatchUpsert{HomeTeamID: home, AwayTeamID: away, LeagueID: leagueID, Kickoff: late, Matchday: 1, SourceMatchID: "4625771"})
	require.NoError(t, err)

	assert.Equal(t, firstID, secondID)
	matches := c.Matches()
	require.Len(t, matches, 1)
	assert.True(t, matches[0].Kickoff.Equal(late))
	assert.Equal(t, "4625771", matches[0].SourceMatchID.String)

	has, err := c.HasLineupPrediction(ctx, firstID, home)
	require.NoError(t, err)
	assert.True(t, has, "predictions attached to the match id survive the re-sync")
}

func TestSetActivePlayerStatusKeepsHistory(t *testing.T) {
	c := NewCatalog()
	ctx := context.Background()
	_, home, _ := seedLeague(t, c)

	playerID, err := c.UpsertPlayer(ctx, store.PlayerUpsert{Name: "Bukayo Saka", TeamID: home, Position: "Right Winger", SourceID: "433177"})
	require.NoError(t, err)

	_, err = c.SetActivePlayerStatus(ctx, store.StatusUpdate{PlayerID: playerID, Kind: store.StatusInjury, Description: "Hamstring injury"})
	require.NoError(t, err)
	_, err = c.SetActivePlayerStatus(ctx, store.StatusUpdate{PlayerID: playerID, Kind: store.StatusSuspension, Description: "Red card"})
	require.NoError(t, err)
	_, err = c.SetActivePlayerStatus(ctx, store.StatusUpdate{PlayerID: playerID, Kind: store.StatusInjury, Description: "Ankle injury"})
	require.NoError(t, err)

	history := c.Statuses(playerID)
	require.Len(t, history, 3)

	active := map[store.StatusKind][]string{}
	for _, s := range history {
		if s.IsActive {
			active[s.StatusType] = append(active[s.StatusType], s.Description)
		}
	}
	assert.Equal(t, []string{"Ankle injury"}, active[store.StatusInjury])
	assert.Equal(t, []string{"Red card"}, active[store.StatusSuspension])
}

func TestSetActivePlayerStatusUnchangedKeepsRow(t *testing.T) {
	c := NewCatalog()
	ctx := context.Background()
	_, home, _ := seedLeague(t, c)

	playerID, err := c.UpsertPlayer(ctx, store.PlayerUpsert{Name: "Bukayo Saka", TeamID: home, Position: "Right Winger", SourceID: "433177"})
	require.NoError(t, err)

	back := time.Date(2025, time.October, 20, 0, 0, 0, 0, time.UTC)
	update := store.StatusUpdate{PlayerID: playerID, Kind: store.StatusInjury, Description: "Hamstring injury", ExpectedReturn: &back}

	first, err := c.SetActivePlayerStatus(ctx, update)
	require.NoError(t, err)
	again, err := c.SetActivePlayerStatus(ctx, update)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Len(t, c.Statuses(playerID), 1)

	later := back.AddDate(0, 0, 7)
	update.ExpectedReturn = &later
	moved, err := c.SetActivePlayerStatus(ctx, update)
	require.NoError(t, err)
	assert.NotEqual(t, first, moved, "a new return date opens a new row")
	assert.Len(t, c.Statuses(playerID), 2)
}

func TestClearActiveStatuses(t *testing.T) {
	c := NewCatalog()
	ctx := context.Background()
	_, home, away := seedLeague(t, c)

	saka, err := c.UpsertPlayer(ctx, store.PlayerUpsert{Name: "Bukayo Saka", TeamID: home, Position: "Right Winger", SourceID: "433177"})
	require.NoError(t, err)
	white, err := c.UpsertPlayer(ctx, store.PlayerUpsert{Name: "Ben White", TeamID: home, Position: "Right-Back", SourceID: "345467"})
	require.NoError(t, err)
	james, err := c.UpsertPlayer(ctx, store.PlayerUpsert{Name: "Reece James", TeamID: away, Position: "Right-Back", SourceID: "472423"})
	require.NoError(t, err)

	kept, err := c.SetActivePlayerStatus(ctx, store.StatusUpdate{PlayerID: saka, Kind: store.StatusInjury, Description: "Hamstring injury"})
	require.NoError(t, err)
	_, err = c.SetActivePlayerStatus(ctx, store.StatusUpdate{PlayerID: white, Kind: store.StatusInjury, Description: "Knee surgery"})
	require.NoError(t, err)
	_, err = c.SetActivePlayerStatus(ctx, store.StatusUpdate{PlayerID: james, Kind: store.StatusInjury, Description: "Thigh problems"})
	require.NoError(t, err)

	cleared, err := c.ClearActiveStatuses(ctx, home, []store.StatusKind{store.StatusInjury}, []int64{kept})
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared)

	assert.True(t, c.Statuses(saka)[0].IsActive)
	assert.False(t, c.Statuses(white)[0].IsActive)
	assert.True(t, c.Statuses(james)[0].IsActive, "other teams are untouched")
}

func TestUpsertPlayerIsIdempotent(t *testing.T) {
	c := NewCatalog()
	ctx := context.Background()
	_, home, _ := seedLeague(t, c)

	value := int64(45_500_000)
	first, err := c.UpsertPlayer(ctx, store.PlayerUpsert{Name: "Declan Rice", TeamID: home, Position: "Defensive Midfield", SourceID: "357662"})
	require.NoError(t, err)
	second, err := c.UpsertPlayer(ctx, store.PlayerUpsert{Name: "Declan Rice", TeamID: home, Position: "Central Midfield", SourceID: "357662", MarketValue: &value})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	byName, err := c.UpsertPlayer(ctx, store.PlayerUpsert{Name: "Trialist", TeamID: home, Position: "Unknown"})
	require.NoError(t, err)
	again, err := c.UpsertPlayer(ctx, store.PlayerUpsert{Name: "TRIALIST", TeamID: home, Position: "Unknown"})
	require.NoError(t, err)
	assert.Equal(t, byName, again)

	players, err := c.ListPlayers(ctx, home)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "Central Midfield", players[0].Position)
	assert.Equal(t, value, players[0].MarketValue.Int64)
}

func TestNextMatchdayMatches(t *testing.T) {
	c := NewCatalog()
	ctx := context.Background()
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })
	leagueID, home, away := seedLeague(t, c)
	third, err := c.CreateTeam(ctx, "Everton FC", leagueID, "29")
	require.NoError(t, err)

	_, err = c.UpsertMatch(ctx, store.MatchUpsert{HomeTeamID: home, AwayTeamID: away, LeagueID: leagueID, Kickoff: now.Add(-48 * time.Hour), Matchday: 3})
	require.NoError(t, err)
	_, err = c.UpsertMatch(ctx, store.MatchUpsert{HomeTeamID: away, AwayTeamID: third, LeagueID: leagueID, Kickoff: now.Add(72 * time.Hour), Matchday: 4})
	require.NoError(t, err)
	_, err = c.UpsertMatch(ctx, store.MatchUpsert{HomeTeamID: third, AwayTeamID: home, LeagueID: leagueID, Kickoff: now.Add(240 * time.Hour), Matchday: 5})
	require.NoError(t, err)

	upcoming, err := c.GetUpcomingMatches(ctx, leagueID, nil)
	require.NoError(t, err)
	assert.Len(t, upcoming, 2)

	next, err := c.GetNextMatchdayMatches(ctx, leagueID)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, 4, next[0].Matchday)
}

func TestAliasLookupScopes(t *testing.T) {
	c := NewCatalog()
	ctx := context.Background()
	leagueID, home, _ := seedLeague(t, c)
	otherLeague, err := c.UpsertLeague(ctx, "La Liga", "ES1", "2025")
	require.NoError(t, err)

	_, err = c.AddAlias(ctx, store.ClubAlias{TeamID: home, AliasName: "The Gunners", AliasType: store.AliasShort})
	require.NoError(t, err)

	team, err := c.FindTeamByAlias(ctx, leagueID, "the gunners")
	require.NoError(t, err)
	assert.Equal(t, home, team.ID)

	_, err = c.FindTeamByAlias(ctx, otherLeague, "the gunners")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	team, err = c.FindTeamByAliasGlobal(ctx, "THE GUNNERS")
	require.NoError(t, err)
	assert.Equal(t, home, team.ID)
}

func TestInsertNewsMentionDeduplicates(t *testing.T) {
	c := NewCatalog()
	ctx := context.Background()
	_, home, _ := seedLeague(t, c)

	mention := store.NewsMention{TeamID: home, SourceType: "bbc", SourceURL: "https://example.test/a", Content: "Arsenal win"}
	inserted, err := c.InsertNewsMention(ctx, mention)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = c.InsertNewsMention(ctx, mention)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Len(t, c.News(home), 1)
}

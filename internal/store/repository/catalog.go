package repository

import (
	"context"

	"github.com/fortuna/pitchside/internal/store"
)

// Catalog exposes the repositories behind the single persistence contract
// the sync jobs consume.
type Catalog struct {
	Leagues     *LeagueRepository
	Teams       *TeamRepository
	Matches     *MatchRepository
	Players     *PlayerRepository
	Predictions *PredictionRepository
	News        *NewsRepository
}

// NewCatalog wires every repository to one database
func NewCatalog(db *store.Database) *Catalog {
	return &Catalog{
		Leagues:     NewLeagueRepository(db),
		Teams:       NewTeamRepository(db),
		Matches:     NewMatchRepository(db),
		Players:     NewPlayerRepository(db),
		Predictions: NewPredictionRepository(db),
		News:        NewNewsRepository(db),
	}
}

func (c *Catalog) UpsertLeague(ctx context.Context, name, sourceID, season string) (int64, error) {
	return c.Leagues.Upsert(ctx, name, sourceID, season)
}

func (c *Catalog) GetLeagueBySourceID(ctx context.Context, sourceID string) (*store.League, error) {
	return c.Leagues.GetBySourceID(ctx, sourceID)
}

func (c *Catalog) ListLeagues(ctx context.Context) ([]*store.League, error) {
	return c.Leagues.List(ctx)
}

func (c *Catalog) GetTeam(ctx context.Context, teamID int64) (*store.Team, error) {
	return c.Teams.GetByID(ctx, teamID)
}

func (c *Catalog) FindTeamBySourceID(ctx context.Context, leagueID int64, sourceID string) (*store.Team, error) {
	return c.Teams.FindBySourceID(ctx, leagueID, sourceID)
}

func (c *Catalog) FindTeamByName(ctx context.Context, leagueID int64, name string) (*store.Team, error) {
	return c.Teams.FindByName(ctx, leagueID, name)
}

func (c *Catalog) FindTeamByAlias(ctx context.Context, leagueID int64, alias string) (*store.Team, error) {
	return c.Teams.FindByAlias(ctx, leagueID, alias)
}

func (c *Catalog) FindTeamByAliasGlobal(ctx context.Context, alias string) (*store.Team, error) {
	return c.Teams.FindByAliasGlobal(ctx, alias)
}

func (c *Catalog) CreateTeam(ctx context.Context, name string, leagueID int64, sourceID string) (int64, error) {
	return c.Teams.Create(ctx, name, leagueID, sourceID)
}

func (c *Catalog) ListTeams(ctx context.Context, leagueID int64) ([]*store.Team, error) {
	return c.Teams.ListByLeague(ctx, leagueID)
}

func (c *Catalog) UpdateTeamLogo(ctx context.Context, teamID int64, logoURL string) error {
	return c.Teams.UpdateLogo(ctx, teamID, logoURL)
}

func (c *Catalog) AddAlias(ctx context.Context, alias store.ClubAlias) (int64, error) {
	return c.Teams.AddAlias(ctx, alias)
}

func (c *Catalog) UpsertMatch(ctx context.Context, m store.MatchUpsert) (int64, error) {
	return c.Matches.Upsert(ctx, m)
}

func (c *Catalog) GetUpcomingMatches(ctx context.Context, leagueID int64, matchday *int) ([]*store.Match, error) {
	return c.Matches.GetUpcoming(ctx, leagueID, matchday)
}

func (c *Catalog) GetNextMatchdayMatches(ctx context.Context, leagueID int64) ([]*store.Match, error) {
	return c.Matches.GetNextMatchday(ctx, leagueID)
}

func (c *Catalog) UpsertPlayer(ctx context.Context, p store.PlayerUpsert) (int64, error) {
	return c.Players.Upsert(ctx, p)
}

func (c *Catalog) FindPlayer(ctx context.Context, teamID int64, sourceID, name string) (*store.Player, error) {
	return c.Players.Find(ctx, teamID, sourceID, name)
}

func (c *Catalog) ListPlayers(ctx context.Context, teamID int64) ([]*store.Player, error) {
	return c.Players.ListByTeam(ctx, teamID)
}

func (c *Catalog) SetActivePlayerStatus(ctx context.Context, u store.StatusUpdate) (int64, error) {
	return c.Players.SetActiveStatus(ctx, u)
}

func (c *Catalog) ClearActiveStatuses(ctx context.Context, teamID int64, kinds []store.StatusKind, keep []int64) (int64, error) {
	return c.Players.ClearActiveStatuses(ctx, teamID, kinds, keep)
}

func (c *Catalog) GetLineupPrediction(ctx context.Context, matchID, teamID int64) (*store.LineupPrediction, error) {
	return c.Predictions.Get(ctx, matchID, teamID)
}

func (c *Catalog) HasLineupPrediction(ctx context.Context, matchID, teamID int64) (bool, error) {
	return c.Predictions.Exists(ctx, matchID, teamID)
}

func (c *Catalog) InsertNewsMention(ctx context.Context, n store.NewsMention) (bool, error) {
	return c.News.Insert(ctx, n)
}

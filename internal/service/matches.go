package service

import (
	"context"
	"fmt"

	"github.com/fortuna/pitchside/internal/store"
)

// Reader is the read side of the catalog used by the API.
type Reader interface {
	ListLeagues(ctx context.Context) ([]*store.League, error)
	GetTeam(ctx context.Context, teamID int64) (*store.Team, error)
	GetUpcomingMatches(ctx context.Context, leagueID int64, matchday *int) ([]*store.Match, error)
	ListPlayers(ctx context.Context, teamID int64) ([]*store.Player, error)
}

// MatchService handles match-related read models
type MatchService struct {
	catalog Reader
}

// NewMatchService creates a new match service
func NewMatchService(catalog Reader) *MatchService {
	return &MatchService{catalog: catalog}
}

// MatchSummary contains match details with team information
type MatchSummary struct {
	Match    *store.Match `json:"match"`
	HomeTeam *store.Team  `json:"home_team"`
	AwayTeam *store.Team  `json:"away_team"`
}

// TeamRoster is a team with its current squad
type TeamRoster struct {
	Team    *store.Team     `json:"team"`
	Players []*store.Player `json:"players"`
}

// Leagues lists every stored league
func (s *MatchService) Leagues(ctx context.Context) ([]*store.League, error) {
	leagues, err := s.catalog.ListLeagues(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching leagues: %w", err)
	}
	return leagues, nil
}

// UpcomingMatches retrieves a league's upcoming matches, optionally limited
// to one matchday, in kickoff order.
func (s *MatchService) UpcomingMatches(ctx context.Context, leagueID int64, matchday *int) ([]*MatchSummary, error) {
	matches, err := s.catalog.GetUpcomingMatches(ctx, leagueID, matchday)
	if err != nil {
		return nil, fmt.Errorf("fetching upcoming matches: %w", err)
	}
	return s.enrichMatchesWithTeams(ctx, matches)
}

// Roster retrieves a team and its players
func (s *MatchService) Roster(ctx context.Context, teamID int64) (*TeamRoster, error) {
	team, err := s.catalog.GetTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("fetching team: %w", err)
	}
	players, err := s.catalog.ListPlayers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("fetching players: %w", err)
	}
	if players == nil {
		players = []*store.Player{}
	}
	return &TeamRoster{Team: team, Players: players}, nil
}

// enrichMatchesWithTeams adds team details to matches, looking each team up
// once.
func (s *MatchService) enrichMatchesWithTeams(ctx context.Context, matches []*store.Match) ([]*MatchSummary, error) {
	summaries := make([]*MatchSummary, 0, len(matches))
	teams := make(map[int64]*store.Team)

	team := func(id int64) (*store.Team, error) {
		if t, ok := teams[id]; ok {
			return t, nil
		}
		t, err := s.catalog.GetTeam(ctx, id)
		if err != nil {
			return nil, err
		}
		teams[id] = t
		return t, nil
	}

	for _, m := range matches {
		homeTeam, err := team(m.HomeTeamID)
		if err != nil {
			return nil, fmt.Errorf("fetching home team for match %d: %w", m.ID, err)
		}

		awayTeam, err := team(m.AwayTeamID)
		if err != nil {
			return nil, fmt.Errorf("fetching away team for match %d: %w", m.ID, err)
		}

		summaries = append(summaries, &MatchSummary{
			Match:    m,
			HomeTeam: homeTeam,
			AwayTeam: awayTeam,
		})
	}

	return summaries, nil
}

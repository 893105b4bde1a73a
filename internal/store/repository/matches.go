package repository

import (
	"context"
	"fmt"

	"github.com/fortuna/pitchside/internal/store"
)

const matchColumns = `id, home_team_id, away_team_id, league_id, match_date, matchday, source_id, status, created_at, updated_at`

// MatchRepository handles fixture data access
type MatchRepository struct {
	db *store.Database
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *store.Database) *MatchRepository {
	return &MatchRepository{db: db}
}

// Upsert writes a fixture keyed by (home, away, league, matchday). A repeat
// sync moves the kickoff and source id in place so the match id, and anything
// attached to it, is preserved.
func (r *MatchRepository) Upsert(ctx context.Context, m store.MatchUpsert) (int64, error) {
	query := `
		INSERT INTO matches (home_team_id, away_team_id, league_id, match_date, matchday, source_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		ON CONFLICT (home_team_id, away_team_id, league_id, matchday) DO UPDATE SET
			match_date = EXCLUDED.match_date,
			source_id  = COALESCE(EXCLUDED.source_id, matches.source_id),
			updated_at = NOW()
		RETURNING id
	`

	var id int64
	err := r.db.DB().GetContext(ctx, &id, query,
		m.HomeTeamID, m.AwayTeamID, m.LeagueID, m.Kickoff, m.Matchday, m.SourceMatchID)
	if err != nil {
		return 0, fmt.Errorf("upserting match %d-%d md%d: %w", m.HomeTeamID, m.AwayTeamID, m.Matchday, err)
	}

	return id, nil
}

// GetUpcoming returns scheduled matches after now, optionally for one matchday
func (r *MatchRepository) GetUpcoming(ctx context.Context, leagueID int64, matchday *int) ([]*store.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE league_id = $1
		  AND status = 'scheduled'
		  AND match_date > NOW()
		  AND ($2::int IS NULL OR matchday = $2)
		ORDER BY match_date, id
	`

	var matches []*store.Match
	if err := r.db.DB().SelectContext(ctx, &matches, query, leagueID, matchday); err != nil {
		return nil, fmt.Errorf("querying upcoming matches: %w", err)
	}

	return matches, nil
}

// GetNextMatchday returns the scheduled matches of the lowest upcoming matchday
func (r *MatchRepository) GetNextMatchday(ctx context.Context, leagueID int64) ([]*store.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE league_id = $1
		  AND status = 'scheduled'
		  AND match_date > NOW()
		  AND matchday = (
			SELECT MIN(matchday) FROM matches
			WHERE league_id = $1 AND status = 'scheduled' AND match_date > NOW()
		  )
		ORDER BY match_date, id
	`

	var matches []*store.Match
	if err := r.db.DB().SelectContext(ctx, &matches, query, leagueID); err != nil {
		return nil, fmt.Errorf("querying next matchday: %w", err)
	}

	return matches, nil
}

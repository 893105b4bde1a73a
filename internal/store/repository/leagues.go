package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/pitchside/internal/store"
)

// LeagueRepository handles league data access
type LeagueRepository struct {
	db *store.Database
}

// NewLeagueRepository creates a new league repository
func NewLeagueRepository(db *store.Database) *LeagueRepository {
	return &LeagueRepository{db: db}
}

// Upsert inserts a league once; later calls return the existing id untouched
func (r *LeagueRepository) Upsert(ctx context.Context, name, sourceID, season string) (int64, error) {
	query := `
		INSERT INTO leagues (name, source_id, season)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_id) DO NOTHING
		RETURNING id
	`

	var id int64
	err := r.db.DB().GetContext(ctx, &id, query, name, sourceID, season)
	if errors.Is(err, sql.ErrNoRows) {
		league, err := r.GetBySourceID(ctx, sourceID)
		if err != nil {
			return 0, err
		}
		return league.ID, nil
	}
	if err != nil {
		return 0, fmt.Errorf("upserting league %s: %w", sourceID, err)
	}

	return id, nil
}

// GetBySourceID finds a league by its source site id (e.g. "GB1")
func (r *LeagueRepository) GetBySourceID(ctx context.Context, sourceID string) (*store.League, error) {
	query := `
		SELECT id, name, source_id, season, created_at
		FROM leagues
		WHERE source_id = $1
	`

	league := &store.League{}
	err := r.db.DB().GetContext(ctx, league, query, sourceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("league %s: %w", sourceID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying league: %w", err)
	}

	return league, nil
}

// List returns every league ordered by id
func (r *LeagueRepository) List(ctx context.Context) ([]*store.League, error) {
	query := `
		SELECT id, name, source_id, season, created_at
		FROM leagues
		ORDER BY id
	`

	var leagues []*store.League
	if err := r.db.DB().SelectContext(ctx, &leagues, query); err != nil {
		return nil, fmt.Errorf("querying leagues: %w", err)
	}

	return leagues, nil
}

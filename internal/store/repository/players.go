package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/fortuna/pitchside/internal/store"
)

const playerColumns = `id, name, team_id, position, source_id, jersey_number, market_value, age,
	nationality, contract_end_year, minutes_played, games_started, created_at, updated_at`

// PlayerRepository handles player and availability data access
type PlayerRepository struct {
	db *store.Database
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(db *store.Database) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Upsert writes a squad row. Rows with a source id are keyed on
// (source id, team); rows without one on (lower(name), team). Unknown jersey
// numbers and market values never overwrite known ones.
func (r *PlayerRepository) Upsert(ctx context.Context, p store.PlayerUpsert) (int64, error) {
	conflict := `ON CONFLICT (source_id, team_id) WHERE source_id IS NOT NULL`
	if p.SourceID == "" {
		conflict = `ON CONFLICT ((LOWER(name)), team_id) WHERE source_id IS NULL`
	}

	query := `
		INSERT INTO players (name, team_id, position, source_id, jersey_number, market_value)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		` + conflict + ` DO UPDATE SET
			name          = EXCLUDED.name,
			position      = EXCLUDED.position,
			jersey_number = COALESCE(EXCLUDED.jersey_number, players.jersey_number),
			market_value  = COALESCE(EXCLUDED.market_value, players.market_value),
			updated_at    = NOW()
		RETURNING id
	`

	var id int64
	err := r.db.DB().GetContext(ctx, &id, query,
		p.Name, p.TeamID, p.Position, p.SourceID, p.JerseyNumber, p.MarketValue)
	if err != nil {
		return 0, fmt.Errorf("upserting player %q: %w", p.Name, err)
	}

	return id, nil
}

// Find looks a player up by source id within a team, falling back to a
// case-insensitive name match
func (r *PlayerRepository) Find(ctx context.Context, teamID int64, sourceID, name string) (*store.Player, error) {
	query := `
		SELECT ` + playerColumns + `
		FROM players
		WHERE team_id = $1
		  AND ((source_id = NULLIF($2, '')) OR LOWER(name) = LOWER($3))
		ORDER BY (source_id = NULLIF($2, '')) IS TRUE DESC, id
		LIMIT 1
	`

	player := &store.Player{}
	err := r.db.DB().GetContext(ctx, player, query, teamID, sourceID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %q: %w", name, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying player: %w", err)
	}

	return player, nil
}

// ListByTeam returns the squad of a team ordered by market value
func (r *PlayerRepository) ListByTeam(ctx context.Context, teamID int64) ([]*store.Player, error) {
	query := `
		SELECT ` + playerColumns + `
		FROM players
		WHERE team_id = $1
		ORDER BY market_value DESC NULLS LAST, id
	`

	var players []*store.Player
	if err := r.db.DB().SelectContext(ctx, &players, query, teamID); err != nil {
		return nil, fmt.Errorf("querying players: %w", err)
	}

	return players, nil
}

// SetActiveStatus deactivates the current status of the same kind and
// records the new one. An unchanged active status is kept as is. History
// rows are never deleted.
func (r *PlayerRepository) SetActiveStatus(ctx context.Context, u store.StatusUpdate) (int64, error) {
	tx, err := r.db.DB().BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback()

	var current int64
	err = tx.GetContext(ctx, &current, `
		SELECT id FROM player_status
		WHERE player_id = $1 AND status_type = $2 AND is_active
			AND description = $3
			AND expected_return_date IS NOT DISTINCT FROM $4::date
		FOR UPDATE
	`, u.PlayerID, u.Kind, u.Description, u.ExpectedReturn)
	switch {
	case err == nil:
		return current, tx.Commit()
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("reading active status: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE player_status SET is_active = FALSE
		WHERE player_id = $1 AND status_type = $2 AND is_active
	`, u.PlayerID, u.Kind); err != nil {
		return 0, fmt.Errorf("deactivating status: %w", err)
	}

	var id int64
	err = tx.GetContext(ctx, &id, `
		INSERT INTO player_status
			(player_id, status_type, description, start_date, expected_return_date, severity, source_url, is_active)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), TRUE)
		RETURNING id
	`, u.PlayerID, u.Kind, u.Description, u.StartDate, u.ExpectedReturn, u.Severity, u.SourceURL)
	if err != nil {
		return 0, fmt.Errorf("inserting status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit status update: %w", err)
	}

	return id, nil
}

// ClearActiveStatuses deactivates the team's active statuses of the given
// kinds, except the ids in keep.
func (r *PlayerRepository) ClearActiveStatuses(ctx context.Context, teamID int64, kinds []store.StatusKind, keep []int64) (int64, error) {
	kindNames := make([]string, len(kinds))
	for i, k := range kinds {
		kindNames[i] = string(k)
	}
	// a nil slice is sent as NULL, and NOT (id = ANY(NULL)) matches nothing
	if keep == nil {
		keep = []int64{}
	}

	res, err := r.db.DB().ExecContext(ctx, `
		UPDATE player_status ps SET is_active = FALSE
		FROM players p
		WHERE ps.player_id = p.id
			AND p.team_id = $1
			AND ps.is_active
			AND ps.status_type = ANY($2)
			AND NOT (ps.id = ANY($3))
	`, teamID, pq.Array(kindNames), pq.Array(keep))
	if err != nil {
		return 0, fmt.Errorf("clearing statuses of team %d: %w", teamID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clearing statuses of team %d: %w", teamID, err)
	}
	return n, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/pitchside/internal/store"
)

const teamColumns = `t.id, t.name, t.league_id, t.source_id, t.logo_url, t.created_at, t.updated_at`

// TeamRepository handles team and alias data access
type TeamRepository struct {
	db *store.Database
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *store.Database) *TeamRepository {
	return &TeamRepository{db: db}
}

// GetByID finds a team by ID
func (r *TeamRepository) GetByID(ctx context.Context, teamID int64) (*store.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.id = $1`
	return r.getOne(ctx, fmt.Sprintf("team %d", teamID), query, teamID)
}

// FindBySourceID finds a team by (source id, league)
func (r *TeamRepository) FindBySourceID(ctx context.Context, leagueID int64, sourceID string) (*store.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.source_id = $1 AND t.league_id = $2`
	return r.getOne(ctx, "team source "+sourceID, query, sourceID, leagueID)
}

// FindByName finds a team by case-insensitive exact name within a league
func (r *TeamRepository) FindByName(ctx context.Context, leagueID int64, name string) (*store.Team, error) {
	query := `
		SELECT ` + teamColumns + `
		FROM teams t
		WHERE t.league_id = $1 AND LOWER(t.name) = LOWER($2)
		ORDER BY t.id
		LIMIT 1
	`
	return r.getOne(ctx, fmt.Sprintf("team %q", name), query, leagueID, name)
}

// FindByAlias resolves an alias to a team of the given league
func (r *TeamRepository) FindByAlias(ctx context.Context, leagueID int64, alias string) (*store.Team, error) {
	query := `
		SELECT ` + teamColumns + `
		FROM teams t
		JOIN club_aliases ca ON ca.team_id = t.id
		WHERE t.league_id = $1 AND LOWER(ca.alias_name) = LOWER($2)
		ORDER BY ca.id
		LIMIT 1
	`
	return r.getOne(ctx, fmt.Sprintf("alias %q", alias), query, leagueID, alias)
}

// FindByAliasGlobal resolves an alias across all leagues
func (r *TeamRepository) FindByAliasGlobal(ctx context.Context, alias string) (*store.Team, error) {
	query := `
		SELECT ` + teamColumns + `
		FROM teams t
		JOIN club_aliases ca ON ca.team_id = t.id
		WHERE LOWER(ca.alias_name) = LOWER($1)
		ORDER BY ca.id
		LIMIT 1
	`
	return r.getOne(ctx, fmt.Sprintf("alias %q", alias), query, alias)
}

// Create inserts a canonical team. A concurrent writer that created the same
// (source id, league) first wins and its id is returned.
func (r *TeamRepository) Create(ctx context.Context, name string, leagueID int64, sourceID string) (int64, error) {
	var (
		id  int64
		err error
	)
	if sourceID == "" {
		err = r.db.DB().GetContext(ctx, &id,
			`INSERT INTO teams (name, league_id) VALUES ($1, $2) RETURNING id`,
			name, leagueID)
	} else {
		err = r.db.DB().GetContext(ctx, &id, `
			INSERT INTO teams (name, league_id, source_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (source_id, league_id) WHERE source_id IS NOT NULL
			DO UPDATE SET updated_at = teams.updated_at
			RETURNING id
		`, name, leagueID, sourceID)
	}
	if err != nil {
		return 0, fmt.Errorf("inserting team %q: %w", name, err)
	}

	return id, nil
}

// ListByLeague returns the teams of a league in id order
func (r *TeamRepository) ListByLeague(ctx context.Context, leagueID int64) ([]*store.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.league_id = $1 ORDER BY t.id`

	var teams []*store.Team
	if err := r.db.DB().SelectContext(ctx, &teams, query, leagueID); err != nil {
		return nil, fmt.Errorf("querying teams: %w", err)
	}

	return teams, nil
}

// UpdateLogo sets the logo reference of a team
func (r *TeamRepository) UpdateLogo(ctx context.Context, teamID int64, logoURL string) error {
	res, err := r.db.DB().ExecContext(ctx,
		`UPDATE teams SET logo_url = $1, updated_at = NOW() WHERE id = $2`,
		logoURL, teamID)
	if err != nil {
		return fmt.Errorf("updating team logo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("team %d: %w", teamID, store.ErrNotFound)
	}
	return nil
}

// AddAlias registers an alternate name for a team; re-adding is a no-op
func (r *TeamRepository) AddAlias(ctx context.Context, alias store.ClubAlias) (int64, error) {
	if alias.AliasType == "" {
		alias.AliasType = store.AliasOfficial
	}

	query := `
		INSERT INTO club_aliases (team_id, alias_name, alias_type, language_code, source)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (team_id, (LOWER(alias_name))) DO UPDATE SET alias_type = club_aliases.alias_type
		RETURNING id
	`

	var id int64
	err := r.db.DB().GetContext(ctx, &id, query,
		alias.TeamID, alias.AliasName, alias.AliasType, alias.LanguageCode, alias.Source)
	if err != nil {
		return 0, fmt.Errorf("inserting alias %q: %w", alias.AliasName, err)
	}

	return id, nil
}

func (r *TeamRepository) getOne(ctx context.Context, what, query string, args ...any) (*store.Team, error) {
	team := &store.Team{}
	err := r.db.DB().GetContext(ctx, team, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", what, err)
	}

	return team, nil
}

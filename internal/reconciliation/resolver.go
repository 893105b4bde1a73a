package reconciliation

import (
	"context"
	"errors"
	"strings"

	crerr "github.com/cockroachdb/errors"

	"github.com/fortuna/pitchside/internal/logging"
	"github.com/fortuna/pitchside/internal/store"
)

// ErrUnresolved is returned when a team could be neither found nor created.
var ErrUnresolved = crerr.New("team unresolved")

// TeamStore is the subset of the catalog the resolver reads and writes.
// Lookups return an error wrapping store.ErrNotFound on a miss.
type TeamStore interface {
	FindTeamBySourceID(ctx context.Context, leagueID int64, sourceID string) (*store.Team, error)
	FindTeamByName(ctx context.Context, leagueID int64, name string) (*store.Team, error)
	FindTeamByAlias(ctx context.Context, leagueID int64, alias string) (*store.Team, error)
	FindTeamByAliasGlobal(ctx context.Context, alias string) (*store.Team, error)
	CreateTeam(ctx context.Context, name string, leagueID int64, sourceID string) (int64, error)
}

// Via names the step that produced a resolution
type Via string

const (
	ViaSourceID    Via = "source_id"
	ViaName        Via = "name"
	ViaLeagueAlias Via = "league_alias"
	ViaGlobalAlias Via = "global_alias"
	ViaCreated     Via = "created"
)

// Resolution is a resolved team id and how it was found
type Resolution struct {
	TeamID int64
	Via    Via
}

// Resolver maps scraped (name, source id) pairs onto canonical teams.
// It never merges, renames or re-keys an existing team.
type Resolver struct {
	teams  TeamStore
	logger *logging.Logger
}

func NewResolver(teams TeamStore, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{teams: teams, logger: logger.With("component", "resolver")}
}

// ResolveTeam returns the canonical team id for a scraped club, creating
// the team when no id, name or alias matches.
func (r *Resolver) ResolveTeam(ctx context.Context, name string, leagueID int64, sourceID string) (int64, error) {
	res, err := r.Resolve(ctx, name, leagueID, sourceID)
	if err != nil {
		return 0, err
	}
	return res.TeamID, nil
}

// Resolve tries source id within the league, then case-insensitive name
// within the league, then alias within the league, then alias in any
// league, and finally creates a team.
func (r *Resolver) Resolve(ctx context.Context, name string, leagueID int64, sourceID string) (Resolution, error) {
	name = strings.TrimSpace(name)
	sourceID = strings.TrimSpace(sourceID)
	if name == "" && sourceID == "" {
		return Resolution{}, crerr.Wrap(ErrUnresolved, "empty team reference")
	}

	steps := []struct {
		via  Via
		skip bool
		find func() (*store.Team, error)
	}{
		{ViaSourceID, sourceID == "", func() (*store.Team, error) { return r.teams.FindTeamBySourceID(ctx, leagueID, sourceID) }},
		{ViaName, name == "", func() (*store.Team, error) { return r.teams.FindTeamByName(ctx, leagueID, name) }},
		{ViaLeagueAlias, name == "", func() (*store.Team, error) { return r.teams.FindTeamByAlias(ctx, leagueID, name) }},
		{ViaGlobalAlias, name == "", func() (*store.Team, error) { return r.teams.FindTeamByAliasGlobal(ctx, name) }},
	}

	for _, step := range steps {
		if step.skip {
			continue
		}
		team, err := step.find()
		switch {
		case err == nil && team != nil:
			return Resolution{TeamID: team.ID, Via: step.via}, nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			// a failing lookup is not a miss
			return Resolution{}, crerr.Mark(crerr.Wrapf(err, "resolve team %q by %s", name, step.via), ErrUnresolved)
		}
	}

	if name == "" {
		return Resolution{}, crerr.Wrapf(ErrUnresolved, "no team with source id %s and no name to create one", sourceID)
	}

	id, err := r.teams.CreateTeam(ctx, name, leagueID, sourceID)
	if err != nil {
		r.logger.ErrorContext(ctx, "team creation failed",
			"team", name, "league_id", leagueID, "source_id", sourceID, "err", err)
		return Resolution{}, crerr.Mark(crerr.Wrapf(err, "create team %q", name), ErrUnresolved)
	}
	r.logger.InfoContext(ctx, "created team",
		"team", name, "team_id", id, "league_id", leagueID, "source_id", sourceID)
	return Resolution{TeamID: id, Via: ViaCreated}, nil
}

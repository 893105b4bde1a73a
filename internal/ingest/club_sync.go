package ingest

import (
	"context"
	"database/sql"

	crerr "github.com/cockroachdb/errors"

	"github.com/fortuna/pitchside/internal/config"
	"github.com/fortuna/pitchside/internal/ingest/transfermarkt"
	"github.com/fortuna/pitchside/internal/reconciliation"
	"github.com/fortuna/pitchside/internal/store"
)

// aliasSource marks aliases written from configuration
const aliasSource = "config"

// Job names
const (
	JobAliases = "aliases"
	JobLogos   = "logos"
	JobTeams   = "teams"
)

// ClubSync discovers a league's clubs and fills in missing crests. Both
// run in the pre-season branch of the full sync.
type ClubSync struct {
	env      Env
	resolver *reconciliation.Resolver
}

func NewClubSync(env Env, resolver *reconciliation.Resolver) *ClubSync {
	env = env.withDefaults()
	if resolver == nil {
		resolver = reconciliation.NewResolver(env.Catalog, env.Logger)
	}
	return &ClubSync{env: env, resolver: resolver}
}

// DiscoverTeams resolves every first-team club on the league's standings
// page, creating the ones the catalog does not know yet.
func (j *ClubSync) DiscoverTeams(ctx context.Context, league config.League, leagueID int64) (*Report, error) {
	report := NewReport(JobTeams)
	logger := j.env.Logger.With("league", league.SourceID)

	doc, err := j.env.Fetcher.Fetch(ctx, j.env.Site.Standings(league))
	if err != nil {
		report.Skip(league.SourceID, "no data this cycle")
		logger.WarnContext(ctx, "no standings data this cycle", "err", err)
		return report, nil
	}

	refs := transfermarkt.ParseLeagueTeams(doc.Document, league.ExpectedTeams)
	for _, ref := range refs {
		res, err := j.resolver.Resolve(ctx, ref.Name, leagueID, ref.SourceID)
		if err != nil {
			report.Fail(ref.Name, ErrResolution, err)
			continue
		}
		report.Success(ref.Name)
		if res.Via == reconciliation.ViaCreated {
			logger.InfoContext(ctx, "discovered team", "team", ref.Name, "source_id", ref.SourceID)
		}
	}
	if len(refs) < league.ExpectedTeams {
		logger.WarnContext(ctx, "fewer clubs than expected on standings page",
			"found", len(refs), "expected", league.ExpectedTeams)
	}
	return report, ctx.Err()
}

// SeedAliases writes the league's configured club aliases for every club
// already in the catalog. Clubs not synced yet are picked up by a later run.
func (j *ClubSync) SeedAliases(ctx context.Context, league config.League, leagueID int64) (*Report, error) {
	report := NewReport(JobAliases)
	for _, alias := range league.Aliases {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		team, err := j.env.Catalog.FindTeamBySourceID(ctx, leagueID, alias.TeamSourceID)
		if err != nil {
			if crerr.Is(err, store.ErrNotFound) {
				report.Skip(alias.Name, "club not synced yet")
			} else {
				report.Fail(alias.Name, ErrPersistence, err)
			}
			continue
		}
		_, err = j.env.Catalog.AddAlias(ctx, store.ClubAlias{
			TeamID:       team.ID,
			AliasName:    alias.Name,
			AliasType:    store.AliasKind(alias.Kind),
			LanguageCode: sql.NullString{String: alias.Language, Valid: alias.Language != ""},
			Source:       sql.NullString{String: aliasSource, Valid: true},
		})
		if err != nil {
			report.Fail(alias.Name, ErrPersistence, err)
			continue
		}
		report.Success(alias.Name)
	}
	return report, nil
}

// RefreshLogos fetches the crest of every team of the league that has a
// source id and no logo yet.
func (j *ClubSync) RefreshLogos(ctx context.Context, leagueID int64) (*Report, error) {
	report := NewReport(JobLogos)
	teams, err := j.env.Catalog.ListTeams(ctx, leagueID)
	if err != nil {
		report.Fail("teams", ErrPersistence, err)
		return report, nil
	}

	first := true
	for _, team := range teams {
		if team.LogoURL.Valid || !team.SourceID.Valid {
			continue
		}
		if !first {
			if err := j.env.pause(ctx, j.env.Pauses.Logo); err != nil {
				return report, err
			}
		}
		first = false

		report.Guard(team.Name, func() {
			doc, err := j.env.Fetcher.Fetch(ctx, j.env.Site.ClubHome(team.SourceID.String))
			if err != nil {
				report.Skip(team.Name, "no data this cycle")
				return
			}
			logo := transfermarkt.ParseLogo(doc.Document, j.env.Site)
			if logo == "" {
				report.Skip(team.Name, "no crest on page")
				return
			}
			if err := j.env.Catalog.UpdateTeamLogo(ctx, team.ID, logo); err != nil {
				report.Fail(team.Name, ErrPersistence, err)
				return
			}
			report.Success(team.Name)
		})
	}
	return report, ctx.Err()
}

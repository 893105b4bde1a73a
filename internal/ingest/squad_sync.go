package ingest

import (
	"context"
	"fmt"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/fortuna/pitchside/internal/ingest/transfermarkt"
	"github.com/fortuna/pitchside/internal/store"
)

// Job names
const (
	JobSquads   = "squads"
	JobInjuries = "injuries"
)

// SquadSync refreshes rosters and availability, one team at a time with a
// fixed pause between teams.
type SquadSync struct {
	env Env
}

func NewSquadSync(env Env) *SquadSync {
	return &SquadSync{env: env.withDefaults()}
}

// SyncSquads refreshes the roster of every team of the league that has a
// source id.
func (j *SquadSync) SyncSquads(ctx context.Context, leagueID int64) (*Report, error) {
	return j.eachTeam(ctx, JobSquads, leagueID, j.env.Pauses.Squad, j.SyncSquad)
}

// SyncInjuries refreshes the injury list of every team of the league.
func (j *SquadSync) SyncInjuries(ctx context.Context, leagueID int64) (*Report, error) {
	return j.eachTeam(ctx, JobInjuries, leagueID, j.env.Pauses.Injury, j.SyncTeamInjuries)
}

func (j *SquadSync) eachTeam(ctx context.Context, job string, leagueID int64, pause time.Duration, fn func(context.Context, *store.Team, *Report)) (*Report, error) {
	report := NewReport(job)
	teams, err := j.env.Catalog.ListTeams(ctx, leagueID)
	if err != nil {
		report.Fail(fmt.Sprintf("league %d", leagueID), ErrPersistence, err)
		return report, nil
	}

	first := true
	for _, team := range teams {
		if !team.SourceID.Valid {
			report.Skip(team.Name, "no source id")
			continue
		}
		if !first {
			if err := j.env.pause(ctx, pause); err != nil {
				return report, err
			}
		}
		first = false
		report.Guard(team.Name, func() { fn(ctx, team, report) })
	}
	return report, ctx.Err()
}

// SyncSquad upserts every roster row of one team.
func (j *SquadSync) SyncSquad(ctx context.Context, team *store.Team, report *Report) {
	logger := j.env.Logger.With("team", team.Name, "team_id", team.ID)

	doc, err := j.env.Fetcher.Fetch(ctx, j.env.Site.Squad(team.SourceID.String))
	if err != nil {
		report.Skip(team.Name, "no data this cycle")
		logger.WarnContext(ctx, "no squad data this cycle", "err", err)
		return
	}

	rows := transfermarkt.ParseSquad(doc.Document)
	if len(rows) == 0 {
		report.Fail(team.Name, ErrParseAnomaly, crerr.New("squad page has no roster rows"))
		logger.WarnContext(ctx, "squad page has no roster rows", "url", doc.URL)
		return
	}

	var stored, failed int
	for _, row := range rows {
		_, err := j.env.Catalog.UpsertPlayer(ctx, store.PlayerUpsert{
			Name:         row.Player.Name,
			TeamID:       team.ID,
			Position:     row.Position,
			SourceID:     row.Player.SourceID,
			JerseyNumber: row.JerseyNumber,
			MarketValue:  row.MarketValue,
		})
		if err != nil {
			failed++
			logger.ErrorContext(ctx, "player upsert failed", "player", row.Player.Name, "err", err)
			continue
		}
		stored++
	}

	if stored == 0 {
		report.Fail(team.Name, ErrPersistence, crerr.Newf("all %d player upserts failed", failed))
		return
	}
	report.Success(team.Name)
	logger.InfoContext(ctx, "squad synced", "players", stored, "failed", failed)
}

// SyncTeamInjuries records the current injury list of one team. Players
// not yet in the roster are skipped.
func (j *SquadSync) SyncTeamInjuries(ctx context.Context, team *store.Team, report *Report) {
	logger := j.env.Logger.With("team", team.Name, "team_id", team.ID)
	target := j.env.Site.Injuries(team.SourceID.String)

	doc, err := j.env.Fetcher.FetchPlain(ctx, target)
	if err != nil {
		report.Skip(team.Name, "no data this cycle")
		logger.WarnContext(ctx, "no injury data this cycle", "err", err)
		return
	}

	now := j.env.Now().In(j.env.Location)
	rows := transfermarkt.ParseInjuries(doc.Document, now, j.env.Location)

	var (
		recorded, unknown int
		errored           bool
		listed            []int64
	)
	for _, row := range rows {
		player, err := j.env.Catalog.FindPlayer(ctx, team.ID, row.Player.SourceID, row.Player.Name)
		if err != nil {
			if !crerr.Is(err, store.ErrNotFound) {
				logger.ErrorContext(ctx, "player lookup failed", "player", row.Player.Name, "err", err)
				errored = true
			}
			unknown++
			continue
		}

		id, err := j.env.Catalog.SetActivePlayerStatus(ctx, store.StatusUpdate{
			PlayerID:       player.ID,
			Kind:           transfermarkt.ClassifyStatus(row.Description),
			Description:    row.Description,
			ExpectedReturn: row.ExpectedReturn,
			SourceURL:      target.URL,
		})
		if err != nil {
			logger.ErrorContext(ctx, "status update failed", "player", row.Player.Name, "err", err)
			errored = true
			continue
		}
		listed = append(listed, id)
		recorded++
	}

	// players no longer on the list are available again; a partial write
	// or an unrecognized page leaves the previous state alone
	var cleared int64
	if !errored && transfermarkt.HasInjuryList(doc.Document) {
		cleared, err = j.env.Catalog.ClearActiveStatuses(ctx, team.ID, transfermarkt.InjuryListKinds, listed)
		if err != nil {
			logger.ErrorContext(ctx, "clearing recovered players failed", "err", err)
		}
	}

	report.Success(team.Name)
	logger.InfoContext(ctx, "injuries synced",
		"rows", len(rows), "recorded", recorded, "unknown_players", unknown, "cleared", cleared)
}

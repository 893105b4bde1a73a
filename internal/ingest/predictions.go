package ingest

import (
	"context"
	"fmt"

	crerr "github.com/cockroachdb/errors"

	"github.com/fortuna/pitchside/internal/config"
	"github.com/fortuna/pitchside/internal/store"
)

// Job names
const (
	JobFillPredictions  = "predictions_fill"
	JobForcePredictions = "predictions_force"
)

// forcedMatchesPerLeague bounds the forced refresh to the nearest matches
const forcedMatchesPerLeague = 5

// Predictor recomputes the lineup prediction of one side of a match. Its
// logic lives outside this service.
type Predictor interface {
	PredictLineup(ctx context.Context, matchID, teamID int64) error
}

// PredictionRefresh drives the predictor at the two refresh cadences.
type PredictionRefresh struct {
	env       Env
	predictor Predictor
}

func NewPredictionRefresh(env Env, predictor Predictor) *PredictionRefresh {
	return &PredictionRefresh{env: env.withDefaults(), predictor: predictor}
}

// FillMissing requests a prediction for each side of every next-matchday
// match that has none yet. Existing predictions are never recomputed.
func (j *PredictionRefresh) FillMissing(ctx context.Context, leagues []config.League) (*Report, error) {
	report := NewReport(JobFillPredictions)
	for i, league := range leagues {
		if i > 0 {
			if err := j.env.pause(ctx, j.env.Pauses.FillLeague); err != nil {
				return report, err
			}
		}
		leagueID, ok := j.leagueID(ctx, league, report)
		if !ok {
			continue
		}
		matches, err := j.env.Catalog.GetNextMatchdayMatches(ctx, leagueID)
		if err != nil {
			report.Fail(league.SourceID, ErrPersistence, err)
			continue
		}
		for _, m := range matches {
			report.Guard(matchEntity(m), func() {
				for _, teamID := range []int64{m.HomeTeamID, m.AwayTeamID} {
					j.fill(ctx, m, teamID, report)
				}
			})
			if err := j.env.pause(ctx, j.env.Pauses.FillPrediction); err != nil {
				return report, err
			}
		}
	}
	return report, ctx.Err()
}

func (j *PredictionRefresh) fill(ctx context.Context, m *store.Match, teamID int64, report *Report) {
	entity := sideEntity(m, teamID)
	exists, err := j.env.Catalog.HasLineupPrediction(ctx, m.ID, teamID)
	if err != nil {
		report.Fail(entity, ErrPersistence, err)
		return
	}
	if exists {
		report.Skip(entity, "prediction exists")
		return
	}
	j.predict(ctx, m, teamID, report)
}

// Force recomputes predictions for the first upcoming matches of every
// league regardless of what is stored.
func (j *PredictionRefresh) Force(ctx context.Context, leagues []config.League) (*Report, error) {
	report := NewReport(JobForcePredictions)
	for _, league := range leagues {
		leagueID, ok := j.leagueID(ctx, league, report)
		if !ok {
			continue
		}
		matches, err := j.env.Catalog.GetUpcomingMatches(ctx, leagueID, nil)
		if err != nil {
			report.Fail(league.SourceID, ErrPersistence, err)
			continue
		}
		if len(matches) > forcedMatchesPerLeague {
			matches = matches[:forcedMatchesPerLeague]
		}
		for _, m := range matches {
			report.Guard(matchEntity(m), func() {
				j.predict(ctx, m, m.HomeTeamID, report)
				j.predict(ctx, m, m.AwayTeamID, report)
			})
			if err := j.env.pause(ctx, j.env.Pauses.ForcedPrediction); err != nil {
				return report, err
			}
		}
	}
	return report, ctx.Err()
}

func (j *PredictionRefresh) predict(ctx context.Context, m *store.Match, teamID int64, report *Report) {
	entity := sideEntity(m, teamID)
	if j.predictor == nil {
		report.Skip(entity, "no predictor configured")
		return
	}
	if err := j.predictor.PredictLineup(ctx, m.ID, teamID); err != nil {
		report.Fail(entity, nil, crerr.Wrap(err, "predict lineup"))
		j.env.Logger.WarnContext(ctx, "lineup prediction failed", "match_id", m.ID, "team_id", teamID, "err", err)
		return
	}
	report.Success(entity)
}

// leagueID looks up a league that has been synced at least once.
func (j *PredictionRefresh) leagueID(ctx context.Context, league config.League, report *Report) (int64, bool) {
	l, err := j.env.Catalog.GetLeagueBySourceID(ctx, league.SourceID)
	switch {
	case err == nil:
		return l.ID, true
	case crerr.Is(err, store.ErrNotFound):
		report.Skip(league.SourceID, "league not synced yet")
	default:
		report.Fail(league.SourceID, ErrPersistence, err)
	}
	return 0, false
}

func matchEntity(m *store.Match) string {
	return fmt.Sprintf("match %d", m.ID)
}

func sideEntity(m *store.Match, teamID int64) string {
	return fmt.Sprintf("match %d team %d", m.ID, teamID)
}

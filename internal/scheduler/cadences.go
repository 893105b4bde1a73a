package scheduler

import (
	"context"

	crerr "github.com/cockroachdb/errors"

	"github.com/fortuna/pitchside/internal/config"
	"github.com/fortuna/pitchside/internal/ingest"
	"github.com/fortuna/pitchside/internal/logging"
	"github.com/fortuna/pitchside/internal/publisher"
	"github.com/fortuna/pitchside/internal/store"
)

// The job contracts a cadence drives. The ingest package types satisfy them.
type (
	MatchSyncer interface {
		SyncAll(ctx context.Context, leagues []config.League) (*ingest.Report, []ingest.LeagueResult, error)
	}
	SquadSyncer interface {
		SyncSquads(ctx context.Context, leagueID int64) (*ingest.Report, error)
		SyncInjuries(ctx context.Context, leagueID int64) (*ingest.Report, error)
	}
	ClubSyncer interface {
		DiscoverTeams(ctx context.Context, league config.League, leagueID int64) (*ingest.Report, error)
		RefreshLogos(ctx context.Context, leagueID int64) (*ingest.Report, error)
		SeedAliases(ctx context.Context, league config.League, leagueID int64) (*ingest.Report, error)
	}
	NewsSyncer interface {
		SyncLeague(ctx context.Context, leagueSourceID string, leagueID int64) (*ingest.Report, error)
	}
	PredictionRefresher interface {
		FillMissing(ctx context.Context, leagues []config.League) (*ingest.Report, error)
		Force(ctx context.Context, leagues []config.League) (*ingest.Report, error)
	}
	LeagueLookup interface {
		GetLeagueBySourceID(ctx context.Context, sourceID string) (*store.League, error)
	}
)

// Jobs bundles everything the cadences call.
type Jobs struct {
	Matches     MatchSyncer
	Squads      SquadSyncer
	Clubs       ClubSyncer
	News        NewsSyncer
	Predictions PredictionRefresher
	Leagues     LeagueLookup
}

func (j Jobs) validate() error {
	switch {
	case j.Matches == nil:
		return crerr.New("scheduler: match sync job is required")
	case j.Squads == nil:
		return crerr.New("scheduler: squad sync job is required")
	case j.Clubs == nil:
		return crerr.New("scheduler: club sync job is required")
	case j.News == nil:
		return crerr.New("scheduler: news sync job is required")
	case j.Predictions == nil:
		return crerr.New("scheduler: prediction job is required")
	case j.Leagues == nil:
		return crerr.New("scheduler: league lookup is required")
	}
	return nil
}

// PreSeason reports whether the configured season has not started yet.
func (o *Orchestrator) PreSeason() bool {
	return o.now().Before(o.cfg.SeasonStart)
}

func (o *Orchestrator) syncMatches(ctx context.Context, cadence Cadence) error {
	report, results, err := o.jobs.Matches.SyncAll(ctx, o.cfg.Leagues)
	for _, res := range results {
		o.publish(ctx, cadence, res.League.SourceID, res.Report, res.Structural, nil)
	}
	o.summarize(ctx, cadence, report, err)
	return err
}

func (o *Orchestrator) fillPredictions(ctx context.Context, cadence Cadence) error {
	report, err := o.jobs.Predictions.FillMissing(ctx, o.cfg.Leagues)
	o.publish(ctx, cadence, "", report, false, err)
	o.summarize(ctx, cadence, report, err)
	return err
}

// fullSync runs matches, then the season-phase branch and the alias seed
// per league, then news, then the forced prediction refresh. Entity failures are recorded in
// the job reports; only a job-level error (cancellation) ends it early.
func (o *Orchestrator) fullSync(ctx context.Context) error {
	if err := o.syncMatches(ctx, CadenceFull); err != nil {
		return err
	}

	preSeason := o.PreSeason()
	o.logger.InfoContext(ctx, "season phase", "pre_season", preSeason)

	leagueIDs := make(map[string]int64, len(o.cfg.Leagues))
	for _, league := range o.cfg.Leagues {
		if err := ctx.Err(); err != nil {
			return err
		}
		stored, err := o.jobs.Leagues.GetLeagueBySourceID(ctx, league.SourceID)
		if err != nil {
			o.logger.WarnContext(ctx, "league not synced yet, skipping squad step",
				"league", league.SourceID, "err", err)
			continue
		}
		leagueIDs[league.SourceID] = stored.ID

		if preSeason {
			err = o.preSeasonLeague(ctx, league, stored.ID)
		} else {
			err = o.step(ctx, league.SourceID, func() (*ingest.Report, error) {
				return o.jobs.Squads.SyncInjuries(ctx, stored.ID)
			})
		}
		if err != nil {
			return err
		}
		// after discovery so clubs new this season get their aliases too
		if err := o.step(ctx, league.SourceID, func() (*ingest.Report, error) {
			return o.jobs.Clubs.SeedAliases(ctx, league, stored.ID)
		}); err != nil {
			return err
		}
	}

	for _, league := range o.cfg.Leagues {
		leagueID, ok := leagueIDs[league.SourceID]
		if !ok {
			continue
		}
		if err := o.step(ctx, league.SourceID, func() (*ingest.Report, error) {
			return o.jobs.News.SyncLeague(ctx, league.SourceID, leagueID)
		}); err != nil {
			return err
		}
	}

	return o.step(ctx, "", func() (*ingest.Report, error) {
		return o.jobs.Predictions.Force(ctx, o.cfg.Leagues)
	})
}

func (o *Orchestrator) preSeasonLeague(ctx context.Context, league config.League, leagueID int64) error {
	steps := []func() (*ingest.Report, error){
		func() (*ingest.Report, error) { return o.jobs.Clubs.DiscoverTeams(ctx, league, leagueID) },
		func() (*ingest.Report, error) { return o.jobs.Squads.SyncSquads(ctx, leagueID) },
		func() (*ingest.Report, error) { return o.jobs.Clubs.RefreshLogos(ctx, leagueID) },
	}
	for _, fn := range steps {
		if err := o.step(ctx, league.SourceID, fn); err != nil {
			return err
		}
	}
	return nil
}

// step runs one job of the full sync and reports it.
func (o *Orchestrator) step(ctx context.Context, league string, fn func() (*ingest.Report, error)) error {
	report, err := fn()
	o.publish(ctx, CadenceFull, league, report, false, err)
	if report != nil {
		o.logger.InfoContext(ctx, "job finished", append(report.LogFields(), "league", league)...)
	}
	return err
}

func (o *Orchestrator) summarize(ctx context.Context, cadence Cadence, report *ingest.Report, err error) {
	if report == nil {
		return
	}
	args := append(report.LogFields(), "cadence", string(cadence))
	if err != nil {
		o.logger.ErrorContext(ctx, "job ended early", append(args, "err", err)...)
		return
	}
	o.logger.InfoContext(ctx, "job finished", args...)
}

func (o *Orchestrator) publish(ctx context.Context, cadence Cadence, league string, report *ingest.Report, structural bool, jobErr error) {
	if o.events == nil || report == nil {
		return
	}
	ok, skipped, failed := report.Counts()
	ev := publisher.SyncEvent{
		RunID:      logging.RunID(ctx),
		Cadence:    string(cadence),
		Job:        report.Job,
		League:     league,
		Succeeded:  ok,
		Skipped:    skipped,
		Failed:     failed,
		Structural: structural,
		At:         o.now(),
	}
	if jobErr != nil {
		ev.Error = jobErr.Error()
	}
	// the loop context may be cancelled already; the event still describes
	// work that happened
	if err := o.events.PublishSyncEvent(context.WithoutCancel(ctx), ev); err != nil {
		o.logger.WarnContext(ctx, "publish sync event failed", "job", report.Job, "err", err)
	}
}

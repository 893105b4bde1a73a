package ingest

import (
	"context"
	"fmt"

	crerr "github.com/cockroachdb/errors"

	"github.com/fortuna/pitchside/internal/config"
	"github.com/fortuna/pitchside/internal/ingest/transfermarkt"
	"github.com/fortuna/pitchside/internal/metrics"
	"github.com/fortuna/pitchside/internal/reconciliation"
	"github.com/fortuna/pitchside/internal/store"
)

// JobMatches names the fixture job in reports and metrics
const JobMatches = "matches"

// YieldTracker remembers how many candidates each league produced on its
// last fetched sync.
type YieldTracker interface {
	LastYield(ctx context.Context, league string) (n int, ok bool, err error)
	RecordYield(ctx context.Context, league string, n int) error
}

// LeagueResult describes one league sync.
type LeagueResult struct {
	League     config.League
	LeagueID   int64
	Matchday   int
	Fetched    bool
	Candidates int
	Upserted   int
	Parse      transfermarkt.ParseStats
	// Structural is set when a previously healthy league yielded nothing
	Structural bool
	Report     *Report
}

// LeagueSync fetches a league's current matchday, parses the fixture
// table, resolves both clubs of every row and upserts the matches.
type LeagueSync struct {
	env      Env
	parser   *transfermarkt.RowParser
	resolver *reconciliation.Resolver
	yields   YieldTracker
}

// NewLeagueSync creates the job. yields may be nil, which disables the
// structural-change check.
func NewLeagueSync(env Env, resolver *reconciliation.Resolver, yields YieldTracker) *LeagueSync {
	env = env.withDefaults()
	parser := transfermarkt.NewRowParser(env.Location)
	parser.Now = env.Now
	if resolver == nil {
		resolver = reconciliation.NewResolver(env.Catalog, env.Logger)
	}
	return &LeagueSync{env: env, parser: parser, resolver: resolver, yields: yields}
}

// SyncAll runs every league in order. A league that fails is recorded and
// the next one still runs; only cancellation ends the loop early.
func (j *LeagueSync) SyncAll(ctx context.Context, leagues []config.League) (*Report, []LeagueResult, error) {
	report := NewReport(JobMatches)
	if len(leagues) == 0 {
		return report, nil, crerr.New("no leagues configured")
	}

	results := make([]LeagueResult, 0, len(leagues))
	for _, league := range leagues {
		if err := ctx.Err(); err != nil {
			return report, results, err
		}
		report.Guard(league.SourceID, func() {
			res := j.SyncLeague(ctx, league)
			results = append(results, res)
			report.Merge(res.Report)
		})
	}
	return report, results, nil
}

// SyncLeague syncs the league's current matchday.
func (j *LeagueSync) SyncLeague(ctx context.Context, league config.League) LeagueResult {
	return j.SyncMatchday(ctx, league, j.CurrentMatchday(ctx, league))
}

// CurrentMatchday reads the matchday picker of the league landing page.
// Any failure yields matchday 1.
func (j *LeagueSync) CurrentMatchday(ctx context.Context, league config.League) int {
	doc, err := j.env.Fetcher.FetchPlain(ctx, j.env.Site.LeagueHome(league))
	if err != nil {
		j.env.Logger.WarnContext(ctx, "matchday lookup failed, using 1",
			"league", league.SourceID, "err", err)
		return 1
	}
	return transfermarkt.ParseCurrentMatchday(doc.Document)
}

// SyncMatchday syncs one explicit matchday of league.
func (j *LeagueSync) SyncMatchday(ctx context.Context, league config.League, matchday int) LeagueResult {
	logger := j.env.Logger.With("league", league.SourceID, "matchday", matchday)
	res := LeagueResult{League: league, Matchday: matchday, Report: NewReport(JobMatches)}

	leagueID, err := j.env.Catalog.UpsertLeague(ctx, league.Name, league.SourceID, league.Season)
	if err != nil {
		res.Report.Fail(league.SourceID, ErrPersistence, crerr.Wrap(err, "upsert league"))
		logger.ErrorContext(ctx, "league upsert failed", "err", err)
		return res
	}
	res.LeagueID = leagueID

	doc, err := j.env.Fetcher.Fetch(ctx, j.env.Site.Fixtures(league, matchday))
	if err != nil {
		res.Report.Skip(league.SourceID, "no data this cycle")
		logger.WarnContext(ctx, "no fixture data this cycle", "err", err)
		return res
	}
	res.Fetched = true

	candidates, stats := j.parser.ParseDocument(doc.Document, matchday)
	res.Candidates = len(candidates)
	res.Parse = stats
	metrics.LeagueCandidates(league.SourceID, len(candidates))
	for reason, n := range stats.Skipped {
		logger.DebugContext(ctx, "fixture rows skipped", "reason", string(reason), "rows", n)
	}
	if stats.Guessed > 0 {
		logger.WarnContext(ctx, "unreadable kickoff text, defaulted to tomorrow 15:00",
			"rows", stats.Guessed)
	}

	res.Structural = j.checkYield(ctx, league, len(candidates))
	if len(candidates) == 0 {
		res.Report.Skip(league.SourceID, "no fixtures parsed")
	}

	for _, c := range candidates {
		entity := fmt.Sprintf("%s vs %s", c.Home.Name, c.Away.Name)
		home, err := j.resolver.ResolveTeam(ctx, c.Home.Name, leagueID, c.Home.SourceID)
		if err != nil {
			res.Report.Fail(entity, ErrResolution, err)
			logger.WarnContext(ctx, "home team unresolved, row skipped", "match", entity, "err", err)
			continue
		}
		away, err := j.resolver.ResolveTeam(ctx, c.Away.Name, leagueID, c.Away.SourceID)
		if err != nil {
			res.Report.Fail(entity, ErrResolution, err)
			logger.WarnContext(ctx, "away team unresolved, row skipped", "match", entity, "err", err)
			continue
		}

		_, err = j.env.Catalog.UpsertMatch(ctx, store.MatchUpsert{
			HomeTeamID:    home,
			AwayTeamID:    away,
			LeagueID:      leagueID,
			Kickoff:       c.Kickoff,
			Matchday:      c.Matchday,
			SourceMatchID: c.SourceMatchID,
		})
		if err != nil {
			res.Report.Fail(entity, ErrPersistence, err)
			logger.ErrorContext(ctx, "match upsert failed", "match", entity, "err", err)
			continue
		}
		res.Upserted++
		res.Report.Success(entity)
	}

	logger.InfoContext(ctx, "league synced",
		"strategy", doc.Strategy, "rows", stats.Rows, "candidates", res.Candidates, "upserted", res.Upserted)
	return res
}

// checkYield compares this yield with the last recorded one. A fetched
// document that yields nothing for a league that used to yield matches
// points at a markup change rather than an empty schedule.
func (j *LeagueSync) checkYield(ctx context.Context, league config.League, n int) bool {
	if j.yields == nil {
		return false
	}
	prev, ok, err := j.yields.LastYield(ctx, league.SourceID)
	if err != nil {
		j.env.Logger.WarnContext(ctx, "yield history unavailable", "league", league.SourceID, "err", err)
	}
	if err := j.yields.RecordYield(ctx, league.SourceID, n); err != nil {
		j.env.Logger.WarnContext(ctx, "recording yield failed", "league", league.SourceID, "err", err)
	}

	if n == 0 && ok && prev > 0 {
		metrics.StructuralAlert(league.SourceID)
		j.env.Logger.ErrorContext(ctx, "structural change suspected: healthy league yielded no fixtures",
			"league", league.SourceID, "previous_candidates", prev)
		return true
	}
	return false
}

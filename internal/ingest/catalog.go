package ingest

import (
	"context"
	"time"

	"github.com/fortuna/pitchside/internal/fetch"
	"github.com/fortuna/pitchside/internal/ingest/transfermarkt"
	"github.com/fortuna/pitchside/internal/logging"
	"github.com/fortuna/pitchside/internal/reconciliation"
	"github.com/fortuna/pitchside/internal/store"
)

// Catalog is the persistence contract the jobs write through. Every write
// is keyed and idempotent, so overlapping runs and outside writers are
// safe. Implemented by repository.Catalog and memory.Catalog.
type Catalog interface {
	reconciliation.TeamStore

	UpsertLeague(ctx context.Context, name, sourceID, season string) (int64, error)
	GetLeagueBySourceID(ctx context.Context, sourceID string) (*store.League, error)

	GetTeam(ctx context.Context, teamID int64) (*store.Team, error)
	ListTeams(ctx context.Context, leagueID int64) ([]*store.Team, error)
	UpdateTeamLogo(ctx context.Context, teamID int64, logoURL string) error
	AddAlias(ctx context.Context, alias store.ClubAlias) (int64, error)

	UpsertMatch(ctx context.Context, m store.MatchUpsert) (int64, error)
	GetUpcomingMatches(ctx context.Context, leagueID int64, matchday *int) ([]*store.Match, error)
	GetNextMatchdayMatches(ctx context.Context, leagueID int64) ([]*store.Match, error)

	UpsertPlayer(ctx context.Context, p store.PlayerUpsert) (int64, error)
	FindPlayer(ctx context.Context, teamID int64, sourceID, name string) (*store.Player, error)
	ListPlayers(ctx context.Context, teamID int64) ([]*store.Player, error)
	SetActivePlayerStatus(ctx context.Context, u store.StatusUpdate) (int64, error)
	ClearActiveStatuses(ctx context.Context, teamID int64, kinds []store.StatusKind, keep []int64) (int64, error)

	HasLineupPrediction(ctx context.Context, matchID, teamID int64) (bool, error)

	InsertNewsMention(ctx context.Context, n store.NewsMention) (bool, error)
}

// Fetcher is satisfied by *fetch.Controller.
type Fetcher interface {
	Fetch(ctx context.Context, target fetch.Target) (*fetch.Document, error)
	FetchPlain(ctx context.Context, target fetch.Target) (*fetch.Document, error)
}

// Pauses are the fixed sleeps that keep the request pattern steady.
type Pauses struct {
	Squad            time.Duration
	Injury           time.Duration
	Logo             time.Duration
	News             time.Duration
	FillPrediction   time.Duration
	FillLeague       time.Duration
	ForcedPrediction time.Duration
}

// DefaultPauses returns the production pacing.
func DefaultPauses() Pauses {
	return Pauses{
		Squad:            2 * time.Second,
		Injury:           time.Second,
		Logo:             time.Second,
		News:             3 * time.Second,
		FillPrediction:   500 * time.Millisecond,
		FillLeague:       2 * time.Second,
		ForcedPrediction: time.Second,
	}
}

// Env carries the collaborators shared by every job.
type Env struct {
	Fetcher  Fetcher
	Site     transfermarkt.Site
	Catalog  Catalog
	Logger   *logging.Logger
	Pauses   Pauses
	Location *time.Location

	// Sleep and Now are replaced in tests
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

func (e Env) withDefaults() Env {
	if e.Logger == nil {
		e.Logger = logging.Default()
	}
	if e.Location == nil {
		e.Location = time.UTC
	}
	if e.Sleep == nil {
		e.Sleep = fetch.Sleep
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.Site.BaseURL() == "" {
		e.Site = transfermarkt.NewSite("")
	}
	return e
}

// pause sleeps between entities. Only a cancelled context interrupts it.
func (e Env) pause(ctx context.Context, d time.Duration) error {
	return e.Sleep(ctx, d)
}

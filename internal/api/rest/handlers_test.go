package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/pitchside/internal/scheduler"
	"github.com/fortuna/pitchside/internal/service"
	"github.com/fortuna/pitchside/internal/store"
	"github.com/fortuna/pitchside/internal/store/memory"
)

type fakeScheduler struct {
	triggered []scheduler.Cadence
	err       error
}

func (f *fakeScheduler) Status() scheduler.Status {
	return scheduler.Status{Running: true, Leagues: []string{"GB1"}}
}

func (f *fakeScheduler) Trigger(_ context.Context, c scheduler.Cadence) error {
	if f.err != nil {
		return f.err
	}
	f.triggered = append(f.triggered, c)
	return nil
}

type checkFunc func(context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

type fixture struct {
	router   http.Handler
	sched    *fakeScheduler
	catalog  *memory.Catalog
	leagueID int64
	teamID   int64
}

func newFixture(t *testing.T, checks map[string]HealthChecker) *fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 8, 10, 10, 0, 0, 0, time.UTC)
	catalog := memory.NewCatalog()
	catalog.SetClock(func() time.Time { return now })

	leagueID, err := catalog.UpsertLeague(ctx, "Premier League", "GB1", "2025")
	require.NoError(t, err)
	home, err := catalog.CreateTeam(ctx, "Arsenal FC", leagueID, "11")
	require.NoError(t, err)
	away, err := catalog.CreateTeam(ctx, "Chelsea FC", leagueID, "631")
	require.NoError(t, err)
	_, err = catalog.UpsertMatch(ctx, store.MatchUpsert{HomeTeamID: home, AwayTeamID: away, LeagueID: leagueID, Kickoff: now.Add(24 * time.Hour), Matchday: 1})
	require.NoError(t, err)

	sched := &fakeScheduler{}
	h := NewHandler(sched, service.NewMatchService(catalog), checks)
	return &fixture{router: NewRouter(h), sched: sched, catalog: catalog, leagueID: leagueID, teamID: home}
}

func (f *fixture) do(t *testing.T, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	var body map[string]interface{}
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, map[string]HealthChecker{
		"database": checkFunc(func(context.Context) error { return nil }),
	})
	rec, body := f.do(t, "GET", "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])

	f = newFixture(t, map[string]HealthChecker{
		"redis": checkFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	rec, body = f.do(t, "GET", "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "connection refused", body["checks"].(map[string]interface{})["redis"])
}

func TestSchedulerEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	rec, body := f.do(t, "GET", "/api/v1/scheduler/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["running"])

	rec, body = f.do(t, "POST", "/api/v1/scheduler/run/full")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "full", body["cadence"])
	assert.Equal(t, []scheduler.Cadence{scheduler.CadenceFull}, f.sched.triggered)

	f.sched.err = scheduler.ErrBusy
	rec, _ = f.do(t, "POST", "/api/v1/scheduler/run/matches")
	assert.Equal(t, http.StatusConflict, rec.Code)

	f.sched.err = crerr.Mark(errors.New("cadence weekly"), scheduler.ErrUnknownCadence)
	rec, body = f.do(t, "POST", "/api/v1/scheduler/run/weekly")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "Unknown cadence")

	rec, _ = f.do(t, "GET", "/api/v1/scheduler/run/full")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec, _ = f.do(t, "GET", "/api/v1/scheduler/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpcomingMatches(t *testing.T) {
	f := newFixture(t, nil)

	rec, body := f.do(t, "GET", "/api/v1/leagues/"+itoa(f.leagueID)+"/matches/upcoming")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
	matches := body["matches"].([]interface{})
	first := matches[0].(map[string]interface{})
	assert.Equal(t, "Arsenal FC", first["home_team"].(map[string]interface{})["name"])
	assert.NotContains(t, body, "message")

	rec, body = f.do(t, "GET", "/api/v1/leagues/"+itoa(f.leagueID)+"/matches/upcoming?matchday=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["count"])
	assert.Equal(t, loadingMessage, body["message"])

	rec, _ = f.do(t, "GET", "/api/v1/leagues/abc/matches/upcoming")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, "GET", "/api/v1/leagues/1/matches/upcoming?matchday=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeaguesAndPlayers(t *testing.T) {
	f := newFixture(t, nil)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/leagues", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var leagues []store.League
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leagues))
	require.Len(t, leagues, 1)
	assert.Equal(t, "GB1", leagues[0].SourceID)

	rec, body := f.do(t, "GET", "/api/v1/teams/"+itoa(f.teamID)+"/players")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["count"])
	assert.Equal(t, loadingMessage, body["message"])

	_, err := f.catalog.UpsertPlayer(context.Background(), store.PlayerUpsert{Name: "Bukayo Saka", TeamID: f.teamID, Position: "Right Winger", SourceID: "433177"})
	require.NoError(t, err)
	rec, body = f.do(t, "GET", "/api/v1/teams/"+itoa(f.teamID)+"/players")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	rec, body = f.do(t, "GET", "/api/v1/teams/9999/players")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Team not found", body["error"])
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler bug")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

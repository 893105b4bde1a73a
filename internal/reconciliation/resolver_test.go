package reconciliation

import (
	"context"
	"errors"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/pitchside/internal/logging"
	"github.com/fortuna/pitchside/internal/store"
	"github.com/fortuna/pitchside/internal/store/memory"
)

func setup(t *testing.T) (*memory.Catalog, *Resolver, int64, int64) {
	t.Helper()
	ctx := context.Background()
	cat := memory.NewCatalog()
	epl, err := cat.UpsertLeague(ctx, "Premier League", "GB1", "2025")
	require.NoError(t, err)
	liga, err := cat.UpsertLeague(ctx, "La Liga", "ES1", "2025")
	require.NoError(t, err)
	return cat, NewResolver(cat, logging.NewNop()), epl, liga
}

func TestResolveTeamIsIdempotent(t *testing.T) {
	cat, r, epl, _ := setup(t)
	ctx := context.Background()

	first, err := r.ResolveTeam(ctx, "Arsenal", epl, "11")
	require.NoError(t, err)
	second, err := r.ResolveTeam(ctx, "Arsenal", epl, "11")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	teams, err := cat.ListTeams(ctx, epl)
	require.NoError(t, err)
	assert.Len(t, teams, 1)
}

func TestResolveOrder(t *testing.T) {
	cat, r, epl, liga := setup(t)
	ctx := context.Background()

	arsenal, err := cat.CreateTeam(ctx, "Arsenal FC", epl, "11")
	require.NoError(t, err)
	spurs, err := cat.CreateTeam(ctx, "Tottenham Hotspur", epl, "")
	require.NoError(t, err)
	wolves, err := cat.CreateTeam(ctx, "Wolverhampton Wanderers", epl, "")
	require.NoError(t, err)
	_, err = cat.AddAlias(ctx, store.ClubAlias{TeamID: wolves, AliasName: "Wolves", AliasType: store.AliasShort})
	require.NoError(t, err)
	barca, err := cat.CreateTeam(ctx, "FC Barcelona", liga, "131")
	require.NoError(t, err)
	_, err = cat.AddAlias(ctx, store.ClubAlias{TeamID: barca, AliasName: "Barça", AliasType: store.AliasSocial})
	require.NoError(t, err)

	tests := []struct {
		name     string
		sourceID string
		wantID   int64
		wantVia  Via
	}{
		{"Arsenal", "11", arsenal, ViaSourceID},
		{"TOTTENHAM HOTSPUR", "148", spurs, ViaName},
		{"wolves", "", wolves, ViaLeagueAlias},
		{"BARÇA", "", barca, ViaGlobalAlias},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(ctx, tt.name, epl, tt.sourceID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, res.TeamID)
			assert.Equal(t, tt.wantVia, res.Via)
		})
	}

	// a name match does not re-key the existing team
	team, err := cat.GetTeam(ctx, spurs)
	require.NoError(t, err)
	assert.False(t, team.SourceID.Valid)
	assert.Equal(t, "Tottenham Hotspur", team.Name)
}

func TestResolveCreatesUnknownTeam(t *testing.T) {
	cat, r, epl, _ := setup(t)
	ctx := context.Background()

	res, err := r.Resolve(ctx, "Sunderland", epl, "289")
	require.NoError(t, err)
	assert.Equal(t, ViaCreated, res.Via)

	team, err := cat.GetTeam(ctx, res.TeamID)
	require.NoError(t, err)
	assert.Equal(t, "289", team.SourceID.String)
	assert.Equal(t, epl, team.LeagueID)
}

func TestResolveRejectsEmptyReference(t *testing.T) {
	_, r, epl, _ := setup(t)

	_, err := r.ResolveTeam(context.Background(), "  ", epl, "")
	assert.True(t, errors.Is(err, ErrUnresolved))
}

func TestResolveReportsFailedCreation(t *testing.T) {
	_, r, _, _ := setup(t)

	_, err := r.ResolveTeam(context.Background(), "Nowhere FC", 999, "1")
	require.Error(t, err)
	assert.True(t, crerr.Is(err, ErrUnresolved))
}

type brokenStore struct{ TeamStore }

func (brokenStore) FindTeamBySourceID(context.Context, int64, string) (*store.Team, error) {
	return nil, errors.New("connection refused")
}

func (brokenStore) CreateTeam(context.Context, string, int64, string) (int64, error) {
	panic("must not create after a failed lookup")
}

func TestResolveDoesNotCreateAfterLookupFailure(t *testing.T) {
	r := NewResolver(brokenStore{}, logging.NewNop())

	_, err := r.ResolveTeam(context.Background(), "Arsenal", 1, "11")
	require.Error(t, err)
	assert.True(t, crerr.Is(err, ErrUnresolved))
	assert.Contains(t, err.Error(), "connection refused")
}

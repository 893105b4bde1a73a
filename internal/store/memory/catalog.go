package memory

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fortuna/pitchside/internal/store"
)

type matchKey struct {
	home, away, league int64
	matchday           int
}

type predictionKey struct {
	match, team int64
}

// Catalog is an in-process implementation of the persistence contract,
// used by tests and dry runs.
type Catalog struct {
	mu sync.RWMutex

	nextID int64
	now    func() time.Time

	leagues     map[int64]*store.League
	teams       map[int64]*store.Team
	aliases     []*store.ClubAlias
	matches     map[int64]*store.Match
	matchIndex  map[matchKey]int64
	players     map[int64]*store.Player
	statuses    []*store.PlayerStatus
	predictions map[predictionKey]*store.LineupPrediction
	news        []*store.NewsMention
}

func NewCatalog() *Catalog {
	return &Catalog{
		now:         time.Now,
		leagues:     make(map[int64]*store.League),
		teams:       make(map[int64]*store.Team),
		matches:     make(map[int64]*store.Match),
		matchIndex:  make(map[matchKey]int64),
		players:     make(map[int64]*store.Player),
		predictions: make(map[predictionKey]*store.LineupPrediction),
	}
}

// SetClock overrides the time source used for "upcoming" queries.
func (c *Catalog) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Catalog) id() int64 {
	c.nextID++
	return c.nextID
}

func (c *Catalog) UpsertLeague(_ context.Context, name, sourceID, season string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, league := range c.leagues {
		if league.SourceID == sourceID {
			return league.ID, nil
		}
	}
	league := &store.League{ID: c.id(), Name: name, SourceID: sourceID, Season: season, CreatedAt: c.now()}
	c.leagues[league.ID] = league
	return league.ID, nil
}

func (c *Catalog) GetLeagueBySourceID(_ context.Context, sourceID string) (*store.League, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, league := range c.leagues {
		if league.SourceID == sourceID {
			cp := *league
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("league %s: %w", sourceID, store.ErrNotFound)
}

func (c *Catalog) ListLeagues(_ context.Context) ([]*store.League, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*store.League, 0, len(c.leagues))
	for _, league := range c.leagues {
		cp := *league
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *Catalog) GetTeam(_ context.Context, teamID int64) (*store.Team, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	team, ok := c.teams[teamID]
	if !ok {
		return nil, fmt.Errorf("team %d: %w", teamID, store.ErrNotFound)
	}
	cp := *team
	return &cp, nil
}

func (c *Catalog) FindTeamBySourceID(_ context.Context, leagueID int64, sourceID string) (*store.Team, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, team := range c.sortedTeams() {
		if team.LeagueID == leagueID && team.SourceID.Valid && team.SourceID.String == sourceID {
			cp := *team
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("team source %s: %w", sourceID, store.ErrNotFound)
}

func (c *Catalog) FindTeamByName(_ context.Context, leagueID int64, name string) (*store.Team, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, team := range c.sortedTeams() {
		if team.LeagueID == leagueID && strings.EqualFold(team.Name, name) {
			cp := *team
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("team %q: %w", name, store.ErrNotFound)
}

func (c *Catalog) FindTeamByAlias(_ context.Context, leagueID int64, alias string) (*store.Team, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, a := range c.aliases {
		if !strings.EqualFold(a.AliasName, alias) {
			continue
		}
		if team, ok := c.teams[a.TeamID]; ok && team.LeagueID == leagueID {
			cp := *team
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("alias %q: %w", alias, store.ErrNotFound)
}

func (c *Catalog) FindTeamByAliasGlobal(_ context.Context, alias string) (*store.Team, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, a := range c.aliases {
		if !strings.EqualFold(a.AliasName, alias) {
			continue
		}
		if team, ok := c.teams[a.TeamID]; ok {
			cp := *team
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("alias %q: %w", alias, store.ErrNotFound)
}

func (c *Catalog) CreateTeam(_ context.Context, name string, leagueID int64, sourceID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.leagues[leagueID]; !ok {
		return 0, fmt.Errorf("create team %q: league %d: %w", name, leagueID, store.ErrNotFound)
	}
	// Mirrors the partial unique index on (source_id, league_id).
	if sourceID != "" {
		for _, team := range c.teams {
			if team.LeagueID == leagueID && team.SourceID.String == sourceID {
				return team.ID, nil
			}
		}
	}

	now := c.now()
	team := &store.Team{
		ID:        c.id(),
		Name:      name,
		LeagueID:  leagueID,
		SourceID:  sql.NullString{String: sourceID, Valid: sourceID != ""},
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.teams[team.ID] = team
	return team.ID, nil
}

func (c *Catalog) ListTeams(_ context.Context, leagueID int64) ([]*store.Team, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*store.Team
	for _, team := range c.sortedTeams() {
		if team.LeagueID == leagueID {
			cp := *team
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (c *Catalog) UpdateTeamLogo(_ context.Context, teamID int64, logoURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	team, ok := c.teams[teamID]
	if !ok {
		return fmt.Errorf("team %d: %w", teamID, store.ErrNotFound)
	}
	team.LogoURL = sql.NullString{String: logoURL, Valid: logoURL != ""}
	team.UpdatedAt = c.now()
	return nil
}

func (c *Catalog) AddAlias(_ context.Context, alias store.ClubAlias) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.teams[alias.TeamID]; !ok {
		return 0, fmt.Errorf("team %d: %w", alias.TeamID, store.ErrNotFound)
	}
	for _, existing := range c.aliases {
		if existing.TeamID == alias.TeamID && strings.EqualFold(existing.AliasName, alias.AliasName) {
			return existing.ID, nil
		}
	}
	if alias.AliasType == "" {
		alias.AliasType = store.AliasOfficial
	}
	alias.ID = c.id()
	alias.CreatedAt = c.now()
	c.aliases = append(c.aliases, &alias)
	return alias.ID, nil
}

func (c *Catalog) UpsertMatch(_ context.Context, m store.MatchUpsert) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	source := sql.NullString{String: m.SourceMatchID, Valid: m.SourceMatchID != ""}
	key := matchKey{home: m.HomeTeamID, away: m.AwayTeamID, league: m.LeagueID, matchday: m.Matchday}
	if id, ok := c.matchIndex[key]; ok {
		existing := c.matches[id]
		existing.Kickoff = m.Kickoff
		if source.Valid {
			existing.SourceMatchID = source
		}
		existing.UpdatedAt = now
		return id, nil
	}

	match := &store.Match{
		ID:            c.id(),
		HomeTeamID:    m.HomeTeamID,
		AwayTeamID:    m.AwayTeamID,
		LeagueID:      m.LeagueID,
		Kickoff:       m.Kickoff,
		Matchday:      m.Matchday,
		SourceMatchID: source,
		Status:        store.MatchScheduled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	c.matches[match.ID] = match
	c.matchIndex[key] = match.ID
	return match.ID, nil
}

// Matches returns every stored match ordered by id.
func (c *Catalog) Matches() []store.Match {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]store.Match, 0, len(c.matches))
	for _, m := range c.matches {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Catalog) GetUpcomingMatches(_ context.Context, leagueID int64, matchday *int) ([]*store.Match, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.upcoming(leagueID, matchday), nil
}

func (c *Catalog) GetNextMatchdayMatches(_ context.Context, leagueID int64) ([]*store.Match, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	upcoming := c.upcoming(leagueID, nil)
	if len(upcoming) == 0 {
		return nil, nil
	}
	next := upcoming[0].Matchday
	for _, m := range upcoming {
		if m.Matchday < next {
			next = m.Matchday
		}
	}
	return c.upcoming(leagueID, &next), nil
}

func (c *Catalog) upcoming(leagueID int64, matchday *int) []*store.Match {
	now := c.now()
	var out []*store.Match
	for _, m := range c.matches {
		if m.LeagueID != leagueID || m.Status != store.MatchScheduled || !m.Kickoff.After(now) {
			continue
		}
		if matchday != nil && m.Matchday != *matchday {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kickoff.Equal(out[j].Kickoff) {
			return out[i].ID < out[j].ID
		}
		return out[i].Kickoff.Before(out[j].Kickoff)
	})
	return out
}

func (c *Catalog) UpsertPlayer(_ context.Context, p store.PlayerUpsert) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	player := c.findPlayer(p.TeamID, p.SourceID, p.Name, p.SourceID == "")
	if player == nil {
		player = &store.Player{ID: c.id(), TeamID: p.TeamID, CreatedAt: now}
		c.players[player.ID] = player
	}

	player.Name = p.Name
	player.Position = p.Position
	player.SourceID = sql.NullString{String: p.SourceID, Valid: p.SourceID != ""}
	if p.JerseyNumber != nil {
		player.JerseyNumber = sql.NullInt32{Int32: int32(*p.JerseyNumber), Valid: true}
	}
	if p.MarketValue != nil {
		player.MarketValue = sql.NullInt64{Int64: *p.MarketValue, Valid: true}
	}
	player.UpdatedAt = now
	return player.ID, nil
}

func (c *Catalog) FindPlayer(_ context.Context, teamID int64, sourceID, name string) (*store.Player, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	player := c.findPlayer(teamID, sourceID, name, true)
	if player == nil {
		return nil, fmt.Errorf("player %q: %w", name, store.ErrNotFound)
	}
	cp := *player
	return &cp, nil
}

// findPlayer matches on source id first and, when allowed, on name.
func (c *Catalog) findPlayer(teamID int64, sourceID, name string, byName bool) *store.Player {
	ids := make([]int64, 0, len(c.players))
	for id := range c.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if sourceID != "" {
		for _, id := range ids {
			p := c.players[id]
			if p.TeamID == teamID && p.SourceID.String == sourceID {
				return p
			}
		}
	}
	if byName && name != "" {
		for _, id := range ids {
			p := c.players[id]
			if p.TeamID == teamID && strings.EqualFold(p.Name, name) {
				return p
			}
		}
	}
	return nil
}

func (c *Catalog) ListPlayers(_ context.Context, teamID int64) ([]*store.Player, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*store.Player
	for _, p := range c.players {
		if p.TeamID == teamID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *Catalog) SetActivePlayerStatus(_ context.Context, u store.StatusUpdate) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.players[u.PlayerID]; !ok {
		return 0, fmt.Errorf("player %d: %w", u.PlayerID, store.ErrNotFound)
	}
	for _, s := range c.statuses {
		if s.PlayerID != u.PlayerID || s.StatusType != u.Kind || !s.IsActive {
			continue
		}
		if s.Description == u.Description && sameDate(s.ExpectedReturnDate, u.ExpectedReturn) {
			return s.ID, nil
		}
		s.IsActive = false
	}

	status := &store.PlayerStatus{
		ID:          c.id(),
		PlayerID:    u.PlayerID,
		StatusType:  u.Kind,
		Description: u.Description,
		Severity:    sql.NullString{String: u.Severity, Valid: u.Severity != ""},
		SourceURL:   sql.NullString{String: u.SourceURL, Valid: u.SourceURL != ""},
		IsActive:    true,
		CreatedAt:   c.now(),
	}
	if u.StartDate != nil {
		status.StartDate = sql.NullTime{Time: *u.StartDate, Valid: true}
	}
	if u.ExpectedReturn != nil {
		status.ExpectedReturnDate = sql.NullTime{Time: *u.ExpectedReturn, Valid: true}
	}
	c.statuses = append(c.statuses, status)
	return status.ID, nil
}

func sameDate(stored sql.NullTime, t *time.Time) bool {
	if t == nil || !stored.Valid {
		return t == nil && !stored.Valid
	}
	return stored.Time.Equal(*t)
}

func (c *Catalog) ClearActiveStatuses(_ context.Context, teamID int64, kinds []store.StatusKind, keep []int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := make(map[int64]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}
	var cleared int64
	for _, s := range c.statuses {
		player, ok := c.players[s.PlayerID]
		if !ok || player.TeamID != teamID || !s.IsActive || kept[s.ID] || !slices.Contains(kinds, s.StatusType) {
			continue
		}
		s.IsActive = false
		cleared++
	}
	return cleared, nil
}

// Statuses returns the full status history of a player, oldest first.
func (c *Catalog) Statuses(playerID int64) []store.PlayerStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []store.PlayerStatus
	for _, s := range c.statuses {
		if s.PlayerID == playerID {
			out = append(out, *s)
		}
	}
	return out
}

func (c *Catalog) GetLineupPrediction(_ context.Context, matchID, teamID int64) (*store.LineupPrediction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.predictions[predictionKey{matchID, teamID}]
	if !ok {
		return nil, fmt.Errorf("prediction %d/%d: %w", matchID, teamID, store.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (c *Catalog) HasLineupPrediction(_ context.Context, matchID, teamID int64) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.predictions[predictionKey{matchID, teamID}]
	return ok, nil
}

// SaveLineupPrediction stands in for the prediction collaborator's write.
func (c *Catalog) SaveLineupPrediction(matchID, teamID int64, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.predictions[predictionKey{matchID, teamID}] = &store.LineupPrediction{
		ID:        c.id(),
		MatchID:   matchID,
		TeamID:    teamID,
		Payload:   payload,
		CreatedAt: c.now(),
	}
}

func (c *Catalog) InsertNewsMention(_ context.Context, n store.NewsMention) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.news {
		if existing.TeamID == n.TeamID && existing.SourceURL == n.SourceURL {
			return false, nil
		}
	}
	n.ID = c.id()
	c.news = append(c.news, &n)
	return true, nil
}

// News returns the stored mentions for a team.
func (c *Catalog) News(teamID int64) []store.NewsMention {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []store.NewsMention
	for _, n := range c.news {
		if n.TeamID == teamID {
			out = append(out, *n)
		}
	}
	return out
}

func (c *Catalog) sortedTeams() []*store.Team {
	out := make([]*store.Team, 0, len(c.teams))
	for _, team := range c.teams {
		out = append(out, team)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

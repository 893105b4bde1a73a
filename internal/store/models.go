package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// League represents a tracked competition
type League struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	SourceID  string    `json:"source_id" db:"source_id"`
	Season    string    `json:"season" db:"season"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Team represents a canonical club. A team belongs to exactly one league.
type Team struct {
	ID        int64          `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	LeagueID  int64          `json:"league_id" db:"league_id"`
	SourceID  sql.NullString `json:"source_id,omitempty" db:"source_id"`
	LogoURL   sql.NullString `json:"logo_url,omitempty" db:"logo_url"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// AliasKind classifies an alternate club name
type AliasKind string

const (
	AliasOfficial  AliasKind = "official"
	AliasShort     AliasKind = "short"
	AliasSocial    AliasKind = "social"
	AliasLocalized AliasKind = "localized"
)

// ClubAlias maps an alternate name onto exactly one team
type ClubAlias struct {
	ID           int64          `json:"id" db:"id"`
	TeamID       int64          `json:"team_id" db:"team_id"`
	AliasName    string         `json:"alias_name" db:"alias_name"`
	AliasType    AliasKind      `json:"alias_type" db:"alias_type"`
	LanguageCode sql.NullString `json:"language_code,omitempty" db:"language_code"`
	Source       sql.NullString `json:"source,omitempty" db:"source"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// Match statuses
const (
	MatchScheduled = "scheduled"
	MatchFinished  = "finished"
)

// Match is identified by (home, away, league, matchday)
type Match struct {
	ID            int64          `json:"id" db:"id"`
	HomeTeamID    int64          `json:"home_team_id" db:"home_team_id"`
	AwayTeamID    int64          `json:"away_team_id" db:"away_team_id"`
	LeagueID      int64          `json:"league_id" db:"league_id"`
	Kickoff       time.Time      `json:"kickoff" db:"match_date"`
	Matchday      int            `json:"matchday" db:"matchday"`
	SourceMatchID sql.NullString `json:"source_match_id,omitempty" db:"source_id"`
	Status        string         `json:"status" db:"status"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// MatchUpsert carries the fields written by a fixture sync
type MatchUpsert struct {
	HomeTeamID    int64
	AwayTeamID    int64
	LeagueID      int64
	Kickoff       time.Time
	Matchday      int
	SourceMatchID string
}

// Player represents a squad member
type Player struct {
	ID              int64          `json:"id" db:"id"`
	Name            string         `json:"name" db:"name"`
	TeamID          int64          `json:"team_id" db:"team_id"`
	Position        string         `json:"position" db:"position"`
	SourceID        sql.NullString `json:"source_id,omitempty" db:"source_id"`
	JerseyNumber    sql.NullInt32  `json:"jersey_number,omitempty" db:"jersey_number"`
	MarketValue     sql.NullInt64  `json:"market_value,omitempty" db:"market_value"`
	Age             sql.NullInt32  `json:"age,omitempty" db:"age"`
	Nationality     sql.NullString `json:"nationality,omitempty" db:"nationality"`
	ContractEndYear sql.NullInt32  `json:"contract_end_year,omitempty" db:"contract_end_year"`
	MinutesPlayed   int            `json:"minutes_played" db:"minutes_played"`
	GamesStarted    int            `json:"games_started" db:"games_started"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// PlayerUpsert carries the fields written by a squad sync. Idempotent on
// (source id, team) when the source id is known, else on (name, team).
type PlayerUpsert struct {
	Name         string
	TeamID       int64
	Position     string
	SourceID     string
	JerseyNumber *int
	MarketValue  *int64
}

// StatusKind classifies a player availability record
type StatusKind string

const (
	StatusInjury     StatusKind = "injury"
	StatusSuspension StatusKind = "suspension"
	StatusIllness    StatusKind = "illness"
	StatusPersonal   StatusKind = "personal"
)

// PlayerStatus is soft history: at most one active row per (player, kind)
type PlayerStatus struct {
	ID                 int64          `json:"id" db:"id"`
	PlayerID           int64          `json:"player_id" db:"player_id"`
	StatusType         StatusKind     `json:"status_type" db:"status_type"`
	Description        string         `json:"description" db:"description"`
	StartDate          sql.NullTime   `json:"start_date,omitempty" db:"start_date"`
	ExpectedReturnDate sql.NullTime   `json:"expected_return_date,omitempty" db:"expected_return_date"`
	Severity           sql.NullString `json:"severity,omitempty" db:"severity"`
	SourceURL          sql.NullString `json:"source_url,omitempty" db:"source_url"`
	IsActive           bool           `json:"is_active" db:"is_active"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
}

// StatusUpdate is the input to SetActivePlayerStatus
type StatusUpdate struct {
	PlayerID       int64
	Kind           StatusKind
	Description    string
	StartDate      *time.Time
	ExpectedReturn *time.Time
	Severity       string
	SourceURL      string
}

// LineupPrediction is written by the prediction collaborator; the pipeline
// only checks for its existence.
type LineupPrediction struct {
	ID        int64     `json:"id" db:"id"`
	MatchID   int64     `json:"match_id" db:"match_id"`
	TeamID    int64     `json:"team_id" db:"team_id"`
	Payload   []byte    `json:"payload" db:"payload"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewsMention is a headline or post mentioning a team
type NewsMention struct {
	ID          int64          `json:"id" db:"id"`
	TeamID      int64          `json:"team_id" db:"team_id"`
	SourceType  string         `json:"source_type" db:"source_type"`
	SourceURL   string         `json:"source_url" db:"source_url"`
	Author      sql.NullString `json:"author,omitempty" db:"author"`
	Content     string         `json:"content" db:"content"`
	PublishedAt time.Time      `json:"published_at" db:"published_at"`
}

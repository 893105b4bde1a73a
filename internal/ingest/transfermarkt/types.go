package transfermarkt

import "time"

// TeamRef is a club as named and linked on the source site.
type TeamRef struct {
	Name     string
	SourceID string
}

// PlayerRef is a player as named and linked on the source site.
type PlayerRef struct {
	Name     string
	SourceID string
}

// MatchCandidate is one fixture row after date/time inheritance, before
// entity resolution.
type MatchCandidate struct {
	Home          TeamRef
	Away          TeamRef
	Kickoff       time.Time
	Matchday      int
	SourceMatchID string
	// KickoffGuessed is set when the date text was unreadable and the
	// kickoff fell back to tomorrow at 15:00.
	KickoffGuessed bool
}

// SquadRow is one roster entry.
type SquadRow struct {
	Player       PlayerRef
	Position     string
	JerseyNumber *int
	MarketValue  *int64
}

// InjuryRow is one entry of a club's injury list.
type InjuryRow struct {
	Player         PlayerRef
	Description    string
	ReturnText     string
	ExpectedReturn *time.Time
}

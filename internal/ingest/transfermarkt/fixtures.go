package transfermarkt

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Fixture table column offsets
const (
	colDate   = 0
	colTime   = 1
	colHome   = 2
	colResult = 4
	colAway   = 6

	minFixtureCells = 7
)

// SkipReason explains why a row produced no candidate
type SkipReason string

const (
	SkipTooFewCells   SkipReason = "too_few_cells"
	SkipMissingTeam   SkipReason = "missing_team_link"
	SkipNoDateBlock   SkipReason = "no_date_block"
	SkipEmptyTeamName SkipReason = "empty_team_name"
)

// RowState is the date/time carried across the rows of one table. The
// source stamps them only on the first row of a block of matches that
// share a kickoff slot.
type RowState struct {
	DateText string
	TimeText string
}

// RowResult is the outcome of a single row
type RowResult struct {
	Candidate *MatchCandidate
	Skip      SkipReason
	// Guessed marks a candidate whose kickoff text could not be read
	Guessed bool
}

// ParseStats summarizes one table parse
type ParseStats struct {
	Rows       int
	Candidates int
	Guessed    int
	Skipped    map[SkipReason]int
}

// RowParser reconstructs fixtures from the schedule table.
type RowParser struct {
	Now      func() time.Time
	Location *time.Location
}

// NewRowParser creates a parser that resolves kickoffs in loc.
func NewRowParser(loc *time.Location) *RowParser {
	if loc == nil {
		loc = time.UTC
	}
	return &RowParser{Now: time.Now, Location: loc}
}

// ParseDocument parses every table row of doc.
func (p *RowParser) ParseDocument(doc *goquery.Document, matchday int) ([]MatchCandidate, ParseStats) {
	return p.ParseRows(doc.Find("tr"), matchday)
}

// ParseRows walks rows in order, threading date/time state through them.
// Rows that cannot be read are counted and skipped; they never stop the
// walk and never reset the carried state.
func (p *RowParser) ParseRows(rows *goquery.Selection, matchday int) ([]MatchCandidate, ParseStats) {
	stats := ParseStats{Skipped: make(map[SkipReason]int)}
	var state RowState
	var out []MatchCandidate

	rows.Each(func(_ int, row *goquery.Selection) {
		stats.Rows++
		res := p.ParseRow(row, matchday, &state)
		if res.Candidate == nil {
			stats.Skipped[res.Skip]++
			return
		}
		if res.Guessed {
			stats.Guessed++
		}
		stats.Candidates++
		out = append(out, *res.Candidate)
	})

	return out, stats
}

// ParseRow reads one row against the carried state, updating it when the
// row opens a new date block or a new time slot.
func (p *RowParser) ParseRow(row *goquery.Selection, matchday int, state *RowState) RowResult {
	cells := row.ChildrenFiltered("td")
	if cells.Length() < minFixtureCells {
		return RowResult{Skip: SkipTooFewCells}
	}

	homeLink := cells.Eq(colHome).Find("a").First()
	awayLink := cells.Eq(colAway).Find("a").First()
	if homeLink.Length() == 0 || awayLink.Length() == 0 {
		return RowResult{Skip: SkipMissingTeam}
	}

	dateCell := cells.Eq(colDate)
	timeText := cleanText(cells.Eq(colTime).Text())
	if dateLink := dateCell.Find("a").First(); dateLink.Length() > 0 {
		state.DateText = cleanText(dateLink.Text())
		state.TimeText = timeText
	} else if timeText != "" {
		state.TimeText = timeText
	}

	if state.DateText == "" {
		return RowResult{Skip: SkipNoDateBlock}
	}

	home := teamRef(homeLink)
	away := teamRef(awayLink)
	if home.Name == "" || away.Name == "" {
		return RowResult{Skip: SkipEmptyTeamName}
	}

	var matchID string
	if href, ok := cells.Eq(colResult).Find("a").First().Attr("href"); ok {
		matchID = MatchID(href)
	}

	kickoff, ok := ResolveKickoff(state.DateText, state.TimeText, p.now(), p.Location)

	return RowResult{
		Candidate: &MatchCandidate{
			Home:           home,
			Away:           away,
			Kickoff:        kickoff,
			Matchday:       matchday,
			SourceMatchID:  matchID,
			KickoffGuessed: !ok,
		},
		Guessed: !ok,
	}
}

func (p *RowParser) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func teamRef(link *goquery.Selection) TeamRef {
	name := cleanText(link.Text())
	if name == "" {
		name = cleanText(link.AttrOr("title", ""))
	}
	return TeamRef{Name: name, SourceID: TeamID(link.AttrOr("href", ""))}
}

// cleanText collapses whitespace. unicode.IsSpace covers the
// non-breaking spaces the source pads cells with.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

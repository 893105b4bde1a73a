package transfermarkt

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/fortuna/pitchside/internal/config"
	"github.com/fortuna/pitchside/internal/fetch"
)

// DefaultBaseURL is the public site root
const DefaultBaseURL = "https://www.transfermarkt.com"

// Content markers waited for by the rendering strategy
const (
	FixturesMarker = ".responsive-table"
	SquadMarker    = ".items"
)

// Site builds page targets for one source host.
type Site struct {
	base string
}

// NewSite creates a Site rooted at baseURL, or DefaultBaseURL when empty.
func NewSite(baseURL string) Site {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return Site{base: strings.TrimRight(baseURL, "/")}
}

// BaseURL returns the site root without a trailing slash.
func (s Site) BaseURL() string { return s.base }

// Fixtures is the full schedule page restricted to a single matchday.
func (s Site) Fixtures(league config.League, matchday int) fetch.Target {
	q := url.Values{}
	q.Set("saison_id", league.Season)
	q.Set("spieltagVon", fmt.Sprint(matchday))
	q.Set("spieltagBis", fmt.Sprint(matchday))
	return fetch.Target{
		URL:     fmt.Sprintf("%s/%s/gesamtspielplan/wettbewerb/%s?%s", s.base, league.Slug, league.SourceID, q.Encode()),
		WaitFor: FixturesMarker,
	}
}

// LeagueHome is the competition landing page carrying the matchday selector.
func (s Site) LeagueHome(league config.League) fetch.Target {
	return fetch.Target{
		URL: fmt.Sprintf("%s/%s/startseite/wettbewerb/%s/plus/?saison_id=%s", s.base, league.Slug, league.SourceID, url.QueryEscape(league.Season)),
	}
}

// Standings lists the clubs of a league season.
func (s Site) Standings(league config.League) fetch.Target {
	return fetch.Target{
		URL: fmt.Sprintf("%s/wettbewerb/tabelle/wettbewerb/%s/saison_id/%s", s.base, league.SourceID, url.PathEscape(league.Season)),
	}
}

// Squad is a club's first-team roster.
func (s Site) Squad(teamSourceID string) fetch.Target {
	return fetch.Target{
		URL:     fmt.Sprintf("%s/verein/kader/verein/%s", s.base, teamSourceID),
		WaitFor: SquadMarker,
	}
}

// Injuries is a club's current injury list.
func (s Site) Injuries(teamSourceID string) fetch.Target {
	return fetch.Target{
		URL: fmt.Sprintf("%s/verein/verletztenliste/verein/%s", s.base, teamSourceID),
	}
}

// ClubHome is a club's landing page, used for its crest.
func (s Site) ClubHome(teamSourceID string) fetch.Target {
	return fetch.Target{
		URL: fmt.Sprintf("%s/team/startseite/verein/%s", s.base, teamSourceID),
	}
}

// Absolute normalizes a protocol-relative or root-relative reference.
func (s Site) Absolute(ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "//"):
		return "https:" + ref
	case strings.HasPrefix(ref, "/"):
		return s.base + ref
	default:
		return ref
	}
}

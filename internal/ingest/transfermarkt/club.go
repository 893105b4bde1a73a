package transfermarkt

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseCurrentMatchday reads the selected entry of the matchday picker on
// a league landing page. Missing or unreadable pickers yield 1.
func ParseCurrentMatchday(doc *goquery.Document) int {
	value := strings.TrimSpace(doc.Find(`select[name="spieltag"] option[selected]`).First().AttrOr("value", ""))
	md, err := strconv.Atoi(value)
	if err != nil || md < 1 {
		return 1
	}
	return md
}

// ParseLogo returns the absolute crest URL from a club landing page,
// or "" when the page carries none.
func ParseLogo(doc *goquery.Document, site Site) string {
	if src, ok := doc.Find("img.dataBild").First().Attr("src"); ok && strings.TrimSpace(src) != "" {
		return site.Absolute(src)
	}
	if src, ok := doc.Find("div.dataHeader img").First().Attr("src"); ok {
		return site.Absolute(src)
	}
	return ""
}

var (
	nonFirstTeamMarkers  = []string{" B ", " II ", " U21", " U19", " U23", " U18", "Youth", "Reserve", "Amateur"}
	nonFirstTeamSuffixes = []string{" B", " II"}
)

// IsFirstTeam reports whether name looks like a senior side rather than a
// reserve or youth team.
func IsFirstTeam(name string) bool {
	for _, m := range nonFirstTeamMarkers {
		if strings.Contains(name, m) {
			return false
		}
	}
	for _, s := range nonFirstTeamSuffixes {
		if strings.HasSuffix(name, s) {
			return false
		}
	}
	return true
}

// ParseLeagueTeams lists the clubs linked from a standings page in table
// order, deduplicated by name and capped at limit when limit > 0.
func ParseLeagueTeams(doc *goquery.Document, limit int) []TeamRef {
	var teams []TeamRef
	seen := make(map[string]bool)

	doc.Find("td.no-border-links.hauptlink a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		ref := teamRef(link)
		if len(ref.Name) < 3 || seen[ref.Name] || !IsFirstTeam(ref.Name) {
			return true
		}
		if ref.SourceID == "" {
			return true
		}
		seen[ref.Name] = true
		teams = append(teams, ref)
		return limit <= 0 || len(teams) < limit
	})
	return teams
}

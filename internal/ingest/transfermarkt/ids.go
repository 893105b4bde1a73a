package transfermarkt

import "regexp"

var (
	teamIDPattern   = regexp.MustCompile(`/verein/(\d+)`)
	matchIDPattern  = regexp.MustCompile(`/spielbericht/index/spielbericht/(\d+)`)
	playerIDPattern = regexp.MustCompile(`/profil/spieler/(\d+)`)
)

// TeamID extracts the club id from a link path, or "".
func TeamID(href string) string { return firstGroup(teamIDPattern, href) }

// MatchID extracts the match report id from a link path, or "".
func MatchID(href string) string { return firstGroup(matchIDPattern, href) }

// PlayerID extracts the player id from a profile link path, or "".
func PlayerID(href string) string { return firstGroup(playerIDPattern, href) }

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

package transfermarkt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fortuna/pitchside/internal/config"
)

func TestParseCurrentMatchday(t *testing.T) {
	page := `<select name="spieltag"><option value="1">1.Matchday</option><option value="4" selected="selected">4.Matchday</option></select>`
	assert.Equal(t, 4, ParseCurrentMatchday(doc(t, page)))
	assert.Equal(t, 1, ParseCurrentMatchday(doc(t, `<select name="spieltag"><option value="x" selected>?</option></select>`)))
	assert.Equal(t, 1, ParseCurrentMatchday(doc(t, `<p>maintenance</p>`)))
}

func TestParseLogo(t *testing.T) {
	site := NewSite("https://www.transfermarkt.com/")

	assert.Equal(t, "https://tmssl.akamaized.net/images/wappen/head/11.png",
		ParseLogo(doc(t, `<img class="dataBild" src="//tmssl.akamaized.net/images/wappen/head/11.png">`), site))
	assert.Equal(t, "https://www.transfermarkt.com/images/11.png",
		ParseLogo(doc(t, `<div class="dataHeader"><img src="/images/11.png"></div>`), site))
	assert.Equal(t, "", ParseLogo(doc(t, `<div class="dataHeader"></div>`), site))
}

func TestParseLeagueTeams(t *testing.T) {
	page := `<table>
<tr><td class="no-border-links hauptlink"><a href="/fc-arsenal/spielplan/verein/11/saison_id/2025" title="Arsenal FC">Arsenal</a></td></tr>
<tr><td class="no-border-links hauptlink"><a href="/fc-arsenal/spielplan/verein/11/saison_id/2025">Arsenal</a></td></tr>
<tr><td class="no-border-links hauptlink"><a href="/fc-arsenal-u21/spielplan/verein/8929">Arsenal U21</a></td></tr>
<tr><td class="no-border-links hauptlink"><a href="/fc-barcelona-b/spielplan/verein/2464">Barcelona B</a></td></tr>
<tr><td class="no-border-links hauptlink"><a href="/fc-chelsea/spielplan/verein/631/saison_id/2025">Chelsea</a></td></tr>
<tr><td class="no-border-links hauptlink"><a href="/news">Everton</a></td></tr>
<tr><td class="no-border-links hauptlink"><a href="/fc-fulham/spielplan/verein/931">Fulham</a></td></tr>
</table>`

	teams := ParseLeagueTeams(doc(t, page), 0)
	assert.Equal(t, []TeamRef{
		{Name: "Arsenal", SourceID: "11"},
		{Name: "Chelsea", SourceID: "631"},
		{Name: "Fulham", SourceID: "931"},
	}, teams)

	assert.Len(t, ParseLeagueTeams(doc(t, page), 2), 2)
}

func TestIsFirstTeam(t *testing.T) {
	assert.True(t, IsFirstTeam("Bayern Munich"))
	assert.True(t, IsFirstTeam("Brighton & Hove Albion"))
	assert.False(t, IsFirstTeam("Bayern Munich II"))
	assert.False(t, IsFirstTeam("Real Madrid Youth"))
	assert.False(t, IsFirstTeam("Man City U23"))
}

func TestSiteTargets(t *testing.T) {
	site := NewSite("")
	league := config.League{Name: "Premier League", SourceID: "GB1", Slug: "premier-league", Season: "2025"}

	fixtures := site.Fixtures(league, 7)
	assert.Equal(t, "https://www.transfermarkt.com/premier-league/gesamtspielplan/wettbewerb/GB1?saison_id=2025&spieltagBis=7&spieltagVon=7", fixtures.URL)
	assert.Equal(t, FixturesMarker, fixtures.WaitFor)

	assert.Equal(t, "https://www.transfermarkt.com/premier-league/startseite/wettbewerb/GB1/plus/?saison_id=2025", site.LeagueHome(league).URL)
	assert.Equal(t, "https://www.transfermarkt.com/wettbewerb/tabelle/wettbewerb/GB1/saison_id/2025", site.Standings(league).URL)
	assert.Equal(t, "https://www.transfermarkt.com/verein/kader/verein/11", site.Squad("11").URL)
	assert.Equal(t, SquadMarker, site.Squad("11").WaitFor)
	assert.Equal(t, "https://www.transfermarkt.com/verein/verletztenliste/verein/11", site.Injuries("11").URL)
	assert.Equal(t, "https://www.transfermarkt.com/team/startseite/verein/11", site.ClubHome("11").URL)
}

package ingest

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fortuna/pitchside/internal/fetch"
	"github.com/fortuna/pitchside/internal/store"
)

// JobNews names the news job
const JobNews = "news"

const maxHeadlinesPerTeam = 20

// Cursor is a persistent counter used to rotate through teams.
type Cursor interface {
	// Advance adds by to the counter stored under key and returns the new value.
	Advance(ctx context.Context, key string, by int) (int64, error)
}

// Headline is a link on a news page that mentions a team.
type Headline struct {
	Text string
	URL  string
}

// NewsSync collects headlines for a rotating subset of each league's teams.
type NewsSync struct {
	env      Env
	cursor   Cursor
	template string
	perRun   int
}

// NewNewsSync creates the job. template holds a {team} placeholder.
func NewNewsSync(env Env, cursor Cursor, template string, perRun int) *NewsSync {
	if perRun <= 0 {
		perRun = 5
	}
	return &NewsSync{env: env.withDefaults(), cursor: cursor, template: template, perRun: perRun}
}

// SyncLeague processes the next window of teams of the league.
func (j *NewsSync) SyncLeague(ctx context.Context, leagueSourceID string, leagueID int64) (*Report, error) {
	report := NewReport(JobNews)
	teams, err := j.env.Catalog.ListTeams(ctx, leagueID)
	if err != nil {
		report.Fail(leagueSourceID, ErrPersistence, err)
		return report, nil
	}
	if len(teams) == 0 || j.template == "" {
		return report, nil
	}

	window := j.perRun
	if window > len(teams) {
		window = len(teams)
	}
	start := 0
	if j.cursor != nil {
		next, err := j.cursor.Advance(ctx, "news:"+leagueSourceID, window)
		if err != nil {
			j.env.Logger.WarnContext(ctx, "news cursor unavailable, starting from first team",
				"league", leagueSourceID, "err", err)
		} else {
			start = int((next - int64(window)) % int64(len(teams)))
			if start < 0 {
				start += len(teams)
			}
		}
	}

	for i := 0; i < window; i++ {
		team := teams[(start+i)%len(teams)]
		if i > 0 {
			if err := j.env.pause(ctx, j.env.Pauses.News); err != nil {
				return report, err
			}
		}
		report.Guard(team.Name, func() { j.syncTeam(ctx, team, report) })
	}
	return report, ctx.Err()
}

func (j *NewsSync) syncTeam(ctx context.Context, team *store.Team, report *Report) {
	target := fetch.Target{URL: NewsURL(j.template, team.Name)}
	doc, err := j.env.Fetcher.FetchPlain(ctx, target)
	if err != nil {
		report.Skip(team.Name, "no data this cycle")
		return
	}

	headlines := ParseHeadlines(doc.Document, target.URL, team.Name)
	source := sourceType(target.URL)
	now := j.env.Now()

	var inserted int
	for _, h := range headlines {
		ok, err := j.env.Catalog.InsertNewsMention(ctx, store.NewsMention{
			TeamID:      team.ID,
			SourceType:  source,
			SourceURL:   h.URL,
			Content:     h.Text,
			PublishedAt: now,
		})
		if err != nil {
			j.env.Logger.ErrorContext(ctx, "news insert failed", "team", team.Name, "url", h.URL, "err", err)
			continue
		}
		if ok {
			inserted++
		}
	}
	report.Success(team.Name)
	j.env.Logger.InfoContext(ctx, "news synced", "team", team.Name, "headlines", len(headlines), "new", inserted)
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// TeamSlug lowercases name and joins its words with hyphens.
func TeamSlug(name string) string {
	return strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// NewsURL substitutes the team slug into template.
func NewsURL(template, team string) string {
	return strings.ReplaceAll(template, "{team}", TeamSlug(team))
}

var clubAffixes = regexp.MustCompile(`(?i)\b(a?fc|cf|sc|ac|ssc|as|rc|ss|vfl|vfb|tsg|fk)\b`)

// ParseHeadlines returns the distinct links of doc whose text mentions the
// team, resolved against pageURL.
func ParseHeadlines(doc *goquery.Document, pageURL, team string) []Headline {
	needle := strings.ToLower(strings.Join(strings.Fields(clubAffixes.ReplaceAllString(team, "")), " "))
	if needle == "" {
		needle = strings.ToLower(team)
	}
	base, _ := url.Parse(pageURL)

	var out []Headline
	seen := make(map[string]bool)
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := strings.Join(strings.Fields(a.Text()), " ")
		if len(text) < 20 || !strings.Contains(strings.ToLower(text), needle) {
			return true
		}
		href, err := url.Parse(strings.TrimSpace(a.AttrOr("href", "")))
		if err != nil {
			return true
		}
		if base != nil {
			href = base.ResolveReference(href)
		}
		link := href.String()
		if seen[link] {
			return true
		}
		seen[link] = true
		out = append(out, Headline{Text: text, URL: link})
		return len(out) < maxHeadlinesPerTeam
	})
	return out
}

// sourceType labels a mention by the first label of its host, "bbc" for
// www.bbc.com.
func sourceType(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.Split(strings.TrimPrefix(u.Hostname(), "www."), ".")[0]
}

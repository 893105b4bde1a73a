package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fortuna/pitchside/internal/config"
	"github.com/fortuna/pitchside/internal/fetch"
	"github.com/fortuna/pitchside/internal/ingest/transfermarkt"
	"github.com/fortuna/pitchside/internal/logging"
	"github.com/fortuna/pitchside/internal/store/memory"
)

var testNow = time.Date(2025, time.August, 10, 10, 0, 0, 0, time.UTC)

var premierLeague = config.League{Name: "Premier League", SourceID: "GB1", Slug: "premier-league", Season: "2025", ExpectedTeams: 20}

type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	calls  []string
	plains []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[string]string)}
}

func (f *fakeFetcher) set(target fetch.Target, html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[target.URL] = html
}

func (f *fakeFetcher) Fetch(_ context.Context, t fetch.Target) (*fetch.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, t.URL)
	f.mu.Unlock()
	return f.doc(t)
}

func (f *fakeFetcher) FetchPlain(_ context.Context, t fetch.Target) (*fetch.Document, error) {
	f.mu.Lock()
	f.plains = append(f.plains, t.URL)
	f.mu.Unlock()
	return f.doc(t)
}

func (f *fakeFetcher) doc(t fetch.Target) (*fetch.Document, error) {
	f.mu.Lock()
	html, ok := f.pages[t.URL]
	f.mu.Unlock()
	if !ok {
		return nil, &fetch.Failure{URL: t.URL, Attempts: 4}
	}
	d, err := fetch.ParseHTML(html)
	if err != nil {
		return nil, err
	}
	return &fetch.Document{Document: d, URL: t.URL, Strategy: "fake"}, nil
}

type recordedSleeps struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleeps = append(r.sleeps, d)
	return nil
}

func (r *recordedSleeps) all() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

type testEnv struct {
	Env
	fetcher *fakeFetcher
	catalog *memory.Catalog
	sleeps  *recordedSleeps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cat := memory.NewCatalog()
	cat.SetClock(func() time.Time { return testNow })
	f := newFakeFetcher()
	sleeps := &recordedSleeps{}
	return &testEnv{
		Env: Env{
			Fetcher:  f,
			Site:     transfermarkt.NewSite("https://tm.test"),
			Catalog:  cat,
			Logger:   logging.NewNop(),
			Pauses:   DefaultPauses(),
			Location: time.UTC,
			Sleep:    sleeps.sleep,
			Now:      func() time.Time { return testNow },
		},
		fetcher: f,
		catalog: cat,
		sleeps:  sleeps,
	}
}

func (e *testEnv) league(t *testing.T) int64 {
	t.Helper()
	id, err := e.catalog.UpsertLeague(context.Background(), premierLeague.Name, premierLeague.SourceID, premierLeague.Season)
	require.NoError(t, err)
	return id
}

type fixture struct {
	date, clock  string
	home, homeID string
	away, awayID string
	matchID      string
}

const fixtureHeader = `<tr><th>Date</th><th>Time</th><th>Home</th><th></th><th>Result</th><th></th><th>Away</th></tr>`

func fixturePage(rows ...fixture) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="responsive-table"><table><tbody>`)
	b.WriteString(fixtureHeader)
	for _, r := range rows {
		b.WriteString("<tr>")
		if r.date != "" {
			fmt.Fprintf(&b, `<td><a href="/datum/x">%s</a></td>`, r.date)
		} else {
			b.WriteString("<td></td>")
		}
		fmt.Fprintf(&b, `<td>%s</td>`, r.clock)
		fmt.Fprintf(&b, `<td class="hauptlink"><a href="/club/spielplan/verein/%s">%s</a></td>`, r.homeID, r.home)
		b.WriteString(`<td></td>`)
		if r.matchID != "" {
			fmt.Fprintf(&b, `<td><a href="/spielbericht/index/spielbericht/%s">-:-</a></td>`, r.matchID)
		} else {
			b.WriteString(`<td>-:-</td>`)
		}
		b.WriteString(`<td></td>`)
		fmt.Fprintf(&b, `<td class="hauptlink"><a href="/club/spielplan/verein/%s">%s</a></td>`, r.awayID, r.away)
		b.WriteString("</tr>")
	}
	b.WriteString(`</tbody></table></div></body></html>`)
	return b.String()
}

func matchdayPage(md int) string {
	return fmt.Sprintf(`<html><body><select name="spieltag"><option value="1">1</option><option value="%d" selected="selected">%d</option></select></body></html>`, md, md)
}

type memoryYields struct {
	counts map[string]int
}

func (m *memoryYields) LastYield(_ context.Context, league string) (int, bool, error) {
	n, ok := m.counts[league]
	return n, ok, nil
}

func (m *memoryYields) RecordYield(_ context.Context, league string, n int) error {
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[league] = n
	return nil
}

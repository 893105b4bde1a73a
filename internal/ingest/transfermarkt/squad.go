package transfermarkt

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

const unknownPosition = "Unknown"

// ParseSquad reads the roster table of a squad page in source order.
// Rows without a linked player name are skipped.
func ParseSquad(doc *goquery.Document) []SquadRow {
	var rows []SquadRow
	doc.Find("tr.odd, tr.even").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("td.hauptlink a").First()
		name := cleanText(link.Text())
		if link.Length() == 0 || name == "" {
			return
		}

		rows = append(rows, SquadRow{
			Player:       PlayerRef{Name: name, SourceID: PlayerID(link.AttrOr("href", ""))},
			Position:     squadPosition(row),
			JerseyNumber: jerseyNumber(row.Find("div.rn_nummer").First().Text()),
			MarketValue:  ParseMarketValue(row.Find("td.rechts").First().Text()),
		})
	})
	return rows
}

// squadPosition prefers the second line of the nested name/position
// table and falls back to the second cell of the row unless that cell is
// the name itself.
func squadPosition(row *goquery.Selection) string {
	if inline := row.Find("table.inline-table tr"); inline.Length() > 1 {
		if pos := cleanText(inline.Last().Text()); pos != "" {
			return pos
		}
	}
	if cells := row.Find("td"); cells.Length() > 1 {
		cell := cells.Eq(1)
		if cell.Find("td.hauptlink").Length() == 0 && !cell.HasClass("hauptlink") {
			if pos := cleanText(cell.Text()); pos != "" {
				return pos
			}
		}
	}
	return unknownPosition
}

func jerseyNumber(text string) *int {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, text)
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

// ParseMarketValue normalizes "€45.50m" to 45500000 and "€900k" to 900000.
// Text without a euro sign or with an unreadable or out-of-range amount
// yields nil.
func ParseMarketValue(text string) *int64 {
	if !strings.Contains(text, "€") {
		return nil
	}
	s := strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(text, "€", "")), ""))
	s = strings.ReplaceAll(s, ",", ".")

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "bn"):
		multiplier, s = 1e9, strings.TrimSuffix(s, "bn")
	case strings.HasSuffix(s, "m"):
		multiplier, s = 1e6, strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "k"):
		multiplier, s = 1e3, strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "th."):
		multiplier, s = 1e3, strings.TrimSuffix(s, "th.")
	}

	amount, err := strconv.ParseFloat(s, 64)
	if err != nil || amount < 0 || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return nil
	}
	value := math.Round(amount * multiplier)
	if value >= math.MaxInt64 {
		return nil
	}
	v := int64(value)
	return &v
}

package transfermarkt

import (
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/fortuna/pitchside/internal/store"
)

const (
	injuryDescriptionCell = 2
	injuryReturnCell      = 3
	minInjuryCells        = 4
)

// HasInjuryList reports whether the page still carries the list table. An
// empty list and a redesigned page both parse to zero rows.
func HasInjuryList(doc *goquery.Document) bool {
	return doc.Find(SquadMarker).Length() > 0
}

// ParseInjuries reads a club's injury list. now anchors dates that omit
// the year.
func ParseInjuries(doc *goquery.Document, now time.Time, loc *time.Location) []InjuryRow {
	var rows []InjuryRow
	doc.Find("tr.odd, tr.even").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("td.hauptlink a").First()
		name := cleanText(link.Text())
		if link.Length() == 0 || name == "" {
			return
		}
		cells := row.Find("td")
		if cells.Length() < minInjuryCells {
			return
		}

		returnText := cleanText(cells.Eq(injuryReturnCell).Text())
		rows = append(rows, InjuryRow{
			Player:         PlayerRef{Name: name, SourceID: PlayerID(link.AttrOr("href", ""))},
			Description:    cleanText(cells.Eq(injuryDescriptionCell).Text()),
			ReturnText:     returnText,
			ExpectedReturn: ParseReturnDate(returnText, now, loc),
		})
	})
	return rows
}

var (
	suspensionWords = []string{"suspension", "suspended", "ban", "banned", "red", "yellow"}
	illnessWords    = []string{"ill", "illness", "sick", "flu", "virus", "infection", "cold", "fever", "covid"}
	personalWords   = []string{"personal", "family", "bereavement", "leave"}
)

// InjuryListKinds are the kinds ClassifyStatus can assign, so the injury
// list is the full picture for them.
var InjuryListKinds = []store.StatusKind{
	store.StatusInjury, store.StatusSuspension, store.StatusIllness, store.StatusPersonal,
}

// ClassifyStatus maps a free-text absence description onto a status
// kind. Anything unrecognized is an injury.
func ClassifyStatus(description string) store.StatusKind {
	words := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	has := func(vocab []string) bool {
		for _, w := range words {
			for _, v := range vocab {
				if w == v {
					return true
				}
			}
		}
		return false
	}

	switch {
	case has(suspensionWords):
		return store.StatusSuspension
	case has(illnessWords):
		return store.StatusIllness
	case has(personalWords):
		return store.StatusPersonal
	default:
		return store.StatusInjury
	}
}

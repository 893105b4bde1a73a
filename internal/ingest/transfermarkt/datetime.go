package transfermarkt

import (
	"strconv"
	"strings"
	"time"
)

// Kickoff defaults applied when the time cell is empty or the whole
// date cannot be read.
const (
	defaultKickoffHour   = 15
	defaultKickoffMinute = 0
)

// ResolveKickoff turns the carried date and time text into a timestamp in
// loc. Slash dates are M/D/Y, dot dates D.M[.Y]. Two-digit years below 50
// land in the 2000s, the rest in the 1900s. A time without a colon keeps
// the 15:00 default.
//
// Unreadable input yields tomorrow at 15:00 relative to now and ok=false.
func ResolveKickoff(dateText, timeText string, now time.Time, loc *time.Location) (kickoff time.Time, ok bool) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	year, month, day, dateOK := parseDate(dateText, now.Year())
	hour, minute, timeOK := parseClock(timeText)
	if !dateOK || !timeOK {
		return fallbackKickoff(now, loc), false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	// time.Date normalizes 31/02 into March; the source never means that.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return fallbackKickoff(now, loc), false
	}
	return t, true
}

func fallbackKickoff(now time.Time, loc *time.Location) time.Time {
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), defaultKickoffHour, defaultKickoffMinute, 0, 0, loc)
}

// parseDate reads the last whitespace token of text, so weekday prefixes
// like "Sat 8/16/25" are tolerated.
func parseDate(text string, currentYear int) (year, month, day int, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, 0, 0, false
	}
	token := fields[len(fields)-1]

	switch {
	case strings.Contains(token, "/"):
		parts := strings.Split(token, "/")
		if len(parts) != 3 {
			return 0, 0, 0, false
		}
		nums, ok := atoiAll(parts)
		if !ok {
			return 0, 0, 0, false
		}
		return windowYear(nums[2], len(strings.TrimSpace(parts[2]))), nums[0], nums[1], true

	case strings.Contains(token, "."):
		parts := strings.Split(token, ".")
		// "16.08." carries a trailing separator but no year
		if len(parts) == 3 && parts[2] == "" {
			parts = parts[:2]
		}
		switch len(parts) {
		case 2:
			nums, ok := atoiAll(parts)
			if !ok {
				return 0, 0, 0, false
			}
			return currentYear, nums[1], nums[0], true
		case 3:
			nums, ok := atoiAll(parts)
			if !ok {
				return 0, 0, 0, false
			}
			return windowYear(nums[2], len(strings.TrimSpace(parts[2]))), nums[1], nums[0], true
		}
		return 0, 0, 0, false
	}

	// Newer English layouts spell the month: "Sun Aug 17, 2025"
	if len(fields) >= 3 {
		spelled := strings.Join(fields[len(fields)-3:], " ")
		for _, layout := range spelledLayouts {
			if t, err := time.Parse(layout, spelled); err == nil {
				return t.Year(), int(t.Month()), t.Day(), true
			}
		}
	}
	return 0, 0, 0, false
}

var spelledLayouts = []string{"Jan 2, 2006", "January 2, 2006"}

func windowYear(year, digits int) int {
	if digits > 2 || year >= 100 {
		return year
	}
	if year < 50 {
		return 2000 + year
	}
	return 1900 + year
}

// parseClock reads "H:MM" with an optional AM/PM suffix.
func parseClock(text string) (hour, minute int, ok bool) {
	upper := strings.ToUpper(strings.TrimSpace(text))
	if !strings.Contains(upper, ":") {
		return defaultKickoffHour, defaultKickoffMinute, true
	}

	pm := strings.Contains(upper, "PM")
	am := strings.Contains(upper, "AM")
	upper = strings.NewReplacer("AM", "", "PM", "").Replace(upper)

	parts := strings.Split(strings.TrimSpace(upper), ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	nums, valid := atoiAll(parts)
	if !valid {
		return 0, 0, false
	}
	hour, minute = nums[0], nums[1]

	if pm && hour != 12 {
		hour += 12
	} else if am && hour == 12 {
		hour = 0
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

func atoiAll(parts []string) ([]int, bool) {
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

// ParseReturnDate reads an expected-return cell. Unknown or open-ended
// values ("?", "unknown", "-") yield nil.
func ParseReturnDate(text string, now time.Time, loc *time.Location) *time.Time {
	if loc == nil {
		loc = time.UTC
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	for _, layout := range append(spelledLayouts, "2006-01-02") {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return &t
		}
	}

	if !strings.ContainsAny(text, "./") {
		return nil
	}
	year, month, day, ok := parseDate(text, now.In(loc).Year())
	if !ok {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return nil
	}
	return &t
}

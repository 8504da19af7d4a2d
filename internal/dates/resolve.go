// Package dates turns relative due-date phrases ("tomorrow", "next Friday",
// "in 2 weeks") into calendar dates.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sun":       time.Sunday,
	"mon":       time.Monday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"wed":       time.Wednesday,
	"thu":       time.Thursday,
	"thur":      time.Thursday,
	"thurs":     time.Thursday,
	"fri":       time.Friday,
	"sat":       time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
}

var (
	tokenRegex   = regexp.MustCompile(`[a-z]+|\d+`)
	ordinalRegex = regexp.MustCompile(`(\d+)(st|nd|rd|th)\b`)
	inDaysRegex  = regexp.MustCompile(`\bin (\d+|a|an|one|two|three|four|five|six) days?\b`)
)

// Resolve maps a due-date phrase to a date relative to now. It never fails:
// anything it cannot interpret resolves to now.
//
// Rules, first match wins:
//   - "today" → now; "tomorrow" → now + 1 day (also as a word inside the phrase)
//   - an explicit month and day ("Friday, May 17th") → that date, next year if already past
//   - "next <weekday>" → the next such weekday strictly after today
//   - "...week..." → now + 7×N days, N the first number in the phrase (default 1)
//   - "in N days" → now + N days
//   - a bare weekday → the next such weekday, today excluded
//   - any other calendar date the parsers accept
func Resolve(phrase string, now time.Time) time.Time {
	lower := strings.ToLower(strings.TrimSpace(phrase))
	switch lower {
	case "today":
		return now
	case "tomorrow":
		return now.AddDate(0, 0, 1)
	}

	toks := tokenRegex.FindAllString(lower, -1)

	if contains(toks, "tomorrow") {
		return now.AddDate(0, 0, 1)
	}
	if contains(toks, "today") || contains(toks, "tonight") {
		return now
	}

	if d, ok := monthDay(toks, now); ok {
		return d
	}

	wd, hasWeekday := findWeekday(toks)
	if hasWeekday && contains(toks, "next") {
		return NextWeekday(now, wd)
	}

	if strings.Contains(lower, "week") {
		return now.AddDate(0, 0, 7*leadingCount(toks))
	}

	if m := inDaysRegex.FindStringSubmatch(lower); m != nil {
		return now.AddDate(0, 0, countValue(m[1]))
	}

	if hasWeekday {
		return NextWeekday(now, wd)
	}

	if d, ok := parseCalendar(phrase, now); ok {
		return d
	}
	return now
}

// NextWeekday returns the first day strictly after now that falls on wd,
// keeping now's time of day. If today is wd the result is a week out.
func NextWeekday(now time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days)
}

func findWeekday(toks []string) (time.Weekday, bool) {
	for _, tok := range toks {
		if wd, ok := weekdays[tok]; ok {
			return wd, true
		}
	}
	return 0, false
}

func contains(toks []string, want string) bool {
	for _, tok := range toks {
		if tok == want {
			return true
		}
	}
	return false
}

// leadingCount returns the first number (digits or a small number word) in
// the phrase, or 1 when there is none.
func leadingCount(toks []string) int {
	for _, tok := range toks {
		if n, err := strconv.Atoi(tok); err == nil && n > 0 {
			return n
		}
		if n, ok := numberWords[tok]; ok && tok != "a" && tok != "an" {
			return n
		}
	}
	return 1
}

func countValue(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return numberWords[s]
}

// monthDay recognizes "<month> <day>" or "<day> <month>" anywhere in the
// phrase. A year, when present, must follow the day.
func monthDay(toks []string, now time.Time) (time.Time, bool) {
	for i, tok := range toks {
		month, ok := months[tok]
		if !ok {
			continue
		}
		// "may" is also a verb; require an adjacent day number.
		day, year := 0, 0
		if i+1 < len(toks) {
			day = atoiDay(toks[i+1])
			if day > 0 && i+2 < len(toks) {
				year = atoiYear(toks[i+2])
			}
		}
		if day == 0 && i > 0 {
			day = atoiDay(toks[i-1])
			if day > 0 && i+1 < len(toks) {
				year = atoiYear(toks[i+1])
			}
		}
		if day == 0 {
			continue
		}
		explicitYear := year != 0
		if !explicitYear {
			year = now.Year()
		}
		d := time.Date(year, month, day, now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location())
		if d.Month() != month {
			continue // day overflowed the month, e.g. "February 30"
		}
		if !explicitYear && d.Before(StartOfDay(now)) {
			d = d.AddDate(1, 0, 0)
		}
		return d, true
	}
	return time.Time{}, false
}

func atoiDay(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 31 {
		return 0
	}
	return n
}

func atoiYear(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1900 || n > 9999 {
		return 0
	}
	return n
}

var calendarLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// maxCalendarYears bounds how far from now a parsed calendar date may land.
// Anything further is treated as a misparse.
const maxCalendarYears = 10

// parseCalendar is the last-resort generic date parse. A date without a
// year gets now's year, rolled to next year if already past.
func parseCalendar(phrase string, now time.Time) (time.Time, bool) {
	s := strings.TrimSpace(ordinalRegex.ReplaceAllString(phrase, "$1"))
	if s == "" {
		return time.Time{}, false
	}
	t, ok := parseLayouts(s, now.Location())
	if !ok {
		return time.Time{}, false
	}
	if t.Year() == 0 {
		d := time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
		if d.Month() != t.Month() {
			return time.Time{}, false // February 29 outside a leap year
		}
		if d.Before(StartOfDay(now)) {
			d = d.AddDate(1, 0, 0)
		}
		t = d
	}
	if t.Before(now.AddDate(-maxCalendarYears, 0, 0)) || t.After(now.AddDate(maxCalendarYears, 0, 0)) {
		return time.Time{}, false
	}
	return t, true
}

func parseLayouts(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range calendarLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	if t, err := dateparse.ParseIn(s, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}

package dates

import (
	"regexp"
	"strings"
	"time"
)

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the number of calendar days from a to b, measured in
// a's location. Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	from := StartOfDay(a)
	to := StartOfDay(b.In(a.Location()))
	// Normalize through UTC dates so DST transitions don't shave an hour.
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	f := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	t := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	// Unix seconds, not Sub: a Duration saturates at about 292 years.
	return int((t.Unix() - f.Unix()) / 86400)
}

// Format renders a due date the way cards show it, e.g. "Fri, May 17".
func Format(t time.Time) string {
	return t.Format("Mon, Jan 2")
}

var phraseRegexes = []*regexp.Regexp{
	regexp.MustCompile(`\b(today|tonight|tomorrow)\b`),
	regexp.MustCompile(`\bin (\d+|a|an|one|two|three|four|five|six) (days?|weeks?)\b`),
	regexp.MustCompile(`\bnext (week|(mon|tues|wednes|thurs|fri|satur|sun)day)\b`),
	regexp.MustCompile(`\b(jan(uary)?|feb(ruary)?|mar(ch)?|apr(il)?|may|june?|july?|aug(ust)?|sept?(ember)?|oct(ober)?|nov(ember)?|dec(ember)?) \d{1,2}(st|nd|rd|th)?\b`),
	regexp.MustCompile(`\b(mon|tues|wednes|thurs|fri|satur|sun)day\b`),
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
}

// DetectPhrase finds the first due-date phrase in free text that Resolve
// understands, e.g. "next friday" in "quiz due next Friday". The returned
// phrase is lowercase. Returns false when the text names no date.
func DetectPhrase(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, re := range phraseRegexes {
		if m := re.FindString(lower); m != "" {
			return m, true
		}
	}
	return "", false
}

package record

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the canonical stored form of an earning date.
const DateFormat = "2006-01-02"

// Day is the length of a calendar day used for recency arithmetic.
const Day = 24 * time.Hour

// dateLayouts are tried in order by NormalizeDate. The first layout that
// parses wins. Lenient variants accept single digit days and months.
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"02 Jan 2006",
	"2 Jan 2006",
	"02 January 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"Jan 02, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"01/02/2006",
	"1/2/2006",
}

// ParseDate parses any supported date representation and returns the day
// at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	str := strings.Join(strings.Fields(s), " ")
	if str == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	// Month abbreviations sometimes arrive as "Dec." or in upper case.
	str = strings.ReplaceAll(str, ".", "")
	str = titleMonth(str)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	// Full timestamps keep only their calendar date.
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(s)); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD, DD Mon YYYY, Mon DD, YYYY or MM/DD/YYYY", s)
}

// NormalizeDate returns the canonical YYYY-MM-DD form of s.
func NormalizeDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(DateFormat), nil
}

// DateTimestamp returns the epoch milliseconds of a canonical date.
func DateTimestamp(date string) (int64, error) {
	t, err := time.Parse(DateFormat, date)
	if err != nil {
		return 0, fmt.Errorf("invalid canonical date %q: %w", date, err)
	}
	return t.UnixMilli(), nil
}

// DaysBetween returns the whole number of days elapsed from 'from' to 'to'.
// Negative spans return 0.
func DaysBetween(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d / Day)
}

// titleMonth rewrites month words ("DEC", "dec") to the capitalization
// time.Parse expects ("Dec").
func titleMonth(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if len(w) < 3 || !isLetters(w) {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func isLetters(s string) bool {
	for _, r := range strings.TrimSuffix(s, ",") {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

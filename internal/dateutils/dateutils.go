// Package dateutils provides the calendar-day arithmetic shared by vendor
// adapters, deduplication and the bank-operation linker.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Date layouts seen on vendor portals and bank exports.
const (
	DateLayoutISO      = "2006-01-02"
	DateLayoutFrench   = "02/01/2006"
	DateLayoutDashed   = "02-01-2006"
	DateLayoutDotted   = "02.01.2006"
	DateLayoutCompact  = "20060102"
	DateLayoutFull     = "2006-01-02 15:04:05"
	DateLayoutRFC3339  = time.RFC3339
	DefaultFilePattern = "YYYYMMDD"
)

// CommonFormats is the ordered list of layouts ParseDate tries.
var CommonFormats = []string{
	DateLayoutISO,
	DateLayoutFrench,
	DateLayoutDashed,
	DateLayoutDotted,
	DateLayoutCompact,
	DateLayoutFull,
	DateLayoutRFC3339,
}

var spaces = regexp.MustCompile(`\s+`)

// ParseDate parses dateStr with the first matching layout of CommonFormats and
// returns the calendar day together with the detected layout.
func ParseDate(dateStr string) (time.Time, string, error) {
	dateStr = CleanDateString(dateStr)

	for _, format := range CommonFormats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return Day(t), format, nil
		}
	}

	return time.Time{}, "", fmt.Errorf("unable to parse date: %q", dateStr)
}

// CleanDateString trims and collapses whitespace, including non-breaking spaces.
func CleanDateString(dateStr string) string {
	dateStr = strings.ReplaceAll(dateStr, "\u00a0", " ")
	return spaces.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// Day returns the calendar day of t as midnight UTC. The year, month and day
// are read in t's own location, so a bill dated late in the evening in Paris
// stays on its local day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of calendar days from `from` to `to`.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// MonthDay builds the given day of a month, clamped to the month's last day.
func MonthDay(year int, month time.Month, day int) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

var frenchMonths = map[string]time.Month{
	"janvier":   time.January,
	"fevrier":   time.February,
	"février":   time.February,
	"mars":      time.March,
	"avril":     time.April,
	"mai":       time.May,
	"juin":      time.June,
	"juillet":   time.July,
	"aout":      time.August,
	"août":      time.August,
	"septembre": time.September,
	"octobre":   time.October,
	"novembre":  time.November,
	"decembre":  time.December,
	"décembre":  time.December,
}

// ParseFrenchMonth maps a French month name (accents optional) to a time.Month.
func ParseFrenchMonth(name string) (time.Month, error) {
	m, ok := frenchMonths[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown month name: %q", name)
	}
	return m, nil
}

// GoLayout converts a pattern such as "YYYYMMDD" or "DD-MM-YYYY" into a Go
// time layout. Characters other than the YYYY, YY, MM and DD tokens are kept.
func GoLayout(pattern string) string {
	r := strings.NewReplacer("YYYY", "2006", "YY", "06", "MM", "01", "DD", "02")
	return r.Replace(pattern)
}

// FormatPattern formats date with a YYYY/MM/DD style pattern; an empty pattern
// uses DefaultFilePattern.
func FormatPattern(date time.Time, pattern string) string {
	if pattern == "" {
		pattern = DefaultFilePattern
	}
	return date.Format(GoLayout(pattern))
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD)
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

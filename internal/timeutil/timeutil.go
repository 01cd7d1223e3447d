// Package timeutil holds the wall-clock arithmetic shared by the slot
// resolver and the booking guard. All times are HH:MM strings paired with a
// calendar date in the server's single implicit zone.
package timeutil

import (
	"fmt"
	"time"
)

const (
	clockLayout = "15:04"
	dateLayout  = "2006-01-02"
)

// ParseClock converts an "HH:MM" string to minutes since midnight.
func ParseClock(value string) (int, error) {
	t, err := time.Parse(clockLayout, value)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", value, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate parses a "YYYY-MM-DD" calendar date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return t, nil
}

// FormatDate renders a calendar date as "YYYY-MM-DD".
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfMonth returns midnight on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Rebase reinterprets t's wall-clock reading in loc. The displayed date and
// time stay the same; the instant shifts by the zone difference. Used to
// compare a clock reading against dates that were parsed in another zone.
func Rebase(t time.Time, loc *time.Location) time.Time {
	if t.Location() == loc {
		return t
	}
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()
	return time.Date(year, month, day, hour, minute, sec, t.Nanosecond(), loc)
}

// At places a minutes-since-midnight offset onto the given date.
func At(date time.Time, minutes int) time.Time {
	return StartOfDay(date).Add(time.Duration(minutes) * time.Minute)
}

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect. Touching boundaries do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}

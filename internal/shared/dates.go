package shared

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar days.
const DateLayout = "2006-01-02"

// Day truncates t to a calendar day in UTC. All scheduling and projection
// arithmetic operates on day granularity.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day in UTC.
func Today() time.Time {
	return Day(time.Now().UTC())
}

// ParseDate parses a YYYY-MM-DD value.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("shared: parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t in YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween returns the number of calendar days from a to b. Negative
// when b precedes a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)) / (24 * time.Hour))
}

// MonthsBetween returns whole calendar months from a to b, ignoring the
// day component. Negative when b precedes a.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// LastDayOfMonth reports the number of days in the month containing t.
func LastDayOfMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1).Day()
}

// ClampDay returns day clamped to a valid day-of-month for the month
// containing t.
func ClampDay(t time.Time, day int) int {
	if last := LastDayOfMonth(t); day > last {
		return last
	}
	return day
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

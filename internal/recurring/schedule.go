package recurring

import (
	"time"

	"github.com/centbook/centbook/internal/shared"
)

// Pure recurrence arithmetic. Month and year advancement clamps to the
// last valid day of the target month (Jan 31 + 1 month = Feb 28); after a
// clamp the clamped day becomes the new anchor, because the schedule is
// driven by repeatedly advancing NextDueDate. IsDueOn derives its
// occurrence set by stepping from the start date whenever clamping can
// occur, so the two stay in lockstep.

// Advance returns the occurrence that follows date for the given
// frequency and interval. The result is always strictly after date.
func Advance(date time.Time, freq Frequency, interval int) time.Time {
	if interval < 1 {
		interval = 1
	}
	date = shared.Day(date)
	switch freq {
	case FrequencyWeekly:
		return date.AddDate(0, 0, 7*interval)
	case FrequencyMonthly:
		return addMonthsClamped(date, interval)
	case FrequencyYearly:
		return addMonthsClamped(date, 12*interval)
	default:
		return date.AddDate(0, 0, interval)
	}
}

// IsDueOn reports whether the definition has an occurrence on target.
func IsDueOn(def Definition, target time.Time) bool {
	target = shared.Day(target)
	start := shared.Day(def.StartDate)
	if target.Before(start) {
		return false
	}
	if def.EndDate != nil && target.After(shared.Day(*def.EndDate)) {
		return false
	}
	interval := def.Interval
	if interval < 1 {
		interval = 1
	}
	switch def.Frequency {
	case FrequencyDaily:
		return shared.DaysBetween(start, target)%interval == 0
	case FrequencyWeekly:
		days := shared.DaysBetween(start, target)
		return days%(7*interval) == 0
	case FrequencyMonthly:
		if start.Day() > 28 {
			return occursByStepping(start, target, FrequencyMonthly, interval)
		}
		months := shared.MonthsBetween(start, target)
		return months%interval == 0 && target.Day() == start.Day()
	case FrequencyYearly:
		if start.Month() == time.February && start.Day() == 29 {
			return occursByStepping(start, target, FrequencyYearly, interval)
		}
		years := target.Year() - start.Year()
		return years%interval == 0 && target.Month() == start.Month() && target.Day() == start.Day()
	default:
		return false
	}
}

// NextOnOrAfter returns the first occurrence of the definition on or
// after from, ignoring the end date. Used to seed NextDueDate at
// creation time.
func NextOnOrAfter(start time.Time, freq Frequency, interval int, from time.Time) time.Time {
	occurrence := shared.Day(start)
	from = shared.Day(from)
	for occurrence.Before(from) {
		occurrence = Advance(occurrence, freq, interval)
	}
	return occurrence
}

// occursByStepping walks the advance sequence from start. Only reached
// for schedules whose start day can clamp, where congruence checks on
// day-of-month would diverge from the advanced sequence.
func occursByStepping(start, target time.Time, freq Frequency, interval int) bool {
	for d := start; !d.After(target); d = Advance(d, freq, interval) {
		if d.Equal(target) {
			return true
		}
	}
	return false
}

func addMonthsClamped(date time.Time, months int) time.Time {
	firstOfTarget := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	day := shared.ClampDay(firstOfTarget, date.Day())
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, time.UTC)
}

package bills

import (
	"time"

	"github.com/centbook/centbook/internal/shared"
)

// Advance returns the next due date for a bill. Bills carry no interval
// multiplier. Month-based cadences clamp to the last valid day of the
// target month, matching the recurring scheduler's overflow policy.
func Advance(date time.Time, freq Frequency) time.Time {
	date = shared.Day(date)
	switch freq {
	case FrequencyWeekly:
		return date.AddDate(0, 0, 7)
	case FrequencyQuarterly:
		return addMonthsClamped(date, 3)
	case FrequencyYearly:
		return addMonthsClamped(date, 12)
	default:
		return addMonthsClamped(date, 1)
	}
}

// GetStatus classifies the bill against asOf. A paid bill never reminds
// and is never overdue.
func GetStatus(bill Bill, asOf time.Time) Status {
	days := shared.DaysBetween(asOf, bill.NextDueDate)
	return Status{
		DaysUntilDue: days,
		IsOverdue:    days < 0 && !bill.IsPaid,
		ShouldRemind: days >= 0 && days <= bill.ReminderDays && !bill.IsPaid,
	}
}

func addMonthsClamped(date time.Time, months int) time.Time {
	firstOfTarget := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	day := shared.ClampDay(firstOfTarget, date.Day())
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, time.UTC)
}

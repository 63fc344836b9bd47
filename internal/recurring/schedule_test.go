package recurring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAdvanceDaily(t *testing.T) {
	require.Equal(t, day(2024, time.January, 16), Advance(day(2024, time.January, 15), FrequencyDaily, 1))
	require.Equal(t, day(2024, time.January, 25), Advance(day(2024, time.January, 15), FrequencyDaily, 10))
	// Interval below one is treated as one.
	require.Equal(t, day(2024, time.January, 16), Advance(day(2024, time.January, 15), FrequencyDaily, 0))
}

func TestAdvanceWeekly(t *testing.T) {
	require.Equal(t, day(2024, time.January, 22), Advance(day(2024, time.January, 15), FrequencyWeekly, 1))
	require.Equal(t, day(2024, time.February, 12), Advance(day(2024, time.January, 15), FrequencyWeekly, 4))
}

func TestAdvanceMonthly(t *testing.T) {
	require.Equal(t, day(2024, time.February, 15), Advance(day(2024, time.January, 15), FrequencyMonthly, 1))
	require.Equal(t, day(2024, time.April, 15), Advance(day(2024, time.January, 15), FrequencyMonthly, 3))
}

func TestAdvanceMonthlyClampsToMonthEnd(t *testing.T) {
	// Jan 31 -> Feb 29 in a leap year, Feb 28 otherwise.
	require.Equal(t, day(2024, time.February, 29), Advance(day(2024, time.January, 31), FrequencyMonthly, 1))
	require.Equal(t, day(2025, time.February, 28), Advance(day(2025, time.January, 31), FrequencyMonthly, 1))
	// After the clamp the clamped day is the new anchor.
	require.Equal(t, day(2025, time.March, 28), Advance(day(2025, time.February, 28), FrequencyMonthly, 1))
}

func TestAdvanceYearly(t *testing.T) {
	require.Equal(t, day(2025, time.March, 10), Advance(day(2024, time.March, 10), FrequencyYearly, 1))
	// Feb 29 start clamps on non-leap years.
	require.Equal(t, day(2025, time.February, 28), Advance(day(2024, time.February, 29), FrequencyYearly, 1))
}

func TestAdvanceIsStrictlyAfter(t *testing.T) {
	start := day(2024, time.January, 31)
	for _, freq := range []Frequency{FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly} {
		for _, interval := range []int{1, 2, 5} {
			d := start
			for i := 0; i < 24; i++ {
				next := Advance(d, freq, interval)
				require.True(t, next.After(d), "%s interval %d at %s", freq, interval, d)
				d = next
			}
		}
	}
}

func TestIsDueOnBounds(t *testing.T) {
	end := day(2024, time.March, 1)
	def := Definition{
		Frequency: FrequencyDaily,
		Interval:  1,
		StartDate: day(2024, time.February, 1),
		EndDate:   &end,
	}
	require.False(t, IsDueOn(def, day(2024, time.January, 31)))
	require.True(t, IsDueOn(def, day(2024, time.February, 1)))
	require.True(t, IsDueOn(def, end))
	require.False(t, IsDueOn(def, day(2024, time.March, 2)))
}

func TestIsDueOnDailyInterval(t *testing.T) {
	def := Definition{Frequency: FrequencyDaily, Interval: 3, StartDate: day(2024, time.January, 1)}
	require.True(t, IsDueOn(def, day(2024, time.January, 1)))
	require.False(t, IsDueOn(def, day(2024, time.January, 2)))
	require.True(t, IsDueOn(def, day(2024, time.January, 4)))
	require.True(t, IsDueOn(def, day(2024, time.January, 31)))
}

func TestIsDueOnWeekly(t *testing.T) {
	def := Definition{Frequency: FrequencyWeekly, Interval: 2, StartDate: day(2024, time.January, 1)}
	require.True(t, IsDueOn(def, day(2024, time.January, 1)))
	require.False(t, IsDueOn(def, day(2024, time.January, 8)))
	require.True(t, IsDueOn(def, day(2024, time.January, 15)))
}

func TestIsDueOnMonthly(t *testing.T) {
	def := Definition{Frequency: FrequencyMonthly, Interval: 1, StartDate: day(2024, time.January, 15)}
	require.True(t, IsDueOn(def, day(2024, time.February, 15)))
	require.False(t, IsDueOn(def, day(2024, time.February, 14)))
	require.True(t, IsDueOn(def, day(2025, time.June, 15)))

	quarterly := Definition{Frequency: FrequencyMonthly, Interval: 3, StartDate: day(2024, time.January, 15)}
	require.False(t, IsDueOn(quarterly, day(2024, time.February, 15)))
	require.True(t, IsDueOn(quarterly, day(2024, time.April, 15)))
}

func TestIsDueOnYearly(t *testing.T) {
	def := Definition{Frequency: FrequencyYearly, Interval: 1, StartDate: day(2024, time.March, 10)}
	require.True(t, IsDueOn(def, day(2026, time.March, 10)))
	require.False(t, IsDueOn(def, day(2026, time.March, 11)))
	require.False(t, IsDueOn(def, day(2026, time.April, 10)))
}

// The occurrence set produced by IsDueOn over a range must equal the
// sequence produced by repeatedly advancing from the start date. Month
// end starts exercise the clamping path.
func TestIsDueOnMatchesAdvanceSequence(t *testing.T) {
	cases := []struct {
		name     string
		freq     Frequency
		interval int
		start    time.Time
	}{
		{"daily", FrequencyDaily, 3, day(2024, time.January, 5)},
		{"weekly", FrequencyWeekly, 2, day(2024, time.January, 5)},
		{"monthly mid month", FrequencyMonthly, 1, day(2024, time.January, 15)},
		{"monthly 31st", FrequencyMonthly, 1, day(2024, time.January, 31)},
		{"monthly 30th", FrequencyMonthly, 2, day(2024, time.November, 30)},
		{"yearly", FrequencyYearly, 1, day(2024, time.March, 10)},
		{"yearly leap day", FrequencyYearly, 1, day(2024, time.February, 29)},
	}
	horizon := day(2027, time.January, 1)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := Definition{Frequency: tc.freq, Interval: tc.interval, StartDate: tc.start}

			advanced := map[time.Time]bool{}
			for d := tc.start; !d.After(horizon); d = Advance(d, tc.freq, tc.interval) {
				advanced[d] = true
			}

			for d := tc.start; !d.After(horizon); d = d.AddDate(0, 0, 1) {
				require.Equal(t, advanced[d], IsDueOn(def, d), "date %s", d.Format("2006-01-02"))
			}
		})
	}
}

func TestNextOnOrAfter(t *testing.T) {
	start := day(2024, time.January, 15)
	require.Equal(t, start, NextOnOrAfter(start, FrequencyMonthly, 1, day(2024, time.January, 1)))
	require.Equal(t, day(2024, time.March, 15), NextOnOrAfter(start, FrequencyMonthly, 1, day(2024, time.February, 16)))
	require.Equal(t, day(2024, time.February, 15), NextOnOrAfter(start, FrequencyMonthly, 1, day(2024, time.February, 15)))
}

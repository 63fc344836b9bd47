package bills

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAdvance(t *testing.T) {
	require.Equal(t, day(2024, time.March, 8), Advance(day(2024, time.March, 1), FrequencyWeekly))
	require.Equal(t, day(2024, time.April, 1), Advance(day(2024, time.March, 1), FrequencyMonthly))
	require.Equal(t, day(2024, time.June, 1), Advance(day(2024, time.March, 1), FrequencyQuarterly))
	require.Equal(t, day(2025, time.March, 1), Advance(day(2024, time.March, 1), FrequencyYearly))
}

func TestAdvanceClampsMonthEnd(t *testing.T) {
	require.Equal(t, day(2024, time.February, 29), Advance(day(2024, time.January, 31), FrequencyMonthly))
	require.Equal(t, day(2025, time.February, 28), Advance(day(2024, time.November, 30), FrequencyQuarterly))
	require.Equal(t, day(2025, time.February, 28), Advance(day(2024, time.February, 29), FrequencyYearly))
}

func TestGetStatusReminderWindow(t *testing.T) {
	asOf := day(2024, time.March, 10)

	// Due in two days with a three day lead: remind, not overdue.
	bill := Bill{ReminderDays: 3, NextDueDate: day(2024, time.March, 12)}
	status := GetStatus(bill, asOf)
	require.Equal(t, 2, status.DaysUntilDue)
	require.True(t, status.ShouldRemind)
	require.False(t, status.IsOverdue)

	// Outside the lead window.
	bill.NextDueDate = day(2024, time.March, 14)
	status = GetStatus(bill, asOf)
	require.Equal(t, 4, status.DaysUntilDue)
	require.False(t, status.ShouldRemind)

	// Due today still reminds.
	bill.NextDueDate = asOf
	require.True(t, GetStatus(bill, asOf).ShouldRemind)
}

func TestGetStatusOverdue(t *testing.T) {
	asOf := day(2024, time.March, 10)
	bill := Bill{ReminderDays: 3, NextDueDate: day(2024, time.March, 8)}

	status := GetStatus(bill, asOf)
	require.Equal(t, -2, status.DaysUntilDue)
	require.True(t, status.IsOverdue)
	require.False(t, status.ShouldRemind)

	// Paid bills are never overdue and never remind.
	bill.IsPaid = true
	status = GetStatus(bill, asOf)
	require.False(t, status.IsOverdue)
	require.False(t, status.ShouldRemind)
}

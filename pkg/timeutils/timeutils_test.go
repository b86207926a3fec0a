package timeutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestNextRun_DailyAdvancesPastAnchor(t *testing.T) {
	rec := Recurrence{Frequency: FrequencyDaily, TimeOfDay: "09:00:00", Timezone: "UTC"}

	// Before 09:00 -> today at 09:00
	anchor := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	next, err := NextRun(rec, anchor)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), next)

	// At exactly 09:00 -> tomorrow (strictly after anchor)
	next, err = NextRun(rec, time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC), next)
}

func TestNextRun_DailyKeepsLocalTimeAcrossSpringForward(t *testing.T) {
	ny := mustZone(t, "America/New_York")
	rec := Recurrence{Frequency: FrequencyDaily, TimeOfDay: "09:00:00", Timezone: "America/New_York"}

	// 2024-03-10 is the US spring-forward date. Anchor just after the 09:00
	// run on the 9th; next run must be 09:00 local on the 10th even though
	// the UTC offset changed from -05:00 to -04:00.
	anchor := time.Date(2024, 3, 9, 9, 30, 0, 0, ny)
	next, err := NextRun(rec, anchor)
	require.NoError(t, err)

	local := next.In(ny)
	assert.Equal(t, 9, local.Hour())
	assert.Equal(t, 10, local.Day())
	assert.Equal(t, time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC), next)
}

func TestNextRun_WeeklySameDayStillAhead(t *testing.T) {
	rec := Recurrence{Frequency: FrequencyWeekly, TimeOfDay: "18:00:00", DayOfWeek: 1, Timezone: "UTC"}

	// 2024-01-15 is a Monday. Before 18:00 the same Monday qualifies.
	anchor := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	next, err := NextRun(rec, anchor)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC), next)

	// After 18:00 it rolls a full week.
	next, err = NextRun(rec, time.Date(2024, 1, 15, 19, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 22, 18, 0, 0, 0, time.UTC), next)
}

func TestNextRun_MonthlyClampsToLastDayOfFebruary(t *testing.T) {
	rec := Recurrence{Frequency: FrequencyMonthly, TimeOfDay: "10:00:00", DayOfMonth: 31, Timezone: "UTC"}

	anchor := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	next, err := NextRun(rec, anchor)
	require.NoError(t, err)
	// 2024 is a leap year: clamp lands on the 29th, not March 31.
	assert.Equal(t, time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC), next)

	// Non-leap year clamps to the 28th.
	next, err = NextRun(rec, time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 2, 28, 10, 0, 0, 0, time.UTC), next)
}

func TestNextRun_MonthlyRollsToNextMonthWhenPassed(t *testing.T) {
	rec := Recurrence{Frequency: FrequencyMonthly, TimeOfDay: "10:00:00", DayOfMonth: 15, Timezone: "UTC"}

	anchor := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	next, err := NextRun(rec, anchor)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC), next)

	// December rolls into January of the next year.
	next, err = NextRun(rec, time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC), next)
}

func TestNextRun_MonotonicUnderRepeatedApplication(t *testing.T) {
	recs := []Recurrence{
		{Frequency: FrequencyDaily, TimeOfDay: "09:00:00", Timezone: "America/New_York"},
		{Frequency: FrequencyWeekly, TimeOfDay: "08:30:00", DayOfWeek: 3, Timezone: "Asia/Tokyo"},
		{Frequency: FrequencyMonthly, TimeOfDay: "23:15:00", DayOfMonth: 31, Timezone: "Europe/Madrid"},
	}

	for _, rec := range recs {
		anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 50; i++ {
			next, err := NextRun(rec, anchor)
			require.NoError(t, err)
			require.True(t, next.After(anchor), "%s run %d: %v not after %v", rec.Frequency, i, next, anchor)
			anchor = next
		}
	}
}

func TestNextRun_ConfigurationErrors(t *testing.T) {
	_, err := NextRun(Recurrence{Frequency: FrequencyDaily, TimeOfDay: "09:00", Timezone: "Mars/Olympus"}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTimezone)

	_, err = NextRun(Recurrence{Frequency: FrequencyWeekly, TimeOfDay: "09:00", DayOfWeek: 9, Timezone: "UTC"}, time.Now())
	assert.Error(t, err)

	_, err = NextRun(Recurrence{Frequency: FrequencyMonthly, TimeOfDay: "09:00", DayOfMonth: 0, Timezone: "UTC"}, time.Now())
	assert.Error(t, err)

	_, err = NextRun(Recurrence{Frequency: FrequencyDaily, TimeOfDay: "25:00", Timezone: "UTC"}, time.Now())
	assert.Error(t, err)
}

func TestNormalizeTimezone(t *testing.T) {
	normalized, err := NormalizeTimezone("america/new york")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", normalized)

	normalized, err = NormalizeTimezone("Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", normalized)

	_, err = NormalizeTimezone("not a zone")
	assert.ErrorIs(t, err, ErrInvalidTimezone)
}

func TestLocalDaysBetween(t *testing.T) {
	tokyo := mustZone(t, "Asia/Tokyo")

	// 23:30 UTC on the 15th is already the 16th in Tokyo.
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	due := time.Date(2024, 1, 15, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, 1, LocalDaysBetween(now, due, tokyo))
	assert.Equal(t, 0, LocalDaysBetween(now, due, time.UTC))
	assert.Equal(t, -1, LocalDaysBetween(due, now, tokyo))
}

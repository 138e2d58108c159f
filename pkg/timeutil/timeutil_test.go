package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonthKey(t *testing.T) {
	at := time.Date(2026, 8, 14, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-08", MonthKey(at))
	assert.Equal(t, "2026-07", PrevMonthKey(at))

	// January rolls back across the year boundary.
	jan := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-12", PrevMonthKey(jan))
}

func TestExpandMonth(t *testing.T) {
	at := time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "journal-club-2026-08", ExpandMonth("journal-club-{month}", at))
	assert.Equal(t, "lectures", ExpandMonth("lectures", at))
}

func TestDayBounds(t *testing.T) {
	at := time.Date(2026, 8, 14, 15, 4, 5, 123, time.UTC)

	assert.Equal(t, time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC), StartOfDay(at))
	assert.Equal(t, time.Date(2026, 8, 14, 23, 59, 59, 999999999, time.UTC), EndOfDay(at))
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), StartOfMonth(at))
}

func TestDaysSince(t *testing.T) {
	now := time.Date(2026, 8, 14, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysSince(now, now))
	assert.Equal(t, 1, DaysSince(now.Add(-2*time.Hour), now))
	assert.Equal(t, 0, DaysSince(now.Add(24*time.Hour), now))
}

// Package timeutil provides the small set of calendar helpers the hub needs.
// Events are stored and compared as UTC instants; these helpers exist for the
// places that think in calendar units, mainly monthly feed exports.
package timeutil

import (
	"strings"
	"time"
)

// MonthKey formats a time as the "YYYY-MM" key used in monthly export names,
// e.g. "journal-club-2026-08".
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// PrevMonthKey is MonthKey for the month before t. Feeds for a month close
// shortly after it ends, so the nightly pull early in a month still wants the
// previous month's export.
func PrevMonthKey(t time.Time) string {
	return MonthKey(StartOfMonth(t).AddDate(0, 0, -1))
}

// ExpandMonth substitutes the "{month}" placeholder in a feed source name
// with the month key for t. Names without the placeholder pass through.
func ExpandMonth(source string, t time.Time) string {
	return strings.ReplaceAll(source, "{month}", MonthKey(t))
}

// StartOfDay returns midnight UTC of the given day.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last nanosecond of the given day, UTC.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// StartOfMonth returns midnight UTC on the first of the month.
func StartOfMonth(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DaysSince returns whole days elapsed from t to now.
func DaysSince(t, now time.Time) int {
	d := int(StartOfDay(now).Sub(StartOfDay(t)).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

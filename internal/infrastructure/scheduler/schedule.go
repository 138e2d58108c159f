package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULES
// ══════════════════════════════════════════════════════════════════════════════

// IntervalSchedule schedules a job to run at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates a new IntervalSchedule.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{
		Interval: interval,
	}
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval.String())
}

// CronSchedule schedules a job with a standard 5-field cron expression.
// Examples:
//   - "*/5 * * * *"  - every 5 minutes
//   - "0 2 * * *"    - every day at 02:00 (the nightly feed window)
//   - "0 6 * * 1"    - Mondays at 06:00
type CronSchedule struct {
	raw      string
	schedule cron.Schedule
}

// NewCronSchedule parses a cron expression into a CronSchedule.
func NewCronSchedule(expr string) (*CronSchedule, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	return &CronSchedule{raw: expr, schedule: schedule}, nil
}

// MustCronSchedule is NewCronSchedule that panics on a bad expression.
// For use with compile-time constant expressions only.
func MustCronSchedule(expr string) *CronSchedule {
	s, err := NewCronSchedule(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// Next returns the next scheduled time after t.
func (s *CronSchedule) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// String returns the raw cron expression.
func (s *CronSchedule) String() string {
	return s.raw
}

package event

import (
	"time"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS TRANSITION ENGINE
// No timers drive transitions: every status change is either requested by a
// caller or derived from an attendance mutation. The rules below tie the
// legal statuses to the attendance list:
//
//   1. At least one unflagged record  -> only Held is legal.
//   2. Empty attendance list          -> Held is illegal; Booked and Canceled are legal.
//   3. Non-empty, every record flagged -> all three statuses are legal
//      (attendance exists but is under dispute, which constrains nothing).
//
// Rules 1 and 2 combine into the core invariant: Held holds exactly when at
// least one unflagged record is present or all records are flagged.
// ══════════════════════════════════════════════════════════════════════════════

// CheckStatus validates a requested or current status against an attendance
// list. It is evaluated on the proposed list, so callers check the state a
// mutation would produce before committing it.
func CheckStatus(status Status, attendance []AttendanceRecord) error {
	if !status.IsValid() {
		return shared.NewDomainError("event", "CheckStatus", shared.ErrInvalidInput, "unknown status "+string(status))
	}

	unflagged := 0
	for i := range attendance {
		if !attendance[i].Flagged {
			unflagged++
		}
	}

	switch {
	case unflagged > 0:
		// Rule 1: live attendance forces Held.
		if status != StatusHeld {
			return shared.WrapError("event", "CheckStatus", shared.ErrIllegalStatusForAttendance,
				"event with unflagged attendance must be held", nil)
		}
	case len(attendance) == 0:
		// Rule 2: nothing happened, so the event cannot have been held.
		if status == StatusHeld {
			return shared.WrapError("event", "CheckStatus", shared.ErrIllegalStatusForAttendance,
				"event without attendance cannot be held", nil)
		}
	default:
		// Rule 3: all records flagged, no constraint.
	}
	return nil
}

// DeriveStatus computes the status an attendance mutation forces when the
// caller did not request one explicitly:
//
//   - a non-empty list forces Held;
//   - an empty list forces Canceled only when the scheduled time is already
//     past (the event evidently did not happen), otherwise the current status
//     is kept.
//
// The result still has to pass CheckStatus; derivation runs first.
func DeriveStatus(current Status, attendance []AttendanceRecord, scheduledAt, now time.Time) Status {
	if len(attendance) > 0 {
		return StatusHeld
	}
	if scheduledAt.Before(now) {
		return StatusCanceled
	}
	return current
}

// ApplyDerivedStatus runs the derivation against the event's own attendance
// list and applies the result. It returns the previous status and whether the
// status actually changed.
func (e *Event) ApplyDerivedStatus(now time.Time) (Status, bool) {
	old := e.Status
	derived := DeriveStatus(e.Status, e.Attendance, e.ScheduledAt, now)
	if derived == old {
		return old, false
	}
	e.Status = derived
	return old, true
}

// RequestStatus applies a caller-requested status after validating it against
// the current attendance list.
func (e *Event) RequestStatus(status Status) error {
	if err := CheckStatus(status, e.Attendance); err != nil {
		return err
	}
	e.Status = status
	return nil
}

// CheckOwnStatus re-validates the event's current status against its own
// attendance list. Every mutating ledger operation calls this before
// persisting; a violation aborts the mutation.
func (e *Event) CheckOwnStatus() error {
	return CheckStatus(e.Status, e.Attendance)
}

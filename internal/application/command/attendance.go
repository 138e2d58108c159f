package command

import (
	"context"
	"time"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/catalog"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/event"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE LEDGER
// Add, remove, flag, and unflag operations on one event's attendance list.
// Every mutation executes inside the repository's per-event transaction:
// read current attendance, mutate, re-check the status rules, write. A rule
// violation aborts with the event unchanged.
// ══════════════════════════════════════════════════════════════════════════════

// AddAttendanceCommand registers one candidate on one event.
type AddAttendanceCommand struct {
	EventID     shared.EventID
	CandidateID shared.CandidateID
	AddedByID   shared.PersonID
	AddedByRole event.Role

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command shape.
func (c AddAttendanceCommand) Validate() error {
	if c.EventID.IsEmpty() {
		return shared.NewDomainError("command", "AddAttendance", shared.ErrInvalidID, "event_id is required")
	}
	if c.CandidateID.IsEmpty() {
		return shared.NewDomainError("command", "AddAttendance", shared.ErrInvalidID, "candidate_id is required")
	}
	if c.AddedByID.IsEmpty() {
		return shared.NewDomainError("command", "AddAttendance", shared.ErrInvalidID, "added_by is required")
	}
	if !c.AddedByRole.IsValid() {
		return shared.ErrInvalidAddedByRole
	}
	return nil
}

// FlagAttendanceCommand flags or unflags one candidate's record.
type FlagAttendanceCommand struct {
	EventID     shared.EventID
	CandidateID shared.CandidateID

	// FlaggedByID records who raised or withdrew the dispute, for the
	// audit trail in domain events.
	FlaggedByID shared.PersonID

	// CorrelationID for tracing.
	CorrelationID string
}

// AttendanceLedger handles all attendance mutations.
type AttendanceLedger struct {
	repo      event.Repository
	persons   catalog.PersonLookup
	cache     event.PointsCache
	publisher shared.EventPublisher
}

// NewAttendanceLedger creates a new AttendanceLedger. The cache and publisher
// are optional.
func NewAttendanceLedger(repo event.Repository, persons catalog.PersonLookup, cache event.PointsCache, publisher shared.EventPublisher) *AttendanceLedger {
	return &AttendanceLedger{repo: repo, persons: persons, cache: cache, publisher: publisher}
}

// ─────────────────────────────────────────────────────────────────────────────
// Add
// ─────────────────────────────────────────────────────────────────────────────

// AddAttendance registers a candidate. Fails with the duplicate error when the
// candidate is already on the event, and with not-found when the event or the
// candidate does not resolve. A list that becomes non-empty forces Held.
func (l *AttendanceLedger) AddAttendance(ctx context.Context, cmd AddAttendanceCommand) (*event.AttendanceRecord, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if _, err := l.persons.ResolveCandidateByID(ctx, cmd.CandidateID); err != nil {
		return nil, err
	}

	var oldStatus event.Status
	var derived bool
	ev, err := l.repo.Mutate(ctx, cmd.EventID, func(ev *event.Event) error {
		rec, err := event.NewAttendanceRecord(cmd.CandidateID, cmd.AddedByID, cmd.AddedByRole, time.Now())
		if err != nil {
			return err
		}
		if err := ev.AddAttendance(rec); err != nil {
			return err
		}
		oldStatus, derived = ev.ApplyDerivedStatus(time.Now())
		return ev.CheckOwnStatus()
	})
	if err != nil {
		return nil, err
	}

	l.invalidatePoints(ctx, cmd.CandidateID)

	rec, _ := ev.FindAttendance(cmd.CandidateID)
	l.publish(shared.NewAttendanceChangedEvent(shared.EventAttendanceAdded,
		ev.ID.String(), cmd.CandidateID.String(), rec.Points.Int()).WithAddedByRole(cmd.AddedByRole.String()))
	if derived {
		l.publish(shared.NewStatusChangedEvent(ev.ID.String(), oldStatus.String(), ev.Status.String(), true))
	}
	return rec, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Remove
// ─────────────────────────────────────────────────────────────────────────────

// RemoveAttendance deletes a candidate's record. A list that becomes empty
// forces Canceled when the scheduled time is already past.
func (l *AttendanceLedger) RemoveAttendance(ctx context.Context, eventID shared.EventID, candidateID shared.CandidateID) error {
	if eventID.IsEmpty() || candidateID.IsEmpty() {
		return shared.NewDomainError("command", "RemoveAttendance", shared.ErrInvalidID, "event_id and candidate_id are required")
	}

	var oldStatus event.Status
	var derived bool
	var removedPoints shared.Points
	ev, err := l.repo.Mutate(ctx, eventID, func(ev *event.Event) error {
		rec, ok := ev.FindAttendance(candidateID)
		if !ok {
			return shared.ErrAttendanceNotFound
		}
		removedPoints = rec.Points
		if err := ev.RemoveAttendance(candidateID); err != nil {
			return err
		}
		oldStatus, derived = ev.ApplyDerivedStatus(time.Now())
		return ev.CheckOwnStatus()
	})
	if err != nil {
		return err
	}

	l.invalidatePoints(ctx, candidateID)

	l.publish(shared.NewAttendanceChangedEvent(shared.EventAttendanceRemoved,
		ev.ID.String(), candidateID.String(), removedPoints.Int()))
	if derived {
		l.publish(shared.NewStatusChangedEvent(ev.ID.String(), oldStatus.String(), ev.Status.String(), true))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Flag / Unflag
// ─────────────────────────────────────────────────────────────────────────────

// FlagAttendance marks a record as disputed, excluding its points from totals
// without deleting history. Flagging an already-flagged record is a no-op
// returning the existing record. Flag does not auto-transition status; it only
// re-checks the rules against the resulting list.
func (l *AttendanceLedger) FlagAttendance(ctx context.Context, cmd FlagAttendanceCommand) (*event.AttendanceRecord, error) {
	return l.setFlag(ctx, cmd, true)
}

// UnflagAttendance withdraws the dispute, restoring the stored point value.
// Symmetric to FlagAttendance and equally idempotent.
func (l *AttendanceLedger) UnflagAttendance(ctx context.Context, cmd FlagAttendanceCommand) (*event.AttendanceRecord, error) {
	return l.setFlag(ctx, cmd, false)
}

func (l *AttendanceLedger) setFlag(ctx context.Context, cmd FlagAttendanceCommand, flagged bool) (*event.AttendanceRecord, error) {
	if cmd.EventID.IsEmpty() || cmd.CandidateID.IsEmpty() {
		return nil, shared.NewDomainError("command", "FlagAttendance", shared.ErrInvalidID, "event_id and candidate_id are required")
	}

	var changed bool
	ev, err := l.repo.Mutate(ctx, cmd.EventID, func(ev *event.Event) error {
		var err error
		if flagged {
			_, changed, err = ev.FlagAttendance(cmd.CandidateID)
		} else {
			_, changed, err = ev.UnflagAttendance(cmd.CandidateID)
		}
		if err != nil {
			return err
		}
		if !changed {
			// Idempotent no-op: nothing to re-check, skip the write.
			return event.ErrUnchanged
		}
		return ev.CheckOwnStatus()
	})
	if err != nil {
		return nil, err
	}

	rec, _ := ev.FindAttendance(cmd.CandidateID)
	if changed {
		l.invalidatePoints(ctx, cmd.CandidateID)

		eventType := shared.EventAttendanceFlagged
		if !flagged {
			eventType = shared.EventAttendanceUnflagged
		}
		l.publish(shared.NewAttendanceChangedEvent(eventType,
			ev.ID.String(), cmd.CandidateID.String(), rec.Points.Int()))
	}
	return rec, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (l *AttendanceLedger) invalidatePoints(ctx context.Context, candidateID shared.CandidateID) {
	if l.cache != nil {
		_ = l.cache.Invalidate(ctx, candidateID)
	}
}

func (l *AttendanceLedger) publish(ev shared.Event) {
	if l.publisher != nil {
		_ = l.publisher.Publish(ev)
	}
}

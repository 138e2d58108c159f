// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trainee-hub/trainee-events-hub/internal/application/validate"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/event"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE EVENT COMMAND
// An event is created once, with all required fields already internally
// consistent; it is mutated field-by-field afterwards and never hard-deleted
// by this core.
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceInput is one proposed attendance record on a create request.
type AttendanceInput struct {
	CandidateID shared.CandidateID
	AddedByID   shared.PersonID
	AddedByRole event.Role
}

// CreateEventCommand contains the data to create an event.
type CreateEventCommand struct {
	// Type classifies the event; it fixes the required content kind.
	Type event.Type

	// ContentID is the internal ID of the referenced catalog record.
	ContentID shared.ContentID

	// ScheduledAt is when the event takes place.
	ScheduledAt time.Time

	// Location is "dept"/"online" for lectures and journals, free text for
	// conferences.
	Location string

	// PresenterID is the presenting supervisor (lecture, conference) or
	// candidate (journal).
	PresenterID shared.PersonID

	// Status optionally requests an initial status. When nil the status is
	// Booked, or Held when attendance is supplied (the attendance-driven
	// derivation applies at creation too).
	Status *event.Status

	// Attendance optionally seeds the attendance list.
	Attendance []AttendanceInput

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command shape. Cross-field consistency is the
// validator's job.
func (c CreateEventCommand) Validate() error {
	if !c.Type.IsValid() {
		return shared.NewDomainError("command", "CreateEvent", shared.ErrInvalidInput, "unknown event type "+string(c.Type))
	}
	if c.ContentID.IsEmpty() {
		return shared.NewDomainError("command", "CreateEvent", shared.ErrMissingReference, "content_id is required")
	}
	if c.ScheduledAt.IsZero() {
		return shared.NewDomainError("command", "CreateEvent", shared.ErrInvalidInput, "scheduled_at is required")
	}
	if c.Status != nil && !c.Status.IsValid() {
		return shared.NewDomainError("command", "CreateEvent", shared.ErrInvalidInput, "unknown status "+string(*c.Status))
	}
	return nil
}

// CreateEventHandler handles event creation.
type CreateEventHandler struct {
	repo      event.Repository
	validator *validate.Validator
	publisher shared.EventPublisher
}

// NewCreateEventHandler creates a new CreateEventHandler.
func NewCreateEventHandler(repo event.Repository, validator *validate.Validator, publisher shared.EventPublisher) *CreateEventHandler {
	return &CreateEventHandler{repo: repo, validator: validator, publisher: publisher}
}

// Handle creates the event. The first violated invariant aborts the whole
// operation; nothing is persisted on failure.
func (h *CreateEventHandler) Handle(ctx context.Context, cmd CreateEventCommand) (*event.Event, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	rule, _ := event.RuleFor(cmd.Type)
	content := event.ContentRef{Kind: rule.ContentKind, ID: cmd.ContentID}

	ev, err := event.New(shared.EventID(uuid.NewString()), cmd.Type, content,
		cmd.ScheduledAt, cmd.Location, cmd.PresenterID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, in := range cmd.Attendance {
		rec, err := event.NewAttendanceRecord(in.CandidateID, in.AddedByID, in.AddedByRole, now)
		if err != nil {
			return nil, err
		}
		if err := ev.AddAttendance(rec); err != nil {
			return nil, err
		}
	}

	// Seeded attendance forces Held unless the caller requested a status
	// explicitly, in which case the request must pass the transition rules.
	if cmd.Status != nil {
		if err := ev.RequestStatus(*cmd.Status); err != nil {
			return nil, err
		}
	} else {
		ev.ApplyDerivedStatus(now)
	}

	if err := h.validator.Validate(ctx, ev); err != nil {
		return nil, err
	}
	if err := ev.CheckOwnStatus(); err != nil {
		return nil, err
	}

	if err := h.repo.Create(ctx, ev); err != nil {
		return nil, err
	}

	h.publish(shared.NewLifecycleEvent(shared.EventCreated, ev.ID.String(), cmd.CorrelationID))
	return ev, nil
}

func (h *CreateEventHandler) publish(ev shared.Event) {
	if h.publisher != nil {
		_ = h.publisher.Publish(ev)
	}
}

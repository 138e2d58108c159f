package command

import (
	"context"
	"time"

	"github.com/trainee-hub/trainee-events-hub/internal/application/validate"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/event"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE EVENT COMMAND
// Field-by-field mutation of an existing event. Validation always runs on the
// merged view (stored state with the proposed changes overlaid), so a partial
// update can never leave the cross-field invariants violated.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateEventCommand contains a partial update. Nil fields are left unchanged.
type UpdateEventCommand struct {
	EventID shared.EventID

	// Type and ContentID change the classification and reference. Changing
	// the type without supplying a matching content reference fails the
	// type-mismatch invariant.
	Type      *event.Type
	ContentID *shared.ContentID

	// ScheduledAt moves the event. Rejected once the event was held.
	ScheduledAt *time.Time

	Location    *string
	PresenterID *shared.PersonID

	// Status requests an explicit status transition, checked against the
	// attendance rules.
	Status *event.Status

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command shape.
func (c UpdateEventCommand) Validate() error {
	if c.EventID.IsEmpty() {
		return shared.NewDomainError("command", "UpdateEvent", shared.ErrInvalidID, "event_id is required")
	}
	if c.Type != nil && !c.Type.IsValid() {
		return shared.NewDomainError("command", "UpdateEvent", shared.ErrInvalidInput, "unknown event type "+string(*c.Type))
	}
	if c.Status != nil && !c.Status.IsValid() {
		return shared.NewDomainError("command", "UpdateEvent", shared.ErrInvalidInput, "unknown status "+string(*c.Status))
	}
	if c.Type == nil && c.ContentID == nil && c.ScheduledAt == nil &&
		c.Location == nil && c.PresenterID == nil && c.Status == nil {
		return shared.NewDomainError("command", "UpdateEvent", shared.ErrInvalidInput, "no fields to update")
	}
	return nil
}

// UpdateEventHandler handles partial event updates.
type UpdateEventHandler struct {
	repo      event.Repository
	validator *validate.Validator
	publisher shared.EventPublisher
}

// NewUpdateEventHandler creates a new UpdateEventHandler.
func NewUpdateEventHandler(repo event.Repository, validator *validate.Validator, publisher shared.EventPublisher) *UpdateEventHandler {
	return &UpdateEventHandler{repo: repo, validator: validator, publisher: publisher}
}

// Handle applies the update inside one per-event transaction. The first
// violated invariant aborts the whole operation with no partial write.
func (h *UpdateEventHandler) Handle(ctx context.Context, cmd UpdateEventCommand) (*event.Event, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var oldStatus event.Status
	ev, err := h.repo.Mutate(ctx, cmd.EventID, func(ev *event.Event) error {
		oldStatus = ev.Status

		if cmd.Type != nil || cmd.ContentID != nil {
			newType := ev.Type
			if cmd.Type != nil {
				newType = *cmd.Type
			}
			content := ev.Content
			if cmd.ContentID != nil {
				rule, ok := event.RuleFor(newType)
				if !ok {
					return shared.NewDomainError("command", "UpdateEvent", shared.ErrInvalidInput, "unknown event type "+string(newType))
				}
				content = event.ContentRef{Kind: rule.ContentKind, ID: *cmd.ContentID}
			}
			if err := ev.SetContent(newType, content); err != nil {
				return err
			}
		}

		if cmd.ScheduledAt != nil {
			if err := ev.Reschedule(*cmd.ScheduledAt); err != nil {
				return err
			}
		}
		if cmd.Location != nil {
			ev.Location = *cmd.Location
		}
		if cmd.PresenterID != nil {
			ev.PresenterID = *cmd.PresenterID
		}
		if cmd.Status != nil {
			if err := ev.RequestStatus(*cmd.Status); err != nil {
				return err
			}
		}

		if err := h.validator.Validate(ctx, ev); err != nil {
			return err
		}
		if err := ev.CheckOwnStatus(); err != nil {
			return err
		}

		ev.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.publish(shared.NewLifecycleEvent(shared.EventUpdated, ev.ID.String(), cmd.CorrelationID))
	if ev.Status != oldStatus {
		h.publish(shared.NewStatusChangedEvent(ev.ID.String(), oldStatus.String(), ev.Status.String(), false))
	}
	return ev, nil
}

func (h *UpdateEventHandler) publish(ev shared.Event) {
	if h.publisher != nil {
		_ = h.publisher.Publish(ev)
	}
}

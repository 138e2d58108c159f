// Package validate implements the event consistency validator: the five
// cross-field rules that keep an event's type, content reference, presenter,
// location, and attendance records mutually consistent. Validation is pure -
// it never mutates anything - and runs on the merged view of an event
// (existing state with proposed changes overlaid), so a partial update can
// never leave cross-field invariants violated.
package validate

import (
	"context"
	"errors"
	"fmt"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/catalog"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/event"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// Validator checks an event against the consistency rules. It holds no state
// beyond the two lookup collaborators.
type Validator struct {
	content catalog.ContentLookup
	persons catalog.PersonLookup
}

// New creates a Validator.
func New(content catalog.ContentLookup, persons catalog.PersonLookup) *Validator {
	return &Validator{content: content, persons: persons}
}

// Validate runs all rules in order and returns the first violation. Each rule
// maps to a distinct error kind so the caller can tell exactly which invariant
// broke:
//
//	type/reference  -> shared.ErrMissingReference / shared.ErrTypeMismatch
//	reference exists -> shared.ErrReferenceNotFound
//	presenter        -> shared.ErrInvalidPresenter
//	location         -> shared.ErrInvalidLocation
//	attendance shape -> shared.ErrInvalidAttendanceRecord
func (v *Validator) Validate(ctx context.Context, ev *event.Event) error {
	rule, ok := event.RuleFor(ev.Type)
	if !ok {
		return shared.NewDomainError("validate", "Validate", shared.ErrInvalidInput,
			fmt.Sprintf("unknown event type %q", ev.Type))
	}

	if err := v.checkReference(ctx, ev, rule); err != nil {
		return err
	}
	if err := v.checkPresenter(ctx, ev, rule); err != nil {
		return err
	}
	if err := v.checkLocation(ev, rule); err != nil {
		return err
	}
	return v.checkAttendance(ctx, ev)
}

// checkReference enforces the type/reference rule and the reference-exists rule.
func (v *Validator) checkReference(ctx context.Context, ev *event.Event, rule event.TypeRule) error {
	if ev.Content.IsZero() {
		return shared.NewDomainError("validate", "Validate", shared.ErrMissingReference,
			fmt.Sprintf("%s event requires a %s reference", ev.Type, rule.ContentKind))
	}
	if !ev.Content.Matches(ev.Type) {
		return shared.ErrEventTypeMismatch
	}

	_, err := v.content.ResolveByID(ctx, ev.Content.Kind, ev.Content.ID)
	if err != nil {
		if shared.IsNotFound(err) {
			return shared.NewDomainError("validate", "Validate", shared.ErrReferenceNotFound,
				fmt.Sprintf("%s %s does not exist", ev.Content.Kind, ev.Content.ID))
		}
		return shared.WrapError("validate", "Validate", shared.ErrExternalService,
			"content lookup failed", err)
	}
	return nil
}

// checkPresenter enforces that the presenter resolves as the kind required by
// the event type: supervisor for lectures and conferences, candidate for
// journal clubs. A presenter of the wrong kind and an unresolvable presenter
// are the same violation.
func (v *Validator) checkPresenter(ctx context.Context, ev *event.Event, rule event.TypeRule) error {
	if ev.PresenterID.IsEmpty() {
		return shared.NewDomainError("validate", "Validate", shared.ErrInvalidPresenter,
			"presenter is required")
	}

	var err error
	switch rule.PresenterKind {
	case event.PresenterSupervisor:
		_, err = v.persons.ResolveSupervisorByID(ctx, ev.PresenterID)
	case event.PresenterCandidate:
		_, err = v.persons.ResolveCandidateByID(ctx, shared.CandidateID(ev.PresenterID))
	default:
		return shared.NewDomainError("validate", "Validate", shared.ErrInvalidPresenter,
			fmt.Sprintf("unknown presenter kind %q", rule.PresenterKind))
	}

	if err != nil {
		if shared.IsNotFound(err) {
			return shared.NewDomainError("validate", "Validate", shared.ErrInvalidPresenter,
				fmt.Sprintf("presenter %s is not a %s", ev.PresenterID, rule.PresenterKind))
		}
		return shared.WrapError("validate", "Validate", shared.ErrExternalService,
			"person lookup failed", err)
	}
	return nil
}

// checkLocation applies the type's location predicate.
func (v *Validator) checkLocation(ev *event.Event, rule event.TypeRule) error {
	if !rule.LocationOK(ev.Location) {
		return shared.NewDomainError("validate", "Validate", shared.ErrInvalidLocation,
			fmt.Sprintf("location %q is not valid for a %s event", ev.Location, ev.Type))
	}
	return nil
}

// checkAttendance enforces the attendance-shape rule: every record must
// reference a resolvable candidate and a resolvable added-by person, and the
// added-by role must be one of the three allowed roles.
func (v *Validator) checkAttendance(ctx context.Context, ev *event.Event) error {
	for i := range ev.Attendance {
		rec := &ev.Attendance[i]

		if !rec.AddedByRole.IsValid() {
			return shared.NewDomainError("validate", "Validate", shared.ErrInvalidAttendanceRecord,
				fmt.Sprintf("attendance record for %s has unknown added-by role %q", rec.CandidateID, rec.AddedByRole))
		}

		if _, err := v.persons.ResolveCandidateByID(ctx, rec.CandidateID); err != nil {
			if shared.IsNotFound(err) {
				return shared.NewDomainError("validate", "Validate", shared.ErrInvalidAttendanceRecord,
					fmt.Sprintf("attendance record references unknown candidate %s", rec.CandidateID))
			}
			return shared.WrapError("validate", "Validate", shared.ErrExternalService,
				"candidate lookup failed", err)
		}

		exists, err := v.persons.PersonExists(ctx, rec.AddedByID)
		if err != nil && !shared.IsNotFound(err) {
			return shared.WrapError("validate", "Validate", shared.ErrExternalService,
				"added-by lookup failed", err)
		}
		if err != nil || !exists {
			return shared.NewDomainError("validate", "Validate", shared.ErrInvalidAttendanceRecord,
				fmt.Sprintf("attendance record references unknown added-by person %s", rec.AddedByID))
		}
	}
	return nil
}

// RuleViolated extracts the base consistency error from a validation error,
// for callers that map violations to distinct responses.
func RuleViolated(err error) (error, bool) {
	for _, kind := range []error{
		shared.ErrTypeMismatch,
		shared.ErrMissingReference,
		shared.ErrReferenceNotFound,
		shared.ErrInvalidPresenter,
		shared.ErrInvalidLocation,
		shared.ErrInvalidAttendanceRecord,
	} {
		if errors.Is(err, kind) {
			return kind, true
		}
	}
	return nil, false
}

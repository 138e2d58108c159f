// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidID    = errors.New("invalid ID")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyValue   = errors.New("value cannot be empty")

	// Event consistency errors - one per rule in the consistency validator
	// and status transition engine.
	ErrTypeMismatch               = errors.New("content reference kind does not match event type")
	ErrMissingReference           = errors.New("required content reference is missing")
	ErrReferenceNotFound          = errors.New("referenced content does not exist")
	ErrInvalidPresenter           = errors.New("presenter is missing or of the wrong kind")
	ErrInvalidLocation            = errors.New("location is not allowed for this event type")
	ErrInvalidAttendanceRecord    = errors.New("attendance record is malformed")
	ErrIllegalStatusForAttendance = errors.New("status is not allowed for the attendance list")
	ErrEventAlreadyHeld           = errors.New("event has already been held")
	ErrDuplicateAttendance        = errors.New("candidate already registered for this event")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "event", "attendance", "reconcile"
	Op      string // Operation that failed, e.g., "Create", "Flag"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Event domain errors
var (
	ErrEventNotFound      = NewDomainError("event", "Find", ErrNotFound, "event not found")
	ErrEventTypeMismatch  = NewDomainError("event", "Validate", ErrTypeMismatch, "content reference does not match event type")
	ErrEventHeldImmutable = NewDomainError("event", "Update", ErrEventAlreadyHeld, "scheduled date cannot change after an event was held")
	ErrInvalidEventStatus = NewDomainError("event", "Transition", ErrIllegalStatusForAttendance, "requested status conflicts with attendance")
)

// Attendance domain errors
var (
	ErrAttendanceNotFound  = NewDomainError("attendance", "Find", ErrNotFound, "attendance record not found")
	ErrAttendanceDuplicate = NewDomainError("attendance", "Add", ErrDuplicateAttendance, "candidate already has an attendance record")
	ErrInvalidAddedByRole  = NewDomainError("attendance", "Validate", ErrInvalidAttendanceRecord, "added-by role is not one of candidate, supervisor, instituteAdmin")
)

// Catalog domain errors (content and person lookups)
var (
	ErrContentNotFound    = NewDomainError("catalog", "FindContent", ErrNotFound, "content not found")
	ErrCandidateNotFound  = NewDomainError("catalog", "FindCandidate", ErrNotFound, "candidate not found")
	ErrSupervisorNotFound = NewDomainError("catalog", "FindSupervisor", ErrNotFound, "supervisor not found")
)

// External service errors
var (
	ErrFeedUnavailable    = NewDomainError("feed", "Fetch", ErrServiceUnavailable, "tabular feed source is unavailable")
	ErrFeedFetchTimeout   = NewDomainError("feed", "Fetch", ErrTimeout, "tabular feed fetch timed out")
	ErrFeedInvalidPayload = NewDomainError("feed", "Parse", ErrValidation, "tabular feed payload is malformed")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsConsistency checks if the error is one of the event consistency rules.
func IsConsistency(err error) bool {
	return errors.Is(err, ErrTypeMismatch) ||
		errors.Is(err, ErrMissingReference) ||
		errors.Is(err, ErrReferenceNotFound) ||
		errors.Is(err, ErrInvalidPresenter) ||
		errors.Is(err, ErrInvalidLocation) ||
		errors.Is(err, ErrInvalidAttendanceRecord)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		IsConsistency(err)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// IsRetryable checks if the operation can be retried. Consistency and state
// errors are never retryable: they describe facts, not transient conditions.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}

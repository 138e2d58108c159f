// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// EventID represents a unique event identifier (UUID format).
type EventID string

// IsValid checks if the event ID is a valid UUID.
func (e EventID) IsValid() bool {
	return uuidRegex.MatchString(string(e))
}

// String returns the string representation.
func (e EventID) String() string {
	return string(e)
}

// IsEmpty checks if the ID is empty.
func (e EventID) IsEmpty() bool {
	return e == ""
}

// NewEventID creates a new EventID with validation.
func NewEventID(id string) (EventID, error) {
	eid := EventID(strings.ToLower(strings.TrimSpace(id)))
	if !eid.IsValid() {
		return "", NewDomainError("shared", "NewEventID", ErrInvalidID, "invalid event ID format")
	}
	return eid, nil
}

// CandidateID represents a unique candidate (trainee) identifier.
type CandidateID string

// IsValid checks if the candidate ID is a valid UUID.
func (c CandidateID) IsValid() bool {
	return uuidRegex.MatchString(string(c))
}

// String returns the string representation.
func (c CandidateID) String() string {
	return string(c)
}

// IsEmpty checks if the ID is empty.
func (c CandidateID) IsEmpty() bool {
	return c == ""
}

// NewCandidateID creates a new CandidateID with validation.
func NewCandidateID(id string) (CandidateID, error) {
	cid := CandidateID(strings.ToLower(strings.TrimSpace(id)))
	if !cid.IsValid() {
		return "", NewDomainError("shared", "NewCandidateID", ErrInvalidID, "invalid candidate ID format")
	}
	return cid, nil
}

// PersonID represents any person identifier (candidate, supervisor, or admin).
// Attendance audit fields record who registered a record without caring which
// table the person lives in.
type PersonID string

// IsValid checks if the person ID is a valid UUID.
func (p PersonID) IsValid() bool {
	return uuidRegex.MatchString(string(p))
}

// String returns the string representation.
func (p PersonID) String() string {
	return string(p)
}

// IsEmpty checks if the ID is empty.
func (p PersonID) IsEmpty() bool {
	return p == ""
}

// ContentID represents the internal identifier of a lecture, journal, or
// conference record.
type ContentID string

// IsValid checks if the content ID is a valid UUID.
func (c ContentID) IsValid() bool {
	return uuidRegex.MatchString(string(c))
}

// String returns the string representation.
func (c ContentID) String() string {
	return string(c)
}

// IsEmpty checks if the ID is empty.
func (c ContentID) IsEmpty() bool {
	return c == ""
}

// ═══════════════════════════════════════════════════════════════════════════
// External identifiers
// ═══════════════════════════════════════════════════════════════════════════

// ExternalUID is an identifier that originates from an external tabular feed
// and correlates feed rows to internal content records. Its format is owned by
// the feed, so validation is limited to non-emptiness after trimming.
type ExternalUID string

// IsValid checks the UID is non-empty.
func (u ExternalUID) IsValid() bool {
	return strings.TrimSpace(string(u)) != ""
}

// String returns the string representation.
func (u ExternalUID) String() string {
	return string(u)
}

// NewExternalUID creates a trimmed ExternalUID.
func NewExternalUID(raw string) ExternalUID {
	return ExternalUID(strings.TrimSpace(raw))
}

// Email represents a candidate email address.
type Email string

// Permissive email shape check; the mail system is the real authority.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// IsValid checks if the email has a plausible shape.
func (e Email) IsValid() bool {
	return emailRegex.MatchString(string(e))
}

// String returns the string representation.
func (e Email) String() string {
	return string(e)
}

// Normalize returns a trimmed, lowercased version of the email.
func (e Email) Normalize() Email {
	return Email(strings.ToLower(strings.TrimSpace(string(e))))
}

// NewEmail creates a normalized Email with validation.
func NewEmail(raw string) (Email, error) {
	e := Email(raw).Normalize()
	if !e.IsValid() {
		return "", NewDomainError("shared", "NewEmail", ErrInvalidInput, "invalid email format")
	}
	return e, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Points Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Points represents participation points attached to an attendance record.
// The value is fixed at creation time and never recomputed afterwards.
type Points int

// DefaultPoints is the point value assigned to every new attendance record.
const DefaultPoints Points = 1

// IsValid checks the points value is non-negative.
func (p Points) IsValid() bool {
	return p >= 0
}

// Int returns the underlying int value.
func (p Points) Int() int {
	return int(p)
}

// Add sums two point values.
func (p Points) Add(other Points) Points {
	return p + other
}

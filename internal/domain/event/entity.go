// Package event contains the domain model for academic events (lectures,
// journal clubs, conference presentations), their attendance ledgers, and the
// status transition rules that keep lifecycle status consistent with
// attendance facts. This is a pure domain layer with no infrastructure
// dependencies.
package event

import (
	"strings"
	"time"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/catalog"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Type classifies an event. It dictates the required content reference kind,
// the allowed presenter kind, and the location constraint (see RuleFor).
type Type string

const (
	// TypeLecture - a curriculum lecture, presented by a supervisor.
	TypeLecture Type = "lecture"
	// TypeJournal - a journal club session, presented by a candidate.
	TypeJournal Type = "journal"
	// TypeConference - a conference presentation by a supervisor.
	TypeConference Type = "conference"
)

// IsValid checks that the type is one of the three event types.
func (t Type) IsValid() bool {
	_, ok := typeRules[t]
	return ok
}

// String returns the string representation.
func (t Type) String() string {
	return string(t)
}

// Status is the lifecycle status of an event.
type Status string

const (
	// StatusBooked - the event is scheduled but has not happened yet.
	// This is the initial status on creation.
	StatusBooked Status = "booked"
	// StatusHeld - the event took place and has attendance.
	StatusHeld Status = "held"
	// StatusCanceled - the event did not take place.
	StatusCanceled Status = "canceled"
)

// IsValid checks that the status is one of the three lifecycle statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusBooked, StatusHeld, StatusCanceled:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// Role identifies who registered an attendance record. Audit metadata only;
// it never influences point computation.
type Role string

const (
	RoleCandidate      Role = "candidate"
	RoleSupervisor     Role = "supervisor"
	RoleInstituteAdmin Role = "instituteAdmin"
)

// IsValid checks that the role is one of the three allowed roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleCandidate, RoleSupervisor, RoleInstituteAdmin:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// PresenterKind is the kind of person allowed to present an event type.
type PresenterKind string

const (
	PresenterSupervisor PresenterKind = "supervisor"
	PresenterCandidate  PresenterKind = "candidate"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT REFERENCE (tagged union)
// ══════════════════════════════════════════════════════════════════════════════

// ContentRef is a tagged reference to exactly one catalog record. Modelling it
// as a kind+id pair instead of three nullable fields makes "at most one
// reference, matching the event type" a structural property rather than a
// runtime check scattered over call sites.
type ContentRef struct {
	Kind catalog.ContentKind
	ID   shared.ContentID
}

// LectureRef creates a reference to a lecture record.
func LectureRef(id shared.ContentID) ContentRef {
	return ContentRef{Kind: catalog.ContentLecture, ID: id}
}

// JournalRef creates a reference to a journal record.
func JournalRef(id shared.ContentID) ContentRef {
	return ContentRef{Kind: catalog.ContentJournal, ID: id}
}

// ConferenceRef creates a reference to a conference record.
func ConferenceRef(id shared.ContentID) ContentRef {
	return ContentRef{Kind: catalog.ContentConference, ID: id}
}

// IsZero reports whether the reference is unset.
func (c ContentRef) IsZero() bool {
	return c.Kind == "" && c.ID.IsEmpty()
}

// Matches reports whether the reference kind is the one required by the type.
func (c ContentRef) Matches(t Type) bool {
	rule, ok := typeRules[t]
	return ok && c.Kind == rule.ContentKind
}

// ══════════════════════════════════════════════════════════════════════════════
// TYPE RULES
// One row per event type: which content kind it must reference, who may
// present it, and what the location field is allowed to hold. Adding a fourth
// event type is a table edit, not a new branch in every validation path.
// ══════════════════════════════════════════════════════════════════════════════

// TypeRule captures the type-conditioned constraints of one event type.
type TypeRule struct {
	ContentKind   catalog.ContentKind
	PresenterKind PresenterKind
	LocationOK    func(location string) bool
}

// locationDeptOrOnline accepts "dept" or "online", case-insensitively, after
// trimming surrounding whitespace.
func locationDeptOrOnline(location string) bool {
	switch strings.ToLower(strings.TrimSpace(location)) {
	case "dept", "online":
		return true
	default:
		return false
	}
}

// locationNonEmpty accepts any non-blank string (conference venues are free text).
func locationNonEmpty(location string) bool {
	return strings.TrimSpace(location) != ""
}

var typeRules = map[Type]TypeRule{
	TypeLecture: {
		ContentKind:   catalog.ContentLecture,
		PresenterKind: PresenterSupervisor,
		LocationOK:    locationDeptOrOnline,
	},
	TypeJournal: {
		ContentKind:   catalog.ContentJournal,
		PresenterKind: PresenterCandidate,
		LocationOK:    locationDeptOrOnline,
	},
	TypeConference: {
		ContentKind:   catalog.ContentConference,
		PresenterKind: PresenterSupervisor,
		LocationOK:    locationNonEmpty,
	},
}

// RuleFor returns the constraint row for an event type.
// The second return value is false for unknown types.
func RuleFor(t Type) (TypeRule, bool) {
	rule, ok := typeRules[t]
	return rule, ok
}

// TypeForContentKind returns the event type that references the given content
// kind. The mapping is one-to-one.
func TypeForContentKind(kind catalog.ContentKind) (Type, bool) {
	for t, rule := range typeRules {
		if rule.ContentKind == kind {
			return t, true
		}
	}
	return "", false
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE RECORD
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceRecord is one candidate's registered presence at one event.
// Records are created only through the attendance ledger, mutated only via
// flag/unflag, and removed only via the remove operation. The candidate is
// unique within one event's attendance list.
type AttendanceRecord struct {
	// CandidateID references the attending candidate.
	CandidateID shared.CandidateID

	// AddedByID and AddedByRole identify who registered the attendance.
	// Kept for audit; point computation ignores them.
	AddedByID   shared.PersonID
	AddedByRole Role

	// Flagged marks the record as disputed. A flagged record is excluded
	// from point totals but preserved for audit; it is not a deletion.
	Flagged bool

	// Points is the participation point value, fixed at creation time.
	// It is never recomputed, including across flag/unflag cycles.
	Points shared.Points

	// CreatedAt is the registration timestamp.
	CreatedAt time.Time
}

// NewAttendanceRecord creates a record with the default point value.
func NewAttendanceRecord(candidateID shared.CandidateID, addedBy shared.PersonID, role Role, at time.Time) (AttendanceRecord, error) {
	if candidateID.IsEmpty() {
		return AttendanceRecord{}, shared.NewDomainError("attendance", "New", shared.ErrInvalidAttendanceRecord, "candidate ID is required")
	}
	if addedBy.IsEmpty() {
		return AttendanceRecord{}, shared.NewDomainError("attendance", "New", shared.ErrInvalidAttendanceRecord, "added-by ID is required")
	}
	if !role.IsValid() {
		return AttendanceRecord{}, shared.ErrInvalidAddedByRole
	}
	return AttendanceRecord{
		CandidateID: candidateID,
		AddedByID:   addedBy,
		AddedByRole: role,
		Flagged:     false,
		Points:      shared.DefaultPoints,
		CreatedAt:   at,
	}, nil
}

// CountsForPoints reports whether the record contributes to point totals.
func (r AttendanceRecord) CountsForPoints() bool {
	return !r.Flagged
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: EVENT
// ══════════════════════════════════════════════════════════════════════════════

// Event is a scheduled occurrence of a lecture, journal club, or conference
// presentation, together with its attendance ledger and lifecycle status.
type Event struct {
	// ID is the internal unique identifier (UUID in string form).
	ID shared.EventID

	// Type classifies the event and drives the type-conditioned rules.
	Type Type

	// Content references the catalog record this event is about. Its kind
	// must match Type at all times.
	Content ContentRef

	// ScheduledAt is when the event takes (or took) place. Immutable once
	// the event was held.
	ScheduledAt time.Time

	// Location semantics depend on Type: "dept" or "online" for lectures
	// and journal clubs, free text for conference venues.
	Location string

	// PresenterID references the presenting person. The required kind
	// (supervisor or candidate) depends on Type.
	PresenterID shared.PersonID

	// Attendance is ordered by insertion (historical add order). The order
	// is not a uniqueness key; CandidateID is.
	Attendance []AttendanceRecord

	// Status is the lifecycle status, kept consistent with Attendance by
	// the transition rules in status.go.
	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an event in the initial Booked status. Structural invariants
// are enforced here; cross-service consistency (reference existence, presenter
// kind) is the consistency validator's job.
func New(id shared.EventID, t Type, content ContentRef, scheduledAt time.Time, location string, presenterID shared.PersonID) (*Event, error) {
	if id.IsEmpty() {
		return nil, shared.NewDomainError("event", "New", shared.ErrInvalidID, "event ID is required")
	}
	if !t.IsValid() {
		return nil, shared.NewDomainError("event", "New", shared.ErrInvalidInput, "unknown event type "+string(t))
	}
	if content.IsZero() {
		return nil, shared.NewDomainError("event", "New", shared.ErrMissingReference, "content reference is required")
	}
	if !content.Matches(t) {
		return nil, shared.ErrEventTypeMismatch
	}
	if scheduledAt.IsZero() {
		return nil, shared.NewDomainError("event", "New", shared.ErrInvalidInput, "scheduled time is required")
	}
	now := time.Now()
	return &Event{
		ID:          id,
		Type:        t,
		Content:     content,
		ScheduledAt: scheduledAt,
		Location:    location,
		PresenterID: presenterID,
		Attendance:  make([]AttendanceRecord, 0),
		Status:      StatusBooked,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SetContent assigns a new type and content reference together. Assigning a
// reference whose kind does not match the type fails with the type-mismatch
// error; the two fields can never be changed out of step.
func (e *Event) SetContent(t Type, content ContentRef) error {
	if !t.IsValid() {
		return shared.NewDomainError("event", "SetContent", shared.ErrInvalidInput, "unknown event type "+string(t))
	}
	if content.IsZero() {
		return shared.NewDomainError("event", "SetContent", shared.ErrMissingReference, "content reference is required")
	}
	if !content.Matches(t) {
		return shared.ErrEventTypeMismatch
	}
	e.Type = t
	e.Content = content
	return nil
}

// Reschedule changes the scheduled time. A held event records a historical
// fact, so its date must not move retroactively.
func (e *Event) Reschedule(at time.Time) error {
	if at.Equal(e.ScheduledAt) {
		return nil
	}
	if e.Status == StatusHeld {
		return shared.ErrEventHeldImmutable
	}
	if at.IsZero() {
		return shared.NewDomainError("event", "Reschedule", shared.ErrInvalidInput, "scheduled time is required")
	}
	e.ScheduledAt = at
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Attendance ledger primitives
// ─────────────────────────────────────────────────────────────────────────────

// FindAttendance returns the record for a candidate, if present.
func (e *Event) FindAttendance(candidateID shared.CandidateID) (*AttendanceRecord, bool) {
	for i := range e.Attendance {
		if e.Attendance[i].CandidateID == candidateID {
			return &e.Attendance[i], true
		}
	}
	return nil, false
}

// AddAttendance appends a record, preserving insertion order. A candidate may
// appear at most once per event.
func (e *Event) AddAttendance(rec AttendanceRecord) error {
	if _, exists := e.FindAttendance(rec.CandidateID); exists {
		return shared.ErrAttendanceDuplicate
	}
	e.Attendance = append(e.Attendance, rec)
	return nil
}

// RemoveAttendance deletes the candidate's record.
func (e *Event) RemoveAttendance(candidateID shared.CandidateID) error {
	for i := range e.Attendance {
		if e.Attendance[i].CandidateID == candidateID {
			e.Attendance = append(e.Attendance[:i], e.Attendance[i+1:]...)
			return nil
		}
	}
	return shared.ErrAttendanceNotFound
}

// FlagAttendance marks the candidate's record as disputed. Flagging an
// already-flagged record is a no-op: the existing record is returned and the
// second return value reports whether anything changed.
func (e *Event) FlagAttendance(candidateID shared.CandidateID) (*AttendanceRecord, bool, error) {
	rec, ok := e.FindAttendance(candidateID)
	if !ok {
		return nil, false, shared.ErrAttendanceNotFound
	}
	if rec.Flagged {
		return rec, false, nil
	}
	rec.Flagged = true
	return rec, true, nil
}

// UnflagAttendance clears the disputed marker, symmetric to FlagAttendance.
// The stored point value is restored verbatim; it was never recomputed.
func (e *Event) UnflagAttendance(candidateID shared.CandidateID) (*AttendanceRecord, bool, error) {
	rec, ok := e.FindAttendance(candidateID)
	if !ok {
		return nil, false, shared.ErrAttendanceNotFound
	}
	if !rec.Flagged {
		return rec, false, nil
	}
	rec.Flagged = false
	return rec, true, nil
}

// UnflaggedCount returns the number of records that are not disputed.
func (e *Event) UnflaggedCount() int {
	n := 0
	for i := range e.Attendance {
		if !e.Attendance[i].Flagged {
			n++
		}
	}
	return n
}

// AllFlagged reports whether the list is non-empty and every record is flagged.
func (e *Event) AllFlagged() bool {
	return len(e.Attendance) > 0 && e.UnflaggedCount() == 0
}

// UnflaggedPoints sums the points of all records that count toward totals.
func (e *Event) UnflaggedPoints() shared.Points {
	var total shared.Points
	for i := range e.Attendance {
		if e.Attendance[i].CountsForPoints() {
			total = total.Add(e.Attendance[i].Points)
		}
	}
	return total
}

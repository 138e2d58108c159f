// Package catalog contains read models for the educational content catalog
// (lectures, journals, conferences) and the people directory (candidates,
// supervisors). The engine never owns these records; it resolves them through
// narrow lookup interfaces and treats them as immutable facts.
package catalog

import (
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ContentKind identifies which catalog table a content record lives in.
type ContentKind string

const (
	// ContentLecture is a lecture in the teaching curriculum.
	ContentLecture ContentKind = "lecture"
	// ContentJournal is a journal article presented at a journal club.
	ContentJournal ContentKind = "journal"
	// ContentConference is a conference presentation.
	ContentConference ContentKind = "conference"
)

// IsValid checks that the kind is one of the three catalog kinds.
func (k ContentKind) IsValid() bool {
	switch k {
	case ContentLecture, ContentJournal, ContentConference:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k ContentKind) String() string {
	return string(k)
}

// AllContentKinds returns the kinds in their canonical priority order.
// The order matters for external-UID resolution: a UID that collides across
// kinds resolves Lecture, then Journal, then Conference.
func AllContentKinds() []ContentKind {
	return []ContentKind{ContentLecture, ContentJournal, ContentConference}
}

// Content is a catalog record an event can reference.
type Content struct {
	ID          shared.ContentID
	Kind        ContentKind
	ExternalUID shared.ExternalUID
	Title       string
}

// Candidate is a trainee enrolled in the program.
type Candidate struct {
	ID       shared.CandidateID
	Email    shared.Email
	FullName string
	Active   bool
}

// Supervisor is a senior staff member who presents lectures and conferences.
type Supervisor struct {
	ID       shared.PersonID
	Email    shared.Email
	FullName string
}

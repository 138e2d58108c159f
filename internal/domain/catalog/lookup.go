package catalog

import (
	"context"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOOKUP INTERFACES
// These interfaces define the contract for resolving catalog records.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// ContentLookup resolves content records by internal or external identifier.
type ContentLookup interface {
	// ResolveByID returns the content record with the given internal ID,
	// or shared.ErrContentNotFound.
	ResolveByID(ctx context.Context, kind ContentKind, id shared.ContentID) (*Content, error)

	// ResolveByExternalUID returns the content record carrying the given
	// external UID, or shared.ErrContentNotFound.
	ResolveByExternalUID(ctx context.Context, kind ContentKind, uid shared.ExternalUID) (*Content, error)

	// BatchResolveByExternalUIDs resolves many external UIDs in one query.
	// UIDs with no match are simply absent from the result map.
	BatchResolveByExternalUIDs(ctx context.Context, kind ContentKind, uids []shared.ExternalUID) (map[shared.ExternalUID]*Content, error)
}

// PersonLookup resolves candidates and supervisors.
type PersonLookup interface {
	// ResolveCandidateByID returns the candidate with the given ID,
	// or shared.ErrCandidateNotFound.
	ResolveCandidateByID(ctx context.Context, id shared.CandidateID) (*Candidate, error)

	// ResolveCandidateByEmail returns the candidate with the given email,
	// or shared.ErrCandidateNotFound. The email is matched in normalized form.
	ResolveCandidateByEmail(ctx context.Context, email shared.Email) (*Candidate, error)

	// BatchResolveCandidatesByEmails resolves many emails in one query.
	// Emails with no match are simply absent from the result map.
	BatchResolveCandidatesByEmails(ctx context.Context, emails []shared.Email) (map[shared.Email]*Candidate, error)

	// ResolveSupervisorByID returns the supervisor with the given ID,
	// or shared.ErrSupervisorNotFound.
	ResolveSupervisorByID(ctx context.Context, id shared.PersonID) (*Supervisor, error)

	// PersonExists reports whether any person (candidate, supervisor, or
	// institute admin) exists with the given ID. Used to validate the
	// added-by audit reference on attendance records.
	PersonExists(ctx context.Context, id shared.PersonID) (bool, error)
}

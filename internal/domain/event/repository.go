package event

import (
	"context"
	"errors"
	"time"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ErrUnchanged signals from a Mutate fn that the operation turned out to be
// a no-op. Implementations must commit nothing and return the loaded event
// with a nil error.
var ErrUnchanged = errors.New("event: unchanged")

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the contract for event storage.
// Implementations are in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines storage operations for events and their attendance lists.
type Repository interface {
	// Create stores a new event with its attendance list.
	// Returns shared.ErrAlreadyExists if the ID is taken.
	Create(ctx context.Context, ev *Event) error

	// GetByID returns an event with its full attendance list.
	// Returns shared.ErrEventNotFound if no such event exists.
	GetByID(ctx context.Context, id shared.EventID) (*Event, error)

	// Update persists an event's fields and attendance list.
	// Returns shared.ErrEventNotFound if no such event exists.
	Update(ctx context.Context, ev *Event) error

	// Mutate loads the event under a per-event lock, applies fn, and
	// persists the result in the same transaction. If fn returns an error
	// the transaction is rolled back and nothing is written; ErrUnchanged
	// skips the write and returns the loaded event. This is the atomicity
	// boundary for all ledger operations: two concurrent mutations on the
	// same event serialize here.
	Mutate(ctx context.Context, id shared.EventID, fn func(ev *Event) error) (*Event, error)

	// FindByContentID returns the event referencing the given content
	// record, or shared.ErrEventNotFound.
	FindByContentID(ctx context.Context, contentID shared.ContentID) (*Event, error)

	// FindByContentIDs resolves many content IDs in one query, for all
	// content kinds at once. IDs with no event are absent from the map.
	FindByContentIDs(ctx context.Context, contentIDs []shared.ContentID) (map[shared.ContentID]*Event, error)

	// SumPointsByCandidate sums attendance points for one candidate across
	// all events, excluding flagged records.
	SumPointsByCandidate(ctx context.Context, candidateID shared.CandidateID) (shared.Points, error)
}

// PointsCache caches per-candidate point totals. Ledger mutations invalidate;
// the total-points query reads through. Usually backed by Redis.
type PointsCache interface {
	// Get returns the cached total, or shared.ErrNotFound on a miss.
	Get(ctx context.Context, candidateID shared.CandidateID) (shared.Points, error)

	// Set stores the total with a TTL.
	Set(ctx context.Context, candidateID shared.CandidateID, total shared.Points, ttl time.Duration) error

	// Invalidate drops the cached total for a candidate.
	Invalidate(ctx context.Context, candidateID shared.CandidateID) error
}

// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"time"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/event"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOTAL POINTS QUERY
// Sums a candidate's participation points across all events, excluding
// flagged records. That exclusion is why flagging exists at all: a disputed
// attendance stays on the ledger for audit but stops counting until the
// dispute is withdrawn.
// ══════════════════════════════════════════════════════════════════════════════

// TotalPointsQuery asks for one candidate's point total.
type TotalPointsQuery struct {
	CandidateID shared.CandidateID
}

// Validate validates the query.
func (q TotalPointsQuery) Validate() error {
	if q.CandidateID.IsEmpty() {
		return shared.NewDomainError("query", "TotalPoints", shared.ErrInvalidID, "candidate_id is required")
	}
	return nil
}

// TotalPointsResult contains the computed total.
type TotalPointsResult struct {
	CandidateID shared.CandidateID
	Total       shared.Points
	FromCache   bool
}

// TotalPointsHandler handles the query, reading through an optional cache.
type TotalPointsHandler struct {
	repo     event.Repository
	cache    event.PointsCache
	cacheTTL time.Duration
}

// DefaultPointsCacheTTL bounds staleness when a cache invalidation is lost.
const DefaultPointsCacheTTL = 10 * time.Minute

// NewTotalPointsHandler creates a new TotalPointsHandler. The cache is
// optional; pass nil to always hit the repository.
func NewTotalPointsHandler(repo event.Repository, cache event.PointsCache, cacheTTL time.Duration) *TotalPointsHandler {
	if cacheTTL <= 0 {
		cacheTTL = DefaultPointsCacheTTL
	}
	return &TotalPointsHandler{repo: repo, cache: cache, cacheTTL: cacheTTL}
}

// Handle computes the total.
func (h *TotalPointsHandler) Handle(ctx context.Context, q TotalPointsQuery) (*TotalPointsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if h.cache != nil {
		if total, err := h.cache.Get(ctx, q.CandidateID); err == nil {
			return &TotalPointsResult{CandidateID: q.CandidateID, Total: total, FromCache: true}, nil
		}
		// Cache misses and cache errors both fall through to the source
		// of truth.
	}

	total, err := h.repo.SumPointsByCandidate(ctx, q.CandidateID)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		_ = h.cache.Set(ctx, q.CandidateID, total, h.cacheTTL)
	}
	return &TotalPointsResult{CandidateID: q.CandidateID, Total: total}, nil
}

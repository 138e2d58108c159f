package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/event"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH POINT TOTALS JOB
// ══════════════════════════════════════════════════════════════════════════════

// PointsSource computes and lists point totals from the event store.
type PointsSource interface {
	// CandidatesWithAttendance lists candidates holding attendance records.
	CandidatesWithAttendance(ctx context.Context) ([]shared.CandidateID, error)

	// SumPointsByCandidate computes a candidate's unflagged point total.
	SumPointsByCandidate(ctx context.Context, candidateID shared.CandidateID) (shared.Points, error)
}

// RefreshPointTotalsJob recomputes every candidate's point total and rewrites
// the cache. Command handlers invalidate entries as ledgers change; this job
// warms the cache back up so progress reviews read hot entries instead of
// each paying one cold aggregate query.
type RefreshPointTotalsJob struct {
	source PointsSource
	cache  event.PointsCache
	logger *slog.Logger
	config RefreshPointTotalsConfig

	lastRunStats atomic.Value // *RefreshStats
}

// RefreshPointTotalsConfig contains configuration for the refresh.
type RefreshPointTotalsConfig struct {
	// Concurrency is the number of candidates refreshed in parallel.
	Concurrency int

	// TTL is the cache lifetime written for each total.
	TTL time.Duration

	// Timeout bounds the whole refresh.
	Timeout time.Duration
}

// DefaultRefreshPointTotalsConfig returns sensible defaults.
func DefaultRefreshPointTotalsConfig() RefreshPointTotalsConfig {
	return RefreshPointTotalsConfig{
		Concurrency: 4,
		TTL:         time.Hour,
		Timeout:     5 * time.Minute,
	}
}

// RefreshStats contains statistics from one refresh run.
type RefreshStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Candidates  int
	Refreshed   int
	Failed      int
}

// NewRefreshPointTotalsJob creates the job.
func NewRefreshPointTotalsJob(
	source PointsSource,
	cache event.PointsCache,
	logger *slog.Logger,
	config RefreshPointTotalsConfig,
) *RefreshPointTotalsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	return &RefreshPointTotalsJob{
		source: source,
		cache:  cache,
		logger: logger,
		config: config,
	}
}

// Name returns the job name.
func (j *RefreshPointTotalsJob) Name() string {
	return "refresh_point_totals"
}

// Description returns a human-readable description.
func (j *RefreshPointTotalsJob) Description() string {
	return "Recomputes candidate point totals and rewrites the cache"
}

// Run executes the refresh.
func (j *RefreshPointTotalsJob) Run(ctx context.Context) error {
	stats := &RefreshStats{StartedAt: time.Now()}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	candidates, err := j.source.CandidatesWithAttendance(ctx)
	if err != nil {
		return fmt.Errorf("list candidates: %w", err)
	}
	stats.Candidates = len(candidates)

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, j.config.Concurrency)

	for _, candidateID := range candidates {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(id shared.CandidateID) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			err := j.refreshOne(ctx, id)

			mu.Lock()
			if err != nil {
				stats.Failed++
			} else {
				stats.Refreshed++
			}
			mu.Unlock()

			if err != nil {
				j.logger.Error("point total refresh failed", "candidate_id", id, "error", err)
			}
		}(candidateID)
	}

	wg.Wait()

	stats.CompletedAt = time.Now()
	j.lastRunStats.Store(stats)

	j.logger.Info("point total refresh completed",
		"candidates", stats.Candidates,
		"refreshed", stats.Refreshed,
		"failed", stats.Failed,
	)
	return ctx.Err()
}

func (j *RefreshPointTotalsJob) refreshOne(ctx context.Context, id shared.CandidateID) error {
	total, err := j.source.SumPointsByCandidate(ctx, id)
	if err != nil {
		return err
	}
	return j.cache.Set(ctx, id, total, j.config.TTL)
}

// LastRunStats returns statistics from the most recent run, or nil.
func (j *RefreshPointTotalsJob) LastRunStats() *RefreshStats {
	stats, _ := j.lastRunStats.Load().(*RefreshStats)
	return stats
}

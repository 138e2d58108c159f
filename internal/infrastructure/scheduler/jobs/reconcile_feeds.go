// Package jobs contains the scheduled jobs of the trainee events hub: pulling
// attendance feeds, sweeping stale event statuses, and keeping cached point
// totals warm.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/trainee-hub/trainee-events-hub/internal/application/command"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/event"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
	"github.com/trainee-hub/trainee-events-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE FEEDS JOB
// ══════════════════════════════════════════════════════════════════════════════

// Reconciler runs one reconciliation pass over a named feed.
type Reconciler interface {
	Handle(ctx context.Context, cmd command.ReconcileCommand) (*command.ReconcileResult, error)
}

// RunLog persists reconciliation run summaries for audit.
type RunLog interface {
	Save(ctx context.Context, result *command.ReconcileResult, startedAt time.Time) error
}

// ReconcileFeedsJob pulls every configured attendance feed and reconciles it
// against the event ledgers. Feeds are processed sequentially; the runs are
// idempotent, so a feed that fails tonight simply catches up tomorrow.
type ReconcileFeedsJob struct {
	reconciler Reconciler
	runLog     RunLog
	logger     *slog.Logger
	config     ReconcileFeedsConfig

	lastRunStats atomic.Value // *ReconcileFeedsStats
}

// ReconcileFeedsConfig contains configuration for the job.
type ReconcileFeedsConfig struct {
	// Sources are the feed names to pull, in order. A "{month}" placeholder
	// is expanded to the current month key at run time, so a single entry
	// like "journal-club-{month}" follows the monthly exports.
	Sources []string

	// OperatorID / OperatorRole are stamped on records created by this job.
	OperatorID   shared.PersonID
	OperatorRole event.Role

	// Timeout bounds the whole run across all sources.
	Timeout time.Duration

	// ContinueOnError keeps going with the remaining sources after one
	// feed fails to fetch.
	ContinueOnError bool
}

// DefaultReconcileFeedsConfig returns sensible defaults.
func DefaultReconcileFeedsConfig() ReconcileFeedsConfig {
	return ReconcileFeedsConfig{
		Timeout:         15 * time.Minute,
		ContinueOnError: true,
	}
}

// ReconcileFeedsStats contains statistics from one job run.
type ReconcileFeedsStats struct {
	StartedAt    time.Time
	CompletedAt  time.Time
	Duration     time.Duration
	SourcesTotal int
	SourcesOK    int
	Added        int
	Skipped      int
	Failures     []SourceFailure
}

// SourceFailure records one feed that could not be reconciled.
type SourceFailure struct {
	Source     string
	Error      string
	OccurredAt time.Time
}

// NewReconcileFeedsJob creates the job.
func NewReconcileFeedsJob(
	reconciler Reconciler,
	runLog RunLog,
	logger *slog.Logger,
	config ReconcileFeedsConfig,
) *ReconcileFeedsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileFeedsJob{
		reconciler: reconciler,
		runLog:     runLog,
		logger:     logger,
		config:     config,
	}
}

// Name returns the job name.
func (j *ReconcileFeedsJob) Name() string {
	return "reconcile_feeds"
}

// Description returns a human-readable description.
func (j *ReconcileFeedsJob) Description() string {
	return "Pulls external attendance feeds and reconciles them against event ledgers"
}

// Run executes the job.
func (j *ReconcileFeedsJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &ReconcileFeedsStats{
		StartedAt:    startedAt,
		SourcesTotal: len(j.config.Sources),
	}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	j.logger.Info("starting reconcile_feeds job", "sources", len(j.config.Sources))

	var firstErr error
	for _, rawSource := range j.config.Sources {
		if err := ctx.Err(); err != nil {
			j.finish(stats, startedAt)
			return err
		}

		source := timeutil.ExpandMonth(rawSource, startedAt)
		sourceStart := time.Now()
		result, err := j.reconciler.Handle(ctx, command.ReconcileCommand{
			Source:      source,
			AddedByID:   j.config.OperatorID,
			AddedByRole: j.config.OperatorRole,
		})
		if err != nil {
			stats.Failures = append(stats.Failures, SourceFailure{
				Source:     source,
				Error:      err.Error(),
				OccurredAt: time.Now(),
			})
			j.logger.Error("feed reconciliation failed", "source", source, "error", err)

			if firstErr == nil {
				firstErr = fmt.Errorf("reconcile %q: %w", source, err)
			}
			if !j.config.ContinueOnError {
				break
			}
			continue
		}

		stats.SourcesOK++
		stats.Added += result.Added
		stats.Skipped += result.Skipped

		if j.runLog != nil {
			if logErr := j.runLog.Save(ctx, result, sourceStart); logErr != nil {
				j.logger.Error("failed to persist run log", "source", source, "error", logErr)
			}
		}

		j.logger.Info("feed reconciled",
			"source", source,
			"total_rows", result.TotalRows,
			"added", result.Added,
			"skipped", result.Skipped,
		)
	}

	j.finish(stats, startedAt)
	return firstErr
}

func (j *ReconcileFeedsJob) finish(stats *ReconcileFeedsStats, startedAt time.Time) {
	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)
}

// LastRunStats returns statistics from the most recent run, or nil.
func (j *ReconcileFeedsJob) LastRunStats() *ReconcileFeedsStats {
	stats, _ := j.lastRunStats.Load().(*ReconcileFeedsStats)
	return stats
}

package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/event"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SWEEP STALE EVENTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// StaleEventStore is the slice of the event store this job needs.
type StaleEventStore interface {
	// FindStaleBooked lists booked events scheduled before the given time
	// with empty attendance ledgers.
	FindStaleBooked(ctx context.Context, before time.Time) ([]shared.EventID, error)

	// Mutate applies fn under the event's write lock.
	Mutate(ctx context.Context, id shared.EventID, fn func(ev *event.Event) error) (*event.Event, error)
}

// SweepStaleEventsJob cancels past events nobody was registered for. Status
// derivation normally runs when a ledger changes; an event whose ledger never
// changed at all stays booked forever without this sweep.
type SweepStaleEventsJob struct {
	store     StaleEventStore
	publisher shared.EventPublisher
	logger    *slog.Logger
	config    SweepStaleEventsConfig

	lastRunStats atomic.Value // *SweepStats
}

// SweepStaleEventsConfig contains configuration for the sweep.
type SweepStaleEventsConfig struct {
	// GracePeriod is how long after the scheduled time an empty event is
	// left alone before the sweep cancels it.
	GracePeriod time.Duration

	// Timeout bounds the whole sweep.
	Timeout time.Duration
}

// DefaultSweepStaleEventsConfig returns sensible defaults. The grace period
// leaves a day for late manual registration before the hub gives up on an
// event.
func DefaultSweepStaleEventsConfig() SweepStaleEventsConfig {
	return SweepStaleEventsConfig{
		GracePeriod: 24 * time.Hour,
		Timeout:     5 * time.Minute,
	}
}

// SweepStats contains statistics from one sweep run.
type SweepStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Found       int
	Canceled    int
	Failed      int
}

// NewSweepStaleEventsJob creates the job.
func NewSweepStaleEventsJob(
	store StaleEventStore,
	publisher shared.EventPublisher,
	logger *slog.Logger,
	config SweepStaleEventsConfig,
) *SweepStaleEventsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepStaleEventsJob{
		store:     store,
		publisher: publisher,
		logger:    logger,
		config:    config,
	}
}

// Name returns the job name.
func (j *SweepStaleEventsJob) Name() string {
	return "sweep_stale_events"
}

// Description returns a human-readable description.
func (j *SweepStaleEventsJob) Description() string {
	return "Cancels past events with empty attendance ledgers"
}

// Run executes the sweep.
func (j *SweepStaleEventsJob) Run(ctx context.Context) error {
	stats := &SweepStats{StartedAt: time.Now()}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	cutoff := time.Now().Add(-j.config.GracePeriod)
	ids, err := j.store.FindStaleBooked(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find stale events: %w", err)
	}

	stats.Found = len(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			j.finish(stats)
			return err
		}

		var oldStatus event.Status
		var changed bool
		ev, err := j.store.Mutate(ctx, id, func(ev *event.Event) error {
			oldStatus, changed = ev.ApplyDerivedStatus(time.Now())
			if changed {
				return ev.CheckOwnStatus()
			}
			return event.ErrUnchanged
		})
		if err != nil {
			stats.Failed++
			j.logger.Error("stale event sweep failed", "event_id", id, "error", err)
			continue
		}

		if !changed {
			// Someone registered attendance between the query and the lock.
			continue
		}

		stats.Canceled++
		j.publish(shared.NewStatusChangedEvent(
			ev.ID.String(), string(oldStatus), string(ev.Status), true,
		))
	}

	j.finish(stats)
	j.logger.Info("stale event sweep completed",
		"found", stats.Found,
		"canceled", stats.Canceled,
		"failed", stats.Failed,
	)
	return nil
}

func (j *SweepStaleEventsJob) publish(e shared.Event) {
	if j.publisher == nil {
		return
	}
	if err := j.publisher.Publish(e); err != nil {
		j.logger.Error("failed to publish event", "event_type", e.EventType(), "error", err)
	}
}

func (j *SweepStaleEventsJob) finish(stats *SweepStats) {
	stats.CompletedAt = time.Now()
	j.lastRunStats.Store(stats)
}

// LastRunStats returns statistics from the most recent run, or nil.
func (j *SweepStaleEventsJob) LastRunStats() *SweepStats {
	stats, _ := j.lastRunStats.Load().(*SweepStats)
	return stats
}

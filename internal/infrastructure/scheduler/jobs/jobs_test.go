package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-events-hub/internal/application/command"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/event"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeReconciler struct {
	results map[string]*command.ReconcileResult
	errs    map[string]error
	calls   []string
}

func (f *fakeReconciler) Handle(_ context.Context, cmd command.ReconcileCommand) (*command.ReconcileResult, error) {
	f.calls = append(f.calls, cmd.Source)
	if err := f.errs[cmd.Source]; err != nil {
		return nil, err
	}
	return f.results[cmd.Source], nil
}

type fakeRunLog struct {
	saved []*command.ReconcileResult
}

func (f *fakeRunLog) Save(_ context.Context, result *command.ReconcileResult, _ time.Time) error {
	f.saved = append(f.saved, result)
	return nil
}

type fakeStaleStore struct {
	stale  []shared.EventID
	events map[shared.EventID]*event.Event
}

func (f *fakeStaleStore) FindStaleBooked(_ context.Context, _ time.Time) ([]shared.EventID, error) {
	return f.stale, nil
}

func (f *fakeStaleStore) Mutate(_ context.Context, id shared.EventID, fn func(ev *event.Event) error) (*event.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, shared.ErrEventNotFound
	}
	if err := fn(ev); err != nil {
		if errors.Is(err, event.ErrUnchanged) {
			return ev, nil
		}
		return nil, err
	}
	return ev, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (f *fakePublisher) Publish(e shared.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

type fakePointsSource struct {
	totals map[shared.CandidateID]shared.Points
}

func (f *fakePointsSource) CandidatesWithAttendance(_ context.Context) ([]shared.CandidateID, error) {
	ids := make([]shared.CandidateID, 0, len(f.totals))
	for id := range f.totals {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakePointsSource) SumPointsByCandidate(_ context.Context, id shared.CandidateID) (shared.Points, error) {
	return f.totals[id], nil
}

type fakePointsCache struct {
	mu     sync.Mutex
	values map[shared.CandidateID]shared.Points
}

func (f *fakePointsCache) Get(_ context.Context, _ shared.CandidateID) (shared.Points, error) {
	return 0, shared.ErrNotFound
}

func (f *fakePointsCache) Set(_ context.Context, id shared.CandidateID, total shared.Points, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		f.values = make(map[shared.CandidateID]shared.Points)
	}
	f.values[id] = total
	return nil
}

func (f *fakePointsCache) Invalidate(_ context.Context, _ shared.CandidateID) error {
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// ReconcileFeedsJob
// ─────────────────────────────────────────────────────────────────────────────

func TestReconcileFeedsJob_AggregatesAcrossSources(t *testing.T) {
	rec := &fakeReconciler{
		results: map[string]*command.ReconcileResult{
			"lectures": {Source: "lectures", TotalRows: 10, Added: 7, Skipped: 3},
			"journals": {Source: "journals", TotalRows: 5, Added: 5},
		},
		errs: map[string]error{},
	}
	runLog := &fakeRunLog{}

	job := NewReconcileFeedsJob(rec, runLog, nil, ReconcileFeedsConfig{
		Sources:         []string{"lectures", "journals"},
		ContinueOnError: true,
	})

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{"lectures", "journals"}, rec.calls)
	assert.Len(t, runLog.saved, 2)

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.SourcesTotal)
	assert.Equal(t, 2, stats.SourcesOK)
	assert.Equal(t, 12, stats.Added)
	assert.Equal(t, 3, stats.Skipped)
	assert.Empty(t, stats.Failures)
}

func TestReconcileFeedsJob_ContinuesPastFailedSource(t *testing.T) {
	fetchErr := errors.New("export service down")
	rec := &fakeReconciler{
		results: map[string]*command.ReconcileResult{
			"journals": {Source: "journals", Added: 2},
		},
		errs: map[string]error{"lectures": fetchErr},
	}
	runLog := &fakeRunLog{}

	job := NewReconcileFeedsJob(rec, runLog, nil, ReconcileFeedsConfig{
		Sources:         []string{"lectures", "journals"},
		ContinueOnError: true,
	})

	err := job.Run(context.Background())
	require.ErrorIs(t, err, fetchErr)

	// The failure did not stop the second source.
	assert.Equal(t, []string{"lectures", "journals"}, rec.calls)
	assert.Len(t, runLog.saved, 1)

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.SourcesOK)
	require.Len(t, stats.Failures, 1)
	assert.Equal(t, "lectures", stats.Failures[0].Source)
}

func TestReconcileFeedsJob_ExpandsMonthPlaceholder(t *testing.T) {
	monthKey := time.Now().UTC().Format("2006-01")
	source := "journal-club-" + monthKey

	rec := &fakeReconciler{
		results: map[string]*command.ReconcileResult{
			source: {Source: source, Added: 1},
		},
		errs: map[string]error{},
	}

	job := NewReconcileFeedsJob(rec, nil, nil, ReconcileFeedsConfig{
		Sources: []string{"journal-club-{month}"},
	})

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{source}, rec.calls)
}

func TestReconcileFeedsJob_StopOnError(t *testing.T) {
	rec := &fakeReconciler{
		results: map[string]*command.ReconcileResult{},
		errs:    map[string]error{"lectures": errors.New("boom")},
	}

	job := NewReconcileFeedsJob(rec, nil, nil, ReconcileFeedsConfig{
		Sources:         []string{"lectures", "journals"},
		ContinueOnError: false,
	})

	require.Error(t, job.Run(context.Background()))
	assert.Equal(t, []string{"lectures"}, rec.calls)
}

// ─────────────────────────────────────────────────────────────────────────────
// SweepStaleEventsJob
// ─────────────────────────────────────────────────────────────────────────────

func newBookedEvent(t *testing.T, id string, scheduledAt time.Time) *event.Event {
	t.Helper()
	ev, err := event.New(
		shared.EventID(id),
		event.TypeLecture,
		event.LectureRef(shared.ContentID("bbbbbbbb-0000-0000-0000-000000000001")),
		scheduledAt,
		"dept",
		shared.PersonID("cccccccc-0000-0000-0000-000000000001"),
	)
	require.NoError(t, err)
	return ev
}

func TestSweepStaleEventsJob_CancelsEmptyPastEvents(t *testing.T) {
	past := time.Now().Add(-72 * time.Hour)
	staleID := shared.EventID("aaaaaaaa-0000-0000-0000-000000000001")

	store := &fakeStaleStore{
		stale: []shared.EventID{staleID},
		events: map[shared.EventID]*event.Event{
			staleID: newBookedEvent(t, staleID.String(), past),
		},
	}
	pub := &fakePublisher{}

	job := NewSweepStaleEventsJob(store, pub, nil, DefaultSweepStaleEventsConfig())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, event.StatusCanceled, store.events[staleID].Status)

	require.Len(t, pub.events, 1)
	assert.Equal(t, shared.EventStatusChanged, pub.events[0].EventType())
	payload := pub.events[0].Payload()
	assert.Equal(t, string(event.StatusBooked), payload["old_status"])
	assert.Equal(t, string(event.StatusCanceled), payload["new_status"])
	assert.Equal(t, true, payload["derived"])

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Found)
	assert.Equal(t, 1, stats.Canceled)
}

func TestSweepStaleEventsJob_SkipsEventRegisteredMeanwhile(t *testing.T) {
	// Scheduled in the future: derivation keeps the current status, so the
	// sweep must leave the event alone even though the query listed it.
	future := time.Now().Add(time.Hour)
	id := shared.EventID("aaaaaaaa-0000-0000-0000-000000000002")

	store := &fakeStaleStore{
		stale: []shared.EventID{id},
		events: map[shared.EventID]*event.Event{
			id: newBookedEvent(t, id.String(), future),
		},
	}
	pub := &fakePublisher{}

	job := NewSweepStaleEventsJob(store, pub, nil, DefaultSweepStaleEventsConfig())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, event.StatusBooked, store.events[id].Status)
	assert.Empty(t, pub.events)

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Equal(t, 0, stats.Canceled)
}

// ─────────────────────────────────────────────────────────────────────────────
// RefreshPointTotalsJob
// ─────────────────────────────────────────────────────────────────────────────

func TestRefreshPointTotalsJob_WarmsCache(t *testing.T) {
	alice := shared.CandidateID("dddddddd-0000-0000-0000-000000000001")
	bob := shared.CandidateID("dddddddd-0000-0000-0000-000000000002")

	source := &fakePointsSource{totals: map[shared.CandidateID]shared.Points{
		alice: 5,
		bob:   2,
	}}
	cache := &fakePointsCache{}

	job := NewRefreshPointTotalsJob(source, cache, nil, DefaultRefreshPointTotalsConfig())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, shared.Points(5), cache.values[alice])
	assert.Equal(t, shared.Points(2), cache.values[bob])

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.Candidates)
	assert.Equal(t, 2, stats.Refreshed)
	assert.Equal(t, 0, stats.Failed)
}

package messaging

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

func syncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var statusChanges, all []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventStatusChanged, func(e shared.Event) error {
		statusChanges = append(statusChanges, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewStatusChangedEvent("ev-1", "booked", "held", true)))
	require.NoError(t, bus.Publish(shared.NewAttendanceChangedEvent(shared.EventAttendanceAdded, "ev-1", "cand-1", 1)))

	assert.Equal(t, []shared.EventType{shared.EventStatusChanged}, statusChanges)
	assert.Equal(t, []shared.EventType{shared.EventStatusChanged, shared.EventAttendanceAdded}, all)
}

func TestInMemoryEventBus_ClosedBusRejectsPublish(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewAttendanceChangedEvent(shared.EventAttendanceAdded, "ev-1", "cand-1", 1))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventAttendanceAdded, func(shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)
}

func TestInMemoryEventBus_AsyncWaitsOnClose(t *testing.T) {
	// A single worker slot keeps most events queued behind it, so Close
	// runs while handlers are still waiting for a slot. Every published
	// event must still be handled before Close returns.
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 1})

	var mu sync.Mutex
	handled := 0
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		time.Sleep(time.Millisecond)
		mu.Lock()
		handled++
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewAttendanceChangedEvent(shared.EventAttendanceAdded, "ev-1", "cand-1", 1)))
	}

	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, handled)

	// And nothing slips in afterwards.
	err := bus.Publish(shared.NewAttendanceChangedEvent(shared.EventAttendanceAdded, "ev-1", "cand-1", 1))
	assert.ErrorIs(t, err, ErrEventBusClosed)
}

func TestDispatcher_RetriesThenDeadLetters(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	d := NewDispatcher(DispatcherConfig{
		EventBus: bus,
		RetryConfig: DispatchRetryConfig{
			MaxRetries:        2,
			InitialBackoff:    1,
			MaxBackoff:        1,
			BackoffMultiplier: 1,
		},
		DeadLetterQueueSize: 10,
	})

	attempts := 0
	require.NoError(t, d.Register(shared.EventAttendanceAdded, "always-fails", func(shared.Event) error {
		attempts++
		return errors.New("projection store down")
	}))
	require.NoError(t, d.Start())

	require.NoError(t, bus.Publish(shared.NewAttendanceChangedEvent(shared.EventAttendanceAdded, "ev-1", "cand-1", 1)))

	assert.Equal(t, 3, attempts)
	require.Equal(t, 1, d.DeadLetterQueue().Size())
	entry := d.DeadLetterQueue().Entries()[0]
	assert.Equal(t, "always-fails", entry.HandlerName)
	assert.Equal(t, 3, entry.Attempts)
	assert.Equal(t, shared.EventAttendanceAdded, entry.Event.EventType())
}

func TestDispatcher_RecoveryMiddlewareCatchesPanic(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	d := NewDispatcher(DispatcherConfig{
		EventBus: bus,
		RetryConfig: DispatchRetryConfig{
			MaxRetries:        0,
			InitialBackoff:    1,
			MaxBackoff:        1,
			BackoffMultiplier: 1,
		},
		DeadLetterQueueSize: 10,
	})
	d.Use(RecoveryMiddleware(nil))

	require.NoError(t, d.Register(shared.EventStatusChanged, "panics", func(shared.Event) error {
		panic("boom")
	}))
	require.NoError(t, d.Start())

	// Publish must not crash the process; failure lands in the DLQ.
	require.NoError(t, bus.Publish(shared.NewStatusChangedEvent("ev-1", "booked", "canceled", false)))
	assert.Equal(t, 1, d.DeadLetterQueue().Size())
}

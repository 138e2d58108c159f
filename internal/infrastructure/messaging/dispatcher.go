package messaging

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher routes domain events to named handlers with middleware, retry
// with exponential backoff, and a dead letter queue for events whose handlers
// keep failing. It sits on top of a shared.EventBus: Start subscribes it to
// every event type it has registrations for.
type Dispatcher struct {
	eventBus    shared.EventBus
	handlers    map[shared.EventType][]HandlerRegistration
	middlewares []Middleware
	retryConfig DispatchRetryConfig
	deadLetterQ *DeadLetterQueue
	logger      *slog.Logger
	mu          sync.RWMutex
}

// HandlerRegistration contains handler metadata.
type HandlerRegistration struct {
	Name       string
	Handler    shared.EventHandler
	MaxRetries int
}

// Middleware wraps handler execution.
type Middleware func(next shared.EventHandler) shared.EventHandler

// DispatchRetryConfig contains retry configuration for failing handlers.
type DispatchRetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultDispatchRetryConfig returns sensible retry defaults.
func DefaultDispatchRetryConfig() DispatchRetryConfig {
	return DispatchRetryConfig{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// DispatcherConfig contains configuration for the Dispatcher.
type DispatcherConfig struct {
	// EventBus is the underlying event bus
	EventBus shared.EventBus

	// RetryConfig configures retry behavior
	RetryConfig DispatchRetryConfig

	// DeadLetterQueueSize is the max size of the DLQ (0 disables it)
	DeadLetterQueueSize int

	// Logger for structured logging
	Logger *slog.Logger
}

// NewDispatcher creates a new event dispatcher.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.RetryConfig.MaxRetries == 0 && config.RetryConfig.InitialBackoff == 0 {
		config.RetryConfig = DefaultDispatchRetryConfig()
	}

	d := &Dispatcher{
		eventBus:    config.EventBus,
		handlers:    make(map[shared.EventType][]HandlerRegistration),
		middlewares: make([]Middleware, 0),
		retryConfig: config.RetryConfig,
		logger:      config.Logger,
	}

	if config.DeadLetterQueueSize > 0 {
		d.deadLetterQ = NewDeadLetterQueue(config.DeadLetterQueueSize)
	}

	return d
}

// Register registers a named handler for an event type.
func (d *Dispatcher) Register(eventType shared.EventType, name string, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[eventType] = append(d.handlers[eventType], HandlerRegistration{
		Name:       name,
		Handler:    handler,
		MaxRetries: d.retryConfig.MaxRetries,
	})
	return nil
}

// Use adds a middleware. Middlewares run in registration order, outermost first.
func (d *Dispatcher) Use(middleware Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middlewares = append(d.middlewares, middleware)
}

// Start subscribes the dispatcher to the event bus for every registered type.
func (d *Dispatcher) Start() error {
	d.mu.RLock()
	types := make([]shared.EventType, 0, len(d.handlers))
	for eventType := range d.handlers {
		types = append(types, eventType)
	}
	d.mu.RUnlock()

	for _, eventType := range types {
		if err := d.eventBus.Subscribe(eventType, d.dispatch); err != nil {
			return fmt.Errorf("subscribe %s: %w", eventType, err)
		}
	}
	return nil
}

// dispatch routes an event to its registered handlers.
func (d *Dispatcher) dispatch(event shared.Event) error {
	d.mu.RLock()
	regs := d.handlers[event.EventType()]
	middlewares := d.middlewares
	d.mu.RUnlock()

	var lastErr error
	for _, reg := range regs {
		if err := d.executeHandler(event, reg, middlewares); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// executeHandler runs one handler through the middleware chain with retries.
func (d *Dispatcher) executeHandler(event shared.Event, reg HandlerRegistration, middlewares []Middleware) error {
	handler := reg.Handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}

	var lastErr error
	for attempt := 0; attempt <= reg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(d.calculateBackoff(attempt))
		}

		if lastErr = handler(event); lastErr == nil {
			if attempt > 0 {
				d.logger.Info("handler recovered after retry",
					"handler", reg.Name,
					"event_type", event.EventType(),
					"attempt", attempt,
				)
			}
			return nil
		}

		d.logger.Warn("handler failed",
			"handler", reg.Name,
			"event_type", event.EventType(),
			"attempt", attempt,
			"error", lastErr,
		)
	}

	if d.deadLetterQ != nil {
		d.deadLetterQ.Add(DeadLetterEntry{
			Event:       event,
			HandlerName: reg.Name,
			Error:       lastErr.Error(),
			FailedAt:    time.Now(),
			Attempts:    reg.MaxRetries + 1,
		})
	}

	return fmt.Errorf("handler %s failed after %d attempts: %w", reg.Name, reg.MaxRetries+1, lastErr)
}

func (d *Dispatcher) calculateBackoff(attempt int) time.Duration {
	backoff := float64(d.retryConfig.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= d.retryConfig.BackoffMultiplier
	}
	if backoff > float64(d.retryConfig.MaxBackoff) {
		backoff = float64(d.retryConfig.MaxBackoff)
	}
	return time.Duration(backoff)
}

// DeadLetterQueue returns the DLQ, or nil if disabled.
func (d *Dispatcher) DeadLetterQueue() *DeadLetterQueue {
	return d.deadLetterQ
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// RecoveryMiddleware converts handler panics into errors.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panic",
						"event_type", event.EventType(),
						"panic", r,
						"stack", string(debug.Stack()),
					)
					err = fmt.Errorf("handler panicked: %v", r)
				}
			}()
			return next(event)
		}
	}
}

// LoggingMiddleware logs handler execution with duration.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)
			logger.Debug("handled event",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"duration", time.Since(start),
				"error", err,
			)
			return err
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEAD LETTER QUEUE
// ══════════════════════════════════════════════════════════════════════════════

// DeadLetterEntry records an event whose handler exhausted its retries.
type DeadLetterEntry struct {
	Event       shared.Event
	HandlerName string
	Error       string
	FailedAt    time.Time
	Attempts    int
}

// DeadLetterQueue is a bounded in-memory queue of failed events.
// When full, the oldest entry is dropped.
type DeadLetterQueue struct {
	mu      sync.Mutex
	entries []DeadLetterEntry
	maxSize int
}

// NewDeadLetterQueue creates a DLQ holding at most maxSize entries.
func NewDeadLetterQueue(maxSize int) *DeadLetterQueue {
	return &DeadLetterQueue{
		entries: make([]DeadLetterEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Add appends an entry, evicting the oldest when at capacity.
func (q *DeadLetterQueue) Add(entry DeadLetterEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.maxSize {
		q.entries = q.entries[1:]
	}
	q.entries = append(q.entries, entry)
}

// Entries returns a copy of the current entries, oldest first.
func (q *DeadLetterQueue) Entries() []DeadLetterEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]DeadLetterEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Size returns the number of queued entries.
func (q *DeadLetterQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Clear removes all entries.
func (q *DeadLetterQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = q.entries[:0]
}

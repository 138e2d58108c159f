// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Event lifecycle events
	EventCreated       EventType = "event.created"
	EventUpdated       EventType = "event.updated"
	EventStatusChanged EventType = "event.status_changed"

	// Attendance events
	EventAttendanceAdded     EventType = "attendance.added"
	EventAttendanceRemoved   EventType = "attendance.removed"
	EventAttendanceFlagged   EventType = "attendance.flagged"
	EventAttendanceUnflagged EventType = "attendance.unflagged"

	// System events
	EventReconciliationCompleted EventType = "system.reconciliation_completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Lifecycle Events
// ═══════════════════════════════════════════════════════════════════════════

// LifecycleEvent is a minimal domain event with no payload beyond the
// envelope, used for created/updated notifications.
type LifecycleEvent struct {
	BaseEvent
}

// Payload implements Event interface.
func (e LifecycleEvent) Payload() map[string]interface{} {
	return map[string]interface{}{}
}

// NewLifecycleEvent creates a LifecycleEvent of the given type.
func NewLifecycleEvent(eventType EventType, aggregateID, correlationID string) LifecycleEvent {
	return LifecycleEvent{BaseEvent: NewBaseEvent(eventType, aggregateID).WithCorrelationID(correlationID)}
}

// StatusChangedEvent is emitted when an event's lifecycle status changes,
// whether requested by a caller or derived from an attendance mutation.
type StatusChangedEvent struct {
	BaseEvent
	EventID   string `json:"event_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Derived   bool   `json:"derived"` // true when the transition was attendance-driven
}

// Payload implements Event interface.
func (e StatusChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"event_id":   e.EventID,
		"old_status": e.OldStatus,
		"new_status": e.NewStatus,
		"derived":    e.Derived,
	}
}

// NewStatusChangedEvent creates a new StatusChangedEvent.
func NewStatusChangedEvent(eventID, oldStatus, newStatus string, derived bool) StatusChangedEvent {
	return StatusChangedEvent{
		BaseEvent: NewBaseEvent(EventStatusChanged, eventID),
		EventID:   eventID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Derived:   derived,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Attendance Events
// ═══════════════════════════════════════════════════════════════════════════

// AttendanceChangedEvent is emitted for every attendance ledger mutation.
// The Change field distinguishes add/remove/flag/unflag.
type AttendanceChangedEvent struct {
	BaseEvent
	EventID     string `json:"event_id"`
	CandidateID string `json:"candidate_id"`
	Change      string `json:"change"`
	AddedByRole string `json:"added_by_role,omitempty"`
	Points      int    `json:"points"`
}

// Payload implements Event interface.
func (e AttendanceChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"event_id":      e.EventID,
		"candidate_id":  e.CandidateID,
		"change":        e.Change,
		"added_by_role": e.AddedByRole,
		"points":        e.Points,
	}
}

// NewAttendanceChangedEvent creates an attendance mutation event of the given type.
func NewAttendanceChangedEvent(eventType EventType, eventID, candidateID string, points int) AttendanceChangedEvent {
	change := ""
	switch eventType {
	case EventAttendanceAdded:
		change = "added"
	case EventAttendanceRemoved:
		change = "removed"
	case EventAttendanceFlagged:
		change = "flagged"
	case EventAttendanceUnflagged:
		change = "unflagged"
	}
	return AttendanceChangedEvent{
		BaseEvent:   NewBaseEvent(eventType, eventID),
		EventID:     eventID,
		CandidateID: candidateID,
		Change:      change,
		Points:      points,
	}
}

// WithAddedByRole records the role of whoever registered the attendance.
func (e AttendanceChangedEvent) WithAddedByRole(role string) AttendanceChangedEvent {
	e.AddedByRole = role
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// System Events
// ═══════════════════════════════════════════════════════════════════════════

// ReconciliationCompletedEvent is emitted when a bulk feed reconciliation run
// finishes, successfully or not.
type ReconciliationCompletedEvent struct {
	BaseEvent
	Source    string        `json:"source"`
	TotalRows int           `json:"total_rows"`
	Processed int           `json:"processed"`
	Added     int           `json:"added"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// Payload implements Event interface.
func (e ReconciliationCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"source":     e.Source,
		"total_rows": e.TotalRows,
		"processed":  e.Processed,
		"added":      e.Added,
		"skipped":    e.Skipped,
		"duration":   e.Duration.String(),
	}
}

// NewReconciliationCompletedEvent creates a new ReconciliationCompletedEvent.
func NewReconciliationCompletedEvent(source string, totalRows, processed, added, skipped int, duration time.Duration) ReconciliationCompletedEvent {
	return ReconciliationCompletedEvent{
		BaseEvent: NewBaseEvent(EventReconciliationCompleted, source),
		Source:    source,
		TotalRows: totalRows,
		Processed: processed,
		Added:     added,
		Skipped:   skipped,
		Duration:  duration,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

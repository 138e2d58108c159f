// Package postgres implements the PostgreSQL persistence layer for the
// trainee events hub.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/catalog"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/event"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const eventColumns = `id, event_type, content_kind, content_id, scheduled_at,
	   location, presenter_id, status, created_at, updated_at`

const attendanceColumns = `candidate_id, added_by_id, added_by_role, flagged,
	   points, created_at`

// EventRepository implements event.Repository for PostgreSQL. The attendance
// ledger lives in a child table; the repository always loads and stores an
// event together with its full ledger so the domain invariants see the whole
// picture.
type EventRepository struct {
	conn *Connection
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(conn *Connection) *EventRepository {
	return &EventRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create inserts a new event with its attendance ledger.
func (r *EventRepository) Create(ctx context.Context, ev *event.Event) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		query := `
			INSERT INTO events (
				id, event_type, content_kind, content_id, scheduled_at,
				location, presenter_id, status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`

		_, err := tx.Exec(ctx, query,
			ev.ID.String(),
			string(ev.Type),
			string(ev.Content.Kind),
			ev.Content.ID.String(),
			ev.ScheduledAt,
			ev.Location,
			ev.PresenterID.String(),
			string(ev.Status),
			ev.CreatedAt,
			ev.UpdatedAt,
		)
		if err != nil {
			if IsUniqueViolation(err) {
				return shared.ErrAlreadyExists
			}
			return fmt.Errorf("failed to create event: %w", err)
		}

		return r.insertAttendance(ctx, tx, ev)
	})
}

// GetByID returns an event with its attendance ledger.
func (r *EventRepository) GetByID(ctx context.Context, id shared.EventID) (*event.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1`, eventColumns)

	ev, err := r.scanEvent(r.conn.QueryRow(ctx, query, id.String()))
	if err != nil {
		return nil, err
	}

	if err := r.loadAttendance(ctx, r.conn, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Update overwrites an event and its attendance ledger in one transaction.
func (r *EventRepository) Update(ctx context.Context, ev *event.Event) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return r.updateInTx(ctx, tx, ev)
	})
}

// Mutate loads the event under a row lock, applies fn, and persists the
// result. A non-nil error from fn rolls the transaction back, so either every
// change fn made is stored or none is. Concurrent mutations of the same event
// serialize on the row lock.
func (r *EventRepository) Mutate(ctx context.Context, id shared.EventID, fn func(ev *event.Event) error) (*event.Event, error) {
	var result *event.Event

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1 FOR UPDATE`, eventColumns)

		ev, err := r.scanEvent(tx.QueryRow(ctx, query, id.String()))
		if err != nil {
			return err
		}
		if err := r.loadAttendance(ctx, tx, ev); err != nil {
			return err
		}

		if err := fn(ev); err != nil {
			if errors.Is(err, event.ErrUnchanged) {
				result = ev
				return nil
			}
			return err
		}

		if err := r.updateInTx(ctx, tx, ev); err != nil {
			return err
		}

		result = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Content Lookups
// ─────────────────────────────────────────────────────────────────────────────

// FindByContentID returns the event scheduled for a content record.
func (r *EventRepository) FindByContentID(ctx context.Context, contentID shared.ContentID) (*event.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE content_id = $1`, eventColumns)

	ev, err := r.scanEvent(r.conn.QueryRow(ctx, query, contentID.String()))
	if err != nil {
		return nil, err
	}

	if err := r.loadAttendance(ctx, r.conn, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// FindByContentIDs batch-resolves events for a set of content records.
// Content IDs without an event are simply absent from the result.
func (r *EventRepository) FindByContentIDs(ctx context.Context, contentIDs []shared.ContentID) (map[shared.ContentID]*event.Event, error) {
	out := make(map[shared.ContentID]*event.Event)
	if len(contentIDs) == 0 {
		return out, nil
	}

	ids := make([]string, len(contentIDs))
	for i, id := range contentIDs {
		ids[i] = id.String()
	}

	query := fmt.Sprintf(`SELECT %s FROM events WHERE content_id = ANY($1)`, eventColumns)

	rows, err := r.conn.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by content ids: %w", err)
	}
	defer rows.Close()

	events := make([]*event.Event, 0, len(contentIDs))
	for rows.Next() {
		ev, err := r.scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, ev := range events {
		if err := r.loadAttendance(ctx, r.conn, ev); err != nil {
			return nil, err
		}
		out[ev.Content.ID] = ev
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Aggregates
// ─────────────────────────────────────────────────────────────────────────────

// SumPointsByCandidate sums unflagged attendance points across all events.
func (r *EventRepository) SumPointsByCandidate(ctx context.Context, candidateID shared.CandidateID) (shared.Points, error) {
	query := `
		SELECT COALESCE(SUM(points), 0)
		FROM attendance_records
		WHERE candidate_id = $1 AND NOT flagged
	`

	var total int
	err := r.conn.QueryRow(ctx, query, candidateID.String()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum points: %w", err)
	}
	return shared.Points(total), nil
}

// FindStaleBooked returns IDs of booked events scheduled before the given
// time with no attendance at all. These are the events the nightly sweep
// re-derives, which cancels them.
func (r *EventRepository) FindStaleBooked(ctx context.Context, before time.Time) ([]shared.EventID, error) {
	query := `
		SELECT e.id
		FROM events e
		WHERE e.status = 'booked'
		  AND e.scheduled_at < $1
		  AND NOT EXISTS (
			SELECT 1 FROM attendance_records a WHERE a.event_id = e.id
		  )
		ORDER BY e.scheduled_at
	`

	rows, err := r.conn.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale events: %w", err)
	}
	defer rows.Close()

	var ids []shared.EventID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan event id: %w", err)
		}
		ids = append(ids, shared.EventID(id))
	}
	return ids, rows.Err()
}

// CandidatesWithAttendance returns the IDs of every candidate holding at
// least one attendance record. Candidates outside this set have a zero point
// total and need no cache entry.
func (r *EventRepository) CandidatesWithAttendance(ctx context.Context) ([]shared.CandidateID, error) {
	query := `SELECT DISTINCT candidate_id FROM attendance_records`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var ids []shared.CandidateID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan candidate id: %w", err)
		}
		ids = append(ids, shared.CandidateID(id))
	}
	return ids, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *EventRepository) updateInTx(ctx context.Context, tx pgx.Tx, ev *event.Event) error {
	query := `
		UPDATE events SET
			event_type = $1,
			content_kind = $2,
			content_id = $3,
			scheduled_at = $4,
			location = $5,
			presenter_id = $6,
			status = $7,
			updated_at = $8
		WHERE id = $9
	`

	result, err := tx.Exec(ctx, query,
		string(ev.Type),
		string(ev.Content.Kind),
		ev.Content.ID.String(),
		ev.ScheduledAt,
		ev.Location,
		ev.PresenterID.String(),
		string(ev.Status),
		ev.UpdatedAt,
		ev.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrEventNotFound
	}

	// Rewrite the ledger wholesale. Ledgers are small (one row per
	// attending candidate) and the delete+insert keeps the stored position
	// in step with the in-memory order.
	if _, err := tx.Exec(ctx, `DELETE FROM attendance_records WHERE event_id = $1`, ev.ID.String()); err != nil {
		return fmt.Errorf("failed to clear attendance: %w", err)
	}
	return r.insertAttendance(ctx, tx, ev)
}

func (r *EventRepository) insertAttendance(ctx context.Context, tx pgx.Tx, ev *event.Event) error {
	if len(ev.Attendance) == 0 {
		return nil
	}

	query := `
		INSERT INTO attendance_records (
			event_id, candidate_id, added_by_id, added_by_role,
			flagged, points, position, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for i, rec := range ev.Attendance {
		_, err := tx.Exec(ctx, query,
			ev.ID.String(),
			rec.CandidateID.String(),
			rec.AddedByID.String(),
			string(rec.AddedByRole),
			rec.Flagged,
			rec.Points.Int(),
			i,
			rec.CreatedAt,
		)
		if err != nil {
			if IsUniqueViolation(err) {
				return shared.ErrAttendanceDuplicate
			}
			return fmt.Errorf("failed to insert attendance record: %w", err)
		}
	}
	return nil
}

func (r *EventRepository) loadAttendance(ctx context.Context, q Querier, ev *event.Event) error {
	query := fmt.Sprintf(`
		SELECT %s FROM attendance_records
		WHERE event_id = $1
		ORDER BY position ASC
	`, attendanceColumns)

	rows, err := q.Query(ctx, query, ev.ID.String())
	if err != nil {
		return fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	ev.Attendance = make([]event.AttendanceRecord, 0)
	for rows.Next() {
		var rec event.AttendanceRecord
		var candidateID, addedByID, addedByRole string
		var points int

		err := rows.Scan(&candidateID, &addedByID, &addedByRole, &rec.Flagged, &points, &rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to scan attendance record: %w", err)
		}

		rec.CandidateID = shared.CandidateID(candidateID)
		rec.AddedByID = shared.PersonID(addedByID)
		rec.AddedByRole = event.Role(addedByRole)
		rec.Points = shared.Points(points)
		ev.Attendance = append(ev.Attendance, rec)
	}
	return rows.Err()
}

func (r *EventRepository) scanEvent(row pgx.Row) (*event.Event, error) {
	ev, err := scanEventColumns(row.Scan)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	return ev, nil
}

func (r *EventRepository) scanEventRow(rows pgx.Rows) (*event.Event, error) {
	ev, err := scanEventColumns(rows.Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event row: %w", err)
	}
	return ev, nil
}

func scanEventColumns(scan func(dest ...interface{}) error) (*event.Event, error) {
	var ev event.Event
	var id, eventType, contentKind, contentID, presenterID, status string

	err := scan(
		&id,
		&eventType,
		&contentKind,
		&contentID,
		&ev.ScheduledAt,
		&ev.Location,
		&presenterID,
		&status,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ev.ID = shared.EventID(id)
	ev.Type = event.Type(eventType)
	ev.Content = event.ContentRef{
		Kind: catalog.ContentKind(contentKind),
		ID:   shared.ContentID(contentID),
	}
	ev.PresenterID = shared.PersonID(presenterID)
	ev.Status = event.Status(status)
	return &ev, nil
}

// Package postgres implements the PostgreSQL persistence layer for the
// trainee events hub.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/trainee-hub/trainee-events-hub/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILIATION RUN LOG
// ══════════════════════════════════════════════════════════════════════════════

// RunLogRepository persists reconciliation run summaries for operator
// inspection. Append-only; runs are never updated.
type RunLogRepository struct {
	conn *Connection
}

// NewRunLogRepository creates a new RunLogRepository.
func NewRunLogRepository(conn *Connection) *RunLogRepository {
	return &RunLogRepository{conn: conn}
}

// Save records one completed run.
func (r *RunLogRepository) Save(ctx context.Context, result *command.ReconcileResult, startedAt time.Time) error {
	rowErrors, err := json.Marshal(result.Errors)
	if err != nil {
		return fmt.Errorf("failed to marshal row errors: %w", err)
	}

	query := `
		INSERT INTO reconciliation_runs (
			source, total_rows, processed, added, skipped,
			row_errors, duration_ms, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.conn.Exec(ctx, query,
		result.Source,
		result.TotalRows,
		result.Processed,
		result.Added,
		result.Skipped,
		rowErrors,
		result.Duration.Milliseconds(),
		startedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save reconciliation run: %w", err)
	}
	return nil
}

// RunRecord is one stored run summary.
type RunRecord struct {
	ID        int
	StartedAt time.Time
	Result    command.ReconcileResult
}

// Recent returns the most recent runs for a source, newest first.
func (r *RunLogRepository) Recent(ctx context.Context, source string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, source, total_rows, processed, added, skipped,
			   row_errors, duration_ms, started_at
		FROM reconciliation_runs
		WHERE source = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, source, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reconciliation runs: %w", err)
	}
	defer rows.Close()

	records := make([]RunRecord, 0, limit)
	for rows.Next() {
		var rec RunRecord
		var rowErrors []byte
		var durationMS int64

		err := rows.Scan(
			&rec.ID,
			&rec.Result.Source,
			&rec.Result.TotalRows,
			&rec.Result.Processed,
			&rec.Result.Added,
			&rec.Result.Skipped,
			&rowErrors,
			&durationMS,
			&rec.StartedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation run: %w", err)
		}

		if err := json.Unmarshal(rowErrors, &rec.Result.Errors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal row errors: %w", err)
		}
		rec.Result.Duration = time.Duration(durationMS) * time.Millisecond

		records = append(records, rec)
	}
	return records, rows.Err()
}

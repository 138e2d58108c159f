// Package postgres implements the PostgreSQL persistence layer for the
// trainee events hub.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE CATALOG
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create catalog tables
-- Version: 001

-- Curriculum content: lectures, journal clubs, conference presentations.
-- external_uid is the identifier third-party feeds reference; it is unique
-- per kind but NOT across kinds.
CREATE TABLE IF NOT EXISTS contents (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    kind VARCHAR(20) NOT NULL,
    external_uid VARCHAR(100) NOT NULL,
    title VARCHAR(200) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_kind CHECK (kind IN ('lecture', 'journal', 'conference')),
    CONSTRAINT unique_uid_per_kind UNIQUE (kind, external_uid)
);

CREATE INDEX IF NOT EXISTS idx_contents_external_uid ON contents(external_uid);

CREATE TABLE IF NOT EXISTS candidates (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    email VARCHAR(255) NOT NULL UNIQUE,
    full_name VARCHAR(200) NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_candidates_email ON candidates(email);

CREATE TABLE IF NOT EXISTS supervisors (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    email VARCHAR(255) NOT NULL UNIQUE,
    full_name VARCHAR(200) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- Institute admins only appear as the added-by reference on attendance
-- records, so the table carries identity alone.
CREATE TABLE IF NOT EXISTS institute_admins (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    email VARCHAR(255) NOT NULL UNIQUE,
    full_name VARCHAR(200) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration001Down = `
DROP TABLE IF EXISTS institute_admins;
DROP TABLE IF EXISTS supervisors;
DROP TABLE IF EXISTS candidates;
DROP TABLE IF EXISTS contents;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE EVENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create events and attendance tables
-- Version: 002

CREATE TABLE IF NOT EXISTS events (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    event_type VARCHAR(20) NOT NULL,
    content_kind VARCHAR(20) NOT NULL,
    content_id UUID NOT NULL REFERENCES contents(id),
    scheduled_at TIMESTAMP WITH TIME ZONE NOT NULL,
    location VARCHAR(200) NOT NULL DEFAULT '',
    presenter_id UUID NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'booked',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_event_type CHECK (event_type IN ('lecture', 'journal', 'conference')),
    CONSTRAINT valid_content_kind CHECK (content_kind IN ('lecture', 'journal', 'conference')),
    CONSTRAINT valid_status CHECK (status IN ('booked', 'held', 'canceled')),
    CONSTRAINT type_matches_kind CHECK (event_type = content_kind)
);

CREATE INDEX IF NOT EXISTS idx_events_content_id ON events(content_id);
CREATE INDEX IF NOT EXISTS idx_events_status ON events(status);
CREATE INDEX IF NOT EXISTS idx_events_scheduled_at ON events(scheduled_at);

-- Attendance ledger. position preserves the historical add order;
-- (event_id, candidate_id) is the uniqueness key.
CREATE TABLE IF NOT EXISTS attendance_records (
    id SERIAL PRIMARY KEY,
    event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    candidate_id UUID NOT NULL REFERENCES candidates(id),
    added_by_id UUID NOT NULL,
    added_by_role VARCHAR(30) NOT NULL,
    flagged BOOLEAN NOT NULL DEFAULT FALSE,
    points INTEGER NOT NULL DEFAULT 1,
    position INTEGER NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT unique_event_candidate UNIQUE (event_id, candidate_id),
    CONSTRAINT valid_added_by_role CHECK (added_by_role IN ('candidate', 'supervisor', 'instituteAdmin')),
    CONSTRAINT valid_points CHECK (points >= 0)
);

CREATE INDEX IF NOT EXISTS idx_attendance_event_id ON attendance_records(event_id);
CREATE INDEX IF NOT EXISTS idx_attendance_candidate_id ON attendance_records(candidate_id);
CREATE INDEX IF NOT EXISTS idx_attendance_candidate_unflagged
    ON attendance_records(candidate_id) WHERE NOT flagged;
`

const migration002Down = `
DROP TABLE IF EXISTS attendance_records;
DROP TABLE IF EXISTS events;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE RECONCILIATION RUNS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create reconciliation run log
-- Version: 003

-- One row per reconciliation run, for operator inspection and idempotence
-- audits. row_errors keeps the per-row skip reasons as JSONB.
CREATE TABLE IF NOT EXISTS reconciliation_runs (
    id SERIAL PRIMARY KEY,
    source VARCHAR(200) NOT NULL,
    total_rows INTEGER NOT NULL DEFAULT 0,
    processed INTEGER NOT NULL DEFAULT 0,
    added INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    row_errors JSONB NOT NULL DEFAULT '[]'::jsonb,
    duration_ms BIGINT NOT NULL DEFAULT 0,
    started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_reconciliation_runs_source ON reconciliation_runs(source);
CREATE INDEX IF NOT EXISTS idx_reconciliation_runs_started_at ON reconciliation_runs(started_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS reconciliation_runs;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_catalog",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_events",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_reconciliation_runs",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

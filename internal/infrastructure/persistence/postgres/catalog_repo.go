// Package postgres implements the PostgreSQL persistence layer for the
// trainee events hub.
package postgres

import (
	"context"
	"fmt"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/catalog"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG LOOKUP IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository implements catalog.ContentLookup and catalog.PersonLookup
// for PostgreSQL.
type CatalogRepository struct {
	conn *Connection
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Content Lookup
// ─────────────────────────────────────────────────────────────────────────────

// ResolveByID returns the content record with the given internal ID.
func (r *CatalogRepository) ResolveByID(ctx context.Context, kind catalog.ContentKind, id shared.ContentID) (*catalog.Content, error) {
	query := `
		SELECT id, kind, external_uid, title
		FROM contents
		WHERE kind = $1 AND id = $2
	`

	return r.scanContent(ctx, query, string(kind), id.String())
}

// ResolveByExternalUID returns the content record carrying the external UID.
func (r *CatalogRepository) ResolveByExternalUID(ctx context.Context, kind catalog.ContentKind, uid shared.ExternalUID) (*catalog.Content, error) {
	query := `
		SELECT id, kind, external_uid, title
		FROM contents
		WHERE kind = $1 AND external_uid = $2
	`

	return r.scanContent(ctx, query, string(kind), uid.String())
}

// BatchResolveByExternalUIDs resolves many external UIDs in one query.
func (r *CatalogRepository) BatchResolveByExternalUIDs(ctx context.Context, kind catalog.ContentKind, uids []shared.ExternalUID) (map[shared.ExternalUID]*catalog.Content, error) {
	out := make(map[shared.ExternalUID]*catalog.Content)
	if len(uids) == 0 {
		return out, nil
	}

	raw := make([]string, len(uids))
	for i, uid := range uids {
		raw[i] = uid.String()
	}

	query := `
		SELECT id, kind, external_uid, title
		FROM contents
		WHERE kind = $1 AND external_uid = ANY($2)
	`

	rows, err := r.conn.Query(ctx, query, string(kind), raw)
	if err != nil {
		return nil, fmt.Errorf("failed to batch-resolve contents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c catalog.Content
		var id, contentKind, externalUID string

		if err := rows.Scan(&id, &contentKind, &externalUID, &c.Title); err != nil {
			return nil, fmt.Errorf("failed to scan content row: %w", err)
		}

		c.ID = shared.ContentID(id)
		c.Kind = catalog.ContentKind(contentKind)
		c.ExternalUID = shared.ExternalUID(externalUID)
		out[c.ExternalUID] = &c
	}
	return out, rows.Err()
}

func (r *CatalogRepository) scanContent(ctx context.Context, query string, args ...interface{}) (*catalog.Content, error) {
	var c catalog.Content
	var id, kind, externalUID string

	err := r.conn.QueryRow(ctx, query, args...).Scan(&id, &kind, &externalUID, &c.Title)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to scan content: %w", err)
	}

	c.ID = shared.ContentID(id)
	c.Kind = catalog.ContentKind(kind)
	c.ExternalUID = shared.ExternalUID(externalUID)
	return &c, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Person Lookup
// ─────────────────────────────────────────────────────────────────────────────

// ResolveCandidateByID returns the candidate with the given ID.
func (r *CatalogRepository) ResolveCandidateByID(ctx context.Context, id shared.CandidateID) (*catalog.Candidate, error) {
	query := `
		SELECT id, email, full_name, active
		FROM candidates
		WHERE id = $1
	`

	return r.scanCandidate(ctx, query, id.String())
}

// ResolveCandidateByEmail returns the candidate with the given email.
func (r *CatalogRepository) ResolveCandidateByEmail(ctx context.Context, email shared.Email) (*catalog.Candidate, error) {
	query := `
		SELECT id, email, full_name, active
		FROM candidates
		WHERE email = $1
	`

	return r.scanCandidate(ctx, query, email.Normalize().String())
}

// BatchResolveCandidatesByEmails resolves many emails in one query.
func (r *CatalogRepository) BatchResolveCandidatesByEmails(ctx context.Context, emails []shared.Email) (map[shared.Email]*catalog.Candidate, error) {
	out := make(map[shared.Email]*catalog.Candidate)
	if len(emails) == 0 {
		return out, nil
	}

	raw := make([]string, len(emails))
	for i, email := range emails {
		raw[i] = email.Normalize().String()
	}

	query := `
		SELECT id, email, full_name, active
		FROM candidates
		WHERE email = ANY($1)
	`

	rows, err := r.conn.Query(ctx, query, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to batch-resolve candidates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c catalog.Candidate
		var id, email string

		if err := rows.Scan(&id, &email, &c.FullName, &c.Active); err != nil {
			return nil, fmt.Errorf("failed to scan candidate row: %w", err)
		}

		c.ID = shared.CandidateID(id)
		c.Email = shared.Email(email)
		out[c.Email] = &c
	}
	return out, rows.Err()
}

// ResolveSupervisorByID returns the supervisor with the given ID.
func (r *CatalogRepository) ResolveSupervisorByID(ctx context.Context, id shared.PersonID) (*catalog.Supervisor, error) {
	query := `
		SELECT id, email, full_name
		FROM supervisors
		WHERE id = $1
	`

	var s catalog.Supervisor
	var sid, email string

	err := r.conn.QueryRow(ctx, query, id.String()).Scan(&sid, &email, &s.FullName)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSupervisorNotFound
		}
		return nil, fmt.Errorf("failed to scan supervisor: %w", err)
	}

	s.ID = shared.PersonID(sid)
	s.Email = shared.Email(email)
	return &s, nil
}

// PersonExists reports whether any person exists with the given ID.
func (r *CatalogRepository) PersonExists(ctx context.Context, id shared.PersonID) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM candidates WHERE id = $1)
			OR EXISTS (SELECT 1 FROM supervisors WHERE id = $1)
			OR EXISTS (SELECT 1 FROM institute_admins WHERE id = $1)
	`

	var exists bool
	if err := r.conn.QueryRow(ctx, query, id.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check person existence: %w", err)
	}
	return exists, nil
}

func (r *CatalogRepository) scanCandidate(ctx context.Context, query string, args ...interface{}) (*catalog.Candidate, error) {
	var c catalog.Candidate
	var id, email string

	err := r.conn.QueryRow(ctx, query, args...).Scan(&id, &email, &c.FullName, &c.Active)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to scan candidate: %w", err)
	}

	c.ID = shared.CandidateID(id)
	c.Email = shared.Email(email)
	return &c, nil
}

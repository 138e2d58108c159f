package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/catalog"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/event"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXTERNAL RECONCILIATION PIPELINE
// Ingests a third-party tabular feed (candidate email + resource UID per row)
// and merges it into attendance records: one external fetch, one concurrent
// batch-resolve stage, then a sequential apply pass with per-row error
// reporting. Re-running the same feed is safe; rows already reconciled are
// skipped by the duplicate check.
// ══════════════════════════════════════════════════════════════════════════════

// Row skip reasons surfaced to operators. Fixed strings so downstream
// tooling can key on them.
const (
	ReasonMissingEmailOrUID = "Missing email or UID"
	ReasonCandidateNotFound = "Candidate not found in database"
	ReasonContentNotFound   = "Lecture, Journal, or Conf not found with this UID"
	ReasonEventNotFound     = "Event not found for this Lecture/Journal/Conf"
	ReasonAlreadyRegistered = "Candidate already registered for this event"
)

// FeedRow is one row of a tabular feed. Cells carries the positional shape,
// Fields the header-keyed shape; exactly one of the two is populated by the
// fetcher. Number is the 1-based row number in the raw feed.
type FeedRow struct {
	Number int
	Cells  []string
	Fields map[string]string
}

// TabularFeed is the fetched feed: an optional header row plus data rows.
type TabularFeed struct {
	Headers []string
	Rows    []FeedRow
}

// FeedFetcher retrieves the rows of a named external source.
// Implementations live in infrastructure/feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, source string) (*TabularFeed, error)
}

// RowError describes one skipped row.
type RowError struct {
	Row    int    `json:"row"`
	Email  string `json:"email"`
	UID    string `json:"uid"`
	Reason string `json:"reason"`
}

// ReconcileResult is the structured summary of one reconciliation run. It is
// always returned as a value for per-row problems; only a failed batch lookup
// aborts the run with an error.
type ReconcileResult struct {
	Source    string        `json:"source"`
	TotalRows int           `json:"total_rows"`
	Processed int           `json:"processed"`
	Added     int           `json:"added"`
	Skipped   int           `json:"skipped"`
	Errors    []RowError    `json:"errors"`
	Duration  time.Duration `json:"duration"`
}

// ReconcileCommand triggers one reconciliation run.
type ReconcileCommand struct {
	// Source names the external feed to fetch.
	Source string

	// AddedByID / AddedByRole are stamped on every attendance record the
	// run creates, identifying the operator who triggered it.
	AddedByID   shared.PersonID
	AddedByRole event.Role

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command shape.
func (c ReconcileCommand) Validate() error {
	if strings.TrimSpace(c.Source) == "" {
		return shared.NewDomainError("command", "Reconcile", shared.ErrEmptyValue, "source is required")
	}
	if c.AddedByID.IsEmpty() {
		return shared.NewDomainError("command", "Reconcile", shared.ErrInvalidID, "added_by is required")
	}
	if !c.AddedByRole.IsValid() {
		return shared.ErrInvalidAddedByRole
	}
	return nil
}

// ReconcileHandler runs the pipeline.
type ReconcileHandler struct {
	fetcher   FeedFetcher
	content   catalog.ContentLookup
	persons   catalog.PersonLookup
	events    event.Repository
	ledger    *AttendanceLedger
	publisher shared.EventPublisher
	logger    *slog.Logger
}

// NewReconcileHandler creates a new ReconcileHandler.
func NewReconcileHandler(
	fetcher FeedFetcher,
	content catalog.ContentLookup,
	persons catalog.PersonLookup,
	events event.Repository,
	ledger *AttendanceLedger,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *ReconcileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileHandler{
		fetcher:   fetcher,
		content:   content,
		persons:   persons,
		events:    events,
		ledger:    ledger,
		publisher: publisher,
		logger:    logger,
	}
}

// parsedRow is a feed row that survived the parse pass.
type parsedRow struct {
	number int
	email  shared.Email
	uid    shared.ExternalUID
}

// Handle runs one reconciliation. The error return is reserved for failures
// that make the whole run unsafe (feed fetch, batch lookups, cancellation);
// every per-row problem is downgraded to a skipped entry in the result.
func (h *ReconcileHandler) Handle(ctx context.Context, cmd ReconcileCommand) (*ReconcileResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	startedAt := time.Now()
	h.logger.Info("starting attendance reconciliation", "source", cmd.Source)

	feed, err := h.fetcher.Fetch(ctx, cmd.Source)
	if err != nil {
		return nil, shared.WrapError("reconcile", "Fetch", shared.ErrExternalService,
			fmt.Sprintf("failed to fetch feed %q", cmd.Source), err)
	}

	result := &ReconcileResult{Source: cmd.Source, Errors: make([]RowError, 0)}

	// Pass 1: parse rows, collect the distinct emails and UIDs observed.
	parsed := h.parseRows(feed, result)

	// Pass 2: one batched lookup per entity kind, issued concurrently.
	// Any lookup failure is fatal: without complete maps no row can be
	// evaluated safely.
	candidatesByEmail, contentByUID, err := h.batchResolve(ctx, parsed)
	if err != nil {
		return nil, err
	}

	// Pass 3: batch-fetch the event for every resolved content record.
	eventsByContent, err := h.resolveEvents(ctx, contentByUID)
	if err != nil {
		return nil, shared.WrapError("reconcile", "ResolveEvents", shared.ErrExternalService,
			"failed to batch-resolve events", err)
	}

	// Pass 4: apply rows sequentially. The duplicate-check/add pair for one
	// event+candidate must not interleave with itself, and sequential
	// application is the simplest way to guarantee that.
	h.applyRows(ctx, cmd, parsed, candidatesByEmail, contentByUID, eventsByContent, result)

	result.Duration = time.Since(startedAt)
	h.logger.Info("attendance reconciliation completed",
		"source", cmd.Source,
		"total", result.TotalRows,
		"processed", result.Processed,
		"added", result.Added,
		"skipped", result.Skipped,
		"duration", result.Duration.String(),
	)

	if h.publisher != nil {
		_ = h.publisher.Publish(shared.NewReconciliationCompletedEvent(
			cmd.Source, result.TotalRows, result.Processed, result.Added, result.Skipped, result.Duration))
	}

	// A cancellation mid-apply surfaces alongside the partial result so the
	// operator can see how far the run got.
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Pass 1: parse
// ─────────────────────────────────────────────────────────────────────────────

// Accepted header names for the two columns, matched case-insensitively.
var (
	emailHeaders = []string{"email", "candidate_email", "e-mail"}
	uidHeaders   = []string{"uid", "resource_uid", "external_id"}
)

func (h *ReconcileHandler) parseRows(feed *TabularFeed, result *ReconcileResult) []parsedRow {
	rows := feed.Rows
	// Tolerate feeds that leave the header as the first positional row.
	if len(feed.Headers) == 0 && len(rows) > 0 && looksLikeHeader(rows[0]) {
		rows = rows[1:]
	}
	result.TotalRows = len(rows)

	parsed := make([]parsedRow, 0, len(rows))
	for _, row := range rows {
		rawEmail, rawUID := extractCells(row, feed.Headers)
		email := shared.Email(rawEmail).Normalize()
		uid := shared.NewExternalUID(rawUID)

		if email == "" || !uid.IsValid() {
			result.Skipped++
			result.Errors = append(result.Errors, RowError{
				Row: row.Number, Email: string(email), UID: uid.String(), Reason: ReasonMissingEmailOrUID,
			})
			continue
		}

		result.Processed++
		parsed = append(parsed, parsedRow{number: row.Number, email: email, uid: uid})
	}
	return parsed
}

// extractCells pulls (email, uid) from either row shape.
func extractCells(row FeedRow, headers []string) (string, string) {
	if row.Fields != nil {
		return fieldByNames(row.Fields, emailHeaders), fieldByNames(row.Fields, uidHeaders)
	}

	emailIdx, uidIdx := 0, 1
	if len(headers) > 0 {
		if idx := headerIndex(headers, emailHeaders); idx >= 0 {
			emailIdx = idx
		}
		if idx := headerIndex(headers, uidHeaders); idx >= 0 {
			uidIdx = idx
		}
	}

	var email, uid string
	if emailIdx < len(row.Cells) {
		email = row.Cells[emailIdx]
	}
	if uidIdx < len(row.Cells) {
		uid = row.Cells[uidIdx]
	}
	return email, uid
}

func fieldByNames(fields map[string]string, names []string) string {
	for key, value := range fields {
		for _, name := range names {
			if strings.EqualFold(strings.TrimSpace(key), name) {
				return value
			}
		}
	}
	return ""
}

func headerIndex(headers []string, names []string) int {
	for i, header := range headers {
		for _, name := range names {
			if strings.EqualFold(strings.TrimSpace(header), name) {
				return i
			}
		}
	}
	return -1
}

func looksLikeHeader(row FeedRow) bool {
	if len(row.Cells) < 2 {
		return false
	}
	return headerIndex(row.Cells[:1], emailHeaders) == 0 && headerIndex(row.Cells, uidHeaders) >= 0
}

// ─────────────────────────────────────────────────────────────────────────────
// Pass 2: concurrent batch resolve
// ─────────────────────────────────────────────────────────────────────────────

// batchResolve issues one batched lookup per entity kind: candidates by email
// and each content kind by external UID. The lookups are independent and run
// concurrently. UIDs that match more than one kind resolve in the order
// Lecture, Journal, Conference; such collisions are a feed-integrity problem
// and are logged.
func (h *ReconcileHandler) batchResolve(ctx context.Context, parsed []parsedRow) (map[shared.Email]*catalog.Candidate, map[shared.ExternalUID]*catalog.Content, error) {
	emailSet := make(map[shared.Email]struct{})
	uidSet := make(map[shared.ExternalUID]struct{})
	for _, row := range parsed {
		emailSet[row.email] = struct{}{}
		uidSet[row.uid] = struct{}{}
	}

	emails := make([]shared.Email, 0, len(emailSet))
	for email := range emailSet {
		emails = append(emails, email)
	}
	uids := make([]shared.ExternalUID, 0, len(uidSet))
	for uid := range uidSet {
		uids = append(uids, uid)
	}

	var (
		wg                sync.WaitGroup
		mu                sync.Mutex
		firstErr          error
		candidatesByEmail map[shared.Email]*catalog.Candidate
		contentByKind     = make(map[catalog.ContentKind]map[shared.ExternalUID]*catalog.Content)
	)

	recordErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		resolved, err := h.persons.BatchResolveCandidatesByEmails(ctx, emails)
		if err != nil {
			recordErr(shared.WrapError("reconcile", "BatchResolve", shared.ErrExternalService,
				"candidate batch lookup failed", err))
			return
		}
		mu.Lock()
		candidatesByEmail = resolved
		mu.Unlock()
	}()

	for _, kind := range catalog.AllContentKinds() {
		wg.Add(1)
		go func(kind catalog.ContentKind) {
			defer wg.Done()
			resolved, err := h.content.BatchResolveByExternalUIDs(ctx, kind, uids)
			if err != nil {
				recordErr(shared.WrapError("reconcile", "BatchResolve", shared.ErrExternalService,
					fmt.Sprintf("%s batch lookup failed", kind), err))
				return
			}
			mu.Lock()
			contentByKind[kind] = resolved
			mu.Unlock()
		}(kind)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, nil, firstErr
	}

	// Collapse the per-kind maps in priority order.
	contentByUID := make(map[shared.ExternalUID]*catalog.Content)
	for _, kind := range catalog.AllContentKinds() {
		for uid, content := range contentByKind[kind] {
			if existing, ok := contentByUID[uid]; ok {
				h.logger.Warn("external UID collides across content kinds",
					"uid", uid.String(),
					"kept", existing.Kind.String(),
					"ignored", kind.String(),
				)
				continue
			}
			contentByUID[uid] = content
		}
	}
	return candidatesByEmail, contentByUID, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Pass 3: event resolve
// ─────────────────────────────────────────────────────────────────────────────

func (h *ReconcileHandler) resolveEvents(ctx context.Context, contentByUID map[shared.ExternalUID]*catalog.Content) (map[shared.ContentID]*event.Event, error) {
	contentIDs := make([]shared.ContentID, 0, len(contentByUID))
	for _, content := range contentByUID {
		contentIDs = append(contentIDs, content.ID)
	}
	if len(contentIDs) == 0 {
		return map[shared.ContentID]*event.Event{}, nil
	}
	return h.events.FindByContentIDs(ctx, contentIDs)
}

// ─────────────────────────────────────────────────────────────────────────────
// Pass 4: apply
// ─────────────────────────────────────────────────────────────────────────────

func (h *ReconcileHandler) applyRows(
	ctx context.Context,
	cmd ReconcileCommand,
	parsed []parsedRow,
	candidatesByEmail map[shared.Email]*catalog.Candidate,
	contentByUID map[shared.ExternalUID]*catalog.Content,
	eventsByContent map[shared.ContentID]*event.Event,
	result *ReconcileResult,
) {
	// Tracks pairs added during this run, so a feed that repeats a row
	// within one file is still applied exactly once.
	addedPairs := make(map[string]struct{})

	skip := func(row parsedRow, reason string) {
		result.Skipped++
		result.Errors = append(result.Errors, RowError{
			Row: row.number, Email: row.email.String(), UID: row.uid.String(), Reason: reason,
		})
	}

	for _, row := range parsed {
		if ctx.Err() != nil {
			return
		}

		candidate, ok := candidatesByEmail[row.email]
		if !ok {
			skip(row, ReasonCandidateNotFound)
			continue
		}

		content, ok := contentByUID[row.uid]
		if !ok {
			skip(row, ReasonContentNotFound)
			continue
		}

		ev, ok := eventsByContent[content.ID]
		if !ok {
			skip(row, ReasonEventNotFound)
			continue
		}

		pair := ev.ID.String() + "/" + candidate.ID.String()
		if _, done := addedPairs[pair]; done {
			skip(row, ReasonAlreadyRegistered)
			continue
		}
		if _, exists := ev.FindAttendance(candidate.ID); exists {
			skip(row, ReasonAlreadyRegistered)
			continue
		}

		_, err := h.ledger.AddAttendance(ctx, AddAttendanceCommand{
			EventID:       ev.ID,
			CandidateID:   candidate.ID,
			AddedByID:     cmd.AddedByID,
			AddedByRole:   cmd.AddedByRole,
			CorrelationID: cmd.CorrelationID,
		})
		if err != nil {
			// A row-level failure never aborts the batch: record the
			// reason and continue with the next row.
			if errors.Is(err, shared.ErrDuplicateAttendance) {
				skip(row, ReasonAlreadyRegistered)
			} else {
				skip(row, err.Error())
			}
			continue
		}

		addedPairs[pair] = struct{}{}
		result.Added++
	}
}

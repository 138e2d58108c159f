package command

// In-memory fakes backing the command tests. The repository fake mirrors the
// contract of the postgres implementation: Mutate applies fn to a copy and
// commits only on success, so an aborted mutation observably leaves the
// stored event unchanged.

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/catalog"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/event"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// Event repository fake
// ─────────────────────────────────────────────────────────────────────────────

type memEventRepo struct {
	mu     sync.Mutex
	events map[shared.EventID]*event.Event
	writes int
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{events: make(map[shared.EventID]*event.Event)}
}

func cloneEvent(ev *event.Event) *event.Event {
	clone := *ev
	clone.Attendance = make([]event.AttendanceRecord, len(ev.Attendance))
	copy(clone.Attendance, ev.Attendance)
	return &clone
}

func (r *memEventRepo) Create(_ context.Context, ev *event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.events[ev.ID]; exists {
		return shared.ErrAlreadyExists
	}
	r.events[ev.ID] = cloneEvent(ev)
	return nil
}

func (r *memEventRepo) GetByID(_ context.Context, id shared.EventID) (*event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[id]
	if !ok {
		return nil, shared.ErrEventNotFound
	}
	return cloneEvent(ev), nil
}

func (r *memEventRepo) Update(_ context.Context, ev *event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[ev.ID]; !ok {
		return shared.ErrEventNotFound
	}
	r.events[ev.ID] = cloneEvent(ev)
	return nil
}

func (r *memEventRepo) Mutate(_ context.Context, id shared.EventID, fn func(ev *event.Event) error) (*event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[id]
	if !ok {
		return nil, shared.ErrEventNotFound
	}
	working := cloneEvent(stored)
	if err := fn(working); err != nil {
		if errors.Is(err, event.ErrUnchanged) {
			return working, nil
		}
		return nil, err
	}
	r.events[id] = working
	r.writes++
	return cloneEvent(working), nil
}

func (r *memEventRepo) FindByContentID(_ context.Context, contentID shared.ContentID) (*event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Content.ID == contentID {
			return cloneEvent(ev), nil
		}
	}
	return nil, shared.ErrEventNotFound
}

func (r *memEventRepo) FindByContentIDs(_ context.Context, contentIDs []shared.ContentID) (map[shared.ContentID]*event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[shared.ContentID]*event.Event)
	for _, id := range contentIDs {
		for _, ev := range r.events {
			if ev.Content.ID == id {
				out[id] = cloneEvent(ev)
			}
		}
	}
	return out, nil
}

func (r *memEventRepo) SumPointsByCandidate(_ context.Context, candidateID shared.CandidateID) (shared.Points, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total shared.Points
	for _, ev := range r.events {
		for _, rec := range ev.Attendance {
			if rec.CandidateID == candidateID && rec.CountsForPoints() {
				total = total.Add(rec.Points)
			}
		}
	}
	return total, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Catalog lookup fakes
// ─────────────────────────────────────────────────────────────────────────────

type memContentLookup struct {
	contents []*catalog.Content
	failAll  error // non-nil makes every call fail
}

func (f *memContentLookup) ResolveByID(_ context.Context, kind catalog.ContentKind, id shared.ContentID) (*catalog.Content, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	for _, c := range f.contents {
		if c.Kind == kind && c.ID == id {
			return c, nil
		}
	}
	return nil, shared.ErrContentNotFound
}

func (f *memContentLookup) ResolveByExternalUID(_ context.Context, kind catalog.ContentKind, uid shared.ExternalUID) (*catalog.Content, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	for _, c := range f.contents {
		if c.Kind == kind && c.ExternalUID == uid {
			return c, nil
		}
	}
	return nil, shared.ErrContentNotFound
}

func (f *memContentLookup) BatchResolveByExternalUIDs(_ context.Context, kind catalog.ContentKind, uids []shared.ExternalUID) (map[shared.ExternalUID]*catalog.Content, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	out := make(map[shared.ExternalUID]*catalog.Content)
	for _, uid := range uids {
		for _, c := range f.contents {
			if c.Kind == kind && c.ExternalUID == uid {
				out[uid] = c
			}
		}
	}
	return out, nil
}

type memPersonLookup struct {
	candidates  []*catalog.Candidate
	supervisors []*catalog.Supervisor
	admins      []shared.PersonID
}

func (f *memPersonLookup) ResolveCandidateByID(_ context.Context, id shared.CandidateID) (*catalog.Candidate, error) {
	for _, c := range f.candidates {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, shared.ErrCandidateNotFound
}

func (f *memPersonLookup) ResolveCandidateByEmail(_ context.Context, email shared.Email) (*catalog.Candidate, error) {
	for _, c := range f.candidates {
		if c.Email == email {
			return c, nil
		}
	}
	return nil, shared.ErrCandidateNotFound
}

func (f *memPersonLookup) BatchResolveCandidatesByEmails(_ context.Context, emails []shared.Email) (map[shared.Email]*catalog.Candidate, error) {
	out := make(map[shared.Email]*catalog.Candidate)
	for _, email := range emails {
		for _, c := range f.candidates {
			if c.Email == email {
				out[email] = c
			}
		}
	}
	return out, nil
}

func (f *memPersonLookup) ResolveSupervisorByID(_ context.Context, id shared.PersonID) (*catalog.Supervisor, error) {
	for _, s := range f.supervisors {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, shared.ErrSupervisorNotFound
}

func (f *memPersonLookup) PersonExists(_ context.Context, id shared.PersonID) (bool, error) {
	for _, s := range f.supervisors {
		if s.ID == id {
			return true, nil
		}
	}
	for _, c := range f.candidates {
		if shared.PersonID(c.ID) == id {
			return true, nil
		}
	}
	for _, a := range f.admins {
		if a == id {
			return true, nil
		}
	}
	return false, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Publisher, cache, fetcher fakes
// ─────────────────────────────────────────────────────────────────────────────

type memPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *memPublisher) Publish(ev shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *memPublisher) byType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, ev := range p.events {
		if ev.EventType() == t {
			out = append(out, ev)
		}
	}
	return out
}

type memPointsCache struct {
	mu          sync.Mutex
	values      map[shared.CandidateID]shared.Points
	invalidated []shared.CandidateID
}

func newMemPointsCache() *memPointsCache {
	return &memPointsCache{values: make(map[shared.CandidateID]shared.Points)}
}

func (c *memPointsCache) Get(_ context.Context, id shared.CandidateID) (shared.Points, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.values[id]; ok {
		return v, nil
	}
	return 0, shared.ErrNotFound
}

func (c *memPointsCache) Set(_ context.Context, id shared.CandidateID, total shared.Points, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[id] = total
	return nil
}

func (c *memPointsCache) Invalidate(_ context.Context, id shared.CandidateID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type memFeedFetcher struct {
	feeds map[string]*TabularFeed
	err   error
}

func (f *memFeedFetcher) Fetch(_ context.Context, source string) (*TabularFeed, error) {
	if f.err != nil {
		return nil, f.err
	}
	feed, ok := f.feeds[source]
	if !ok {
		return nil, shared.ErrFeedUnavailable
	}
	return feed, nil
}

package validate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/catalog"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/event"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory lookup fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeContentLookup struct {
	contents map[shared.ContentID]*catalog.Content
}

func (f *fakeContentLookup) ResolveByID(_ context.Context, kind catalog.ContentKind, id shared.ContentID) (*catalog.Content, error) {
	if c, ok := f.contents[id]; ok && c.Kind == kind {
		return c, nil
	}
	return nil, shared.ErrContentNotFound
}

func (f *fakeContentLookup) ResolveByExternalUID(_ context.Context, kind catalog.ContentKind, uid shared.ExternalUID) (*catalog.Content, error) {
	for _, c := range f.contents {
		if c.Kind == kind && c.ExternalUID == uid {
			return c, nil
		}
	}
	return nil, shared.ErrContentNotFound
}

func (f *fakeContentLookup) BatchResolveByExternalUIDs(_ context.Context, kind catalog.ContentKind, uids []shared.ExternalUID) (map[shared.ExternalUID]*catalog.Content, error) {
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

type fakePersonLookup struct {
	candidates  map[shared.CandidateID]*catalog.Candidate
	supervisors map[shared.PersonID]*catalog.Supervisor
	admins      map[shared.PersonID]bool
}

func (f *fakePersonLookup) ResolveCandidateByID(_ context.Context, id shared.CandidateID) (*catalog.Candidate, error) {
	if c, ok := f.candidates[id]; ok {
		return c, nil
	}
	return nil, shared.ErrCandidateNotFound
}

func (f *fakePersonLookup) ResolveCandidateByEmail(_ context.Context, email shared.Email) (*catalog.Candidate, error) {
	for _, c := range f.candidates {
		if c.Email == email {
			return c, nil
		}
	}
	return nil, shared.ErrCandidateNotFound
}

func (f *fakePersonLookup) BatchResolveCandidatesByEmails(_ context.Context, emails []shared.Email) (map[shared.Email]*catalog.Candidate, error) {
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

func (f *fakePersonLookup) ResolveSupervisorByID(_ context.Context, id shared.PersonID) (*catalog.Supervisor, error) {
	if s, ok := f.supervisors[id]; ok {
		return s, nil
	}
	return nil, shared.ErrSupervisorNotFound
}

func (f *fakePersonLookup) PersonExists(_ context.Context, id shared.PersonID) (bool, error) {
	if _, ok := f.supervisors[id]; ok {
		return true, nil
	}
	if _, ok := f.candidates[shared.CandidateID(id)]; ok {
		return true, nil
	}
	return f.admins[id], nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

const (
	lectureID    = shared.ContentID("11111111-0000-0000-0000-000000000001")
	journalID    = shared.ContentID("11111111-0000-0000-0000-000000000002")
	supervisorID = shared.PersonID("22222222-0000-0000-0000-000000000001")
	candidateID  = shared.CandidateID("33333333-0000-0000-0000-000000000001")
	adminID      = shared.PersonID("44444444-0000-0000-0000-000000000001")
	eventID      = shared.EventID("55555555-0000-0000-0000-000000000001")
)

func newFixture() (*Validator, *fakeContentLookup, *fakePersonLookup) {
	contents := &fakeContentLookup{contents: map[shared.ContentID]*catalog.Content{
		lectureID: {ID: lectureID, Kind: catalog.ContentLecture, ExternalUID: "uid-lec-1", Title: "Airway Management"},
		journalID: {ID: journalID, Kind: catalog.ContentJournal, ExternalUID: "uid-jrn-1", Title: "NEJM Review"},
	}}
	persons := &fakePersonLookup{
		candidates: map[shared.CandidateID]*catalog.Candidate{
			candidateID: {ID: candidateID, Email: "a@x.com", FullName: "A Trainee", Active: true},
		},
		supervisors: map[shared.PersonID]*catalog.Supervisor{
			supervisorID: {ID: supervisorID, Email: "sup@x.com", FullName: "Dr. Supervisor"},
		},
		admins: map[shared.PersonID]bool{adminID: true},
	}
	return New(contents, persons), contents, persons
}

func validLecture(t *testing.T) *event.Event {
	t.Helper()
	ev, err := event.New(eventID, event.TypeLecture, event.LectureRef(lectureID),
		time.Now().Add(time.Hour), "dept", supervisorID)
	require.NoError(t, err)
	return ev
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests, one per rule
// ─────────────────────────────────────────────────────────────────────────────

func TestValidate_ValidLecture(t *testing.T) {
	v, _, _ := newFixture()
	assert.NoError(t, v.Validate(context.Background(), validLecture(t)))
}

func TestValidate_MissingReference(t *testing.T) {
	v, _, _ := newFixture()
	ev := validLecture(t)
	ev.Content = event.ContentRef{}

	err := v.Validate(context.Background(), ev)
	assert.ErrorIs(t, err, shared.ErrMissingReference)
}

func TestValidate_TypeMismatch(t *testing.T) {
	v, _, _ := newFixture()
	ev := validLecture(t)
	ev.Content = event.JournalRef(journalID)

	err := v.Validate(context.Background(), ev)
	assert.ErrorIs(t, err, shared.ErrTypeMismatch)
}

func TestValidate_ReferenceNotFound(t *testing.T) {
	v, _, _ := newFixture()
	ev := validLecture(t)
	ev.Content = event.LectureRef("11111111-0000-0000-0000-00000000dead")

	err := v.Validate(context.Background(), ev)
	assert.ErrorIs(t, err, shared.ErrReferenceNotFound)
}

func TestValidate_PresenterWrongKind(t *testing.T) {
	v, _, _ := newFixture()
	ev := validLecture(t)
	// A candidate cannot present a lecture.
	ev.PresenterID = shared.PersonID(candidateID)

	err := v.Validate(context.Background(), ev)
	assert.ErrorIs(t, err, shared.ErrInvalidPresenter)
}

func TestValidate_JournalPresentedByCandidate(t *testing.T) {
	v, _, _ := newFixture()
	ev, err := event.New(eventID, event.TypeJournal, event.JournalRef(journalID),
		time.Now().Add(time.Hour), "online", shared.PersonID(candidateID))
	require.NoError(t, err)

	assert.NoError(t, v.Validate(context.Background(), ev))

	// The supervisor is the wrong kind for a journal club.
	ev.PresenterID = supervisorID
	assert.ErrorIs(t, v.Validate(context.Background(), ev), shared.ErrInvalidPresenter)
}

func TestValidate_InvalidLocation(t *testing.T) {
	v, _, _ := newFixture()
	ev := validLecture(t)
	ev.Location = "cafeteria"

	err := v.Validate(context.Background(), ev)
	assert.ErrorIs(t, err, shared.ErrInvalidLocation)
}

func TestValidate_LocationCaseInsensitive(t *testing.T) {
	v, _, _ := newFixture()
	ev := validLecture(t)
	ev.Location = " ONLINE "

	assert.NoError(t, v.Validate(context.Background(), ev))
}

func TestValidate_AttendanceShape(t *testing.T) {
	v, _, _ := newFixture()

	t.Run("valid record", func(t *testing.T) {
		ev := validLecture(t)
		rec, err := event.NewAttendanceRecord(candidateID, adminID, event.RoleInstituteAdmin, time.Now())
		require.NoError(t, err)
		require.NoError(t, ev.AddAttendance(rec))
		ev.Status = event.StatusHeld

		assert.NoError(t, v.Validate(context.Background(), ev))
	})

	t.Run("unknown candidate", func(t *testing.T) {
		ev := validLecture(t)
		rec, err := event.NewAttendanceRecord("33333333-0000-0000-0000-00000000dead", adminID, event.RoleCandidate, time.Now())
		require.NoError(t, err)
		require.NoError(t, ev.AddAttendance(rec))

		assert.ErrorIs(t, v.Validate(context.Background(), ev), shared.ErrInvalidAttendanceRecord)
	})

	t.Run("unknown added-by person", func(t *testing.T) {
		ev := validLecture(t)
		rec, err := event.NewAttendanceRecord(candidateID, "44444444-0000-0000-0000-00000000dead", event.RoleSupervisor, time.Now())
		require.NoError(t, err)
		require.NoError(t, ev.AddAttendance(rec))

		assert.ErrorIs(t, v.Validate(context.Background(), ev), shared.ErrInvalidAttendanceRecord)
	})

	t.Run("bad role", func(t *testing.T) {
		ev := validLecture(t)
		rec, err := event.NewAttendanceRecord(candidateID, adminID, event.RoleCandidate, time.Now())
		require.NoError(t, err)
		rec.AddedByRole = event.Role("visitor")
		require.NoError(t, ev.AddAttendance(rec))

		assert.ErrorIs(t, v.Validate(context.Background(), ev), shared.ErrInvalidAttendanceRecord)
	})
}

func TestValidate_IsPure(t *testing.T) {
	v, _, _ := newFixture()
	ev := validLecture(t)
	ev.Location = "nowhere"
	before := *ev

	_ = v.Validate(context.Background(), ev)

	assert.Equal(t, before.Status, ev.Status)
	assert.Equal(t, before.Location, ev.Location)
	assert.Equal(t, before.Content, ev.Content)
}

func TestRuleViolated(t *testing.T) {
	v, _, _ := newFixture()
	ev := validLecture(t)
	ev.Location = "cafeteria"

	err := v.Validate(context.Background(), ev)
	kind, ok := RuleViolated(err)
	require.True(t, ok)
	assert.Equal(t, shared.ErrInvalidLocation, kind)

	_, ok = RuleViolated(shared.ErrTimeout)
	assert.False(t, ok)
}

package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-events-hub/internal/application/validate"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/catalog"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/event"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fixture
// ─────────────────────────────────────────────────────────────────────────────

type handlerFixture struct {
	repo    *memEventRepo
	pub     *memPublisher
	create  *CreateEventHandler
	update  *UpdateEventHandler
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	content := &memContentLookup{
		contents: []*catalog.Content{
			{ID: fxLectureID, Kind: catalog.ContentLecture, ExternalUID: "uid-456", Title: "Intro Lecture"},
			{ID: fxJournalID, Kind: catalog.ContentJournal, ExternalUID: "uid-123", Title: "Morning Journal Club"},
		},
	}
	persons := &memPersonLookup{
		candidates: []*catalog.Candidate{
			{ID: fxCandidateID, Email: "a@x.com", FullName: "First Trainee", Active: true},
		},
		supervisors: []*catalog.Supervisor{
			{ID: fxSupervisor, Email: "sup@x.com", FullName: "Dr. Supervisor"},
		},
		admins: []shared.PersonID{fxAdminID},
	}

	f := &handlerFixture{
		repo: newMemEventRepo(),
		pub:  &memPublisher{},
	}
	validator := validate.New(content, persons)
	f.create = NewCreateEventHandler(f.repo, validator, f.pub)
	f.update = NewUpdateEventHandler(f.repo, validator, f.pub)
	return f
}

func lectureCmd(scheduledAt time.Time) CreateEventCommand {
	return CreateEventCommand{
		Type:        event.TypeLecture,
		ContentID:   fxLectureID,
		ScheduledAt: scheduledAt,
		Location:    "dept",
		PresenterID: fxSupervisor,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Create
// ─────────────────────────────────────────────────────────────────────────────

func TestCreateEvent_DefaultsToBooked(t *testing.T) {
	f := newHandlerFixture(t)

	ev, err := f.create.Handle(context.Background(), lectureCmd(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	assert.Equal(t, event.StatusBooked, ev.Status)
	assert.Equal(t, catalog.ContentLecture, ev.Content.Kind)
	assert.NotEmpty(t, ev.ID)

	stored, err := f.repo.GetByID(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, stored.ID)
	assert.Len(t, f.pub.byType(shared.EventCreated), 1)
}

func TestCreateEvent_SeededAttendanceDerivesHeld(t *testing.T) {
	f := newHandlerFixture(t)

	cmd := lectureCmd(time.Now().Add(time.Hour))
	cmd.Attendance = []AttendanceInput{
		{CandidateID: fxCandidateID, AddedByID: fxAdminID, AddedByRole: event.RoleInstituteAdmin},
	}

	ev, err := f.create.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, event.StatusHeld, ev.Status)
	require.Len(t, ev.Attendance, 1)
	assert.Equal(t, shared.DefaultPoints, ev.Attendance[0].Points)
}

func TestCreateEvent_ExplicitStatusChecked(t *testing.T) {
	f := newHandlerFixture(t)

	held := event.StatusHeld
	cmd := lectureCmd(time.Now().Add(time.Hour))
	cmd.Status = &held

	// Held without attendance violates the transition rules.
	_, err := f.create.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, shared.ErrIllegalStatusForAttendance)

	canceled := event.StatusCanceled
	cmd.Status = &canceled
	ev, err := f.create.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, event.StatusCanceled, ev.Status)
}

func TestCreateEvent_ValidationFailures(t *testing.T) {
	f := newHandlerFixture(t)

	tests := []struct {
		name   string
		mutate func(*CreateEventCommand)
		want   error
	}{
		{"content of wrong kind", func(c *CreateEventCommand) { c.ContentID = fxJournalID }, shared.ErrReferenceNotFound},
		{"unknown content", func(c *CreateEventCommand) {
			c.ContentID = shared.ContentID("bbbbbbbb-0000-0000-0000-00000000dead")
		}, shared.ErrReferenceNotFound},
		{"candidate as lecture presenter", func(c *CreateEventCommand) {
			c.PresenterID = shared.PersonID(fxCandidateID)
		}, shared.ErrInvalidPresenter},
		{"bad location", func(c *CreateEventCommand) { c.Location = "rooftop" }, shared.ErrInvalidLocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := lectureCmd(time.Now().Add(time.Hour))
			tt.mutate(&cmd)

			_, err := f.create.Handle(context.Background(), cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update
// ─────────────────────────────────────────────────────────────────────────────

func TestUpdateEvent_Reschedule(t *testing.T) {
	f := newHandlerFixture(t)
	ev, err := f.create.Handle(context.Background(), lectureCmd(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	newTime := time.Now().Add(48 * time.Hour)
	updated, err := f.update.Handle(context.Background(), UpdateEventCommand{
		EventID:     ev.ID,
		ScheduledAt: &newTime,
	})
	require.NoError(t, err)
	assert.True(t, updated.ScheduledAt.Equal(newTime))
	assert.Len(t, f.pub.byType(shared.EventUpdated), 1)
}

func TestUpdateEvent_HeldScheduleImmutable(t *testing.T) {
	f := newHandlerFixture(t)

	cmd := lectureCmd(time.Now().Add(time.Hour))
	cmd.Attendance = []AttendanceInput{
		{CandidateID: fxCandidateID, AddedByID: fxAdminID, AddedByRole: event.RoleInstituteAdmin},
	}
	ev, err := f.create.Handle(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, event.StatusHeld, ev.Status)

	newTime := time.Now().Add(48 * time.Hour)
	_, err = f.update.Handle(context.Background(), UpdateEventCommand{
		EventID:     ev.ID,
		ScheduledAt: &newTime,
	})
	assert.ErrorIs(t, err, shared.ErrEventAlreadyHeld)

	stored, _ := f.repo.GetByID(context.Background(), ev.ID)
	assert.True(t, stored.ScheduledAt.Equal(ev.ScheduledAt), "aborted update must not move the schedule")
}

func TestUpdateEvent_StatusChangePublished(t *testing.T) {
	f := newHandlerFixture(t)
	ev, err := f.create.Handle(context.Background(), lectureCmd(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	canceled := event.StatusCanceled
	updated, err := f.update.Handle(context.Background(), UpdateEventCommand{
		EventID: ev.ID,
		Status:  &canceled,
	})
	require.NoError(t, err)
	assert.Equal(t, event.StatusCanceled, updated.Status)

	changes := f.pub.byType(shared.EventStatusChanged)
	require.Len(t, changes, 1)
	payload := changes[0].Payload()
	assert.Equal(t, "booked", payload["old_status"])
	assert.Equal(t, "canceled", payload["new_status"])
	assert.Equal(t, false, payload["derived"])
}

func TestUpdateEvent_RetypeNeedsMatchingContent(t *testing.T) {
	f := newHandlerFixture(t)
	ev, err := f.create.Handle(context.Background(), lectureCmd(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	// Retyping to journal without swapping the content reference leaves a
	// lecture reference on a journal event.
	journal := event.TypeJournal
	_, err = f.update.Handle(context.Background(), UpdateEventCommand{
		EventID: ev.ID,
		Type:    &journal,
	})
	assert.ErrorIs(t, err, shared.ErrTypeMismatch)

	// Supplying both the type and a journal content succeeds, with the
	// presenter swapped to a candidate as journals require.
	presenter := shared.PersonID(fxCandidateID)
	location := "online"
	updated, err := f.update.Handle(context.Background(), UpdateEventCommand{
		EventID:     ev.ID,
		Type:        &journal,
		ContentID:   &fxJournalIDVar,
		PresenterID: &presenter,
		Location:    &location,
	})
	require.NoError(t, err)
	assert.Equal(t, event.TypeJournal, updated.Type)
	assert.Equal(t, catalog.ContentJournal, updated.Content.Kind)
}

// fxJournalIDVar exists because struct literals cannot take the address of a
// constant.
var fxJournalIDVar = fxJournalID

func TestUpdateEvent_NotFound(t *testing.T) {
	f := newHandlerFixture(t)

	newTime := time.Now()
	_, err := f.update.Handle(context.Background(), UpdateEventCommand{
		EventID:     fxEventID,
		ScheduledAt: &newTime,
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

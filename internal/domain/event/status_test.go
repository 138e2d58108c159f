package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

func flaggedRecord(t *testing.T, candidateID shared.CandidateID) AttendanceRecord {
	t.Helper()
	rec := newTestRecord(t, candidateID)
	rec.Flagged = true
	return rec
}

func TestCheckStatus_EmptyAttendance(t *testing.T) {
	var none []AttendanceRecord

	assert.NoError(t, CheckStatus(StatusBooked, none))
	assert.NoError(t, CheckStatus(StatusCanceled, none))
	assert.ErrorIs(t, CheckStatus(StatusHeld, none), shared.ErrIllegalStatusForAttendance)
}

func TestCheckStatus_UnflaggedAttendanceForcesHeld(t *testing.T) {
	attendance := []AttendanceRecord{newTestRecord(t, testCandidateID)}

	assert.NoError(t, CheckStatus(StatusHeld, attendance))
	assert.ErrorIs(t, CheckStatus(StatusBooked, attendance), shared.ErrIllegalStatusForAttendance)
	assert.ErrorIs(t, CheckStatus(StatusCanceled, attendance), shared.ErrIllegalStatusForAttendance)
}

func TestCheckStatus_AllFlaggedAllowsAnything(t *testing.T) {
	attendance := []AttendanceRecord{
		flaggedRecord(t, testCandidateID),
		flaggedRecord(t, shared.CandidateID("55555555-5555-5555-5555-555555555555")),
	}

	assert.NoError(t, CheckStatus(StatusBooked, attendance))
	assert.NoError(t, CheckStatus(StatusHeld, attendance))
	assert.NoError(t, CheckStatus(StatusCanceled, attendance))
}

func TestCheckStatus_MixedFlagsStillForceHeld(t *testing.T) {
	attendance := []AttendanceRecord{
		flaggedRecord(t, testCandidateID),
		newTestRecord(t, shared.CandidateID("55555555-5555-5555-5555-555555555555")),
	}

	assert.NoError(t, CheckStatus(StatusHeld, attendance))
	assert.ErrorIs(t, CheckStatus(StatusCanceled, attendance), shared.ErrIllegalStatusForAttendance)
}

func TestCheckStatus_UnknownStatus(t *testing.T) {
	err := CheckStatus(Status("postponed"), nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestDeriveStatus(t *testing.T) {
	now := time.Now()
	record := newTestRecord(t, testCandidateID)

	tests := []struct {
		name        string
		current     Status
		attendance  []AttendanceRecord
		scheduledAt time.Time
		want        Status
	}{
		{
			name:        "non-empty list forces held",
			current:     StatusBooked,
			attendance:  []AttendanceRecord{record},
			scheduledAt: now.Add(time.Hour),
			want:        StatusHeld,
		},
		{
			name:        "all flagged still counts as non-empty",
			current:     StatusCanceled,
			attendance:  []AttendanceRecord{flaggedRecord(t, testCandidateID)},
			scheduledAt: now.Add(time.Hour),
			want:        StatusHeld,
		},
		{
			name:        "emptied list of past event cancels",
			current:     StatusHeld,
			attendance:  nil,
			scheduledAt: now.Add(-time.Hour),
			want:        StatusCanceled,
		},
		{
			name:        "emptied list of future event keeps status",
			current:     StatusBooked,
			attendance:  nil,
			scheduledAt: now.Add(time.Hour),
			want:        StatusBooked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(tt.current, tt.attendance, tt.scheduledAt, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Scenario: a booked lecture gains one unflagged record, flips to held, and
// can only leave held once the record is flagged.
func TestStatusLifecycle_AttendanceDriven(t *testing.T) {
	ev := newTestEvent(t)
	now := time.Now()

	// Empty list: held cannot be requested.
	err := ev.RequestStatus(StatusHeld)
	assert.ErrorIs(t, err, shared.ErrIllegalStatusForAttendance)

	// One unflagged record: derivation forces held.
	require.NoError(t, ev.AddAttendance(newTestRecord(t, testCandidateID)))
	old, changed := ev.ApplyDerivedStatus(now)
	assert.Equal(t, StatusBooked, old)
	assert.True(t, changed)
	assert.Equal(t, StatusHeld, ev.Status)

	// Booked can no longer be requested.
	err = ev.RequestStatus(StatusBooked)
	assert.ErrorIs(t, err, shared.ErrIllegalStatusForAttendance)

	// Flagging the only record puts the list under dispute; cancel succeeds.
	_, _, err = ev.FlagAttendance(testCandidateID)
	require.NoError(t, err)
	require.NoError(t, ev.RequestStatus(StatusCanceled))
	assert.Equal(t, StatusCanceled, ev.Status)
}

func TestApplyDerivedStatus_NoChange(t *testing.T) {
	ev := newTestEvent(t)

	// Future event, empty list: nothing to derive.
	old, changed := ev.ApplyDerivedStatus(time.Now())
	assert.Equal(t, StatusBooked, old)
	assert.False(t, changed)
	assert.Equal(t, StatusBooked, ev.Status)
}

// Invariant from the design: held if and only if at least one unflagged
// record exists, with the all-flagged list as the one widening exception.
func TestHeldInvariant(t *testing.T) {
	unflagged := []AttendanceRecord{newTestRecord(t, testCandidateID)}
	assert.NoError(t, CheckStatus(StatusHeld, unflagged))

	assert.Error(t, CheckStatus(StatusHeld, nil))

	allFlagged := []AttendanceRecord{flaggedRecord(t, testCandidateID)}
	assert.NoError(t, CheckStatus(StatusHeld, allFlagged))
}

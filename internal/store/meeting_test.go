package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadmdabit/MeetingSystem-sub001/types"
)

func newMeetingMock(t *testing.T) (*MeetingRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMeetingRepository(db), mock
}

const meetingSelect = `SELECT id, name, description, starts_at, ends_at, organizer_id, is_canceled, canceled_at, created_at FROM meetings WHERE id = $1`

func meetingRow(id int64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "name", "description", "starts_at", "ends_at",
		"organizer_id", "is_canceled", "canceled_at", "created_at",
	}).AddRow(id, "Planning", "Q2 planning", now.Add(time.Hour), now.Add(2*time.Hour), int64(1), false, nil, now)
}

func TestMeetingGet(t *testing.T) {
	repo, mock := newMeetingMock(t)

	mock.ExpectQuery(meetingSelect).WithArgs(int64(5)).WillReturnRows(meetingRow(5))

	meeting, err := repo.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), meeting.ID)
	assert.False(t, meeting.IsCanceled)
	assert.Nil(t, meeting.CanceledAt)
}

func TestMeetingGetNotFound(t *testing.T) {
	repo, mock := newMeetingMock(t)

	mock.ExpectQuery(meetingSelect).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMeetingCreate(t *testing.T) {
	repo, mock := newMeetingMock(t)

	const insertMeeting = `INSERT INTO meetings (name, description, starts_at, ends_at, organizer_id, is_canceled, created_at) VALUES ($1, $2, $3, $4, $5, FALSE, $6) RETURNING id`
	const insertParticipant = `INSERT INTO meeting_participants (meeting_id, user_id, role_label, joined_at) VALUES ($1, $2, $3, $4)`

	meeting := types.Meeting{
		Name:        "Planning",
		Description: "Q2 planning",
		StartsAt:    time.Now().UTC().Add(time.Hour),
		EndsAt:      time.Now().UTC().Add(2 * time.Hour),
		OrganizerID: 1,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(insertMeeting).
		WithArgs(meeting.Name, meeting.Description, meeting.StartsAt, meeting.EndsAt, int64(1), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectExec(insertParticipant).
		WithArgs(int64(10), int64(1), types.ParticipantLabelOrganizer, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertParticipant).
		WithArgs(int64(10), int64(2), types.ParticipantLabelParticipant, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// The organizer id in the participant list must not produce a second row.
	created, err := repo.Create(context.Background(), meeting, []int64{2, 1})
	require.NoError(t, err)
	assert.Equal(t, int64(10), created.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingCreateRollsBackOnParticipantFailure(t *testing.T) {
	repo, mock := newMeetingMock(t)

	const insertMeeting = `INSERT INTO meetings (name, description, starts_at, ends_at, organizer_id, is_canceled, created_at) VALUES ($1, $2, $3, $4, $5, FALSE, $6) RETURNING id`
	const insertParticipant = `INSERT INTO meeting_participants (meeting_id, user_id, role_label, joined_at) VALUES ($1, $2, $3, $4)`

	mock.ExpectBegin()
	mock.ExpectQuery(insertMeeting).
		WithArgs("Planning", "Q2 planning", sqlmock.AnyArg(), sqlmock.AnyArg(), int64(1), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectExec(insertParticipant).
		WithArgs(int64(10), int64(1), types.ParticipantLabelOrganizer, sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "40P01"}) // deadlock
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), types.Meeting{
		Name: "Planning", Description: "Q2 planning", OrganizerID: 1,
	}, nil)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingCancel(t *testing.T) {
	repo, mock := newMeetingMock(t)

	const cancel = `UPDATE meetings SET is_canceled = TRUE, canceled_at = $2 WHERE id = $1 AND is_canceled = FALSE`
	at := time.Now().UTC()

	mock.ExpectExec(cancel).WithArgs(int64(5), at).WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.Cancel(context.Background(), 5, at))

	// Already canceled (or deleted): the conditional update matches nothing.
	mock.ExpectExec(cancel).WithArgs(int64(5), at).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Cancel(context.Background(), 5, at), ErrNotFound)
}

func TestMeetingDelete(t *testing.T) {
	repo, mock := newMeetingMock(t)

	const del = `DELETE FROM meetings WHERE id = $1`

	mock.ExpectExec(del).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.Delete(context.Background(), 5))

	mock.ExpectExec(del).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), 5), ErrNotFound)
}

func TestMeetingAddParticipant(t *testing.T) {
	repo, mock := newMeetingMock(t)

	const lock = `SELECT id FROM meetings WHERE id = $1 FOR UPDATE`
	const insert = `INSERT INTO meeting_participants (meeting_id, user_id, role_label, joined_at) VALUES ($1, $2, $3, $4)`

	p := types.MeetingParticipant{
		MeetingID: 5,
		UserID:    2,
		RoleLabel: types.ParticipantLabelParticipant,
		JoinedAt:  time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(lock).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectExec(insert).
		WithArgs(int64(5), int64(2), p.RoleLabel, p.JoinedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.AddParticipant(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingAddParticipantDuplicate(t *testing.T) {
	repo, mock := newMeetingMock(t)

	const lock = `SELECT id FROM meetings WHERE id = $1 FOR UPDATE`
	const insert = `INSERT INTO meeting_participants (meeting_id, user_id, role_label, joined_at) VALUES ($1, $2, $3, $4)`

	mock.ExpectBegin()
	mock.ExpectQuery(lock).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectExec(insert).
		WithArgs(int64(5), int64(2), types.ParticipantLabelParticipant, sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.AddParticipant(context.Background(), types.MeetingParticipant{
		MeetingID: 5, UserID: 2, RoleLabel: types.ParticipantLabelParticipant,
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMeetingAddParticipantMeetingGone(t *testing.T) {
	repo, mock := newMeetingMock(t)

	const lock = `SELECT id FROM meetings WHERE id = $1 FOR UPDATE`

	mock.ExpectBegin()
	mock.ExpectQuery(lock).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.AddParticipant(context.Background(), types.MeetingParticipant{MeetingID: 5, UserID: 2})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMeetingRemoveParticipant(t *testing.T) {
	repo, mock := newMeetingMock(t)

	const del = `DELETE FROM meeting_participants WHERE meeting_id = $1 AND user_id = $2`

	mock.ExpectExec(del).WithArgs(int64(5), int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.RemoveParticipant(context.Background(), 5, 2))

	mock.ExpectExec(del).WithArgs(int64(5), int64(2)).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.RemoveParticipant(context.Background(), 5, 2), ErrNotFound)
}

func TestMeetingListParticipants(t *testing.T) {
	repo, mock := newMeetingMock(t)

	const query = `SELECT mp.meeting_id, mp.user_id, mp.role_label, mp.joined_at, u.email FROM meeting_participants mp JOIN users u ON u.id = mp.user_id WHERE mp.meeting_id = $1 ORDER BY mp.joined_at`
	now := time.Now().UTC()

	mock.ExpectQuery(query).WithArgs(int64(5)).WillReturnRows(
		sqlmock.NewRows([]string{"meeting_id", "user_id", "role_label", "joined_at", "email"}).
			AddRow(int64(5), int64(1), types.ParticipantLabelOrganizer, now, "org@example.com").
			AddRow(int64(5), int64(2), types.ParticipantLabelParticipant, now, "b@example.com"))

	participants, err := repo.ListParticipants(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.Equal(t, "org@example.com", participants[0].Email)
	assert.Equal(t, types.ParticipantLabelParticipant, participants[1].RoleLabel)
}

func TestMeetingIsParticipant(t *testing.T) {
	repo, mock := newMeetingMock(t)

	const query = `SELECT EXISTS ( SELECT 1 FROM meeting_participants WHERE meeting_id = $1 AND user_id = $2 )`

	mock.ExpectQuery(query).WithArgs(int64(5), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.IsParticipant(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

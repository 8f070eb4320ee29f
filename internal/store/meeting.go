package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ahmadmdabit/MeetingSystem-sub001/types"
)

// MeetingRepository handles persistence for meetings and their participant
// join rows. Mutations that touch the participant set run in a transaction
// holding a row lock on the meeting, so concurrent updates on the same
// meeting serialize at the storage layer.
type MeetingRepository struct {
	db *sql.DB
}

func NewMeetingRepository(db *sql.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

const meetingColumns = `id, name, description, starts_at, ends_at, organizer_id, is_canceled, canceled_at, created_at`

func (r *MeetingRepository) Get(ctx context.Context, id int64) (types.Meeting, error) {
	const query = `
		SELECT ` + meetingColumns + `
		FROM meetings
		WHERE id = $1`
	return scanMeeting(r.db.QueryRowContext(ctx, query, id))
}

// ListByUser returns meetings the user organizes or participates in.
func (r *MeetingRepository) ListByUser(ctx context.Context, userID int64) ([]types.Meeting, error) {
	const query = `
		SELECT DISTINCT m.id, m.name, m.description, m.starts_at, m.ends_at,
			m.organizer_id, m.is_canceled, m.canceled_at, m.created_at
		FROM meetings m
		LEFT JOIN meeting_participants mp ON mp.meeting_id = m.id
		WHERE m.organizer_id = $1 OR mp.user_id = $1
		ORDER BY m.starts_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []types.Meeting
	for rows.Next() {
		var m types.Meeting
		if err := rows.Scan(
			&m.ID, &m.Name, &m.Description, &m.StartsAt, &m.EndsAt,
			&m.OrganizerID, &m.IsCanceled, &m.CanceledAt, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// Create inserts the meeting, an organizer participant row, and a row per
// resolved participant, all in one transaction.
func (r *MeetingRepository) Create(ctx context.Context, meeting types.Meeting, participantIDs []int64) (types.Meeting, error) {
	meeting.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Meeting{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `
		INSERT INTO meetings (name, description, starts_at, ends_at, organizer_id, is_canceled, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		query,
		meeting.Name,
		meeting.Description,
		meeting.StartsAt,
		meeting.EndsAt,
		meeting.OrganizerID,
		meeting.CreatedAt,
	).Scan(&meeting.ID); err != nil {
		return types.Meeting{}, err
	}

	if err := insertParticipant(ctx, tx, meeting.ID, meeting.OrganizerID, types.ParticipantLabelOrganizer); err != nil {
		return types.Meeting{}, err
	}
	for _, userID := range participantIDs {
		if userID == meeting.OrganizerID {
			continue
		}
		if err := insertParticipant(ctx, tx, meeting.ID, userID, types.ParticipantLabelParticipant); err != nil {
			return types.Meeting{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Meeting{}, err
	}
	return meeting, nil
}

// Update replaces the meeting's mutable fields and its participant set. The
// organizer's row is never removed. Runs under a row lock on the meeting.
func (r *MeetingRepository) Update(ctx context.Context, meeting types.Meeting, participantIDs []int64) (types.Meeting, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Meeting{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := lockMeeting(ctx, tx, meeting.ID); err != nil {
		return types.Meeting{}, err
	}

	const query = `
		UPDATE meetings
		SET name = $1,
			description = $2,
			starts_at = $3,
			ends_at = $4
		WHERE id = $5`
	if _, err := tx.ExecContext(
		ctx,
		query,
		meeting.Name,
		meeting.Description,
		meeting.StartsAt,
		meeting.EndsAt,
		meeting.ID,
	); err != nil {
		return types.Meeting{}, err
	}

	keep := make(map[int64]bool, len(participantIDs)+1)
	keep[meeting.OrganizerID] = true
	for _, id := range participantIDs {
		keep[id] = true
	}

	current, err := listParticipantIDs(ctx, tx, meeting.ID)
	if err != nil {
		return types.Meeting{}, err
	}
	for _, userID := range current {
		if !keep[userID] {
			const del = `DELETE FROM meeting_participants WHERE meeting_id = $1 AND user_id = $2`
			if _, err := tx.ExecContext(ctx, del, meeting.ID, userID); err != nil {
				return types.Meeting{}, err
			}
		}
		delete(keep, userID)
	}
	for userID := range keep {
		label := types.ParticipantLabelParticipant
		if userID == meeting.OrganizerID {
			label = types.ParticipantLabelOrganizer
		}
		if err := insertParticipant(ctx, tx, meeting.ID, userID, label); err != nil {
			return types.Meeting{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Meeting{}, err
	}
	return meeting, nil
}

// Cancel marks the meeting canceled. Returns ErrNotFound if no active
// meeting row matched, so a raced double-cancel surfaces to the caller.
func (r *MeetingRepository) Cancel(ctx context.Context, id int64, at time.Time) error {
	const query = `
		UPDATE meetings
		SET is_canceled = TRUE, canceled_at = $2
		WHERE id = $1 AND is_canceled = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the meeting row; participant and file rows cascade.
func (r *MeetingRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM meetings WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListParticipants returns the meeting's participant rows joined with each
// participant's email for reminder dispatch.
func (r *MeetingRepository) ListParticipants(ctx context.Context, meetingID int64) ([]types.MeetingParticipant, error) {
	const query = `
		SELECT mp.meeting_id, mp.user_id, mp.role_label, mp.joined_at, u.email
		FROM meeting_participants mp
		JOIN users u ON u.id = mp.user_id
		WHERE mp.meeting_id = $1
		ORDER BY mp.joined_at`
	rows, err := r.db.QueryContext(ctx, query, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []types.MeetingParticipant
	for rows.Next() {
		var p types.MeetingParticipant
		if err := rows.Scan(&p.MeetingID, &p.UserID, &p.RoleLabel, &p.JoinedAt, &p.Email); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// IsParticipant reports whether the user has a participant row for the meeting.
func (r *MeetingRepository) IsParticipant(ctx context.Context, meetingID, userID int64) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM meeting_participants
			WHERE meeting_id = $1 AND user_id = $2
		)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, meetingID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// AddParticipant inserts a participant row. Returns ErrDuplicate when the
// composite key already exists.
func (r *MeetingRepository) AddParticipant(ctx context.Context, p types.MeetingParticipant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := lockMeeting(ctx, tx, p.MeetingID); err != nil {
		return err
	}
	if err := insertParticipantRow(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveParticipant deletes the participant row for (meetingID, userID).
func (r *MeetingRepository) RemoveParticipant(ctx context.Context, meetingID, userID int64) error {
	const query = `DELETE FROM meeting_participants WHERE meeting_id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, meetingID, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func lockMeeting(ctx context.Context, tx *sql.Tx, meetingID int64) error {
	const query = `SELECT id FROM meetings WHERE id = $1 FOR UPDATE`
	var id int64
	err := tx.QueryRowContext(ctx, query, meetingID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func listParticipantIDs(ctx context.Context, tx *sql.Tx, meetingID int64) ([]int64, error) {
	const query = `SELECT user_id FROM meeting_participants WHERE meeting_id = $1`
	rows, err := tx.QueryContext(ctx, query, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func insertParticipant(ctx context.Context, tx *sql.Tx, meetingID, userID int64, label string) error {
	return insertParticipantRow(ctx, tx, types.MeetingParticipant{
		MeetingID: meetingID,
		UserID:    userID,
		RoleLabel: label,
		JoinedAt:  time.Now().UTC(),
	})
}

func insertParticipantRow(ctx context.Context, tx *sql.Tx, p types.MeetingParticipant) error {
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}
	const query = `
		INSERT INTO meeting_participants (meeting_id, user_id, role_label, joined_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, query, p.MeetingID, p.UserID, p.RoleLabel, p.JoinedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func scanMeeting(row *sql.Row) (types.Meeting, error) {
	var m types.Meeting
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Description,
		&m.StartsAt,
		&m.EndsAt,
		&m.OrganizerID,
		&m.IsCanceled,
		&m.CanceledAt,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Meeting{}, ErrNotFound
		}
		return types.Meeting{}, err
	}
	return m, nil
}

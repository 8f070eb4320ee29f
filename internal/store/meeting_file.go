package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ahmadmdabit/MeetingSystem-sub001/types"
)

// FileRepository handles persistence for meeting attachment metadata.
type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

const fileColumns = `id, meeting_id, file_name, content_type, size_bytes, object_key, uploaded_by, uploaded_at`

func (r *FileRepository) GetByID(ctx context.Context, id int64) (types.MeetingFile, error) {
	const query = `
		SELECT ` + fileColumns + `
		FROM meeting_files
		WHERE id = $1`
	return scanFile(r.db.QueryRowContext(ctx, query, id))
}

// Insert records metadata for an object already written to the store.
func (r *FileRepository) Insert(ctx context.Context, file types.MeetingFile) (types.MeetingFile, error) {
	file.UploadedAt = time.Now().UTC()

	const query = `
		INSERT INTO meeting_files (meeting_id, file_name, content_type, size_bytes, object_key, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := r.db.QueryRowContext(
		ctx,
		query,
		file.MeetingID,
		file.FileName,
		file.ContentType,
		file.SizeBytes,
		file.ObjectKey,
		file.UploadedBy,
		file.UploadedAt,
	).Scan(&file.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return types.MeetingFile{}, ErrDuplicate
		}
		return types.MeetingFile{}, err
	}
	return file, nil
}

func (r *FileRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM meeting_files WHERE id = $1`
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

// ListByMeeting returns all attachment rows for a meeting, oldest first.
func (r *FileRepository) ListByMeeting(ctx context.Context, meetingID int64) ([]types.MeetingFile, error) {
	const query = `
		SELECT ` + fileColumns + `
		FROM meeting_files
		WHERE meeting_id = $1
		ORDER BY uploaded_at`
	rows, err := r.db.QueryContext(ctx, query, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []types.MeetingFile
	for rows.Next() {
		var f types.MeetingFile
		if err := rows.Scan(
			&f.ID, &f.MeetingID, &f.FileName, &f.ContentType,
			&f.SizeBytes, &f.ObjectKey, &f.UploadedBy, &f.UploadedAt,
		); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func scanFile(row *sql.Row) (types.MeetingFile, error) {
	var f types.MeetingFile
	err := row.Scan(
		&f.ID,
		&f.MeetingID,
		&f.FileName,
		&f.ContentType,
		&f.SizeBytes,
		&f.ObjectKey,
		&f.UploadedBy,
		&f.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.MeetingFile{}, ErrNotFound
		}
		return types.MeetingFile{}, err
	}
	return f, nil
}

package types

import "time"

// Meeting represents a scheduled meeting owned by its organizer.
// All timestamps are UTC.
type Meeting struct {
	// ID is the unique identifier of the meeting.
	ID int64 `json:"id" db:"id"`

	// Name is the human-readable title of the meeting.
	Name string `json:"name" db:"name"`

	// Description contains the meeting agenda or notes.
	Description string `json:"description" db:"description"`

	// StartsAt is the scheduled start time. Must be in the future at
	// creation and strictly before EndsAt.
	StartsAt time.Time `json:"starts_at" db:"starts_at"`

	// EndsAt is the scheduled end time. Always after StartsAt at the time
	// a create or update succeeds.
	EndsAt time.Time `json:"ends_at" db:"ends_at"`

	// OrganizerID references the user who created the meeting. Immutable
	// after creation; the organizer is the sole non-Admin actor allowed to
	// manage the meeting.
	OrganizerID int64 `json:"organizer_id" db:"organizer_id"`

	// IsCanceled marks the meeting as canceled. True iff CanceledAt is set.
	IsCanceled bool `json:"is_canceled" db:"is_canceled"`

	// CanceledAt is the cancellation time, nil while the meeting is active.
	CanceledAt *time.Time `json:"canceled_at,omitempty" db:"canceled_at"`

	// CreatedAt is the timestamp at which the meeting was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MeetingParticipant is a join row associating a user with a meeting.
// The composite key is (MeetingID, UserID).
type MeetingParticipant struct {
	// MeetingID identifies the owning meeting.
	MeetingID int64 `json:"meeting_id" db:"meeting_id"`

	// UserID identifies the participating user.
	UserID int64 `json:"user_id" db:"user_id"`

	// RoleLabel is an advisory free-text label (e.g., "Organizer",
	// "Participant"). It never determines authorization.
	RoleLabel string `json:"role_label" db:"role_label"`

	// JoinedAt is when the participant row was created.
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`

	// Email is the participant's email, populated by joined reads for
	// reminder dispatch. Not a column of the join table itself.
	Email string `json:"email,omitempty" db:"email"`
}

// Participant role labels. Advisory only.
const (
	ParticipantLabelOrganizer   = "Organizer"
	ParticipantLabelParticipant = "Participant"
)

// MeetingFile is the metadata row for a binary attachment stored in the
// object store under ObjectKey.
type MeetingFile struct {
	// ID is the unique identifier of the file row.
	ID int64 `json:"id" db:"id"`

	// MeetingID identifies the owning meeting. Rows cascade-delete with it.
	MeetingID int64 `json:"meeting_id" db:"meeting_id"`

	// FileName is the original, human-readable filename as uploaded.
	FileName string `json:"file_name" db:"file_name"`

	// ContentType is the MIME type reported at upload.
	ContentType string `json:"content_type" db:"content_type"`

	// SizeBytes is the stored size of the object in bytes.
	SizeBytes int64 `json:"size_bytes" db:"size_bytes"`

	// ObjectKey is the unique object-store key, derived as
	// {meetingID}/{randomID}-{filename} so colliding filenames never share
	// an object.
	ObjectKey string `json:"object_key" db:"object_key"`

	// UploadedBy references the user who uploaded the file.
	UploadedBy int64 `json:"uploaded_by" db:"uploaded_by"`

	// UploadedAt is the upload timestamp.
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
}

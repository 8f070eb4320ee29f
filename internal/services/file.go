package services

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/apperr"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/storage"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/store"
	"github.com/ahmadmdabit/MeetingSystem-sub001/types"
	"github.com/google/uuid"
)

// FileRepository defines persistence operations for attachment metadata.
type FileRepository interface {
	GetByID(ctx context.Context, id int64) (types.MeetingFile, error)
	Insert(ctx context.Context, file types.MeetingFile) (types.MeetingFile, error)
	Delete(ctx context.Context, id int64) error
	ListByMeeting(ctx context.Context, meetingID int64) ([]types.MeetingFile, error)
}

// MeetingReader is the subset of meeting persistence the file service needs.
type MeetingReader interface {
	Get(ctx context.Context, id int64) (types.Meeting, error)
	ListParticipants(ctx context.Context, meetingID int64) ([]types.MeetingParticipant, error)
}

// Upload carries one incoming file. Reader streams the payload; Size is the
// declared length in bytes.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// UploadOutcome reports the per-file result of a batch upload. Each file in
// a batch succeeds or fails independently.
type UploadOutcome struct {
	FileName string             `json:"file_name"`
	File     *types.MeetingFile `json:"file,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// FileService keeps object-store contents and metadata rows consistent and
// enforces upload/delete authorization.
type FileService struct {
	files    FileRepository
	meetings MeetingReader
	objects  storage.ObjectStorage

	maxBytes      int64
	gzipThreshold int64
	logger        *slog.Logger
}

func NewFileService(
	files FileRepository,
	meetings MeetingReader,
	objects storage.ObjectStorage,
	maxBytes int64,
	gzipThreshold int64,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		files:         files,
		meetings:      meetings,
		objects:       objects,
		maxBytes:      maxBytes,
		gzipThreshold: gzipThreshold,
		logger:        logger,
	}
}

// Upload attaches the batch to the meeting. Authorization is checked once
// for the whole batch; after that each file succeeds or fails on its own.
// The metadata row for a file is inserted only after its object write
// succeeds, so a failed write never leaves an orphaned row.
func (s *FileService) Upload(ctx context.Context, actor types.Actor, meetingID int64, uploads []Upload) ([]UploadOutcome, error) {
	meeting, participants, err := s.loadMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !CanUploadFile(actor, meeting, participantUserIDs(participants)) {
		return nil, apperr.Forbiddenf("only participants may upload files to meeting %d", meetingID)
	}

	outcomes := make([]UploadOutcome, 0, len(uploads))
	for _, upload := range uploads {
		file, err := s.storeOne(ctx, actor, meetingID, upload)
		outcome := UploadOutcome{FileName: upload.FileName}
		if err != nil {
			outcome.Error = err.Error()
		} else {
			outcome.File = &file
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// Remove deletes the attachment's metadata row, then its object. An object
// delete failing after the row is gone is logged as a consistency warning
// for the reconciliation sweep; the call still succeeds.
func (s *FileService) Remove(ctx context.Context, actor types.Actor, meetingID, fileID int64) error {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFoundf("file %d not found", fileID)
		}
		return apperr.Dependency(err)
	}
	if file.MeetingID != meetingID {
		return apperr.NotFoundf("file %d not found in meeting %d", fileID, meetingID)
	}

	meeting, err := s.meetings.Get(ctx, meetingID)
	if err != nil {
		return translateStoreErr(err)
	}
	if !CanDeleteFile(actor, meeting, file) {
		return apperr.Forbiddenf("not allowed to delete file %d", fileID)
	}

	if err := s.files.Delete(ctx, fileID); err != nil {
		return translateStoreErr(err)
	}
	if err := s.objects.Delete(ctx, file.ObjectKey); err != nil {
		s.logger.Warn("data-consistency: metadata row removed but object delete failed",
			"object_key", file.ObjectKey, "file_id", fileID, "error", err)
	}
	return nil
}

// List returns the meeting's attachment rows, restricted to participants.
func (s *FileService) List(ctx context.Context, actor types.Actor, meetingID int64) ([]types.MeetingFile, error) {
	meeting, participants, err := s.loadMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !CanViewMeeting(actor, meeting, participantUserIDs(participants)) {
		return nil, apperr.Forbiddenf("not a participant of meeting %d", meetingID)
	}
	files, err := s.files.ListByMeeting(ctx, meetingID)
	if err != nil {
		return nil, apperr.Dependency(err)
	}
	return files, nil
}

// ListObjectKeys implements AttachmentPurger.
func (s *FileService) ListObjectKeys(ctx context.Context, meetingID int64) ([]string, error) {
	files, err := s.files.ListByMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(files))
	for _, f := range files {
		keys = append(keys, f.ObjectKey)
	}
	return keys, nil
}

// DeleteObjects implements AttachmentPurger. Best effort; failures are
// logged for the reconciliation sweep.
func (s *FileService) DeleteObjects(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.objects.Delete(ctx, key); err != nil {
			s.logger.Warn("data-consistency: object delete failed after meeting delete",
				"object_key", key, "error", err)
		}
	}
}

func (s *FileService) storeOne(ctx context.Context, actor types.Actor, meetingID int64, upload Upload) (types.MeetingFile, error) {
	if s.maxBytes > 0 && upload.Size > s.maxBytes {
		return types.MeetingFile{}, apperr.Validationf("file %s exceeds the %d byte limit", upload.FileName, s.maxBytes)
	}

	key := objectKey(meetingID, upload.FileName)
	reader := upload.Reader
	size := upload.Size
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if s.gzipThreshold > 0 && upload.Size >= s.gzipThreshold {
		reader = gzipStream(reader)
		size = -1 // compressed length unknown, stream it
		key += ".gz"
		contentType = "application/gzip"
	}

	if err := s.objects.Put(ctx, key, reader, size, contentType); err != nil {
		return types.MeetingFile{}, apperr.Dependency(err)
	}

	file, err := s.files.Insert(ctx, types.MeetingFile{
		MeetingID:   meetingID,
		FileName:    upload.FileName,
		ContentType: upload.ContentType,
		SizeBytes:   upload.Size,
		ObjectKey:   key,
		UploadedBy:  actor.ID,
	})
	if err != nil {
		// No row may reference an object that failed, and no object should
		// outlive a failed insert.
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			s.logger.Warn("data-consistency: metadata insert failed and object cleanup failed",
				"object_key", key, "error", delErr)
		}
		return types.MeetingFile{}, translateStoreErr(err)
	}
	return file, nil
}

func (s *FileService) loadMeeting(ctx context.Context, meetingID int64) (types.Meeting, []types.MeetingParticipant, error) {
	meeting, err := s.meetings.Get(ctx, meetingID)
	if err != nil {
		return types.Meeting{}, nil, translateStoreErr(err)
	}
	participants, err := s.meetings.ListParticipants(ctx, meetingID)
	if err != nil {
		return types.Meeting{}, nil, apperr.Dependency(err)
	}
	return meeting, participants, nil
}

// objectKey derives a collision-resistant key scoped under the meeting id:
// {meetingID}/{randomID}-{filename}. Colliding filenames never share a key.
func objectKey(meetingID int64, fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, `\`, "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		base = "file"
	}
	return fmt.Sprintf("%d/%s-%s", meetingID, uuid.New().String(), base)
}

// gzipStream compresses r on the fly so large payloads are never buffered
// whole in memory.
func gzipStream(r io.Reader) io.Reader {
	pr, pw := io.Pipe()
	go func() {
		gw := gzip.NewWriter(pw)
		_, err := io.Copy(gw, r)
		if closeErr := gw.Close(); err == nil {
			err = closeErr
		}
		pw.CloseWithError(err)
	}()
	return pr
}

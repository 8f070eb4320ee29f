package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/apperr"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/scheduler"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/store"
	"github.com/ahmadmdabit/MeetingSystem-sub001/types"
)

// MeetingRepository defines persistence operations for meetings.
type MeetingRepository interface {
	Get(ctx context.Context, id int64) (types.Meeting, error)
	ListByUser(ctx context.Context, userID int64) ([]types.Meeting, error)
	Create(ctx context.Context, meeting types.Meeting, participantIDs []int64) (types.Meeting, error)
	Update(ctx context.Context, meeting types.Meeting, participantIDs []int64) (types.Meeting, error)
	Cancel(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
	ListParticipants(ctx context.Context, meetingID int64) ([]types.MeetingParticipant, error)
	IsParticipant(ctx context.Context, meetingID, userID int64) (bool, error)
	AddParticipant(ctx context.Context, p types.MeetingParticipant) error
	RemoveParticipant(ctx context.Context, meetingID, userID int64) error
}

// UserDirectory resolves participant emails to users.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (types.User, error)
}

// AttachmentPurger removes a meeting's object-store attachments when the
// meeting is deleted. Implemented by FileService.
type AttachmentPurger interface {
	ListObjectKeys(ctx context.Context, meetingID int64) ([]string, error)
	DeleteObjects(ctx context.Context, keys []string)
}

// MeetingInput carries the caller-supplied fields for create and update.
type MeetingInput struct {
	Name              string
	Description       string
	StartsAt          time.Time
	EndsAt            time.Time
	ParticipantEmails []string
}

// MeetingResult is the outcome of a create or update: the stored meeting,
// its resolved participant rows, and any emails that matched no user.
// Unresolved emails are reported rather than failing the whole operation.
type MeetingResult struct {
	Meeting          types.Meeting              `json:"meeting"`
	Participants     []types.MeetingParticipant `json:"participants"`
	UnresolvedEmails []string                   `json:"unresolved_emails,omitempty"`
}

// MeetingService enforces meeting lifecycle rules and keeps reminder
// scheduling in sync with meeting state transitions.
type MeetingService struct {
	meetings    MeetingRepository
	users       UserDirectory
	attachments AttachmentPurger
	sched       scheduler.Scheduler
	offset      time.Duration
	now         func() time.Time
	logger      *slog.Logger

	// reminders maps meeting id to the handle of its pending reminder, so
	// a reschedule cancels exactly the prior firing (cancel-old-then-
	// schedule-new) rather than whatever firing is newest for the meeting.
	mu        sync.Mutex
	reminders map[int64]scheduler.Handle
}

func NewMeetingService(
	meetings MeetingRepository,
	users UserDirectory,
	attachments AttachmentPurger,
	sched scheduler.Scheduler,
	reminderOffset time.Duration,
	logger *slog.Logger,
) *MeetingService {
	return &MeetingService{
		meetings:    meetings,
		users:       users,
		attachments: attachments,
		sched:       sched,
		offset:      reminderOffset,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger,
		reminders:   make(map[int64]scheduler.Handle),
	}
}

// Create validates the input, resolves participant emails, stores the
// meeting with the actor as organizer, and schedules its reminder.
func (s *MeetingService) Create(ctx context.Context, actor types.Actor, input MeetingInput) (MeetingResult, error) {
	if err := s.validateInput(input); err != nil {
		return MeetingResult{}, err
	}

	participantIDs, unresolved, err := s.resolveEmails(ctx, input.ParticipantEmails)
	if err != nil {
		return MeetingResult{}, err
	}

	meeting, err := s.meetings.Create(ctx, types.Meeting{
		Name:        input.Name,
		Description: input.Description,
		StartsAt:    input.StartsAt.UTC(),
		EndsAt:      input.EndsAt.UTC(),
		OrganizerID: actor.ID,
	}, participantIDs)
	if err != nil {
		return MeetingResult{}, apperr.Dependency(err)
	}

	s.scheduleReminder(meeting.ID, meeting.StartsAt)

	participants, err := s.meetings.ListParticipants(ctx, meeting.ID)
	if err != nil {
		return MeetingResult{}, apperr.Dependency(err)
	}

	return MeetingResult{
		Meeting:          meeting,
		Participants:     participants,
		UnresolvedEmails: unresolved,
	}, nil
}

// Get returns the meeting with its participants. Visible to participants,
// the organizer, and Admins.
func (s *MeetingService) Get(ctx context.Context, actor types.Actor, meetingID int64) (MeetingResult, error) {
	meeting, err := s.getMeeting(ctx, meetingID)
	if err != nil {
		return MeetingResult{}, err
	}
	participants, err := s.meetings.ListParticipants(ctx, meetingID)
	if err != nil {
		return MeetingResult{}, apperr.Dependency(err)
	}
	if !CanViewMeeting(actor, meeting, participantUserIDs(participants)) {
		return MeetingResult{}, apperr.Forbiddenf("not a participant of meeting %d", meetingID)
	}
	return MeetingResult{Meeting: meeting, Participants: participants}, nil
}

// List returns meetings the actor organizes or participates in.
func (s *MeetingService) List(ctx context.Context, actor types.Actor) ([]types.Meeting, error) {
	meetings, err := s.meetings.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Dependency(err)
	}
	return meetings, nil
}

// Update replaces the meeting's fields and participant set. The organizer's
// membership is never removed. A start-time change reschedules the reminder:
// the old firing is canceled first, then a new one is scheduled.
func (s *MeetingService) Update(ctx context.Context, actor types.Actor, meetingID int64, input MeetingInput) (MeetingResult, error) {
	meeting, err := s.getMeeting(ctx, meetingID)
	if err != nil {
		return MeetingResult{}, err
	}
	if !CanManageMeeting(actor, meeting) {
		return MeetingResult{}, apperr.Forbiddenf("only the organizer or an admin may update meeting %d", meetingID)
	}
	if meeting.IsCanceled {
		return MeetingResult{}, apperr.Conflictf("meeting %d is canceled", meetingID)
	}
	if err := s.validateInput(input); err != nil {
		return MeetingResult{}, err
	}

	participantIDs, unresolved, err := s.resolveEmails(ctx, input.ParticipantEmails)
	if err != nil {
		return MeetingResult{}, err
	}

	startChanged := !meeting.StartsAt.Equal(input.StartsAt.UTC())

	meeting.Name = input.Name
	meeting.Description = input.Description
	meeting.StartsAt = input.StartsAt.UTC()
	meeting.EndsAt = input.EndsAt.UTC()

	updated, err := s.meetings.Update(ctx, meeting, participantIDs)
	if err != nil {
		return MeetingResult{}, translateStoreErr(err)
	}

	if startChanged {
		s.scheduleReminder(updated.ID, updated.StartsAt)
	}

	participants, err := s.meetings.ListParticipants(ctx, meetingID)
	if err != nil {
		return MeetingResult{}, apperr.Dependency(err)
	}

	return MeetingResult{
		Meeting:          updated,
		Participants:     participants,
		UnresolvedEmails: unresolved,
	}, nil
}

// Cancel marks the meeting canceled and stops its pending reminder. Data is
// retained; cancellation is terminal.
func (s *MeetingService) Cancel(ctx context.Context, actor types.Actor, meetingID int64) (types.Meeting, error) {
	meeting, err := s.getMeeting(ctx, meetingID)
	if err != nil {
		return types.Meeting{}, err
	}
	if !CanManageMeeting(actor, meeting) {
		return types.Meeting{}, apperr.Forbiddenf("only the organizer or an admin may cancel meeting %d", meetingID)
	}
	if meeting.IsCanceled {
		return types.Meeting{}, apperr.Conflictf("meeting %d is already canceled", meetingID)
	}

	canceledAt := s.now()
	if err := s.meetings.Cancel(ctx, meetingID, canceledAt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The row was canceled (or deleted) between the read and the
			// conditional update.
			return types.Meeting{}, apperr.Conflictf("meeting %d is already canceled", meetingID)
		}
		return types.Meeting{}, apperr.Dependency(err)
	}

	s.cancelReminder(meetingID)

	meeting.IsCanceled = true
	meeting.CanceledAt = &canceledAt
	return meeting, nil
}

// Delete removes the meeting with its participant rows, file rows, and
// object-store attachments, and stops its pending reminder. Irreversible.
func (s *MeetingService) Delete(ctx context.Context, actor types.Actor, meetingID int64) error {
	meeting, err := s.getMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	if !CanManageMeeting(actor, meeting) {
		return apperr.Forbiddenf("only the organizer or an admin may delete meeting %d", meetingID)
	}

	// Snapshot the object keys before the row delete cascades the metadata.
	keys, err := s.attachments.ListObjectKeys(ctx, meetingID)
	if err != nil {
		return apperr.Dependency(err)
	}

	if err := s.meetings.Delete(ctx, meetingID); err != nil {
		return translateStoreErr(err)
	}

	s.cancelReminder(meetingID)
	s.attachments.DeleteObjects(ctx, keys)
	return nil
}

// AddParticipant resolves the email and adds the user to the meeting.
func (s *MeetingService) AddParticipant(ctx context.Context, actor types.Actor, meetingID int64, email string) (types.MeetingParticipant, error) {
	meeting, err := s.getMeeting(ctx, meetingID)
	if err != nil {
		return types.MeetingParticipant{}, err
	}
	if !CanManageMeeting(actor, meeting) {
		return types.MeetingParticipant{}, apperr.Forbiddenf("only the organizer or an admin may add participants")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.MeetingParticipant{}, apperr.NotFoundf("no user with email %s", email)
		}
		return types.MeetingParticipant{}, apperr.Dependency(err)
	}

	// Pre-check so a duplicate returns a clean Conflict; the composite key
	// still backstops a race.
	already, err := s.meetings.IsParticipant(ctx, meetingID, user.ID)
	if err != nil {
		return types.MeetingParticipant{}, apperr.Dependency(err)
	}
	if already {
		return types.MeetingParticipant{}, apperr.Conflictf("user %d is already a participant", user.ID)
	}

	participant := types.MeetingParticipant{
		MeetingID: meetingID,
		UserID:    user.ID,
		RoleLabel: types.ParticipantLabelParticipant,
		JoinedAt:  s.now(),
		Email:     user.Email,
	}
	if err := s.meetings.AddParticipant(ctx, participant); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.MeetingParticipant{}, apperr.Conflictf("user %d is already a participant", user.ID)
		}
		return types.MeetingParticipant{}, translateStoreErr(err)
	}
	return participant, nil
}

// RemoveParticipant drops the user's participant row. Allowed for the
// organizer, an Admin, or the participant removing themself. The organizer
// cannot be removed while still organizer.
func (s *MeetingService) RemoveParticipant(ctx context.Context, actor types.Actor, meetingID, userID int64) error {
	meeting, err := s.getMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	if !CanManageMeeting(actor, meeting) && actor.ID != userID {
		return apperr.Forbiddenf("not allowed to remove participant %d", userID)
	}
	if userID == meeting.OrganizerID {
		return apperr.Forbiddenf("the organizer cannot be removed from their own meeting")
	}

	if err := s.meetings.RemoveParticipant(ctx, meetingID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFoundf("user %d is not a participant of meeting %d", userID, meetingID)
		}
		return apperr.Dependency(err)
	}
	return nil
}

func (s *MeetingService) validateInput(input MeetingInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperr.Validationf("meeting name must not be empty")
	}
	if strings.TrimSpace(input.Description) == "" {
		return apperr.Validationf("meeting description must not be empty")
	}
	if input.StartsAt.Before(s.now()) {
		return apperr.Validationf("meeting start must not be in the past")
	}
	if !input.EndsAt.After(input.StartsAt) {
		return apperr.Validationf("meeting end must be after its start")
	}
	return nil
}

// resolveEmails maps emails to user ids, collecting emails that match no
// user instead of failing the operation.
func (s *MeetingService) resolveEmails(ctx context.Context, emails []string) ([]int64, []string, error) {
	var (
		ids        []int64
		unresolved []string
		seen       = make(map[int64]bool)
	)
	for _, email := range emails {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		user, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				unresolved = append(unresolved, email)
				continue
			}
			return nil, nil, apperr.Dependency(err)
		}
		if !seen[user.ID] {
			seen[user.ID] = true
			ids = append(ids, user.ID)
		}
	}
	return ids, unresolved, nil
}

// scheduleReminder cancels any pending firing for the meeting, then
// schedules a new one at startsAt minus the configured offset.
func (s *MeetingService) scheduleReminder(meetingID int64, startsAt time.Time) {
	runAt := startsAt.Add(-s.offset)

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.reminders[meetingID]; ok {
		s.sched.Cancel(old)
	}
	s.reminders[meetingID] = s.sched.Schedule(runAt, meetingID)
}

func (s *MeetingService) cancelReminder(meetingID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if handle, ok := s.reminders[meetingID]; ok {
		s.sched.Cancel(handle)
		delete(s.reminders, meetingID)
	}
}

func (s *MeetingService) getMeeting(ctx context.Context, meetingID int64) (types.Meeting, error) {
	meeting, err := s.meetings.Get(ctx, meetingID)
	if err != nil {
		return types.Meeting{}, translateStoreErr(err)
	}
	return meeting, nil
}

func participantUserIDs(participants []types.MeetingParticipant) []int64 {
	ids := make([]int64, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

func translateStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFoundf("%s", err)
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Conflictf("%s", err)
	default:
		return apperr.Dependency(err)
	}
}

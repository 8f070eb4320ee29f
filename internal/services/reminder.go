package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/apperr"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/mq"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/notify"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/scheduler"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/store"
)

// ReminderJob notifies a meeting's participants shortly before it starts.
// The job carries only a meeting id; state captured at schedule time is
// never trusted. Re-reading at fire time makes stale firings (reschedule or
// cancellation races) harmless.
type ReminderJob struct {
	meetings MeetingReader
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewReminderJob(meetings MeetingReader, notifier notify.Notifier, logger *slog.Logger) *ReminderJob {
	return &ReminderJob{
		meetings: meetings,
		notifier: notifier,
		logger:   logger,
	}
}

// Run executes the reminder for one meeting. A meeting that was deleted or
// canceled since scheduling produces no notifications and no error. A
// failure notifying one participant never blocks the others; per-recipient
// failures are aggregated and logged, and the job still succeeds so the
// broker does not redeliver a half-notified batch.
func (j *ReminderJob) Run(ctx context.Context, meetingID int64) error {
	meeting, err := j.meetings.Get(ctx, meetingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			j.logger.Info("reminder skipped, meeting deleted", "meeting_id", meetingID)
			return nil
		}
		return apperr.Dependency(err)
	}
	if meeting.IsCanceled {
		j.logger.Info("reminder skipped, meeting canceled", "meeting_id", meetingID)
		return nil
	}

	participants, err := j.meetings.ListParticipants(ctx, meetingID)
	if err != nil {
		return apperr.Dependency(err)
	}

	var failures []error
	notified := 0
	for _, p := range participants {
		if err := j.notifier.SendMeetingReminder(ctx, p.Email, meeting.Name, meeting.StartsAt); err != nil {
			failures = append(failures, fmt.Errorf("notify %s: %w", p.Email, err))
			continue
		}
		notified++
	}

	if len(failures) > 0 {
		j.logger.Error("reminder partially failed",
			"meeting_id", meetingID,
			"notified", notified,
			"failed", len(failures),
			"error", errors.Join(failures...))
	} else {
		j.logger.Info("reminder sent", "meeting_id", meetingID, "notified", notified)
	}
	return nil
}

// Handle adapts Run to the MQ consumer. A malformed payload is dropped (ack)
// since redelivery cannot fix it; a dependency failure nacks for broker
// redelivery.
func (j *ReminderJob) Handle(ctx context.Context, msg mq.Message) error {
	var payload scheduler.ReminderPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		j.logger.Error("drop malformed reminder payload", "message_id", msg.ID, "error", err)
		return nil
	}
	return j.Run(ctx, payload.MeetingID)
}

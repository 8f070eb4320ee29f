// Package scheduler defers reminder dispatch until a meeting's reminder
// time. A scheduled entry carries only the meeting id; the worker re-reads
// meeting state at fire time, so a stale fire is harmless.
package scheduler

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/mq"
)

// ReminderPayload is the message body published when a reminder fires.
type ReminderPayload struct {
	MeetingID int64 `json:"meeting_id"`
}

// Handle identifies one scheduled firing. Cancellation targets a specific
// handle, never "the job for this meeting", so a cancel can never race a
// concurrent reschedule into killing the fresh job.
type Handle uint64

// Scheduler schedules and cancels deferred reminder firings.
type Scheduler interface {
	// Schedule arranges for the meeting's reminder to fire at runAt.
	Schedule(runAt time.Time, meetingID int64) Handle
	// Cancel stops the firing identified by handle. Canceling before the
	// fire guarantees no dispatch; canceling after is a no-op.
	Cancel(handle Handle)
}

const publishTimeout = 10 * time.Second

// TimerScheduler fires reminders with in-process timers, publishing the
// payload to the reminder channel for the worker to consume. Redelivery on
// worker failure comes from the broker, not from the timer.
type TimerScheduler struct {
	backend mq.Backend
	channel string
	logger  *slog.Logger

	mu     sync.Mutex
	next   Handle
	timers map[Handle]*time.Timer
}

// NewTimerScheduler constructs a scheduler publishing on the given backend.
func NewTimerScheduler(backend mq.Backend, logger *slog.Logger) *TimerScheduler {
	return &TimerScheduler{
		backend: backend,
		channel: mq.ChannelMeetingReminders,
		logger:  logger,
		timers:  make(map[Handle]*time.Timer),
	}
}

// Schedule implements Scheduler. A runAt in the past fires immediately.
func (s *TimerScheduler) Schedule(runAt time.Time, meetingID int64) Handle {
	s.mu.Lock()
	s.next++
	handle := s.next
	timer := time.AfterFunc(time.Until(runAt), func() {
		s.fire(handle, meetingID)
	})
	s.timers[handle] = timer
	s.mu.Unlock()
	return handle
}

// Cancel implements Scheduler.
func (s *TimerScheduler) Cancel(handle Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[handle]; ok {
		timer.Stop()
		delete(s.timers, handle)
	}
}

// Stop cancels every pending firing. Fires already dispatched to the broker
// are unaffected.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for handle, timer := range s.timers {
		timer.Stop()
		delete(s.timers, handle)
	}
}

func (s *TimerScheduler) fire(handle Handle, meetingID int64) {
	s.mu.Lock()
	delete(s.timers, handle)
	s.mu.Unlock()

	data, err := json.Marshal(ReminderPayload{MeetingID: meetingID})
	if err != nil {
		s.logger.Error("marshal reminder payload", "meeting_id", meetingID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if _, err := s.backend.Publish(ctx, s.channel, data, nil); err != nil {
		s.logger.Error("publish reminder", "meeting_id", meetingID, "error", err)
		return
	}
	s.logger.Info("reminder dispatched", "meeting_id", meetingID)
}

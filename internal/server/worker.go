package server

import (
	"context"
	"log/slog"
	"os"

	"github.com/ahmadmdabit/MeetingSystem-sub001/config"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/db"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/mq"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/notify"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/services"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/store"
)

// RunWorker consumes the reminder channel and executes reminder jobs until
// ctx is canceled. Failed handlers nack, so the broker's redelivery gives
// transient failures a bounded retry.
func RunWorker(ctx context.Context, cfg config.Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = dbConn.Close()
	}()

	broker, err := NewMQBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = broker.Close()
	}()

	job := services.NewReminderJob(
		store.NewMeetingRepository(dbConn),
		notify.NewSMTPNotifier(cfg.SMTP),
		logger,
	)

	logger.Info("reminder worker started", "channel", mq.ChannelMeetingReminders)
	return broker.Subscribe(ctx, mq.ChannelMeetingReminders, job.Handle)
}

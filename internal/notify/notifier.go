package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/ahmadmdabit/MeetingSystem-sub001/config"
)

// Notifier delivers meeting reminders to participants.
type Notifier interface {
	SendMeetingReminder(ctx context.Context, email, meetingName string, startsAt time.Time) error
}

// SMTPNotifier sends plain-text reminder mail over SMTP.
type SMTPNotifier struct {
	cfg config.SMTPConfig
}

func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

// SendMeetingReminder implements Notifier.
func (n *SMTPNotifier) SendMeetingReminder(_ context.Context, email, meetingName string, startsAt time.Time) error {
	if n.cfg.Host == "" || n.cfg.User == "" || n.cfg.Pass == "" {
		return fmt.Errorf("smtp not configured")
	}

	subject := fmt.Sprintf("Reminder: %s", meetingName)
	body := fmt.Sprintf(
		"Your meeting %q starts at %s.",
		meetingName,
		startsAt.UTC().Format(time.RFC1123),
	)

	msg := "From: " + n.cfg.From + "\r\n" +
		"To: " + email + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n" +
		body + "\r\n"

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Pass, n.cfg.Host)
	return smtp.SendMail(addr, auth, n.cfg.From, []string{email}, []byte(msg))
}

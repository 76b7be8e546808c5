package notify

import (
	"context"
	"log/slog"
)

// Notification is a rendered message ready for delivery.
type Notification struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a rendered notification. Implementations wrap
// transient transport failures in RetryableError so the worker can
// schedule a retry.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender writes notifications to the log instead of delivering them.
// It stands in for a real transport until one is configured.
type LogSender struct{}

// NewLogSender creates a new log-only sender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send logs the notification and reports success.
func (s *LogSender) Send(ctx context.Context, n Notification) error {
	slog.Info("notification delivered to log sink",
		"to", n.To,
		"subject", n.Subject,
	)
	return nil
}

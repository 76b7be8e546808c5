// Package notify queues and delivers incident notifications to page
// subscribers. Delivery runs asynchronously so incident writes never
// wait on, or fail because of, the notification pipeline.
package notify

import "time"

// MessageKind distinguishes the notification templates.
type MessageKind string

// Message kinds.
const (
	KindIncidentCreated MessageKind = "incident_created"
	KindIncidentUpdated MessageKind = "incident_updated"
)

// QueueStatus represents the status of a queue item.
type QueueStatus string

// Queue statuses.
const (
	QueueStatusPending QueueStatus = "pending"
	QueueStatusSent    QueueStatus = "sent"
	QueueStatusFailed  QueueStatus = "failed"
)

// QueueItem represents one pending notification to one subscriber.
type QueueItem struct {
	ID            string
	IncidentID    string
	SubscriberID  string
	Email         string
	Kind          MessageKind
	Subject       string
	Body          string
	Status        QueueStatus
	Attempts      int
	MaxAttempts   int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	SentAt        *time.Time
}

// QueueStats holds per-status queue counts for metrics.
type QueueStats struct {
	Pending int
	Sent    int
	Failed  int
}

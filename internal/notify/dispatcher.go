package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/signalboard/signalboard/internal/domain"
)

// SubscriberSource supplies the subscribers of a status page.
type SubscriberSource interface {
	ListSubscribers(ctx context.Context, pageID string) ([]domain.Subscriber, error)
}

// Dispatcher fans incident activity out to the notification queue, one
// item per subscriber. The worker picks the items up asynchronously.
type Dispatcher struct {
	repo        Repository
	subscribers SubscriberSource
	maxAttempts int
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(repo Repository, subscribers SubscriberSource, maxAttempts int) *Dispatcher {
	return &Dispatcher{
		repo:        repo,
		subscribers: subscribers,
		maxAttempts: maxAttempts,
	}
}

// IncidentCreated enqueues a notification for every page subscriber.
func (d *Dispatcher) IncidentCreated(ctx context.Context, incident *domain.Incident) error {
	subject, body := composeCreated(incident)
	return d.enqueue(ctx, incident, KindIncidentCreated, subject, body)
}

// IncidentUpdated enqueues an update notification for every page subscriber.
func (d *Dispatcher) IncidentUpdated(ctx context.Context, incident *domain.Incident, update *domain.IncidentUpdate) error {
	subject, body := composeUpdated(incident, update)
	return d.enqueue(ctx, incident, KindIncidentUpdated, subject, body)
}

func (d *Dispatcher) enqueue(ctx context.Context, incident *domain.Incident, kind MessageKind, subject, body string) error {
	subs, err := d.subscribers.ListSubscribers(ctx, incident.PageID)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}

	if len(subs) == 0 {
		slog.Debug("no subscribers for page", "page_id", incident.PageID)
		return nil
	}

	items := make([]*QueueItem, len(subs))
	for i, sub := range subs {
		items[i] = &QueueItem{
			IncidentID:   incident.ID,
			SubscriberID: sub.ID,
			Email:        sub.Email,
			Kind:         kind,
			Subject:      subject,
			Body:         body,
			Status:       QueueStatusPending,
			MaxAttempts:  d.maxAttempts,
		}
	}

	if err := d.repo.Enqueue(ctx, items); err != nil {
		return fmt.Errorf("enqueue notifications: %w", err)
	}

	slog.Debug("notifications enqueued",
		"incident_id", incident.ID,
		"kind", kind,
		"count", len(items),
	)
	return nil
}

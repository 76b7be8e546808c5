package subscriptions

import (
	"context"

	"github.com/signalboard/signalboard/internal/domain"
)

// Repository defines the storage operations for subscribers.
type Repository interface {
	CreateSubscriber(ctx context.Context, sub *domain.Subscriber) error
	GetSubscriberByToken(ctx context.Context, token string) (*domain.Subscriber, error)
	ListSubscribers(ctx context.Context, pageID string) ([]domain.Subscriber, error)
	DeleteSubscriber(ctx context.Context, id string) error
}

package notify

import (
	"context"
	"time"
)

// Repository defines the storage operations for the notification queue.
type Repository interface {
	Enqueue(ctx context.Context, items []*QueueItem) error
	FetchPending(ctx context.Context, limit int) ([]*QueueItem, error)
	MarkAsSent(ctx context.Context, id string) error
	MarkAsFailed(ctx context.Context, id string, cause error) error
	MarkForRetry(ctx context.Context, id string, cause error, nextAttemptAt time.Time) error
	GetQueueStats(ctx context.Context) (*QueueStats, error)
}

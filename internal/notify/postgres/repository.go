// Package postgres provides PostgreSQL storage for the notification queue.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/signalboard/signalboard/internal/notify"
)

// Repository implements notify.Repository backed by PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL notification queue repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Enqueue inserts a batch of queue items in one transaction.
func (r *Repository) Enqueue(ctx context.Context, items []*notify.QueueItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
		INSERT INTO notification_queue
			(incident_id, subscriber_id, email, kind, subject, body, status, max_attempts, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING id, created_at, updated_at`

	for _, item := range items {
		err := tx.QueryRow(ctx, query,
			item.IncidentID, item.SubscriberID, item.Email,
			item.Kind, item.Subject, item.Body,
			notify.QueueStatusPending, item.MaxAttempts,
		).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to enqueue notification: %w", err)
		}
		item.Status = notify.QueueStatusPending
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FetchPending claims up to limit due items. Claiming pushes
// next_attempt_at forward so concurrent workers skip the same rows, and
// SKIP LOCKED keeps them from blocking on each other.
func (r *Repository) FetchPending(ctx context.Context, limit int) ([]*notify.QueueItem, error) {
	query := `
		UPDATE notification_queue
		SET next_attempt_at = now() + interval '1 minute', updated_at = now()
		WHERE id IN (
			SELECT id
			FROM notification_queue
			WHERE status = $1 AND next_attempt_at <= now()
			ORDER BY next_attempt_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, incident_id, subscriber_id, email, kind, subject, body,
			status, attempts, max_attempts, next_attempt_at, last_error,
			created_at, updated_at, sent_at`

	rows, err := r.pool.Query(ctx, query, notify.QueueStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending notifications: %w", err)
	}
	defer rows.Close()

	var items []*notify.QueueItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return items, nil
}

// MarkAsSent marks a queue item as delivered.
func (r *Repository) MarkAsSent(ctx context.Context, id string) error {
	query := `
		UPDATE notification_queue
		SET status = $2, sent_at = now(), updated_at = now()
		WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id, notify.QueueStatusSent)
	if err != nil {
		return fmt.Errorf("failed to mark notification as sent: %w", err)
	}

	return nil
}

// MarkAsFailed marks a queue item as permanently failed.
func (r *Repository) MarkAsFailed(ctx context.Context, id string, cause error) error {
	query := `
		UPDATE notification_queue
		SET status = $2, last_error = $3, attempts = attempts + 1, updated_at = now()
		WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id, notify.QueueStatusFailed, cause.Error())
	if err != nil {
		return fmt.Errorf("failed to mark notification as failed: %w", err)
	}

	return nil
}

// MarkForRetry reschedules a queue item for a later attempt.
func (r *Repository) MarkForRetry(ctx context.Context, id string, cause error, nextAttemptAt time.Time) error {
	query := `
		UPDATE notification_queue
		SET last_error = $2, attempts = attempts + 1, next_attempt_at = $3, updated_at = now()
		WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id, cause.Error(), nextAttemptAt)
	if err != nil {
		return fmt.Errorf("failed to mark notification for retry: %w", err)
	}

	return nil
}

// GetQueueStats returns per-status queue counts.
func (r *Repository) GetQueueStats(ctx context.Context) (*notify.QueueStats, error) {
	query := `
		SELECT status, count(*)
		FROM notification_queue
		GROUP BY status`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}
	defer rows.Close()

	stats := &notify.QueueStats{}
	for rows.Next() {
		var status notify.QueueStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan queue stats: %w", err)
		}
		switch status {
		case notify.QueueStatusPending:
			stats.Pending = count
		case notify.QueueStatusSent:
			stats.Sent = count
		case notify.QueueStatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue stats: %w", err)
	}

	return stats, nil
}

func scanItem(rows pgx.Rows) (*notify.QueueItem, error) {
	var item notify.QueueItem
	err := rows.Scan(
		&item.ID, &item.IncidentID, &item.SubscriberID, &item.Email,
		&item.Kind, &item.Subject, &item.Body,
		&item.Status, &item.Attempts, &item.MaxAttempts,
		&item.NextAttemptAt, &item.LastError,
		&item.CreatedAt, &item.UpdatedAt, &item.SentAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}

	return &item, nil
}

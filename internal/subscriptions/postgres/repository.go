// Package postgres provides PostgreSQL storage for subscribers.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/signalboard/signalboard/internal/domain"
	"github.com/signalboard/signalboard/internal/subscriptions"
)

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// Repository implements subscriptions.Repository backed by PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL subscriptions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateSubscriber inserts a new subscriber. The (page_id, email) pair
// is unique.
func (r *Repository) CreateSubscriber(ctx context.Context, sub *domain.Subscriber) error {
	query := `
		INSERT INTO subscribers (page_id, email, unsubscribe_token)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query, sub.PageID, sub.Email, sub.UnsubscribeToken).
		Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return subscriptions.ErrAlreadySubscribed
		}
		return fmt.Errorf("failed to create subscriber: %w", err)
	}

	return nil
}

// GetSubscriberByToken returns the subscriber holding the given
// unsubscribe token.
func (r *Repository) GetSubscriberByToken(ctx context.Context, token string) (*domain.Subscriber, error) {
	query := `
		SELECT id, page_id, email, unsubscribe_token, created_at
		FROM subscribers
		WHERE unsubscribe_token = $1`

	var sub domain.Subscriber
	err := r.pool.QueryRow(ctx, query, token).
		Scan(&sub.ID, &sub.PageID, &sub.Email, &sub.UnsubscribeToken, &sub.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, subscriptions.ErrSubscriberNotFound
		}
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}

	return &sub, nil
}

// ListSubscribers returns the subscribers of a page ordered by creation time.
func (r *Repository) ListSubscribers(ctx context.Context, pageID string) ([]domain.Subscriber, error) {
	query := `
		SELECT id, page_id, email, unsubscribe_token, created_at
		FROM subscribers
		WHERE page_id = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscriber
	for rows.Next() {
		var sub domain.Subscriber
		err := rows.Scan(&sub.ID, &sub.PageID, &sub.Email, &sub.UnsubscribeToken, &sub.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscribers: %w", err)
	}

	return subs, nil
}

// DeleteSubscriber removes a subscriber by id.
func (r *Repository) DeleteSubscriber(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subscribers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscriber: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return subscriptions.ErrSubscriberNotFound
	}

	return nil
}

// Package subscriptions manages public email subscriptions to status pages.
package subscriptions

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/signalboard/signalboard/internal/domain"
)

// PageChecker verifies that a subscription target page exists.
type PageChecker interface {
	PageExists(ctx context.Context, pageID string) (bool, error)
}

// Service implements subscription business logic.
type Service struct {
	repo  Repository
	pages PageChecker
}

// NewService creates a new subscriptions service.
func NewService(repo Repository, pages PageChecker) *Service {
	return &Service{repo: repo, pages: pages}
}

// Subscribe registers an email address on a status page. The unsubscribe
// token returned on the subscriber is the only credential for removal.
func (s *Service) Subscribe(ctx context.Context, pageID, email string) (*domain.Subscriber, error) {
	exists, err := s.pages.PageExists(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPageNotFound
	}

	sub := &domain.Subscriber{
		PageID:           pageID,
		Email:            strings.ToLower(strings.TrimSpace(email)),
		UnsubscribeToken: uuid.NewString(),
	}
	if err := s.repo.CreateSubscriber(ctx, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

// Unsubscribe removes the subscription identified by its token.
func (s *Service) Unsubscribe(ctx context.Context, token string) error {
	sub, err := s.repo.GetSubscriberByToken(ctx, token)
	if err != nil {
		return err
	}
	return s.repo.DeleteSubscriber(ctx, sub.ID)
}

// ListSubscribers returns the subscribers of a status page.
func (s *Service) ListSubscribers(ctx context.Context, pageID string) ([]domain.Subscriber, error) {
	return s.repo.ListSubscribers(ctx, pageID)
}

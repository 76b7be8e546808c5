package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/signalboard/signalboard/internal/domain"
)

// ComponentChecker validates component references against a status page.
type ComponentChecker interface {
	ValidateComponentsExist(ctx context.Context, pageID string, ids []string) ([]string, error)
}

// PageChecker reports whether a status page exists.
type PageChecker interface {
	PageExists(ctx context.Context, pageID string) (bool, error)
}

// Service implements maintenance window business logic. Windows are
// announcements only; they never change component statuses.
type Service struct {
	repo       Repository
	components ComponentChecker
	pages      PageChecker
	now        func() time.Time
}

// NewService creates a new maintenance service.
func NewService(repo Repository, components ComponentChecker, pages PageChecker) *Service {
	return &Service{
		repo:       repo,
		components: components,
		pages:      pages,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Used in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateWindowInput holds data for scheduling a maintenance window.
type CreateWindowInput struct {
	PageID       string
	Title        string
	Body         string
	Status       domain.MaintenanceStatus
	StartsAt     time.Time
	EndsAt       time.Time
	ComponentIDs []string
}

// UpdateWindowInput holds data for editing a maintenance window.
type UpdateWindowInput struct {
	WindowID     string
	Title        string
	Body         string
	Status       domain.MaintenanceStatus
	StartsAt     time.Time
	EndsAt       time.Time
	ComponentIDs []string
}

// CreateWindow schedules a maintenance window.
func (s *Service) CreateWindow(ctx context.Context, input CreateWindowInput, createdBy string) (*domain.MaintenanceWindow, error) {
	status := input.Status
	if status == "" {
		status = domain.MaintenanceStatusScheduled
	}
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	if !input.EndsAt.After(input.StartsAt) {
		return nil, ErrInvalidSchedule
	}

	exists, err := s.pages.PageExists(ctx, input.PageID)
	if err != nil {
		return nil, fmt.Errorf("check page exists: %w", err)
	}
	if !exists {
		return nil, ErrPageNotFound
	}

	if err := s.validateComponents(ctx, input.PageID, input.ComponentIDs); err != nil {
		return nil, err
	}

	window := &domain.MaintenanceWindow{
		PageID:       input.PageID,
		Title:        input.Title,
		Body:         input.Body,
		Status:       status,
		StartsAt:     input.StartsAt,
		EndsAt:       input.EndsAt,
		ComponentIDs: input.ComponentIDs,
		CreatedBy:    createdBy,
	}

	if err := s.repo.CreateWindow(ctx, window); err != nil {
		return nil, fmt.Errorf("create maintenance window: %w", err)
	}

	return window, nil
}

// GetWindow retrieves a maintenance window by ID.
func (s *Service) GetWindow(ctx context.Context, id string) (*domain.MaintenanceWindow, error) {
	return s.repo.GetWindow(ctx, id)
}

// ListWindows retrieves maintenance windows matching the filter.
func (s *Service) ListWindows(ctx context.Context, filter WindowFilter) ([]*domain.MaintenanceWindow, error) {
	return s.repo.ListWindows(ctx, filter)
}

// ListUpcomingWindows returns windows of a page that have not ended yet,
// soonest first.
func (s *Service) ListUpcomingWindows(ctx context.Context, pageID string) ([]*domain.MaintenanceWindow, error) {
	now := s.now()
	return s.repo.ListWindows(ctx, WindowFilter{PageID: pageID, Upcoming: &now})
}

// UpdateWindow edits a maintenance window, component links included.
func (s *Service) UpdateWindow(ctx context.Context, input UpdateWindowInput) (*domain.MaintenanceWindow, error) {
	if !input.Status.IsValid() {
		return nil, ErrInvalidStatus
	}

	if !input.EndsAt.After(input.StartsAt) {
		return nil, ErrInvalidSchedule
	}

	window, err := s.repo.GetWindow(ctx, input.WindowID)
	if err != nil {
		return nil, fmt.Errorf("get maintenance window: %w", err)
	}

	if err := s.validateComponents(ctx, window.PageID, input.ComponentIDs); err != nil {
		return nil, err
	}

	window.Title = input.Title
	window.Body = input.Body
	window.Status = input.Status
	window.StartsAt = input.StartsAt
	window.EndsAt = input.EndsAt
	window.ComponentIDs = input.ComponentIDs

	if err := s.repo.UpdateWindow(ctx, window); err != nil {
		return nil, fmt.Errorf("update maintenance window: %w", err)
	}

	return window, nil
}

// DeleteWindow removes a maintenance window.
func (s *Service) DeleteWindow(ctx context.Context, id string) error {
	return s.repo.DeleteWindow(ctx, id)
}

func (s *Service) validateComponents(ctx context.Context, pageID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	missing, err := s.components.ValidateComponentsExist(ctx, pageID, ids)
	if err != nil {
		return fmt.Errorf("validate components: %w", err)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrComponentNotOnPage, missing[0])
	}
	return nil
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/signalboard/signalboard/internal/domain"
	"github.com/signalboard/signalboard/internal/pkg/slug"
)

// Service implements catalog business logic.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new catalog service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// WithClock overrides the time source. Used in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateComponent creates a component after verifying its status page and
// optional group reference. An empty slug is derived from the name.
func (s *Service) CreateComponent(ctx context.Context, component *domain.Component) error {
	if !component.Status.IsValid() {
		return ErrInvalidStatus
	}

	exists, err := s.repo.PageExists(ctx, component.PageID)
	if err != nil {
		return fmt.Errorf("check page exists: %w", err)
	}
	if !exists {
		return ErrPageNotFound
	}

	if component.GroupID != nil {
		if err := s.checkGroupBelongsToPage(ctx, *component.GroupID, component.PageID); err != nil {
			return err
		}
	}

	if component.Slug == "" {
		component.Slug = slug.Make(component.Name)
	}
	if !slug.IsValid(component.Slug) {
		return ErrInvalidSlug
	}

	return s.repo.CreateComponent(ctx, component)
}

// GetComponentByID retrieves a component by ID.
func (s *Service) GetComponentByID(ctx context.Context, id string) (*domain.Component, error) {
	return s.repo.GetComponentByID(ctx, id)
}

// GetComponentBySlug retrieves a component by page and slug.
func (s *Service) GetComponentBySlug(ctx context.Context, pageID, componentSlug string) (*domain.Component, error) {
	return s.repo.GetComponentBySlug(ctx, pageID, componentSlug)
}

// ListComponents retrieves components matching the filter.
func (s *Service) ListComponents(ctx context.Context, filter ComponentFilter) ([]domain.Component, error) {
	return s.repo.ListComponents(ctx, filter)
}

// ListVisibleComponents returns the visible components of a status page.
// This is the resolver's input set.
func (s *Service) ListVisibleComponents(ctx context.Context, pageID string) ([]domain.Component, error) {
	return s.repo.ListComponents(ctx, ComponentFilter{PageID: pageID, VisibleOnly: true})
}

// UpdateComponent updates component fields other than status.
func (s *Service) UpdateComponent(ctx context.Context, component *domain.Component) error {
	if !slug.IsValid(component.Slug) {
		return ErrInvalidSlug
	}

	if component.GroupID != nil {
		if err := s.checkGroupBelongsToPage(ctx, *component.GroupID, component.PageID); err != nil {
			return err
		}
	}

	return s.repo.UpdateComponent(ctx, component)
}

// UpdateStatusInput holds data for a direct component status update.
type UpdateStatusInput struct {
	ComponentID string
	Status      domain.ComponentStatus
	Reason      string
	UpdatedBy   string
}

// UpdateComponentStatus is the explicit status update path. This is the
// only way a component returns to operational: incident resolution never
// restores component status.
func (s *Service) UpdateComponentStatus(ctx context.Context, input UpdateStatusInput) error {
	if !input.Status.IsValid() {
		return ErrInvalidStatus
	}

	component, err := s.repo.GetComponentByID(ctx, input.ComponentID)
	if err != nil {
		return fmt.Errorf("get component: %w", err)
	}
	// Captured before the write: the repository may hand back a live
	// reference that the update mutates.
	oldStatus := component.Status

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := s.repo.UpdateComponentStatusTx(ctx, tx, input.ComponentID, input.Status); err != nil {
		return fmt.Errorf("update component status: %w", err)
	}

	entry := &domain.StatusLogEntry{
		ComponentID: input.ComponentID,
		OldStatus:   &oldStatus,
		NewStatus:   input.Status,
		SourceType:  domain.StatusLogSourceManual,
		Reason:      input.Reason,
		CreatedBy:   input.UpdatedBy,
	}
	if err := s.repo.CreateStatusLogEntryTx(ctx, tx, entry); err != nil {
		return fmt.Errorf("create status log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// DeleteComponent removes a component.
func (s *Service) DeleteComponent(ctx context.Context, id string) error {
	return s.repo.DeleteComponent(ctx, id)
}

// ValidateComponentsExist checks that all ids reference components of the
// given status page. Returns the offending ids.
func (s *Service) ValidateComponentsExist(ctx context.Context, pageID string, ids []string) ([]string, error) {
	return s.repo.ValidateComponentsExist(ctx, pageID, ids)
}

// ApplyStatusWrites applies planned component status writes within a
// transaction, recording a status log entry per write.
func (s *Service) ApplyStatusWrites(ctx context.Context, tx pgx.Tx, writes []domain.ComponentWrite, incidentID, createdBy, reason string) error {
	for _, w := range writes {
		component, err := s.repo.GetComponentByID(ctx, w.ComponentID)
		if err != nil {
			return fmt.Errorf("get component %s: %w", w.ComponentID, err)
		}
		oldStatus := component.Status

		if err := s.repo.UpdateComponentStatusTx(ctx, tx, w.ComponentID, w.NewStatus); err != nil {
			return fmt.Errorf("update component %s status: %w", w.ComponentID, err)
		}

		id := incidentID
		entry := &domain.StatusLogEntry{
			ComponentID: w.ComponentID,
			OldStatus:   &oldStatus,
			NewStatus:   w.NewStatus,
			SourceType:  domain.StatusLogSourceIncident,
			IncidentID:  &id,
			Reason:      reason,
			CreatedBy:   createdBy,
		}
		if err := s.repo.CreateStatusLogEntryTx(ctx, tx, entry); err != nil {
			return fmt.Errorf("create status log: %w", err)
		}
	}
	return nil
}

// BeginTx starts a catalog transaction for callers that coordinate
// component writes with their own records.
func (s *Service) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return s.repo.BeginTx(ctx)
}

// CreateGroup creates a component group on a status page.
func (s *Service) CreateGroup(ctx context.Context, group *domain.ComponentGroup) error {
	exists, err := s.repo.PageExists(ctx, group.PageID)
	if err != nil {
		return fmt.Errorf("check page exists: %w", err)
	}
	if !exists {
		return ErrPageNotFound
	}

	if group.Slug == "" {
		group.Slug = slug.Make(group.Name)
	}
	if !slug.IsValid(group.Slug) {
		return ErrInvalidSlug
	}

	return s.repo.CreateGroup(ctx, group)
}

// GetGroupBySlug retrieves a group by page and slug.
func (s *Service) GetGroupBySlug(ctx context.Context, pageID, groupSlug string) (*domain.ComponentGroup, error) {
	return s.repo.GetGroupBySlug(ctx, pageID, groupSlug)
}

// ListGroups retrieves all groups of a status page.
func (s *Service) ListGroups(ctx context.Context, pageID string) ([]domain.ComponentGroup, error) {
	return s.repo.ListGroups(ctx, pageID)
}

// UpdateGroup updates a component group.
func (s *Service) UpdateGroup(ctx context.Context, group *domain.ComponentGroup) error {
	if !slug.IsValid(group.Slug) {
		return ErrInvalidSlug
	}
	return s.repo.UpdateGroup(ctx, group)
}

// DeleteGroup removes a group. Member components keep existing and lose
// their group reference.
func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	return s.repo.DeleteGroup(ctx, id)
}

// CreateMetric registers a metric time series on a component.
func (s *Service) CreateMetric(ctx context.Context, metric *domain.ComponentMetric) error {
	if _, err := s.repo.GetComponentByID(ctx, metric.ComponentID); err != nil {
		return err
	}
	return s.repo.CreateMetric(ctx, metric)
}

// ListMetrics retrieves the metrics registered on a component.
func (s *Service) ListMetrics(ctx context.Context, componentID string) ([]domain.ComponentMetric, error) {
	return s.repo.ListMetrics(ctx, componentID)
}

// RecordMetricPoint appends a value to a metric time series. A zero
// RecordedAt is stamped with the current time.
func (s *Service) RecordMetricPoint(ctx context.Context, point *domain.MetricPoint) error {
	if _, err := s.repo.GetMetricByID(ctx, point.MetricID); err != nil {
		return err
	}
	if point.RecordedAt.IsZero() {
		point.RecordedAt = s.now()
	}
	return s.repo.RecordMetricPoint(ctx, point)
}

// ListMetricPoints returns points of a metric within [since, until].
// A zero until defaults to now.
func (s *Service) ListMetricPoints(ctx context.Context, metricID string, since, until time.Time, limit int) ([]domain.MetricPoint, error) {
	if _, err := s.repo.GetMetricByID(ctx, metricID); err != nil {
		return nil, err
	}
	if until.IsZero() {
		until = s.now()
	}
	return s.repo.ListMetricPoints(ctx, metricID, since, until, limit)
}

// ListStatusLog returns the status change history for a component.
func (s *Service) ListStatusLog(ctx context.Context, componentID string, limit, offset int) ([]domain.StatusLogEntry, int, error) {
	entries, err := s.repo.ListStatusLog(ctx, componentID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list status log: %w", err)
	}
	total, err := s.repo.CountStatusLog(ctx, componentID)
	if err != nil {
		return nil, 0, fmt.Errorf("count status log: %w", err)
	}
	return entries, total, nil
}

func (s *Service) checkGroupBelongsToPage(ctx context.Context, groupID, pageID string) error {
	group, err := s.repo.GetGroupByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group.PageID != pageID {
		return ErrGroupPageMismatch
	}
	return nil
}

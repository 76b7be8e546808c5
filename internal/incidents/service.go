package incidents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/signalboard/signalboard/internal/domain"
	"github.com/signalboard/signalboard/internal/pkg/metrics"
)

// ComponentWriter is the slice of the catalog service the incidents
// module needs: existence checks and transactional status writes.
type ComponentWriter interface {
	ValidateComponentsExist(ctx context.Context, pageID string, ids []string) ([]string, error)
	ApplyStatusWrites(ctx context.Context, tx pgx.Tx, writes []domain.ComponentWrite, incidentID, createdBy, reason string) error
}

// PageChecker reports whether a status page exists.
type PageChecker interface {
	PageExists(ctx context.Context, pageID string) (bool, error)
}

// Dispatcher forwards incident activity to the notification pipeline.
// A nil dispatcher disables notifications.
type Dispatcher interface {
	IncidentCreated(ctx context.Context, incident *domain.Incident) error
	IncidentUpdated(ctx context.Context, incident *domain.Incident, update *domain.IncidentUpdate) error
}

// Service implements incident business logic.
type Service struct {
	repo       Repository
	components ComponentWriter
	pages      PageChecker
	dispatcher Dispatcher
	now        func() time.Time
}

// NewService creates a new incident service.
func NewService(repo Repository, components ComponentWriter, pages PageChecker, dispatcher Dispatcher) *Service {
	return &Service{
		repo:       repo,
		components: components,
		pages:      pages,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Used in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateIncidentInput holds data for creating an incident.
type CreateIncidentInput struct {
	PageID       string
	Title        string
	Status       domain.IncidentStatus
	Impact       domain.IncidentImpact
	Body         string
	StartedAt    *time.Time // nil means now
	ComponentIDs []string
}

// AddUpdateInput holds data for appending a progress update.
type AddUpdateInput struct {
	IncidentID string
	Title      string
	Body       string
	Status     domain.IncidentStatus
}

// UpdateIncidentInput holds data for editing an incident directly.
type UpdateIncidentInput struct {
	IncidentID string
	Title      string
	Status     domain.IncidentStatus
	Impact     domain.IncidentImpact
	Body       string
}

// CreateIncident creates an incident, links it to the affected components
// and pushes the impact-derived status onto each of them. The component
// links are fixed for the incident's lifetime.
func (s *Service) CreateIncident(ctx context.Context, input CreateIncidentInput, createdBy string) (*domain.Incident, error) {
	if !input.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	if !input.Impact.IsValid() {
		return nil, ErrInvalidImpact
	}

	exists, err := s.pages.PageExists(ctx, input.PageID)
	if err != nil {
		return nil, fmt.Errorf("check page exists: %w", err)
	}
	if !exists {
		return nil, ErrPageNotFound
	}

	if len(input.ComponentIDs) > 0 {
		missing, err := s.components.ValidateComponentsExist(ctx, input.PageID, input.ComponentIDs)
		if err != nil {
			return nil, fmt.Errorf("validate components: %w", err)
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrComponentNotOnPage, missing[0])
		}
	}

	now := s.now()
	startedAt := now
	if input.StartedAt != nil {
		startedAt = *input.StartedAt
	}

	incident := &domain.Incident{
		PageID:       input.PageID,
		Title:        input.Title,
		Impact:       input.Impact,
		Body:         input.Body,
		StartedAt:    startedAt,
		ComponentIDs: input.ComponentIDs,
		CreatedBy:    createdBy,
	}
	incident.ApplyStatus(input.Status, now)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := s.repo.CreateIncidentTx(ctx, tx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	if len(input.ComponentIDs) > 0 {
		if err := s.repo.LinkComponentsTx(ctx, tx, incident.ID, input.ComponentIDs); err != nil {
			return nil, fmt.Errorf("link components: %w", err)
		}
	}

	// A none impact plans no writes; affected components keep their
	// current status.
	writes := domain.PlanImpactWrites(input.Impact, input.ComponentIDs)
	if len(writes) > 0 {
		reason := fmt.Sprintf("Incident created: %s", input.Title)
		if err := s.components.ApplyStatusWrites(ctx, tx, writes, incident.ID, createdBy, reason); err != nil {
			return nil, fmt.Errorf("apply impact writes: %w", err)
		}
	}

	update := &domain.IncidentUpdate{
		IncidentID: incident.ID,
		Title:      incident.Title,
		Body:       incident.Body,
		Status:     incident.Status,
		CreatedBy:  createdBy,
	}
	if err := s.repo.CreateUpdateTx(ctx, tx, update); err != nil {
		return nil, fmt.Errorf("create initial update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	metrics.IncidentsCreated.WithLabelValues(string(incident.Impact)).Inc()
	s.dispatchCreated(ctx, incident)

	return incident, nil
}

// GetIncident retrieves an incident by ID.
func (s *Service) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	return s.repo.GetIncident(ctx, id)
}

// ListIncidents retrieves incidents matching the filter along with the
// total count.
func (s *Service) ListIncidents(ctx context.Context, filter IncidentFilter) ([]*domain.Incident, int, error) {
	list, err := s.repo.ListIncidents(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list incidents: %w", err)
	}
	total, err := s.repo.CountIncidents(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count incidents: %w", err)
	}
	return list, total, nil
}

// ListActiveIncidents returns the unresolved incidents of a status page.
func (s *Service) ListActiveIncidents(ctx context.Context, pageID string) ([]*domain.Incident, error) {
	resolved := false
	return s.repo.ListIncidents(ctx, IncidentFilter{
		PageID:   pageID,
		Resolved: &resolved,
		Limit:    MaxIncidentsLimit,
	})
}

// AddUpdate appends a progress record and moves the incident to the
// update's status. The record is always appended, even when the status
// does not change. Updates on a resolved incident are allowed; a
// non-resolved status reopens the incident and clears its resolution
// timestamp. Component statuses are never touched here: resolution does
// not restore them.
func (s *Service) AddUpdate(ctx context.Context, input AddUpdateInput, createdBy string) (*domain.IncidentUpdate, error) {
	if !input.Status.IsValid() {
		return nil, ErrInvalidStatus
	}

	incident, err := s.repo.GetIncident(ctx, input.IncidentID)
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	update := &domain.IncidentUpdate{
		IncidentID: input.IncidentID,
		Title:      input.Title,
		Body:       input.Body,
		Status:     input.Status,
		CreatedBy:  createdBy,
	}
	if err := s.repo.CreateUpdateTx(ctx, tx, update); err != nil {
		return nil, fmt.Errorf("create update: %w", err)
	}

	incident.ApplyStatus(input.Status, s.now())
	if err := s.repo.UpdateIncidentTx(ctx, tx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.dispatchUpdated(ctx, incident, update)

	return update, nil
}

// UpdateIncident edits an incident's fields directly. Status changes go
// through the same transition as the update-record path. Impact edits
// change the declared severity only; propagation onto components happens
// at creation.
func (s *Service) UpdateIncident(ctx context.Context, input UpdateIncidentInput) (*domain.Incident, error) {
	if !input.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	if !input.Impact.IsValid() {
		return nil, ErrInvalidImpact
	}

	incident, err := s.repo.GetIncident(ctx, input.IncidentID)
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}

	incident.Title = input.Title
	incident.Impact = input.Impact
	incident.Body = input.Body
	incident.ApplyStatus(input.Status, s.now())

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := s.repo.UpdateIncidentTx(ctx, tx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return incident, nil
}

// ListUpdates retrieves the progress records of an incident, newest first.
func (s *Service) ListUpdates(ctx context.Context, incidentID string) ([]*domain.IncidentUpdate, error) {
	if _, err := s.repo.GetIncident(ctx, incidentID); err != nil {
		return nil, err
	}
	return s.repo.ListUpdates(ctx, incidentID)
}

// DeleteIncident removes a resolved incident with its updates and
// component links. Active incidents must be resolved first. Status log
// entries written during the incident's lifetime are kept.
func (s *Service) DeleteIncident(ctx context.Context, id string) error {
	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return fmt.Errorf("get incident: %w", err)
	}

	if !incident.Status.IsResolved() {
		return ErrIncidentNotResolved
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := s.repo.DeleteIncidentTx(ctx, tx, id); err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (s *Service) dispatchCreated(ctx context.Context, incident *domain.Incident) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.IncidentCreated(ctx, incident); err != nil {
		slog.Error("failed to dispatch incident created notification",
			"incident_id", incident.ID,
			"error", err)
	}
}

func (s *Service) dispatchUpdated(ctx context.Context, incident *domain.Incident, update *domain.IncidentUpdate) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.IncidentUpdated(ctx, incident, update); err != nil {
		slog.Error("failed to dispatch incident updated notification",
			"incident_id", incident.ID,
			"error", err)
	}
}

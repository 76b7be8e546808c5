package statuspages

import (
	"context"
	"errors"
	"fmt"

	"github.com/signalboard/signalboard/internal/domain"
	"github.com/signalboard/signalboard/internal/pkg/slug"
)

// ComponentSource supplies the component data a page overview is built from.
type ComponentSource interface {
	ListVisibleComponents(ctx context.Context, pageID string) ([]domain.Component, error)
	ListGroups(ctx context.Context, pageID string) ([]domain.ComponentGroup, error)
}

// IncidentSource supplies the open incidents of a page.
type IncidentSource interface {
	ListActiveIncidents(ctx context.Context, pageID string) ([]*domain.Incident, error)
}

// MaintenanceSource supplies the pending maintenance windows of a page.
type MaintenanceSource interface {
	ListUpcomingWindows(ctx context.Context, pageID string) ([]*domain.MaintenanceWindow, error)
}

// Service implements organization and status page business logic.
type Service struct {
	repo        Repository
	components  ComponentSource
	incidents   IncidentSource
	maintenance MaintenanceSource
}

// NewService creates a new status pages service.
func NewService(repo Repository, components ComponentSource, incidents IncidentSource, maintenance MaintenanceSource) *Service {
	return &Service{
		repo:        repo,
		components:  components,
		incidents:   incidents,
		maintenance: maintenance,
	}
}

// PageOverview is the public snapshot of a status page. OverallStatus is
// derived from the visible components on every read, never stored.
type PageOverview struct {
	Page                *domain.StatusPage          `json:"page"`
	OverallStatus       domain.ComponentStatus      `json:"overall_status"`
	Groups              []domain.ComponentGroup     `json:"groups"`
	Components          []domain.Component          `json:"components"`
	ActiveIncidents     []*domain.Incident          `json:"active_incidents"`
	UpcomingMaintenance []*domain.MaintenanceWindow `json:"upcoming_maintenance"`
}

// CreateOrg creates an organization. An empty slug is derived from the name.
func (s *Service) CreateOrg(ctx context.Context, org *domain.Organization) error {
	if org.Slug == "" {
		org.Slug = slug.Make(org.Name)
	}
	if !slug.IsValid(org.Slug) {
		return ErrInvalidSlug
	}
	return s.repo.CreateOrg(ctx, org)
}

// GetOrgBySlug retrieves an organization by slug.
func (s *Service) GetOrgBySlug(ctx context.Context, orgSlug string) (*domain.Organization, error) {
	return s.repo.GetOrgBySlug(ctx, orgSlug)
}

// ListOrgs retrieves all organizations.
func (s *Service) ListOrgs(ctx context.Context) ([]domain.Organization, error) {
	return s.repo.ListOrgs(ctx)
}

// UpdateOrg updates an organization.
func (s *Service) UpdateOrg(ctx context.Context, org *domain.Organization) error {
	if !slug.IsValid(org.Slug) {
		return ErrInvalidSlug
	}
	return s.repo.UpdateOrg(ctx, org)
}

// DeleteOrg removes an organization and, through the schema, its pages.
func (s *Service) DeleteOrg(ctx context.Context, id string) error {
	return s.repo.DeleteOrg(ctx, id)
}

// CreatePage creates a status page under an organization.
func (s *Service) CreatePage(ctx context.Context, page *domain.StatusPage) error {
	if _, err := s.repo.GetOrgByID(ctx, page.OrgID); err != nil {
		return err
	}

	if page.Slug == "" {
		page.Slug = slug.Make(page.Name)
	}
	if !slug.IsValid(page.Slug) {
		return ErrInvalidSlug
	}
	return s.repo.CreatePage(ctx, page)
}

// GetPageByID retrieves a status page by ID.
func (s *Service) GetPageByID(ctx context.Context, id string) (*domain.StatusPage, error) {
	return s.repo.GetPageByID(ctx, id)
}

// GetPageBySlug retrieves a status page by slug.
func (s *Service) GetPageBySlug(ctx context.Context, pageSlug string) (*domain.StatusPage, error) {
	return s.repo.GetPageBySlug(ctx, pageSlug)
}

// ListPages retrieves the status pages of an organization.
func (s *Service) ListPages(ctx context.Context, orgID string) ([]domain.StatusPage, error) {
	return s.repo.ListPages(ctx, orgID)
}

// UpdatePage updates a status page.
func (s *Service) UpdatePage(ctx context.Context, page *domain.StatusPage) error {
	if !slug.IsValid(page.Slug) {
		return ErrInvalidSlug
	}
	return s.repo.UpdatePage(ctx, page)
}

// DeletePage removes a status page.
func (s *Service) DeletePage(ctx context.Context, id string) error {
	return s.repo.DeletePage(ctx, id)
}

// PageExists reports whether a status page with the given ID exists.
func (s *Service) PageExists(ctx context.Context, pageID string) (bool, error) {
	_, err := s.repo.GetPageByID(ctx, pageID)
	if err != nil {
		if errors.Is(err, ErrPageNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PageLookup answers page existence checks straight from the repository.
// Modules that only need PageExists take this instead of the full
// service, which depends on them for its overview.
type PageLookup struct {
	repo Repository
}

// NewPageLookup creates a repository-backed page existence checker.
func NewPageLookup(repo Repository) *PageLookup {
	return &PageLookup{repo: repo}
}

// PageExists reports whether a status page with the given ID exists.
func (l *PageLookup) PageExists(ctx context.Context, pageID string) (bool, error) {
	_, err := l.repo.GetPageByID(ctx, pageID)
	if err != nil {
		if errors.Is(err, ErrPageNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Overview assembles the public snapshot of a status page. Private pages
// are reported as not found to unauthenticated readers.
func (s *Service) Overview(ctx context.Context, pageSlug string) (*PageOverview, error) {
	page, err := s.repo.GetPageBySlug(ctx, pageSlug)
	if err != nil {
		return nil, err
	}
	if !page.IsPublic {
		return nil, ErrPageNotFound
	}

	return s.buildOverview(ctx, page)
}

// AdminOverview assembles the snapshot of any page, private ones included.
func (s *Service) AdminOverview(ctx context.Context, pageID string) (*PageOverview, error) {
	page, err := s.repo.GetPageByID(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return s.buildOverview(ctx, page)
}

func (s *Service) buildOverview(ctx context.Context, page *domain.StatusPage) (*PageOverview, error) {
	components, err := s.components.ListVisibleComponents(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}

	groups, err := s.components.ListGroups(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	active, err := s.incidents.ListActiveIncidents(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("list active incidents: %w", err)
	}

	upcoming, err := s.maintenance.ListUpcomingWindows(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("list upcoming maintenance: %w", err)
	}

	return &PageOverview{
		Page:                page,
		OverallStatus:       domain.OverallStatus(components),
		Groups:              groups,
		Components:          components,
		ActiveIncidents:     active,
		UpcomingMaintenance: upcoming,
	}, nil
}

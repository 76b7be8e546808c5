package statuspages

import (
	"context"
	"fmt"
	"testing"

	"github.com/signalboard/signalboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	orgs  map[string]*domain.Organization
	pages map[string]*domain.StatusPage
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		orgs:  make(map[string]*domain.Organization),
		pages: make(map[string]*domain.StatusPage),
	}
}

func (m *mockRepository) CreateOrg(ctx context.Context, org *domain.Organization) error {
	for _, existing := range m.orgs {
		if existing.Slug == org.Slug {
			return ErrSlugExists
		}
	}
	org.ID = fmt.Sprintf("org-%d", len(m.orgs)+1)
	m.orgs[org.ID] = org
	return nil
}

func (m *mockRepository) GetOrgByID(ctx context.Context, id string) (*domain.Organization, error) {
	org, ok := m.orgs[id]
	if !ok {
		return nil, ErrOrgNotFound
	}
	return org, nil
}

func (m *mockRepository) GetOrgBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	for _, org := range m.orgs {
		if org.Slug == slug {
			return org, nil
		}
	}
	return nil, ErrOrgNotFound
}

func (m *mockRepository) ListOrgs(ctx context.Context) ([]domain.Organization, error) {
	var orgs []domain.Organization
	for _, org := range m.orgs {
		orgs = append(orgs, *org)
	}
	return orgs, nil
}

func (m *mockRepository) UpdateOrg(ctx context.Context, org *domain.Organization) error {
	if _, ok := m.orgs[org.ID]; !ok {
		return ErrOrgNotFound
	}
	m.orgs[org.ID] = org
	return nil
}

func (m *mockRepository) DeleteOrg(ctx context.Context, id string) error {
	if _, ok := m.orgs[id]; !ok {
		return ErrOrgNotFound
	}
	delete(m.orgs, id)
	return nil
}

func (m *mockRepository) CreatePage(ctx context.Context, page *domain.StatusPage) error {
	for _, existing := range m.pages {
		if existing.Slug == page.Slug {
			return ErrSlugExists
		}
	}
	page.ID = fmt.Sprintf("page-%d", len(m.pages)+1)
	m.pages[page.ID] = page
	return nil
}

func (m *mockRepository) GetPageByID(ctx context.Context, id string) (*domain.StatusPage, error) {
	page, ok := m.pages[id]
	if !ok {
		return nil, ErrPageNotFound
	}
	return page, nil
}

func (m *mockRepository) GetPageBySlug(ctx context.Context, slug string) (*domain.StatusPage, error) {
	for _, page := range m.pages {
		if page.Slug == slug {
			return page, nil
		}
	}
	return nil, ErrPageNotFound
}

func (m *mockRepository) ListPages(ctx context.Context, orgID string) ([]domain.StatusPage, error) {
	var pages []domain.StatusPage
	for _, page := range m.pages {
		if page.OrgID == orgID {
			pages = append(pages, *page)
		}
	}
	return pages, nil
}

func (m *mockRepository) UpdatePage(ctx context.Context, page *domain.StatusPage) error {
	if _, ok := m.pages[page.ID]; !ok {
		return ErrPageNotFound
	}
	m.pages[page.ID] = page
	return nil
}

func (m *mockRepository) DeletePage(ctx context.Context, id string) error {
	if _, ok := m.pages[id]; !ok {
		return ErrPageNotFound
	}
	delete(m.pages, id)
	return nil
}

type mockComponentSource struct {
	components []domain.Component
	groups     []domain.ComponentGroup
}

func (m *mockComponentSource) ListVisibleComponents(ctx context.Context, pageID string) ([]domain.Component, error) {
	return m.components, nil
}

func (m *mockComponentSource) ListGroups(ctx context.Context, pageID string) ([]domain.ComponentGroup, error) {
	return m.groups, nil
}

type mockIncidentSource struct {
	incidents []*domain.Incident
}

func (m *mockIncidentSource) ListActiveIncidents(ctx context.Context, pageID string) ([]*domain.Incident, error) {
	return m.incidents, nil
}

type mockMaintenanceSource struct {
	windows []*domain.MaintenanceWindow
}

func (m *mockMaintenanceSource) ListUpcomingWindows(ctx context.Context, pageID string) ([]*domain.MaintenanceWindow, error) {
	return m.windows, nil
}

func newTestService(repo *mockRepository, components *mockComponentSource, incidents *mockIncidentSource, maintenance *mockMaintenanceSource) *Service {
	if components == nil {
		components = &mockComponentSource{}
	}
	if incidents == nil {
		incidents = &mockIncidentSource{}
	}
	if maintenance == nil {
		maintenance = &mockMaintenanceSource{}
	}
	return NewService(repo, components, incidents, maintenance)
}

func addPublicPage(t *testing.T, repo *mockRepository, pageSlug string) *domain.StatusPage {
	t.Helper()
	org := &domain.Organization{Name: "Acme", Slug: "acme-" + pageSlug}
	require.NoError(t, repo.CreateOrg(context.Background(), org))
	page := &domain.StatusPage{OrgID: org.ID, Name: "Acme Status", Slug: pageSlug, IsPublic: true}
	require.NoError(t, repo.CreatePage(context.Background(), page))
	return page
}

func TestCreateOrg_GeneratesSlugFromName(t *testing.T) {
	repo := newMockRepository()
	service := newTestService(repo, nil, nil, nil)

	org := &domain.Organization{Name: "Acme Corp"}
	err := service.CreateOrg(context.Background(), org)

	require.NoError(t, err)
	assert.Equal(t, "acme-corp", org.Slug)
}

func TestCreatePage_OrgNotFound(t *testing.T) {
	repo := newMockRepository()
	service := newTestService(repo, nil, nil, nil)

	page := &domain.StatusPage{OrgID: "missing", Name: "Status"}
	err := service.CreatePage(context.Background(), page)

	assert.ErrorIs(t, err, ErrOrgNotFound)
}

func TestCreatePage_DuplicateSlug(t *testing.T) {
	repo := newMockRepository()
	service := newTestService(repo, nil, nil, nil)
	existing := addPublicPage(t, repo, "acme")

	page := &domain.StatusPage{OrgID: existing.OrgID, Name: "Other", Slug: "acme"}
	err := service.CreatePage(context.Background(), page)

	assert.ErrorIs(t, err, ErrSlugExists)
}

func TestOverview_DerivesWorstComponentStatus(t *testing.T) {
	repo := newMockRepository()
	components := &mockComponentSource{
		components: []domain.Component{
			{ID: "c1", Status: domain.ComponentStatusOperational},
			{ID: "c2", Status: domain.ComponentStatusDegraded},
			{ID: "c3", Status: domain.ComponentStatusPartialOut},
		},
	}
	service := newTestService(repo, components, nil, nil)
	addPublicPage(t, repo, "acme")

	overview, err := service.Overview(context.Background(), "acme")

	require.NoError(t, err)
	assert.Equal(t, domain.ComponentStatusPartialOut, overview.OverallStatus)
	assert.Len(t, overview.Components, 3)
}

func TestOverview_EmptyPageIsOperational(t *testing.T) {
	repo := newMockRepository()
	service := newTestService(repo, nil, nil, nil)
	addPublicPage(t, repo, "acme")

	overview, err := service.Overview(context.Background(), "acme")

	require.NoError(t, err)
	assert.Equal(t, domain.ComponentStatusOperational, overview.OverallStatus)
}

func TestOverview_MaintenanceOutranksNothingButOperational(t *testing.T) {
	repo := newMockRepository()
	components := &mockComponentSource{
		components: []domain.Component{
			{ID: "c1", Status: domain.ComponentStatusOperational},
			{ID: "c2", Status: domain.ComponentStatusMaintenance},
		},
	}
	service := newTestService(repo, components, nil, nil)
	addPublicPage(t, repo, "acme")

	overview, err := service.Overview(context.Background(), "acme")

	require.NoError(t, err)
	assert.Equal(t, domain.ComponentStatusMaintenance, overview.OverallStatus)
}

func TestOverview_PrivatePageHidden(t *testing.T) {
	repo := newMockRepository()
	service := newTestService(repo, nil, nil, nil)
	page := addPublicPage(t, repo, "internal")
	page.IsPublic = false

	_, err := service.Overview(context.Background(), "internal")

	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestAdminOverview_IncludesPrivatePage(t *testing.T) {
	repo := newMockRepository()
	incidents := &mockIncidentSource{
		incidents: []*domain.Incident{{ID: "i1", Title: "API errors"}},
	}
	service := newTestService(repo, nil, incidents, nil)
	page := addPublicPage(t, repo, "internal")
	page.IsPublic = false

	overview, err := service.AdminOverview(context.Background(), page.ID)

	require.NoError(t, err)
	assert.Len(t, overview.ActiveIncidents, 1)
}

func TestPageExists(t *testing.T) {
	repo := newMockRepository()
	service := newTestService(repo, nil, nil, nil)
	page := addPublicPage(t, repo, "acme")

	exists, err := service.PageExists(context.Background(), page.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = service.PageExists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/signalboard/signalboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx is a minimal pgx.Tx for exercising transactional paths.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Begin(_ context.Context) (pgx.Tx, error) { return t, nil }

func (t *fakeTx) Commit(_ context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

func (t *fakeTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (t *fakeTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }

func (t *fakeTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *fakeTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *fakeTx) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, nil
}

func (t *fakeTx) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row { return nil }

func (t *fakeTx) Conn() *pgx.Conn { return nil }

// mockRepository implements Repository for testing.
type mockRepository struct {
	components map[string]*domain.Component
	groups     map[string]*domain.ComponentGroup
	pages      map[string]bool
	metrics    map[string]*domain.ComponentMetric
	points     []*domain.MetricPoint
	statusLog  []*domain.StatusLogEntry
	tx         *fakeTx

	nextID int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		components: make(map[string]*domain.Component),
		groups:     make(map[string]*domain.ComponentGroup),
		pages:      make(map[string]bool),
		metrics:    make(map[string]*domain.ComponentMetric),
		tx:         &fakeTx{},
	}
}

func (m *mockRepository) id(prefix string) string {
	m.nextID++
	return prefix + "-" + string(rune('0'+m.nextID))
}

func (m *mockRepository) CreateComponent(_ context.Context, component *domain.Component) error {
	for _, c := range m.components {
		if c.PageID == component.PageID && c.Slug == component.Slug {
			return ErrSlugExists
		}
	}
	component.ID = m.id("component")
	m.components[component.ID] = component
	return nil
}

func (m *mockRepository) GetComponentByID(_ context.Context, id string) (*domain.Component, error) {
	if c, ok := m.components[id]; ok {
		return c, nil
	}
	return nil, ErrComponentNotFound
}

func (m *mockRepository) GetComponentBySlug(_ context.Context, pageID, slug string) (*domain.Component, error) {
	for _, c := range m.components {
		if c.PageID == pageID && c.Slug == slug {
			return c, nil
		}
	}
	return nil, ErrComponentNotFound
}

func (m *mockRepository) ListComponents(_ context.Context, filter ComponentFilter) ([]domain.Component, error) {
	result := make([]domain.Component, 0)
	for _, c := range m.components {
		if c.PageID != filter.PageID {
			continue
		}
		if filter.VisibleOnly && !c.Visible {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		result = append(result, *c)
	}
	return result, nil
}

func (m *mockRepository) UpdateComponent(_ context.Context, component *domain.Component) error {
	if _, ok := m.components[component.ID]; !ok {
		return ErrComponentNotFound
	}
	m.components[component.ID] = component
	return nil
}

func (m *mockRepository) DeleteComponent(_ context.Context, id string) error {
	if _, ok := m.components[id]; !ok {
		return ErrComponentNotFound
	}
	delete(m.components, id)
	return nil
}

func (m *mockRepository) ValidateComponentsExist(_ context.Context, pageID string, ids []string) ([]string, error) {
	missing := make([]string, 0)
	for _, id := range ids {
		c, ok := m.components[id]
		if !ok || c.PageID != pageID {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (m *mockRepository) CreateGroup(_ context.Context, group *domain.ComponentGroup) error {
	group.ID = m.id("group")
	m.groups[group.ID] = group
	return nil
}

func (m *mockRepository) GetGroupByID(_ context.Context, id string) (*domain.ComponentGroup, error) {
	if g, ok := m.groups[id]; ok {
		return g, nil
	}
	return nil, ErrGroupNotFound
}

func (m *mockRepository) GetGroupBySlug(_ context.Context, pageID, slug string) (*domain.ComponentGroup, error) {
	for _, g := range m.groups {
		if g.PageID == pageID && g.Slug == slug {
			return g, nil
		}
	}
	return nil, ErrGroupNotFound
}

func (m *mockRepository) ListGroups(_ context.Context, pageID string) ([]domain.ComponentGroup, error) {
	result := make([]domain.ComponentGroup, 0)
	for _, g := range m.groups {
		if g.PageID == pageID {
			result = append(result, *g)
		}
	}
	return result, nil
}

func (m *mockRepository) UpdateGroup(_ context.Context, group *domain.ComponentGroup) error {
	if _, ok := m.groups[group.ID]; !ok {
		return ErrGroupNotFound
	}
	m.groups[group.ID] = group
	return nil
}

func (m *mockRepository) DeleteGroup(_ context.Context, id string) error {
	if _, ok := m.groups[id]; !ok {
		return ErrGroupNotFound
	}
	delete(m.groups, id)
	return nil
}

func (m *mockRepository) PageExists(_ context.Context, pageID string) (bool, error) {
	return m.pages[pageID], nil
}

func (m *mockRepository) CreateMetric(_ context.Context, metric *domain.ComponentMetric) error {
	metric.ID = m.id("metric")
	m.metrics[metric.ID] = metric
	return nil
}

func (m *mockRepository) GetMetricByID(_ context.Context, id string) (*domain.ComponentMetric, error) {
	if metric, ok := m.metrics[id]; ok {
		return metric, nil
	}
	return nil, ErrMetricNotFound
}

func (m *mockRepository) ListMetrics(_ context.Context, componentID string) ([]domain.ComponentMetric, error) {
	result := make([]domain.ComponentMetric, 0)
	for _, metric := range m.metrics {
		if metric.ComponentID == componentID {
			result = append(result, *metric)
		}
	}
	return result, nil
}

func (m *mockRepository) RecordMetricPoint(_ context.Context, point *domain.MetricPoint) error {
	point.ID = m.id("point")
	m.points = append(m.points, point)
	return nil
}

func (m *mockRepository) ListMetricPoints(_ context.Context, metricID string, since, until time.Time, limit int) ([]domain.MetricPoint, error) {
	result := make([]domain.MetricPoint, 0)
	for _, p := range m.points {
		if p.MetricID != metricID || p.RecordedAt.Before(since) || p.RecordedAt.After(until) {
			continue
		}
		if len(result) == limit {
			break
		}
		result = append(result, *p)
	}
	return result, nil
}

func (m *mockRepository) CreateStatusLogEntry(_ context.Context, entry *domain.StatusLogEntry) error {
	entry.ID = m.id("log")
	m.statusLog = append(m.statusLog, entry)
	return nil
}

func (m *mockRepository) CreateStatusLogEntryTx(_ context.Context, _ pgx.Tx, entry *domain.StatusLogEntry) error {
	entry.ID = m.id("log")
	m.statusLog = append(m.statusLog, entry)
	return nil
}

func (m *mockRepository) ListStatusLog(_ context.Context, componentID string, limit, offset int) ([]domain.StatusLogEntry, error) {
	result := make([]domain.StatusLogEntry, 0)
	for _, e := range m.statusLog {
		if e.ComponentID == componentID {
			result = append(result, *e)
		}
	}
	if offset > len(result) {
		offset = len(result)
	}
	result = result[offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockRepository) CountStatusLog(_ context.Context, componentID string) (int, error) {
	count := 0
	for _, e := range m.statusLog {
		if e.ComponentID == componentID {
			count++
		}
	}
	return count, nil
}

func (m *mockRepository) BeginTx(_ context.Context) (pgx.Tx, error) {
	return m.tx, nil
}

func (m *mockRepository) UpdateComponentStatusTx(_ context.Context, _ pgx.Tx, componentID string, status domain.ComponentStatus) error {
	c, ok := m.components[componentID]
	if !ok {
		return ErrComponentNotFound
	}
	c.Status = status
	return nil
}

func (m *mockRepository) addPage(id string) {
	m.pages[id] = true
}

func (m *mockRepository) addComponent(pageID, slug string, status domain.ComponentStatus) *domain.Component {
	c := &domain.Component{
		PageID:  pageID,
		Name:    slug,
		Slug:    slug,
		Status:  status,
		Visible: true,
	}
	c.ID = m.id("component")
	m.components[c.ID] = c
	return c
}

func TestCreateComponent_GeneratesSlugFromName(t *testing.T) {
	repo := newMockRepository()
	repo.addPage("page-1")
	service := NewService(repo)

	component := &domain.Component{
		PageID:  "page-1",
		Name:    "API Gateway",
		Status:  domain.ComponentStatusOperational,
		Visible: true,
	}
	err := service.CreateComponent(context.Background(), component)

	require.NoError(t, err)
	assert.Equal(t, "api-gateway", component.Slug)
	assert.NotEmpty(t, component.ID)
}

func TestCreateComponent_PageNotFound(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	component := &domain.Component{
		PageID: "missing",
		Name:   "API",
		Status: domain.ComponentStatusOperational,
	}
	err := service.CreateComponent(context.Background(), component)

	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestCreateComponent_GroupFromAnotherPage(t *testing.T) {
	repo := newMockRepository()
	repo.addPage("page-1")
	repo.addPage("page-2")
	service := NewService(repo)

	group := &domain.ComponentGroup{PageID: "page-2", Name: "Core", Slug: "core"}
	require.NoError(t, repo.CreateGroup(context.Background(), group))

	component := &domain.Component{
		PageID:  "page-1",
		GroupID: &group.ID,
		Name:    "API",
		Status:  domain.ComponentStatusOperational,
	}
	err := service.CreateComponent(context.Background(), component)

	assert.ErrorIs(t, err, ErrGroupPageMismatch)
}

func TestCreateComponent_InvalidStatus(t *testing.T) {
	repo := newMockRepository()
	repo.addPage("page-1")
	service := NewService(repo)

	component := &domain.Component{
		PageID: "page-1",
		Name:   "API",
		Status: "exploded",
	}
	err := service.CreateComponent(context.Background(), component)

	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateComponentStatus_WritesAuditEntry(t *testing.T) {
	repo := newMockRepository()
	repo.addPage("page-1")
	component := repo.addComponent("page-1", "api", domain.ComponentStatusOperational)
	service := NewService(repo)

	err := service.UpdateComponentStatus(context.Background(), UpdateStatusInput{
		ComponentID: component.ID,
		Status:      domain.ComponentStatusMajorOut,
		Reason:      "database down",
		UpdatedBy:   "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.ComponentStatusMajorOut, repo.components[component.ID].Status)
	assert.True(t, repo.tx.committed)

	require.Len(t, repo.statusLog, 1)
	entry := repo.statusLog[0]
	assert.Equal(t, domain.StatusLogSourceManual, entry.SourceType)
	require.NotNil(t, entry.OldStatus)
	assert.Equal(t, domain.ComponentStatusOperational, *entry.OldStatus)
	assert.Equal(t, domain.ComponentStatusMajorOut, entry.NewStatus)
	assert.Equal(t, "database down", entry.Reason)
	assert.Nil(t, entry.IncidentID)
}

func TestUpdateComponentStatus_InvalidStatus(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	err := service.UpdateComponentStatus(context.Background(), UpdateStatusInput{
		ComponentID: "component-1",
		Status:      "bogus",
	})

	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Empty(t, repo.statusLog)
}

func TestApplyStatusWrites_RecordsIncidentSource(t *testing.T) {
	repo := newMockRepository()
	repo.addPage("page-1")
	api := repo.addComponent("page-1", "api", domain.ComponentStatusOperational)
	db := repo.addComponent("page-1", "db", domain.ComponentStatusDegraded)
	service := NewService(repo)

	writes := domain.PlanImpactWrites(domain.IncidentImpactCritical, []string{api.ID, db.ID})
	tx, err := service.BeginTx(context.Background())
	require.NoError(t, err)

	err = service.ApplyStatusWrites(context.Background(), tx, writes, "incident-1", "user-1", "Total outage")
	require.NoError(t, err)

	assert.Equal(t, domain.ComponentStatusMajorOut, repo.components[api.ID].Status)
	assert.Equal(t, domain.ComponentStatusMajorOut, repo.components[db.ID].Status)

	require.Len(t, repo.statusLog, 2)
	for _, entry := range repo.statusLog {
		assert.Equal(t, domain.StatusLogSourceIncident, entry.SourceType)
		require.NotNil(t, entry.IncidentID)
		assert.Equal(t, "incident-1", *entry.IncidentID)
	}

	// Each entry records the status the component held before the write,
	// even though the mock returns live references.
	oldByComponent := map[string]domain.ComponentStatus{}
	for _, entry := range repo.statusLog {
		require.NotNil(t, entry.OldStatus)
		oldByComponent[entry.ComponentID] = *entry.OldStatus
	}
	assert.Equal(t, domain.ComponentStatusOperational, oldByComponent[api.ID])
	assert.Equal(t, domain.ComponentStatusDegraded, oldByComponent[db.ID])
}

func TestRecordMetricPoint_StampsCurrentTime(t *testing.T) {
	repo := newMockRepository()
	repo.addPage("page-1")
	component := repo.addComponent("page-1", "api", domain.ComponentStatusOperational)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service := NewService(repo).WithClock(func() time.Time { return now })

	metric := &domain.ComponentMetric{ComponentID: component.ID, Name: "Response time", Suffix: "ms"}
	require.NoError(t, service.CreateMetric(context.Background(), metric))

	point := &domain.MetricPoint{MetricID: metric.ID, Value: 123.4}
	require.NoError(t, service.RecordMetricPoint(context.Background(), point))

	assert.Equal(t, now, point.RecordedAt)
}

func TestListMetricPoints_UnknownMetric(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	_, err := service.ListMetricPoints(context.Background(), "missing", time.Time{}, time.Time{}, 10)

	assert.ErrorIs(t, err, ErrMetricNotFound)
}

func TestCreateGroup_GeneratesSlugFromName(t *testing.T) {
	repo := newMockRepository()
	repo.addPage("page-1")
	service := NewService(repo)

	group := &domain.ComponentGroup{PageID: "page-1", Name: "Core Services"}
	err := service.CreateGroup(context.Background(), group)

	require.NoError(t, err)
	assert.Equal(t, "core-services", group.Slug)
}

func TestListVisibleComponents_FiltersHidden(t *testing.T) {
	repo := newMockRepository()
	repo.addPage("page-1")
	repo.addComponent("page-1", "api", domain.ComponentStatusOperational)
	hidden := repo.addComponent("page-1", "internal-queue", domain.ComponentStatusMajorOut)
	hidden.Visible = false
	service := NewService(repo)

	components, err := service.ListVisibleComponents(context.Background(), "page-1")

	require.NoError(t, err)
	require.Len(t, components, 1)
	assert.Equal(t, "api", components[0].Slug)
}

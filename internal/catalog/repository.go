// Package catalog provides business logic and HTTP handlers for
// components, component groups and component metrics.
package catalog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/signalboard/signalboard/internal/domain"
)

// Repository defines the interface for catalog data operations.
type Repository interface {
	CreateComponent(ctx context.Context, component *domain.Component) error
	GetComponentByID(ctx context.Context, id string) (*domain.Component, error)
	GetComponentBySlug(ctx context.Context, pageID, slug string) (*domain.Component, error)
	ListComponents(ctx context.Context, filter ComponentFilter) ([]domain.Component, error)
	UpdateComponent(ctx context.Context, component *domain.Component) error
	DeleteComponent(ctx context.Context, id string) error

	// ValidateComponentsExist returns the subset of ids that do not exist
	// or belong to a different status page.
	ValidateComponentsExist(ctx context.Context, pageID string, ids []string) (missing []string, err error)

	CreateGroup(ctx context.Context, group *domain.ComponentGroup) error
	GetGroupByID(ctx context.Context, id string) (*domain.ComponentGroup, error)
	GetGroupBySlug(ctx context.Context, pageID, slug string) (*domain.ComponentGroup, error)
	ListGroups(ctx context.Context, pageID string) ([]domain.ComponentGroup, error)
	UpdateGroup(ctx context.Context, group *domain.ComponentGroup) error
	DeleteGroup(ctx context.Context, id string) error

	PageExists(ctx context.Context, pageID string) (bool, error)

	// Component metrics (flat filtered retrieval, no aggregation).
	CreateMetric(ctx context.Context, metric *domain.ComponentMetric) error
	GetMetricByID(ctx context.Context, id string) (*domain.ComponentMetric, error)
	ListMetrics(ctx context.Context, componentID string) ([]domain.ComponentMetric, error)
	RecordMetricPoint(ctx context.Context, point *domain.MetricPoint) error
	ListMetricPoints(ctx context.Context, metricID string, since, until time.Time, limit int) ([]domain.MetricPoint, error)

	// Status log.
	CreateStatusLogEntry(ctx context.Context, entry *domain.StatusLogEntry) error
	CreateStatusLogEntryTx(ctx context.Context, tx pgx.Tx, entry *domain.StatusLogEntry) error
	ListStatusLog(ctx context.Context, componentID string, limit, offset int) ([]domain.StatusLogEntry, error)
	CountStatusLog(ctx context.Context, componentID string) (int, error)

	// Transaction support for impact propagation and the direct status path.
	BeginTx(ctx context.Context) (pgx.Tx, error)
	UpdateComponentStatusTx(ctx context.Context, tx pgx.Tx, componentID string, status domain.ComponentStatus) error
}

// ComponentFilter represents filter criteria for listing components.
type ComponentFilter struct {
	PageID      string
	GroupID     *string
	Status      *domain.ComponentStatus
	VisibleOnly bool
}

// Package postgres provides PostgreSQL implementation of the catalog repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/signalboard/signalboard/internal/catalog"
	"github.com/signalboard/signalboard/internal/domain"
)

const uniqueViolationCode = "23505"

// Repository implements the catalog.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// CreateComponent creates a new component in the database.
func (r *Repository) CreateComponent(ctx context.Context, component *domain.Component) error {
	query := `
		INSERT INTO components (page_id, group_id, name, slug, description, status, visible, "order")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		component.PageID,
		component.GroupID,
		component.Name,
		component.Slug,
		component.Description,
		component.Status,
		component.Visible,
		component.Order,
	).Scan(&component.ID, &component.CreatedAt, &component.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrSlugExists
		}
		return fmt.Errorf("create component: %w", err)
	}
	return nil
}

// GetComponentByID retrieves a component by its ID.
func (r *Repository) GetComponentByID(ctx context.Context, id string) (*domain.Component, error) {
	query := `
		SELECT id, page_id, group_id, name, slug, description, status, visible, "order", created_at, updated_at
		FROM components
		WHERE id = $1
	`
	return r.scanComponent(r.db.QueryRow(ctx, query, id))
}

// GetComponentBySlug retrieves a component by page and slug.
func (r *Repository) GetComponentBySlug(ctx context.Context, pageID, slug string) (*domain.Component, error) {
	query := `
		SELECT id, page_id, group_id, name, slug, description, status, visible, "order", created_at, updated_at
		FROM components
		WHERE page_id = $1 AND slug = $2
	`
	return r.scanComponent(r.db.QueryRow(ctx, query, pageID, slug))
}

func (r *Repository) scanComponent(row pgx.Row) (*domain.Component, error) {
	var component domain.Component
	err := row.Scan(
		&component.ID,
		&component.PageID,
		&component.GroupID,
		&component.Name,
		&component.Slug,
		&component.Description,
		&component.Status,
		&component.Visible,
		&component.Order,
		&component.CreatedAt,
		&component.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrComponentNotFound
		}
		return nil, fmt.Errorf("scan component: %w", err)
	}
	return &component, nil
}

// ListComponents retrieves all components matching the provided filter.
func (r *Repository) ListComponents(ctx context.Context, filter catalog.ComponentFilter) ([]domain.Component, error) {
	query := `
		SELECT id, page_id, group_id, name, slug, description, status, visible, "order", created_at, updated_at
		FROM components
		WHERE page_id = $1
	`
	args := []interface{}{filter.PageID}
	argNum := 2

	if filter.GroupID != nil {
		query += fmt.Sprintf(" AND group_id = $%d", argNum)
		args = append(args, *filter.GroupID)
		argNum++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *filter.Status)
	}

	if filter.VisibleOnly {
		query += " AND visible"
	}

	query += ` ORDER BY "order", name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	defer rows.Close()

	components := make([]domain.Component, 0)
	for rows.Next() {
		var component domain.Component
		err := rows.Scan(
			&component.ID,
			&component.PageID,
			&component.GroupID,
			&component.Name,
			&component.Slug,
			&component.Description,
			&component.Status,
			&component.Visible,
			&component.Order,
			&component.CreatedAt,
			&component.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		components = append(components, component)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate components: %w", err)
	}

	return components, nil
}

// UpdateComponent updates an existing component. Status is owned by the
// dedicated status update path and is not touched here.
func (r *Repository) UpdateComponent(ctx context.Context, component *domain.Component) error {
	query := `
		UPDATE components
		SET name = $2, slug = $3, description = $4, group_id = $5, visible = $6, "order" = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		component.ID,
		component.Name,
		component.Slug,
		component.Description,
		component.GroupID,
		component.Visible,
		component.Order,
	).Scan(&component.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ErrComponentNotFound
		}
		if isUniqueViolation(err) {
			return catalog.ErrSlugExists
		}
		return fmt.Errorf("update component: %w", err)
	}
	return nil
}

// DeleteComponent deletes a component by its ID.
func (r *Repository) DeleteComponent(ctx context.Context, id string) error {
	query := `DELETE FROM components WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete component: %w", err)
	}

	if result.RowsAffected() == 0 {
		return catalog.ErrComponentNotFound
	}
	return nil
}

// ValidateComponentsExist returns the subset of ids that do not reference a
// component of the given status page.
func (r *Repository) ValidateComponentsExist(ctx context.Context, pageID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT id FROM components WHERE page_id = $1 AND id = ANY($2)`
	rows, err := r.db.Query(ctx, query, pageID, ids)
	if err != nil {
		return nil, fmt.Errorf("validate components exist: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan component id: %w", err)
		}
		found[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate component ids: %w", err)
	}

	missing := make([]string, 0)
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// CreateGroup creates a new component group in the database.
func (r *Repository) CreateGroup(ctx context.Context, group *domain.ComponentGroup) error {
	query := `
		INSERT INTO component_groups (page_id, name, slug, description, "order")
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		group.PageID,
		group.Name,
		group.Slug,
		group.Description,
		group.Order,
	).Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrSlugExists
		}
		return fmt.Errorf("create component group: %w", err)
	}
	return nil
}

// GetGroupByID retrieves a component group by its ID.
func (r *Repository) GetGroupByID(ctx context.Context, id string) (*domain.ComponentGroup, error) {
	query := `
		SELECT id, page_id, name, slug, description, "order", created_at, updated_at
		FROM component_groups
		WHERE id = $1
	`
	return r.scanGroup(r.db.QueryRow(ctx, query, id))
}

// GetGroupBySlug retrieves a component group by page and slug.
func (r *Repository) GetGroupBySlug(ctx context.Context, pageID, slug string) (*domain.ComponentGroup, error) {
	query := `
		SELECT id, page_id, name, slug, description, "order", created_at, updated_at
		FROM component_groups
		WHERE page_id = $1 AND slug = $2
	`
	return r.scanGroup(r.db.QueryRow(ctx, query, pageID, slug))
}

func (r *Repository) scanGroup(row pgx.Row) (*domain.ComponentGroup, error) {
	var group domain.ComponentGroup
	err := row.Scan(
		&group.ID,
		&group.PageID,
		&group.Name,
		&group.Slug,
		&group.Description,
		&group.Order,
		&group.CreatedAt,
		&group.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrGroupNotFound
		}
		return nil, fmt.Errorf("scan component group: %w", err)
	}
	return &group, nil
}

// ListGroups retrieves all groups of a status page ordered by order and name.
func (r *Repository) ListGroups(ctx context.Context, pageID string) ([]domain.ComponentGroup, error) {
	query := `
		SELECT id, page_id, name, slug, description, "order", created_at, updated_at
		FROM component_groups
		WHERE page_id = $1
		ORDER BY "order", name
	`
	rows, err := r.db.Query(ctx, query, pageID)
	if err != nil {
		return nil, fmt.Errorf("list component groups: %w", err)
	}
	defer rows.Close()

	groups := make([]domain.ComponentGroup, 0)
	for rows.Next() {
		var group domain.ComponentGroup
		err := rows.Scan(
			&group.ID,
			&group.PageID,
			&group.Name,
			&group.Slug,
			&group.Description,
			&group.Order,
			&group.CreatedAt,
			&group.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan component group: %w", err)
		}
		groups = append(groups, group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate component groups: %w", err)
	}

	return groups, nil
}

// UpdateGroup updates an existing component group.
func (r *Repository) UpdateGroup(ctx context.Context, group *domain.ComponentGroup) error {
	query := `
		UPDATE component_groups
		SET name = $2, slug = $3, description = $4, "order" = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		group.ID,
		group.Name,
		group.Slug,
		group.Description,
		group.Order,
	).Scan(&group.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ErrGroupNotFound
		}
		if isUniqueViolation(err) {
			return catalog.ErrSlugExists
		}
		return fmt.Errorf("update component group: %w", err)
	}
	return nil
}

// DeleteGroup deletes a component group. Member components keep existing
// with their group reference cleared by the schema's ON DELETE SET NULL.
func (r *Repository) DeleteGroup(ctx context.Context, id string) error {
	query := `DELETE FROM component_groups WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete component group: %w", err)
	}

	if result.RowsAffected() == 0 {
		return catalog.ErrGroupNotFound
	}
	return nil
}

// PageExists reports whether a status page with the given ID exists.
func (r *Repository) PageExists(ctx context.Context, pageID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM status_pages WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, pageID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check page exists: %w", err)
	}
	return exists, nil
}

// CreateMetric registers a new metric time series for a component.
func (r *Repository) CreateMetric(ctx context.Context, metric *domain.ComponentMetric) error {
	query := `
		INSERT INTO component_metrics (component_id, name, description, suffix)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		metric.ComponentID,
		metric.Name,
		metric.Description,
		metric.Suffix,
	).Scan(&metric.ID, &metric.CreatedAt)

	if err != nil {
		return fmt.Errorf("create component metric: %w", err)
	}
	return nil
}

// GetMetricByID retrieves a component metric by its ID.
func (r *Repository) GetMetricByID(ctx context.Context, id string) (*domain.ComponentMetric, error) {
	query := `
		SELECT id, component_id, name, description, suffix, created_at
		FROM component_metrics
		WHERE id = $1
	`
	var metric domain.ComponentMetric
	err := r.db.QueryRow(ctx, query, id).Scan(
		&metric.ID,
		&metric.ComponentID,
		&metric.Name,
		&metric.Description,
		&metric.Suffix,
		&metric.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrMetricNotFound
		}
		return nil, fmt.Errorf("get component metric: %w", err)
	}
	return &metric, nil
}

// ListMetrics retrieves all metrics registered on a component.
func (r *Repository) ListMetrics(ctx context.Context, componentID string) ([]domain.ComponentMetric, error) {
	query := `
		SELECT id, component_id, name, description, suffix, created_at
		FROM component_metrics
		WHERE component_id = $1
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, componentID)
	if err != nil {
		return nil, fmt.Errorf("list component metrics: %w", err)
	}
	defer rows.Close()

	metrics := make([]domain.ComponentMetric, 0)
	for rows.Next() {
		var metric domain.ComponentMetric
		err := rows.Scan(
			&metric.ID,
			&metric.ComponentID,
			&metric.Name,
			&metric.Description,
			&metric.Suffix,
			&metric.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan component metric: %w", err)
		}
		metrics = append(metrics, metric)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate component metrics: %w", err)
	}

	return metrics, nil
}

// RecordMetricPoint appends a value to a metric time series.
func (r *Repository) RecordMetricPoint(ctx context.Context, point *domain.MetricPoint) error {
	query := `
		INSERT INTO metric_points (metric_id, value, recorded_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		point.MetricID,
		point.Value,
		point.RecordedAt,
	).Scan(&point.ID)

	if err != nil {
		return fmt.Errorf("record metric point: %w", err)
	}
	return nil
}

// ListMetricPoints returns points of a metric within [since, until],
// oldest first.
func (r *Repository) ListMetricPoints(ctx context.Context, metricID string, since, until time.Time, limit int) ([]domain.MetricPoint, error) {
	query := `
		SELECT id, metric_id, value, recorded_at
		FROM metric_points
		WHERE metric_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
		ORDER BY recorded_at
		LIMIT $4
	`
	rows, err := r.db.Query(ctx, query, metricID, since, until, limit)
	if err != nil {
		return nil, fmt.Errorf("list metric points: %w", err)
	}
	defer rows.Close()

	points := make([]domain.MetricPoint, 0)
	for rows.Next() {
		var point domain.MetricPoint
		if err := rows.Scan(&point.ID, &point.MetricID, &point.Value, &point.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan metric point: %w", err)
		}
		points = append(points, point)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric points: %w", err)
	}

	return points, nil
}

// CreateStatusLogEntry creates a new entry in the component status log.
func (r *Repository) CreateStatusLogEntry(ctx context.Context, entry *domain.StatusLogEntry) error {
	query := `
		INSERT INTO component_status_log (component_id, old_status, new_status, source_type, incident_id, reason, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	return r.db.QueryRow(ctx, query,
		entry.ComponentID,
		entry.OldStatus,
		entry.NewStatus,
		entry.SourceType,
		entry.IncidentID,
		entry.Reason,
		entry.CreatedBy,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// CreateStatusLogEntryTx creates a new entry in the component status log within a transaction.
func (r *Repository) CreateStatusLogEntryTx(ctx context.Context, tx pgx.Tx, entry *domain.StatusLogEntry) error {
	query := `
		INSERT INTO component_status_log (component_id, old_status, new_status, source_type, incident_id, reason, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	return tx.QueryRow(ctx, query,
		entry.ComponentID,
		entry.OldStatus,
		entry.NewStatus,
		entry.SourceType,
		entry.IncidentID,
		entry.Reason,
		entry.CreatedBy,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// ListStatusLog returns the status change history for a component.
func (r *Repository) ListStatusLog(ctx context.Context, componentID string, limit, offset int) ([]domain.StatusLogEntry, error) {
	query := `
		SELECT id, component_id, old_status, new_status, source_type, incident_id, reason, created_by, created_at
		FROM component_status_log
		WHERE component_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, componentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list status log: %w", err)
	}
	defer rows.Close()

	result := make([]domain.StatusLogEntry, 0)
	for rows.Next() {
		var entry domain.StatusLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ComponentID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.SourceType,
			&entry.IncidentID,
			&entry.Reason,
			&entry.CreatedBy,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan status log entry: %w", err)
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// CountStatusLog returns the total number of log entries for a component.
func (r *Repository) CountStatusLog(ctx context.Context, componentID string) (int, error) {
	query := `SELECT COUNT(*) FROM component_status_log WHERE component_id = $1`
	var count int
	err := r.db.QueryRow(ctx, query, componentID).Scan(&count)
	return count, err
}

// BeginTx starts a new transaction.
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

// UpdateComponentStatusTx updates the stored status of a component within a transaction.
func (r *Repository) UpdateComponentStatusTx(ctx context.Context, tx pgx.Tx, componentID string, status domain.ComponentStatus) error {
	query := `UPDATE components SET status = $2, updated_at = NOW() WHERE id = $1`
	result, err := tx.Exec(ctx, query, componentID, status)
	if err != nil {
		return fmt.Errorf("update component status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return catalog.ErrComponentNotFound
	}
	return nil
}

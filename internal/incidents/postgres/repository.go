// Package postgres provides PostgreSQL implementation of the incidents repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/signalboard/signalboard/internal/domain"
	"github.com/signalboard/signalboard/internal/incidents"
)

// Repository implements the incidents.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateIncidentTx creates a new incident within a transaction.
func (r *Repository) CreateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (page_id, title, status, impact, body, started_at, resolved_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := tx.QueryRow(ctx, query,
		incident.PageID,
		incident.Title,
		incident.Status,
		incident.Impact,
		incident.Body,
		incident.StartedAt,
		incident.ResolvedAt,
		incident.CreatedBy,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// GetIncident retrieves an incident by its ID, with its component links.
func (r *Repository) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	query := `
		SELECT id, page_id, title, status, impact, body, started_at, resolved_at, created_by, created_at, updated_at
		FROM incidents
		WHERE id = $1
	`
	var incident domain.Incident
	err := r.db.QueryRow(ctx, query, id).Scan(
		&incident.ID,
		&incident.PageID,
		&incident.Title,
		&incident.Status,
		&incident.Impact,
		&incident.Body,
		&incident.StartedAt,
		&incident.ResolvedAt,
		&incident.CreatedBy,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}

	componentIDs, err := r.GetIncidentComponentIDs(ctx, incident.ID)
	if err != nil {
		return nil, err
	}
	incident.ComponentIDs = componentIDs

	return &incident, nil
}

func buildFilterClause(filter incidents.IncidentFilter, args *[]interface{}) string {
	clause := "WHERE page_id = $1"
	*args = append(*args, filter.PageID)

	if filter.Status != nil {
		*args = append(*args, *filter.Status)
		clause += fmt.Sprintf(" AND status = $%d", len(*args))
	}

	if filter.Resolved != nil {
		if *filter.Resolved {
			clause += " AND status = 'resolved'"
		} else {
			clause += " AND status <> 'resolved'"
		}
	}

	return clause
}

// ListIncidents retrieves incidents matching the filter, newest first.
func (r *Repository) ListIncidents(ctx context.Context, filter incidents.IncidentFilter) ([]*domain.Incident, error) {
	args := make([]interface{}, 0, 4)
	clause := buildFilterClause(filter, &args)

	args = append(args, filter.Limit)
	limitArg := len(args)
	args = append(args, filter.Offset)
	offsetArg := len(args)

	query := fmt.Sprintf(`
		SELECT id, page_id, title, status, impact, body, started_at, resolved_at, created_by, created_at, updated_at
		FROM incidents
		%s
		ORDER BY started_at DESC
		LIMIT $%d OFFSET $%d
	`, clause, limitArg, offsetArg)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Incident, 0)
	for rows.Next() {
		var incident domain.Incident
		err := rows.Scan(
			&incident.ID,
			&incident.PageID,
			&incident.Title,
			&incident.Status,
			&incident.Impact,
			&incident.Body,
			&incident.StartedAt,
			&incident.ResolvedAt,
			&incident.CreatedBy,
			&incident.CreatedAt,
			&incident.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		result = append(result, &incident)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}

	for _, incident := range result {
		componentIDs, err := r.GetIncidentComponentIDs(ctx, incident.ID)
		if err != nil {
			return nil, err
		}
		incident.ComponentIDs = componentIDs
	}

	return result, nil
}

// CountIncidents returns the number of incidents matching the filter.
func (r *Repository) CountIncidents(ctx context.Context, filter incidents.IncidentFilter) (int, error) {
	args := make([]interface{}, 0, 2)
	clause := buildFilterClause(filter, &args)

	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM incidents "+clause, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count incidents: %w", err)
	}
	return count, nil
}

// UpdateIncidentTx updates an existing incident within a transaction.
func (r *Repository) UpdateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error {
	query := `
		UPDATE incidents
		SET title = $2, status = $3, impact = $4, body = $5, resolved_at = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := tx.QueryRow(ctx, query,
		incident.ID,
		incident.Title,
		incident.Status,
		incident.Impact,
		incident.Body,
		incident.ResolvedAt,
	).Scan(&incident.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return incidents.ErrIncidentNotFound
		}
		return fmt.Errorf("update incident: %w", err)
	}
	return nil
}

// DeleteIncidentTx deletes an incident within a transaction. Component
// links and updates are removed by the schema's ON DELETE CASCADE.
func (r *Repository) DeleteIncidentTx(ctx context.Context, tx pgx.Tx, id string) error {
	result, err := tx.Exec(ctx, `DELETE FROM incidents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	if result.RowsAffected() == 0 {
		return incidents.ErrIncidentNotFound
	}
	return nil
}

// LinkComponentsTx links the incident to its affected components.
func (r *Repository) LinkComponentsTx(ctx context.Context, tx pgx.Tx, incidentID string, componentIDs []string) error {
	query := `INSERT INTO incident_components (incident_id, component_id) VALUES ($1, $2)`
	for _, componentID := range componentIDs {
		if _, err := tx.Exec(ctx, query, incidentID, componentID); err != nil {
			return fmt.Errorf("link component %s: %w", componentID, err)
		}
	}
	return nil
}

// GetIncidentComponentIDs returns the IDs of the components linked to an incident.
func (r *Repository) GetIncidentComponentIDs(ctx context.Context, incidentID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT component_id FROM incident_components WHERE incident_id = $1 ORDER BY component_id`,
		incidentID)
	if err != nil {
		return nil, fmt.Errorf("get incident components: %w", err)
	}
	defer rows.Close()

	componentIDs := make([]string, 0)
	for rows.Next() {
		var componentID string
		if err := rows.Scan(&componentID); err != nil {
			return nil, fmt.Errorf("scan component id: %w", err)
		}
		componentIDs = append(componentIDs, componentID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate component ids: %w", err)
	}

	return componentIDs, nil
}

// CreateUpdateTx appends a progress update within a transaction.
func (r *Repository) CreateUpdateTx(ctx context.Context, tx pgx.Tx, update *domain.IncidentUpdate) error {
	query := `
		INSERT INTO incident_updates (incident_id, title, body, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := tx.QueryRow(ctx, query,
		update.IncidentID,
		update.Title,
		update.Body,
		update.Status,
		update.CreatedBy,
	).Scan(&update.ID, &update.CreatedAt)

	if err != nil {
		return fmt.Errorf("create incident update: %w", err)
	}
	return nil
}

// ListUpdates retrieves all updates of an incident, newest first.
func (r *Repository) ListUpdates(ctx context.Context, incidentID string) ([]*domain.IncidentUpdate, error) {
	query := `
		SELECT id, incident_id, title, body, status, created_by, created_at
		FROM incident_updates
		WHERE incident_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list incident updates: %w", err)
	}
	defer rows.Close()

	updates := make([]*domain.IncidentUpdate, 0)
	for rows.Next() {
		var update domain.IncidentUpdate
		err := rows.Scan(
			&update.ID,
			&update.IncidentID,
			&update.Title,
			&update.Body,
			&update.Status,
			&update.CreatedBy,
			&update.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan incident update: %w", err)
		}
		updates = append(updates, &update)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incident updates: %w", err)
	}

	return updates, nil
}

// BeginTx starts a new transaction.
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

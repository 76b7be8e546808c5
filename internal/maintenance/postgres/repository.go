// Package postgres provides PostgreSQL implementation of the maintenance repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/signalboard/signalboard/internal/domain"
	"github.com/signalboard/signalboard/internal/maintenance"
)

// Repository implements the maintenance.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateWindow creates a maintenance window and its component links.
func (r *Repository) CreateWindow(ctx context.Context, window *domain.MaintenanceWindow) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	query := `
		INSERT INTO maintenance_windows (page_id, title, body, status, starts_at, ends_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		window.PageID,
		window.Title,
		window.Body,
		window.Status,
		window.StartsAt,
		window.EndsAt,
		window.CreatedBy,
	).Scan(&window.ID, &window.CreatedAt, &window.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create maintenance window: %w", err)
	}

	if err := r.setComponentsTx(ctx, tx, window.ID, window.ComponentIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetWindow retrieves a maintenance window by its ID.
func (r *Repository) GetWindow(ctx context.Context, id string) (*domain.MaintenanceWindow, error) {
	query := `
		SELECT id, page_id, title, body, status, starts_at, ends_at, created_by, created_at, updated_at
		FROM maintenance_windows
		WHERE id = $1
	`
	var window domain.MaintenanceWindow
	err := r.db.QueryRow(ctx, query, id).Scan(
		&window.ID,
		&window.PageID,
		&window.Title,
		&window.Body,
		&window.Status,
		&window.StartsAt,
		&window.EndsAt,
		&window.CreatedBy,
		&window.CreatedAt,
		&window.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, maintenance.ErrWindowNotFound
		}
		return nil, fmt.Errorf("get maintenance window: %w", err)
	}

	componentIDs, err := r.getComponents(ctx, window.ID)
	if err != nil {
		return nil, err
	}
	window.ComponentIDs = componentIDs

	return &window, nil
}

// ListWindows retrieves maintenance windows matching the filter, ordered
// by start time.
func (r *Repository) ListWindows(ctx context.Context, filter maintenance.WindowFilter) ([]*domain.MaintenanceWindow, error) {
	query := `
		SELECT id, page_id, title, body, status, starts_at, ends_at, created_by, created_at, updated_at
		FROM maintenance_windows
		WHERE page_id = $1
	`
	args := []interface{}{filter.PageID}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	if filter.Upcoming != nil {
		args = append(args, *filter.Upcoming)
		query += fmt.Sprintf(" AND ends_at > $%d", len(args))
	}

	query += " ORDER BY starts_at"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list maintenance windows: %w", err)
	}
	defer rows.Close()

	windows := make([]*domain.MaintenanceWindow, 0)
	for rows.Next() {
		var window domain.MaintenanceWindow
		err := rows.Scan(
			&window.ID,
			&window.PageID,
			&window.Title,
			&window.Body,
			&window.Status,
			&window.StartsAt,
			&window.EndsAt,
			&window.CreatedBy,
			&window.CreatedAt,
			&window.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan maintenance window: %w", err)
		}
		windows = append(windows, &window)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate maintenance windows: %w", err)
	}

	for _, window := range windows {
		componentIDs, err := r.getComponents(ctx, window.ID)
		if err != nil {
			return nil, err
		}
		window.ComponentIDs = componentIDs
	}

	return windows, nil
}

// UpdateWindow updates a maintenance window and replaces its component links.
func (r *Repository) UpdateWindow(ctx context.Context, window *domain.MaintenanceWindow) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	query := `
		UPDATE maintenance_windows
		SET title = $2, body = $3, status = $4, starts_at = $5, ends_at = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err = tx.QueryRow(ctx, query,
		window.ID,
		window.Title,
		window.Body,
		window.Status,
		window.StartsAt,
		window.EndsAt,
	).Scan(&window.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return maintenance.ErrWindowNotFound
		}
		return fmt.Errorf("update maintenance window: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM maintenance_components WHERE window_id = $1`, window.ID); err != nil {
		return fmt.Errorf("delete old component links: %w", err)
	}
	if err := r.setComponentsTx(ctx, tx, window.ID, window.ComponentIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteWindow removes a maintenance window. Component links are removed
// by the schema's ON DELETE CASCADE.
func (r *Repository) DeleteWindow(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM maintenance_windows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete maintenance window: %w", err)
	}
	if result.RowsAffected() == 0 {
		return maintenance.ErrWindowNotFound
	}
	return nil
}

func (r *Repository) setComponentsTx(ctx context.Context, tx pgx.Tx, windowID string, componentIDs []string) error {
	for _, componentID := range componentIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO maintenance_components (window_id, component_id) VALUES ($1, $2)`,
			windowID, componentID)
		if err != nil {
			return fmt.Errorf("link component %s: %w", componentID, err)
		}
	}
	return nil
}

func (r *Repository) getComponents(ctx context.Context, windowID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT component_id FROM maintenance_components WHERE window_id = $1 ORDER BY component_id`,
		windowID)
	if err != nil {
		return nil, fmt.Errorf("get window components: %w", err)
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

// Package postgres provides PostgreSQL storage for organizations and
// status pages.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/signalboard/signalboard/internal/domain"
	"github.com/signalboard/signalboard/internal/statuspages"
)

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// Repository implements statuspages.Repository backed by PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL status pages repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateOrg inserts a new organization.
func (r *Repository) CreateOrg(ctx context.Context, org *domain.Organization) error {
	query := `
		INSERT INTO organizations (name, slug)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, org.Name, org.Slug).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return statuspages.ErrSlugExists
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

// GetOrgByID returns an organization by its id.
func (r *Repository) GetOrgByID(ctx context.Context, id string) (*domain.Organization, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM organizations
		WHERE id = $1`

	return r.scanOrg(r.pool.QueryRow(ctx, query, id))
}

// GetOrgBySlug returns an organization by its slug.
func (r *Repository) GetOrgBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM organizations
		WHERE slug = $1`

	return r.scanOrg(r.pool.QueryRow(ctx, query, slug))
}

// ListOrgs returns all organizations ordered by name.
func (r *Repository) ListOrgs(ctx context.Context) ([]domain.Organization, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM organizations
		ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []domain.Organization
	for rows.Next() {
		var org domain.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate organizations: %w", err)
	}

	return orgs, nil
}

// UpdateOrg updates an organization's name and slug.
func (r *Repository) UpdateOrg(ctx context.Context, org *domain.Organization) error {
	query := `
		UPDATE organizations
		SET name = $2, slug = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query, org.ID, org.Name, org.Slug).Scan(&org.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return statuspages.ErrOrgNotFound
		}
		if isUniqueViolation(err) {
			return statuspages.ErrSlugExists
		}
		return fmt.Errorf("failed to update organization: %w", err)
	}

	return nil
}

// DeleteOrg deletes an organization and, via cascade, its status pages.
func (r *Repository) DeleteOrg(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return statuspages.ErrOrgNotFound
	}

	return nil
}

// CreatePage inserts a new status page.
func (r *Repository) CreatePage(ctx context.Context, page *domain.StatusPage) error {
	query := `
		INSERT INTO status_pages (org_id, name, slug, is_public)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, page.OrgID, page.Name, page.Slug, page.IsPublic).
		Scan(&page.ID, &page.CreatedAt, &page.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return statuspages.ErrSlugExists
		}
		return fmt.Errorf("failed to create status page: %w", err)
	}

	return nil
}

// GetPageByID returns a status page by its id.
func (r *Repository) GetPageByID(ctx context.Context, id string) (*domain.StatusPage, error) {
	query := `
		SELECT id, org_id, name, slug, is_public, created_at, updated_at
		FROM status_pages
		WHERE id = $1`

	return r.scanPage(r.pool.QueryRow(ctx, query, id))
}

// GetPageBySlug returns a status page by its slug. Page slugs are
// unique across all organizations.
func (r *Repository) GetPageBySlug(ctx context.Context, slug string) (*domain.StatusPage, error) {
	query := `
		SELECT id, org_id, name, slug, is_public, created_at, updated_at
		FROM status_pages
		WHERE slug = $1`

	return r.scanPage(r.pool.QueryRow(ctx, query, slug))
}

// ListPages returns all status pages of an organization ordered by name.
func (r *Repository) ListPages(ctx context.Context, orgID string) ([]domain.StatusPage, error) {
	query := `
		SELECT id, org_id, name, slug, is_public, created_at, updated_at
		FROM status_pages
		WHERE org_id = $1
		ORDER BY name`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status pages: %w", err)
	}
	defer rows.Close()

	var pages []domain.StatusPage
	for rows.Next() {
		var page domain.StatusPage
		err := rows.Scan(&page.ID, &page.OrgID, &page.Name, &page.Slug,
			&page.IsPublic, &page.CreatedAt, &page.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status page: %w", err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status pages: %w", err)
	}

	return pages, nil
}

// UpdatePage updates a status page's name, slug and visibility.
func (r *Repository) UpdatePage(ctx context.Context, page *domain.StatusPage) error {
	query := `
		UPDATE status_pages
		SET name = $2, slug = $3, is_public = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query, page.ID, page.Name, page.Slug, page.IsPublic).
		Scan(&page.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return statuspages.ErrPageNotFound
		}
		if isUniqueViolation(err) {
			return statuspages.ErrSlugExists
		}
		return fmt.Errorf("failed to update status page: %w", err)
	}

	return nil
}

// DeletePage deletes a status page and, via cascade, its components,
// incidents and maintenance windows.
func (r *Repository) DeletePage(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM status_pages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete status page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return statuspages.ErrPageNotFound
	}

	return nil
}

func (r *Repository) scanOrg(row pgx.Row) (*domain.Organization, error) {
	var org domain.Organization
	err := row.Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, statuspages.ErrOrgNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return &org, nil
}

func (r *Repository) scanPage(row pgx.Row) (*domain.StatusPage, error) {
	var page domain.StatusPage
	err := row.Scan(&page.ID, &page.OrgID, &page.Name, &page.Slug,
		&page.IsPublic, &page.CreatedAt, &page.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, statuspages.ErrPageNotFound
		}
		return nil, fmt.Errorf("failed to get status page: %w", err)
	}

	return &page, nil
}

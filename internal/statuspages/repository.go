package statuspages

import (
	"context"

	"github.com/signalboard/signalboard/internal/domain"
)

// Repository defines the interface for organization and status page storage.
type Repository interface {
	CreateOrg(ctx context.Context, org *domain.Organization) error
	GetOrgByID(ctx context.Context, id string) (*domain.Organization, error)
	GetOrgBySlug(ctx context.Context, slug string) (*domain.Organization, error)
	ListOrgs(ctx context.Context) ([]domain.Organization, error)
	UpdateOrg(ctx context.Context, org *domain.Organization) error
	DeleteOrg(ctx context.Context, id string) error

	CreatePage(ctx context.Context, page *domain.StatusPage) error
	GetPageByID(ctx context.Context, id string) (*domain.StatusPage, error)
	GetPageBySlug(ctx context.Context, slug string) (*domain.StatusPage, error)
	ListPages(ctx context.Context, orgID string) ([]domain.StatusPage, error)
	UpdatePage(ctx context.Context, page *domain.StatusPage) error
	DeletePage(ctx context.Context, id string) error
}

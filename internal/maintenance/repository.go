package maintenance

import (
	"context"
	"time"

	"github.com/signalboard/signalboard/internal/domain"
)

// WindowFilter narrows maintenance window listings. Upcoming keeps
// windows that have not ended by the given instant.
type WindowFilter struct {
	PageID   string
	Status   *domain.MaintenanceStatus
	Upcoming *time.Time
	Limit    int
	Offset   int
}

// Repository defines the interface for maintenance storage operations.
type Repository interface {
	CreateWindow(ctx context.Context, window *domain.MaintenanceWindow) error
	GetWindow(ctx context.Context, id string) (*domain.MaintenanceWindow, error)
	ListWindows(ctx context.Context, filter WindowFilter) ([]*domain.MaintenanceWindow, error)
	UpdateWindow(ctx context.Context, window *domain.MaintenanceWindow) error
	DeleteWindow(ctx context.Context, id string) error
}

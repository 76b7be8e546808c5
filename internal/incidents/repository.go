package incidents

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/signalboard/signalboard/internal/domain"
)

// IncidentFilter narrows incident listings. Status and Resolved are
// independent: Status matches one lifecycle status exactly, Resolved
// splits the listing into open and closed incidents.
type IncidentFilter struct {
	PageID   string
	Status   *domain.IncidentStatus
	Resolved *bool
	Limit    int
	Offset   int
}

// Repository defines the interface for incident storage operations.
type Repository interface {
	CreateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error
	GetIncident(ctx context.Context, id string) (*domain.Incident, error)
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]*domain.Incident, error)
	CountIncidents(ctx context.Context, filter IncidentFilter) (int, error)
	UpdateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error
	DeleteIncidentTx(ctx context.Context, tx pgx.Tx, id string) error

	// Component links are written once at creation and never modified.
	LinkComponentsTx(ctx context.Context, tx pgx.Tx, incidentID string, componentIDs []string) error
	GetIncidentComponentIDs(ctx context.Context, incidentID string) ([]string, error)

	CreateUpdateTx(ctx context.Context, tx pgx.Tx, update *domain.IncidentUpdate) error
	ListUpdates(ctx context.Context, incidentID string) ([]*domain.IncidentUpdate, error)

	BeginTx(ctx context.Context) (pgx.Tx, error)
}

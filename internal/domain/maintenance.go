package domain

import "time"

// MaintenanceStatus represents the current status of a maintenance window.
type MaintenanceStatus string

// Maintenance statuses.
const (
	MaintenanceStatusScheduled  MaintenanceStatus = "scheduled"
	MaintenanceStatusInProgress MaintenanceStatus = "in_progress"
	MaintenanceStatusCompleted  MaintenanceStatus = "completed"
)

// IsValid checks if the maintenance status is valid.
func (s MaintenanceStatus) IsValid() bool {
	switch s {
	case MaintenanceStatusScheduled, MaintenanceStatusInProgress, MaintenanceStatusCompleted:
		return true
	}
	return false
}

// MaintenanceWindow represents planned maintenance announced on a status
// page. The window never mutates component statuses by itself; operators
// set components to under_maintenance through the component status path.
type MaintenanceWindow struct {
	ID           string            `json:"id"`
	PageID       string            `json:"page_id"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Status       MaintenanceStatus `json:"status"`
	StartsAt     time.Time         `json:"starts_at"`
	EndsAt       time.Time         `json:"ends_at"`
	ComponentIDs []string          `json:"component_ids"`
	CreatedBy    string            `json:"created_by"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

package domain

import "time"

// ComponentStatus represents the operational status of a component.
type ComponentStatus string

// Component statuses.
const (
	ComponentStatusOperational ComponentStatus = "operational"
	ComponentStatusDegraded    ComponentStatus = "degraded_performance"
	ComponentStatusPartialOut  ComponentStatus = "partial_outage"
	ComponentStatusMajorOut    ComponentStatus = "major_outage"
	ComponentStatusMaintenance ComponentStatus = "under_maintenance"
)

// IsValid checks if the component status is valid.
func (s ComponentStatus) IsValid() bool {
	switch s {
	case ComponentStatusOperational, ComponentStatusDegraded,
		ComponentStatusPartialOut, ComponentStatusMajorOut,
		ComponentStatusMaintenance:
		return true
	}
	return false
}

// Component represents a monitored unit of a system shown on a status page.
type Component struct {
	ID          string          `json:"id"`
	PageID      string          `json:"page_id"`
	GroupID     *string         `json:"group_id,omitempty"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Status      ComponentStatus `json:"status"`
	Visible     bool            `json:"visible"`
	Order       int             `json:"order"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ComponentGroup represents a named, ordered collection of components
// for display purposes. A group belongs to exactly one status page.
type ComponentGroup struct {
	ID          string    `json:"id"`
	PageID      string    `json:"page_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OverallStatus derives a single page-level status from the given
// components. The cascade is a fixed business policy: outage-level
// statuses dominate maintenance so a real outage is never masked by a
// concurrently scheduled maintenance window. An empty input resolves
// to operational.
func OverallStatus(components []Component) ComponentStatus {
	var partial, degraded, maintenance bool

	for _, c := range components {
		switch c.Status {
		case ComponentStatusMajorOut:
			return ComponentStatusMajorOut
		case ComponentStatusPartialOut:
			partial = true
		case ComponentStatusDegraded:
			degraded = true
		case ComponentStatusMaintenance:
			maintenance = true
		}
	}

	switch {
	case partial:
		return ComponentStatusPartialOut
	case degraded:
		return ComponentStatusDegraded
	case maintenance:
		return ComponentStatusMaintenance
	default:
		return ComponentStatusOperational
	}
}

// StatusLogSourceType represents the source of a component status change.
type StatusLogSourceType string

// Status log source types.
const (
	StatusLogSourceManual   StatusLogSourceType = "manual"
	StatusLogSourceIncident StatusLogSourceType = "incident"
)

// StatusLogEntry represents a single component status change in the audit log.
type StatusLogEntry struct {
	ID          string              `json:"id"`
	ComponentID string              `json:"component_id"`
	OldStatus   *ComponentStatus    `json:"old_status,omitempty"`
	NewStatus   ComponentStatus     `json:"new_status"`
	SourceType  StatusLogSourceType `json:"source_type"`
	IncidentID  *string             `json:"incident_id,omitempty"`
	Reason      string              `json:"reason,omitempty"`
	CreatedBy   string              `json:"created_by"`
	CreatedAt   time.Time           `json:"created_at"`
}

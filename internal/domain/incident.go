package domain

import "time"

// IncidentStatus represents the current status of an incident.
type IncidentStatus string

// Incident statuses. The lifecycle is investigating → identified →
// monitoring → resolved, but any status may be set from any other.
const (
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusIdentified    IncidentStatus = "identified"
	IncidentStatusMonitoring    IncidentStatus = "monitoring"
	IncidentStatusResolved      IncidentStatus = "resolved"
)

// IsValid checks if the incident status is valid.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusInvestigating, IncidentStatusIdentified,
		IncidentStatusMonitoring, IncidentStatusResolved:
		return true
	}
	return false
}

// IsResolved checks if the status is the terminal resolved state.
func (s IncidentStatus) IsResolved() bool {
	return s == IncidentStatusResolved
}

// IncidentImpact represents the declared severity of an incident,
// distinct from a component's status.
type IncidentImpact string

// Incident impact levels.
const (
	IncidentImpactNone     IncidentImpact = "none"
	IncidentImpactMinor    IncidentImpact = "minor"
	IncidentImpactMajor    IncidentImpact = "major"
	IncidentImpactCritical IncidentImpact = "critical"
)

// IsValid checks if the impact level is valid.
func (i IncidentImpact) IsValid() bool {
	switch i {
	case IncidentImpactNone, IncidentImpactMinor,
		IncidentImpactMajor, IncidentImpactCritical:
		return true
	}
	return false
}

// Incident represents an incident affecting one status page.
type Incident struct {
	ID           string         `json:"id"`
	PageID       string         `json:"page_id"`
	Title        string         `json:"title"`
	Status       IncidentStatus `json:"status"`
	Impact       IncidentImpact `json:"impact"`
	Body         string         `json:"body"`
	StartedAt    time.Time      `json:"started_at"`
	ResolvedAt   *time.Time     `json:"resolved_at"`
	ComponentIDs []string       `json:"component_ids"`
	CreatedBy    string         `json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// IncidentUpdate represents an append-only progress record attached to
// an incident. An update is always recorded, even when its status equals
// the incident's current status.
type IncidentUpdate struct {
	ID         string         `json:"id"`
	IncidentID string         `json:"incident_id"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Status     IncidentStatus `json:"status"`
	CreatedBy  string         `json:"created_by"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ApplyStatus moves the incident to the requested status and maintains
// the resolution timestamp. Entering resolved stamps ResolvedAt once;
// re-resolving an already resolved incident keeps the original timestamp.
// Leaving resolved clears it. Both the direct update path and the
// update-record path go through here so the two can never diverge.
func (i *Incident) ApplyStatus(status IncidentStatus, now time.Time) {
	i.Status = status
	switch {
	case status.IsResolved() && i.ResolvedAt == nil:
		i.ResolvedAt = &now
	case !status.IsResolved():
		i.ResolvedAt = nil
	}
}

// ImpactStatus maps an incident's declared impact to the component
// status it imposes on affected components.
func ImpactStatus(impact IncidentImpact) ComponentStatus {
	switch impact {
	case IncidentImpactCritical:
		return ComponentStatusMajorOut
	case IncidentImpactMajor:
		return ComponentStatusPartialOut
	case IncidentImpactMinor:
		return ComponentStatusDegraded
	default:
		return ComponentStatusOperational
	}
}

// ComponentWrite is an intended component status overwrite produced by
// impact propagation. The caller is responsible for persisting it.
type ComponentWrite struct {
	ComponentID string          `json:"component_id"`
	NewStatus   ComponentStatus `json:"new_status"`
}

// PlanImpactWrites derives the component status writes implied by an
// incident's impact. An operational target produces no writes: an
// incident can only escalate a component's displayed status, never
// restore it. Restoration goes through the explicit component status
// update path. Writes carry no comparison against the component's
// current status; the most recently declared impact wins.
func PlanImpactWrites(impact IncidentImpact, componentIDs []string) []ComponentWrite {
	target := ImpactStatus(impact)
	if target == ComponentStatusOperational {
		return nil
	}

	writes := make([]ComponentWrite, 0, len(componentIDs))
	for _, id := range componentIDs {
		writes = append(writes, ComponentWrite{ComponentID: id, NewStatus: target})
	}
	return writes
}

package notify

import (
	"fmt"
	"strings"

	"github.com/signalboard/signalboard/internal/domain"
)

var statusLabels = map[domain.IncidentStatus]string{
	domain.IncidentStatusInvestigating: "Investigating",
	domain.IncidentStatusIdentified:    "Identified",
	domain.IncidentStatusMonitoring:    "Monitoring",
	domain.IncidentStatusResolved:      "Resolved",
}

var impactLabels = map[domain.IncidentImpact]string{
	domain.IncidentImpactNone:     "None",
	domain.IncidentImpactMinor:    "Minor",
	domain.IncidentImpactMajor:    "Major",
	domain.IncidentImpactCritical: "Critical",
}

// composeCreated renders the subject and body for a new incident.
func composeCreated(incident *domain.Incident) (subject, body string) {
	subject = fmt.Sprintf("[%s] New incident: %s", impactLabels[incident.Impact], incident.Title)

	var b strings.Builder
	fmt.Fprintf(&b, "A new incident has been reported.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", incident.Title)
	fmt.Fprintf(&b, "Status: %s\n", statusLabels[incident.Status])
	fmt.Fprintf(&b, "Impact: %s\n", impactLabels[incident.Impact])
	fmt.Fprintf(&b, "Started: %s\n", incident.StartedAt.UTC().Format("2006-01-02 15:04 UTC"))
	if incident.Body != "" {
		fmt.Fprintf(&b, "\n%s\n", incident.Body)
	}

	return subject, b.String()
}

// composeUpdated renders the subject and body for an incident update.
func composeUpdated(incident *domain.Incident, update *domain.IncidentUpdate) (subject, body string) {
	subject = fmt.Sprintf("[%s] Incident update: %s", statusLabels[update.Status], incident.Title)

	var b strings.Builder
	fmt.Fprintf(&b, "The incident %q has a new update.\n\n", incident.Title)
	fmt.Fprintf(&b, "Status: %s\n", statusLabels[update.Status])
	if update.Title != "" {
		fmt.Fprintf(&b, "Update: %s\n", update.Title)
	}
	if update.Body != "" {
		fmt.Fprintf(&b, "\n%s\n", update.Body)
	}
	if incident.ResolvedAt != nil {
		fmt.Fprintf(&b, "\nResolved at: %s\n", incident.ResolvedAt.UTC().Format("2006-01-02 15:04 UTC"))
	}

	return subject, b.String()
}

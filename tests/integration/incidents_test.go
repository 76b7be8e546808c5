//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/signalboard/signalboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIncidentPropagatesImpact(t *testing.T) {
	client := loginClient(t)
	pageID, _ := newTestPage(t, client)

	tests := []struct {
		impact     string
		wantStatus string
	}{
		{"critical", "major_outage"},
		{"major", "partial_outage"},
		{"minor", "degraded_performance"},
	}

	for _, tt := range tests {
		t.Run(tt.impact, func(t *testing.T) {
			compID, compSlug := createTestComponent(t, client, pageID, "Comp "+tt.impact, "operational")

			createTestIncident(t, client, pageID, map[string]interface{}{
				"title":         "Impact " + tt.impact,
				"impact":        tt.impact,
				"component_ids": []string{compID},
			})

			assert.Equal(t, tt.wantStatus, getComponentStatus(t, client, pageID, compSlug))
		})
	}
}

func TestCreateIncidentNoneImpactLeavesComponentsAlone(t *testing.T) {
	client := loginClient(t)
	pageID, _ := newTestPage(t, client)
	compID, compSlug := createTestComponent(t, client, pageID, "Steady", "degraded_performance")

	createTestIncident(t, client, pageID, map[string]interface{}{
		"title":         "Informational",
		"impact":        "none",
		"component_ids": []string{compID},
	})

	assert.Equal(t, "degraded_performance", getComponentStatus(t, client, pageID, compSlug))
}

func TestImpactOverwritesBetterAndWorseStatus(t *testing.T) {
	client := loginClient(t)
	pageID, _ := newTestPage(t, client)

	// A minor incident downgrades an already worse component too: the
	// impact-derived status overwrites whatever is there.
	compID, compSlug := createTestComponent(t, client, pageID, "Overwritten", "major_outage")

	createTestIncident(t, client, pageID, map[string]interface{}{
		"title":         "Minor on top of major",
		"impact":        "minor",
		"component_ids": []string{compID},
	})

	assert.Equal(t, "degraded_performance", getComponentStatus(t, client, pageID, compSlug))
}

func TestResolveDoesNotRestoreComponentStatus(t *testing.T) {
	client := loginClient(t)
	pageID, _ := newTestPage(t, client)
	compID, compSlug := createTestComponent(t, client, pageID, "Stays Down", "operational")

	incident := createTestIncident(t, client, pageID, map[string]interface{}{
		"title":         "Outage",
		"impact":        "critical",
		"component_ids": []string{compID},
	})
	require.Equal(t, "major_outage", getComponentStatus(t, client, pageID, compSlug))

	resp, err := client.POST(pagePath(pageID, "/incidents/"+incident.ID+"/updates"), map[string]interface{}{
		"body":   "Fixed",
		"status": "resolved",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resolved := getIncident(t, client, pageID, incident.ID)
	assert.Equal(t, "resolved", resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	// The component keeps the incident-pushed status until an operator
	// changes it.
	assert.Equal(t, "major_outage", getComponentStatus(t, client, pageID, compSlug))
}

func TestResolvedAtStampedOnceViaUpdates(t *testing.T) {
	client := loginClient(t)
	pageID, _ := newTestPage(t, client)

	incident := createTestIncident(t, client, pageID, map[string]interface{}{
		"title": "Stamp once",
	})

	resp, err := client.POST(pagePath(pageID, "/incidents/"+incident.ID+"/updates"), map[string]interface{}{
		"body":   "done",
		"status": "resolved",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	first := getIncident(t, client, pageID, incident.ID)
	require.NotNil(t, first.ResolvedAt)

	// A second resolved update keeps the original timestamp.
	resp, err = client.POST(pagePath(pageID, "/incidents/"+incident.ID+"/updates"), map[string]interface{}{
		"body":   "postmortem link",
		"status": "resolved",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	second := getIncident(t, client, pageID, incident.ID)
	require.NotNil(t, second.ResolvedAt)
	assert.Equal(t, *first.ResolvedAt, *second.ResolvedAt)
}

func TestReopeningClearsResolvedAt(t *testing.T) {
	client := loginClient(t)
	pageID, _ := newTestPage(t, client)

	incident := createTestIncident(t, client, pageID, map[string]interface{}{
		"title":  "Reopen",
		"status": "resolved",
	})
	created := getIncident(t, client, pageID, incident.ID)
	require.NotNil(t, created.ResolvedAt)

	resp, err := client.POST(pagePath(pageID, "/incidents/"+incident.ID+"/updates"), map[string]interface{}{
		"body":   "it came back",
		"status": "investigating",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	reopened := getIncident(t, client, pageID, incident.ID)
	assert.Equal(t, "investigating", reopened.Status)
	assert.Nil(t, reopened.ResolvedAt)
}

func TestDirectEditResolvesLikeUpdatePath(t *testing.T) {
	client := loginClient(t)
	pageID, _ := newTestPage(t, client)

	incident := createTestIncident(t, client, pageID, map[string]interface{}{
		"title": "Resolve by edit",
	})

	resp, err := client.PATCH(pagePath(pageID, "/incidents/"+incident.ID), map[string]interface{}{
		"title":  "Resolve by edit",
		"status": "resolved",
		"impact": "minor",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var edited struct {
		Data incidentResponse `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &edited)
	assert.Equal(t, "resolved", edited.Data.Status)
	assert.NotNil(t, edited.Data.ResolvedAt)

	// Reopening through a direct edit clears the timestamp as well.
	resp, err = client.PATCH(pagePath(pageID, "/incidents/"+incident.ID), map[string]interface{}{
		"title":  "Resolve by edit",
		"status": "monitoring",
		"impact": "minor",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reopened struct {
		Data incidentResponse `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &reopened)
	assert.Equal(t, "monitoring", reopened.Data.Status)
	assert.Nil(t, reopened.Data.ResolvedAt)
}

func TestEditingImpactDoesNotTouchComponents(t *testing.T) {
	client := loginClient(t)
	pageID, _ := newTestPage(t, client)
	compID, compSlug := createTestComponent(t, client, pageID, "Impact Edit", "operational")

	incident := createTestIncident(t, client, pageID, map[string]interface{}{
		"title":         "Starts minor",
		"impact":        "minor",
		"component_ids": []string{compID},
	})
	require.Equal(t, "degraded_performance", getComponentStatus(t, client, pageID, compSlug))

	// Raising the declared impact after creation does not re-propagate.
	resp, err := client.PATCH(pagePath(pageID, "/incidents/"+incident.ID), map[string]interface{}{
		"title":  "Now critical",
		"status": "identified",
		"impact": "critical",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	assert.Equal(t, "degraded_performance", getComponentStatus(t, client, pageID, compSlug))
}

func TestUpdateRecordAppendedEvenWithoutStatusChange(t *testing.T) {
	client := loginClient(t)
	pageID, _ := newTestPage(t, client)

	incident := createTestIncident(t, client, pageID, map[string]interface{}{
		"title":  "Chatty",
		"status": "monitoring",
	})

	for i := 0; i < 2; i++ {
		resp, err := client.POST(pagePath(pageID, "/incidents/"+incident.ID+"/updates"), map[string]interface{}{
			"body":   "still monitoring",
			"status": "monitoring",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		_ = resp.Body.Close()
	}

	resp, err := client.GET(pagePath(pageID, "/incidents/"+incident.ID+"/updates"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updates struct {
		Data []struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &updates)
	// Initial record from creation plus the two monitoring updates.
	require.Len(t, updates.Data, 3)
}

func TestIncidentLinksAreImmutable(t *testing.T) {
	client := loginClient(t)
	pageID, _ := newTestPage(t, client)
	compID, _ := createTestComponent(t, client, pageID, "Linked", "operational")

	incident := createTestIncident(t, client, pageID, map[string]interface{}{
		"title":         "Fixed links",
		"component_ids": []string{compID},
	})

	// Direct edits carry no component_ids field; links survive the edit.
	resp, err := client.PATCH(pagePath(pageID, "/incidents/"+incident.ID), map[string]interface{}{
		"title":  "Fixed links",
		"status": "identified",
		"impact": "minor",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	got := getIncident(t, client, pageID, incident.ID)
	require.Len(t, got.ComponentIDs, 1)
	assert.Equal(t, compID, got.ComponentIDs[0])
}

func TestCreateIncidentRejectsForeignComponent(t *testing.T) {
	client := loginClient(t)
	orgSlug := createTestOrg(t, client, "Foreign Org")
	pageA, _ := createTestPage(t, client, orgSlug, "Page A", true)
	pageB, _ := createTestPage(t, client, orgSlug, "Page B", true)
	foreignComp, _ := createTestComponent(t, client, pageB, "Elsewhere", "operational")

	resp, err := client.POST(pagePath(pageA, "/incidents"), map[string]interface{}{
		"title":         "Cross page",
		"status":        "investigating",
		"impact":        "minor",
		"component_ids": []string{foreignComp},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestDeleteIncidentRequiresResolved(t *testing.T) {
	client := loginClient(t)
	pageID, _ := newTestPage(t, client)

	incident := createTestIncident(t, client, pageID, map[string]interface{}{
		"title": "Still active",
	})

	resp, err := client.DELETE(pagePath(pageID, "/incidents/"+incident.ID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = client.POST(pagePath(pageID, "/incidents/"+incident.ID+"/updates"), map[string]interface{}{
		"body":   "done",
		"status": "resolved",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = client.DELETE(pagePath(pageID, "/incidents/"+incident.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = client.GET(pagePath(pageID, "/incidents/"+incident.ID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestListIncidentsFilters(t *testing.T) {
	client := loginClient(t)
	pageID, _ := newTestPage(t, client)

	createTestIncident(t, client, pageID, map[string]interface{}{
		"title": "Active one", "status": "investigating",
	})
	createTestIncident(t, client, pageID, map[string]interface{}{
		"title": "Resolved one", "status": "resolved",
	})

	resp, err := client.GET(pagePath(pageID, "/incidents?state=active"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var active struct {
		Data struct {
			Incidents []incidentResponse `json:"incidents"`
			Total     int                `json:"total"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &active)
	require.Equal(t, 1, active.Data.Total)
	assert.Equal(t, "Active one", active.Data.Incidents[0].Title)

	resp, err = client.GET(pagePath(pageID, "/incidents?state=resolved"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var resolved struct {
		Data struct {
			Total int `json:"total"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &resolved)
	assert.Equal(t, 1, resolved.Data.Total)

	resp, err = client.GET(pagePath(pageID, "/incidents?state=bogus"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestIncidentStatusLogRecordsIncidentSource(t *testing.T) {
	client := loginClient(t)
	pageID, _ := newTestPage(t, client)
	compID, compSlug := createTestComponent(t, client, pageID, "Logged", "operational")

	incident := createTestIncident(t, client, pageID, map[string]interface{}{
		"title":         "Log source",
		"impact":        "major",
		"component_ids": []string{compID},
	})

	resp, err := client.GET(pagePath(pageID, "/components/"+compSlug+"/status-log"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var log struct {
		Data struct {
			Entries []struct {
				NewStatus  string  `json:"new_status"`
				SourceType string  `json:"source_type"`
				IncidentID *string `json:"incident_id"`
			} `json:"entries"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &log)
	require.NotEmpty(t, log.Data.Entries)
	entry := log.Data.Entries[0]
	assert.Equal(t, "partial_outage", entry.NewStatus)
	assert.Equal(t, "incident", entry.SourceType)
	require.NotNil(t, entry.IncidentID)
	assert.Equal(t, incident.ID, *entry.IncidentID)
}

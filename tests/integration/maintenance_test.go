//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/signalboard/signalboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type maintenanceResponse struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Status       string   `json:"status"`
	ComponentIDs []string `json:"component_ids"`
}

func createTestWindow(t *testing.T, client *testutil.Client, pageID string, payload map[string]interface{}) maintenanceResponse {
	t.Helper()

	now := time.Now().UTC()
	if _, ok := payload["title"]; !ok {
		payload["title"] = "Planned work"
	}
	if _, ok := payload["starts_at"]; !ok {
		payload["starts_at"] = now.Add(24 * time.Hour).Format(time.RFC3339)
	}
	if _, ok := payload["ends_at"]; !ok {
		payload["ends_at"] = now.Add(25 * time.Hour).Format(time.RFC3339)
	}

	resp, err := client.POST(pagePath(pageID, "/maintenance"), payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data maintenanceResponse `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

func TestMaintenanceCRUD(t *testing.T) {
	client := loginClient(t)
	pageID, _ := newTestPage(t, client)
	compID, _ := createTestComponent(t, client, pageID, "Maintained", "operational")

	window := createTestWindow(t, client, pageID, map[string]interface{}{
		"title":         "Database upgrade",
		"component_ids": []string{compID},
	})
	assert.Equal(t, "scheduled", window.Status)
	require.Len(t, window.ComponentIDs, 1)

	resp, err := client.GET(pagePath(pageID, "/maintenance/"+window.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Data maintenanceResponse `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &got)
	assert.Equal(t, "Database upgrade", got.Data.Title)

	now := time.Now().UTC()
	resp, err = client.PATCH(pagePath(pageID, "/maintenance/"+window.ID), map[string]interface{}{
		"title":     "Database upgrade",
		"status":    "in_progress",
		"starts_at": now.Format(time.RFC3339),
		"ends_at":   now.Add(time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated struct {
		Data maintenanceResponse `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &updated)
	assert.Equal(t, "in_progress", updated.Data.Status)

	resp, err = client.DELETE(pagePath(pageID, "/maintenance/"+window.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = client.GET(pagePath(pageID, "/maintenance/"+window.ID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestMaintenanceRejectsInvalidSchedule(t *testing.T) {
	client := loginClient(t)
	pageID, _ := newTestPage(t, client)

	now := time.Now().UTC()
	resp, err := client.POST(pagePath(pageID, "/maintenance"), map[string]interface{}{
		"title":     "Backwards window",
		"starts_at": now.Add(2 * time.Hour).Format(time.RFC3339),
		"ends_at":   now.Add(time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestMaintenanceNeverTouchesComponentStatus(t *testing.T) {
	client := loginClient(t)
	pageID, _ := newTestPage(t, client)
	compID, compSlug := createTestComponent(t, client, pageID, "Untouched", "operational")

	now := time.Now().UTC()
	window := createTestWindow(t, client, pageID, map[string]interface{}{
		"title":         "Live window",
		"status":        "in_progress",
		"starts_at":     now.Add(-time.Minute).Format(time.RFC3339),
		"ends_at":       now.Add(time.Hour).Format(time.RFC3339),
		"component_ids": []string{compID},
	})
	require.Equal(t, "in_progress", window.Status)

	// Scheduling work marks nothing under maintenance on its own; the
	// operator flips component statuses explicitly.
	assert.Equal(t, "operational", getComponentStatus(t, client, pageID, compSlug))
}

func TestMaintenanceUpcomingFilter(t *testing.T) {
	client := loginClient(t)
	pageID, _ := newTestPage(t, client)

	now := time.Now().UTC()
	createTestWindow(t, client, pageID, map[string]interface{}{
		"title":     "Future work",
		"starts_at": now.Add(6 * time.Hour).Format(time.RFC3339),
		"ends_at":   now.Add(7 * time.Hour).Format(time.RFC3339),
	})
	createTestWindow(t, client, pageID, map[string]interface{}{
		"title":     "Past work",
		"status":    "completed",
		"starts_at": now.Add(-6 * time.Hour).Format(time.RFC3339),
		"ends_at":   now.Add(-5 * time.Hour).Format(time.RFC3339),
	})

	resp, err := client.GET(pagePath(pageID, "/maintenance?upcoming=true"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var upcoming struct {
		Data []maintenanceResponse `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &upcoming)
	require.Len(t, upcoming.Data, 1)
	assert.Equal(t, "Future work", upcoming.Data[0].Title)

	resp, err = client.GET(pagePath(pageID, "/maintenance"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var all struct {
		Data []maintenanceResponse `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &all)
	require.Len(t, all.Data, 2)
}

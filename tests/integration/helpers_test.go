//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/signalboard/signalboard/internal/testutil"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct-horse-battery"

// loginClient registers a fresh user and returns a client authenticated
// as that user.
func loginClient(t *testing.T) *testutil.Client {
	t.Helper()

	client := newTestClient(t)
	email := testutil.RandomEmail("admin")

	resp, err := client.POST("/api/v1/auth/register", map[string]string{
		"email":    email,
		"password": testPassword,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	client.LoginAs(t, email, testPassword)
	return client
}

// createTestOrg creates an organization and returns its slug.
func createTestOrg(t *testing.T, client *testutil.Client, name string) string {
	t.Helper()

	slug := testutil.RandomSlug("org")
	resp, err := client.POST("/api/v1/orgs", map[string]interface{}{
		"name": name,
		"slug": slug,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()
	return slug
}

// createTestPage creates a status page and returns its ID and slug.
func createTestPage(t *testing.T, client *testutil.Client, orgSlug, name string, public bool) (id, slug string) {
	t.Helper()

	slug = testutil.RandomSlug("page")
	resp, err := client.POST("/api/v1/orgs/"+orgSlug+"/pages", map[string]interface{}{
		"name":      name,
		"slug":      slug,
		"is_public": public,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID, slug
}

// newTestPage creates an org plus a public page in one step.
func newTestPage(t *testing.T, client *testutil.Client) (pageID, pageSlug string) {
	t.Helper()
	orgSlug := createTestOrg(t, client, "Test Org")
	return createTestPage(t, client, orgSlug, "Test Page", true)
}

func pagePath(pageID, suffix string) string {
	return fmt.Sprintf("/api/v1/pages/%s%s", pageID, suffix)
}

// createTestComponent creates a component on the page and returns its ID
// and slug. Status defaults to operational when empty.
func createTestComponent(t *testing.T, client *testutil.Client, pageID, name, status string) (id, slug string) {
	t.Helper()

	slug = testutil.RandomSlug("comp")
	payload := map[string]interface{}{
		"name": name,
		"slug": slug,
	}
	if status != "" {
		payload["status"] = status
	}

	resp, err := client.POST(pagePath(pageID, "/components"), payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID, slug
}

// createTestGroup creates a component group and returns its ID and slug.
func createTestGroup(t *testing.T, client *testutil.Client, pageID, name string) (id, slug string) {
	t.Helper()

	slug = testutil.RandomSlug("group")
	resp, err := client.POST(pagePath(pageID, "/groups"), map[string]interface{}{
		"name": name,
		"slug": slug,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID, slug
}

// incidentResponse mirrors the incident fields the tests assert on.
type incidentResponse struct {
	ID           string   `json:"id"`
	PageID       string   `json:"page_id"`
	Title        string   `json:"title"`
	Status       string   `json:"status"`
	Impact       string   `json:"impact"`
	Body         string   `json:"body"`
	ResolvedAt   *string  `json:"resolved_at"`
	ComponentIDs []string `json:"component_ids"`
}

// createTestIncident creates an incident and returns it.
func createTestIncident(t *testing.T, client *testutil.Client, pageID string, payload map[string]interface{}) incidentResponse {
	t.Helper()

	if _, ok := payload["title"]; !ok {
		payload["title"] = "Test incident"
	}
	if _, ok := payload["status"]; !ok {
		payload["status"] = "investigating"
	}
	if _, ok := payload["impact"]; !ok {
		payload["impact"] = "minor"
	}

	resp, err := client.POST(pagePath(pageID, "/incidents"), payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data incidentResponse `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// getComponentStatus fetches a component by slug and returns its status.
func getComponentStatus(t *testing.T, client *testutil.Client, pageID, slug string) string {
	t.Helper()

	resp, err := client.GET(pagePath(pageID, "/components/"+slug))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.Status
}

// getIncident fetches an incident by ID.
func getIncident(t *testing.T, client *testutil.Client, pageID, incidentID string) incidentResponse {
	t.Helper()

	resp, err := client.GET(pagePath(pageID, "/incidents/"+incidentID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data incidentResponse `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hemolink/donorhub/internal/testutil"
	"github.com/stretchr/testify/require"
)

// uniqueName appends a random suffix so seeded rows never collide across
// tests sharing one database.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, uuid.NewString()[:8])
}

func seedRegion(t *testing.T, name string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := testDB.Exec(context.Background(),
		`INSERT INTO regions (id, name) VALUES ($1, $2)`, id, name)
	require.NoError(t, err)
	return id
}

func seedCity(t *testing.T, regionID, name string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := testDB.Exec(context.Background(),
		`INSERT INTO cities (id, name, region_id) VALUES ($1, $2, $3)`, id, name, regionID)
	require.NoError(t, err)
	return id
}

func seedOrganization(t *testing.T, name string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := testDB.Exec(context.Background(),
		`INSERT INTO organizations (id, name) VALUES ($1, $2)`, id, name)
	require.NoError(t, err)
	return id
}

func seedParticipant(t *testing.T, cityID, name, email, bloodType string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := testDB.Exec(context.Background(),
		`INSERT INTO users (id, name, email, role, blood_type, city_id)
		 VALUES ($1, $2, $3, 'participant', $4, $5)`,
		id, name, email, bloodType, cityID)
	require.NoError(t, err)
	return id
}

// createCampaign creates a campaign through the API and returns its id.
func createCampaign(t *testing.T, client *testutil.Client, title, orgID, cityID string) string {
	t.Helper()

	starts := time.Now().UTC().Add(48 * time.Hour)
	resp, err := client.POST("/api/v1/campaigns", map[string]interface{}{
		"title":           title,
		"organization_id": orgID,
		"city_id":         cityID,
		"location":        "Central Plaza",
		"starts_at":       starts.Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, testutil.ReadBody(t, resp))

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID
}

// createBloodRequest creates a blood request through the API and returns its id.
func createBloodRequest(t *testing.T, client *testutil.Client, bloodType, cityID, urgency string) string {
	t.Helper()

	payload := map[string]interface{}{
		"blood_type": bloodType,
		"city_id":    cityID,
		"hospital":   "Hospital Escuela",
		"contact":    "+504 555 0100",
	}
	if urgency != "" {
		payload["urgency"] = urgency
	}

	resp, err := client.POST("/api/v1/blood-requests", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, testutil.ReadBody(t, resp))

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID
}

// jobStatus returns the status and attempts of the single job with the given
// payload request id.
func jobStatusForRequest(t *testing.T, requestID string) (status string, attempts int) {
	t.Helper()
	err := testDB.QueryRow(context.Background(),
		`SELECT status, attempts FROM jobs WHERE payload->>'request_id' = $1`,
		requestID).Scan(&status, &attempts)
	require.NoError(t, err)
	return status, attempts
}

// digestForRegion returns the digest row for today's date in a region.
func digestForRegion(t *testing.T, regionID string) (id string, sentAt *time.Time) {
	t.Helper()
	err := testDB.QueryRow(context.Background(),
		`SELECT id, sent_at FROM campaign_digests WHERE region_id = $1 ORDER BY created_at DESC LIMIT 1`,
		regionID).Scan(&id, &sentAt)
	require.NoError(t, err)
	return id, sentAt
}

// digestMemberCount counts campaigns attached to a digest.
func digestMemberCount(t *testing.T, digestID string) int {
	t.Helper()
	var count int
	err := testDB.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM campaign_digest_campaigns WHERE digest_id = $1`,
		digestID).Scan(&count)
	require.NoError(t, err)
	return count
}

func clearInbox(t *testing.T) {
	t.Helper()
	require.NoError(t, mailpitClient.DeleteAllMessages())
}

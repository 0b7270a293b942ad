//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hemolink/donorhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Campaign tests seed no participants so their digests stay empty and never
// interfere with the digest delivery tests.

func TestCampaignLifecycle(t *testing.T) {
	regionID := seedRegion(t, uniqueName("Comayagua"))
	cityID := seedCity(t, regionID, "Siguatepeque")
	orgID := seedOrganization(t, uniqueName("Cruz Roja"))

	campaignID := createCampaign(t, testClient, "Spring Drive", orgID, cityID)

	// Creation attached the campaign to today's regional digest.
	digestID, sentAt := digestForRegion(t, regionID)
	assert.Nil(t, sentAt)
	assert.Equal(t, 1, digestMemberCount(t, digestID))

	resp, err := testClient.GET("/api/v1/campaigns/" + campaignID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Data struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			CityID   string `json:"city_id"`
			Location string `json:"location"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &got)
	assert.Equal(t, campaignID, got.Data.ID)
	assert.Equal(t, "Spring Drive", got.Data.Title)
	assert.Equal(t, cityID, got.Data.CityID)

	starts := time.Now().UTC().Add(72 * time.Hour)
	resp, err = testClient.PATCH("/api/v1/campaigns/"+campaignID, map[string]interface{}{
		"title":     "Spring Drive (rescheduled)",
		"location":  "Municipal Gym",
		"starts_at": starts.Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.DecodeJSON(t, resp, &got)
	assert.Equal(t, "Spring Drive (rescheduled)", got.Data.Title)
	assert.Equal(t, "Municipal Gym", got.Data.Location)

	resp, err = testClient.GET("/api/v1/campaigns?city_id=" + cityID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Data struct {
			Campaigns []struct {
				ID string `json:"id"`
			} `json:"campaigns"`
			Total int `json:"total"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &list)
	require.Equal(t, 1, list.Data.Total)
	assert.Equal(t, campaignID, list.Data.Campaigns[0].ID)

	resp, err = testClient.DELETE("/api/v1/campaigns/" + campaignID)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = testClient.GET("/api/v1/campaigns/" + campaignID)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Deletion cascades the digest membership.
	assert.Zero(t, digestMemberCount(t, digestID))
}

func TestCampaignCreate_EndBeforeStartRejected(t *testing.T) {
	regionID := seedRegion(t, uniqueName("Intibucá"))
	cityID := seedCity(t, regionID, "La Esperanza")
	orgID := seedOrganization(t, uniqueName("Hospital Enrique Aguilar"))

	starts := time.Now().UTC().Add(48 * time.Hour)
	ends := starts.Add(-2 * time.Hour)

	resp, err := testClient.POST("/api/v1/campaigns", map[string]interface{}{
		"title":           "Backwards Drive",
		"organization_id": orgID,
		"city_id":         cityID,
		"starts_at":       starts.Format(time.RFC3339),
		"ends_at":         ends.Format(time.RFC3339),
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCampaignCreate_MissingTitleRejected(t *testing.T) {
	resp, err := testClient.POST("/api/v1/campaigns", map[string]interface{}{
		"organization_id": uuid.NewString(),
		"city_id":         uuid.NewString(),
		"starts_at":       time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCampaignUpdate_NotFound(t *testing.T) {
	resp, err := testClient.PATCH("/api/v1/campaigns/"+uuid.NewString(), map[string]interface{}{
		"title":     "Ghost Drive",
		"starts_at": time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/hemolink/donorhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeeklyStats(t *testing.T) {
	regionID := seedRegion(t, uniqueName("El Paraíso"))
	cityID := seedCity(t, regionID, "Danlí")
	orgID := seedOrganization(t, uniqueName("Banco de Sangre"))
	seedParticipant(t, cityID, "Rosa Nuñez", uniqueEmail("stats"), "AB_POSITIVE")

	createCampaign(t, testClient, "Stats Drive", orgID, cityID)
	createBloodRequest(t, testClient, "AB_POSITIVE", cityID, "")

	resp, err := testClient.GET("/api/v1/stats/weekly")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			From         string `json:"from"`
			To           string `json:"to"`
			NewCampaigns int    `json:"new_campaigns"`
			NewRequests  int    `json:"new_requests"`
			NewUsers     int    `json:"new_users"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)

	assert.NotEmpty(t, result.Data.From)
	assert.NotEmpty(t, result.Data.To)
	assert.GreaterOrEqual(t, result.Data.NewCampaigns, 1)
	assert.GreaterOrEqual(t, result.Data.NewRequests, 1)
	assert.GreaterOrEqual(t, result.Data.NewUsers, 1)

	// Drain the notification job created above.
	testApp.Processor().RunOnce(context.Background())
}

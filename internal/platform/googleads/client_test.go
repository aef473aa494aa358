package googleads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient bypasses the oauth2 transport so no token refresh happens.
func testClient(baseURL string) *Client {
	return &Client{
		httpClient:      http.DefaultClient,
		baseURL:         baseURL,
		developerToken:  "dev-token",
		loginCustomerID: "999",
		logger:          zerolog.Nop(),
	}
}

func TestSearchFlattensStreamChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers/111/googleAds:searchStream", r.URL.Path)
		assert.Equal(t, "dev-token", r.Header.Get("developer-token"))
		assert.Equal(t, "999", r.Header.Get("login-customer-id"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body["query"], "SELECT")

		json.NewEncoder(w).Encode([]map[string]any{
			{
				"fieldMask": "segments.date,campaign.id,metrics.cost_micros",
				"results": []map[string]any{
					{
						"segments": map[string]any{"date": "2024-03-01"},
						"campaign": map[string]any{"id": "123"},
						"metrics":  map[string]any{"costMicros": "1500000"},
					},
				},
			},
			{
				"fieldMask": "segments.date,campaign.id,metrics.cost_micros",
				"results": []map[string]any{
					{
						"segments": map[string]any{"date": "2024-03-02"},
						"campaign": map[string]any{"id": "123"},
						"metrics":  map[string]any{"costMicros": "900000"},
					},
				},
			},
		})
	}))
	defer server.Close()

	table, err := testClient(server.URL).Search(context.Background(), "111", "SELECT segments.date FROM campaign")

	require.NoError(t, err)
	assert.Equal(t, []string{"segments.date", "campaign.id", "metrics.cost_micros"}, table.Columns)
	require.Equal(t, 2, table.RowCount())
	assert.Equal(t, []string{"2024-03-01", "123", "1500000"}, table.Rows[0])
	assert.Equal(t, []string{"2024-03-02", "123", "900000"}, table.Rows[1])
}

func TestSearchEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	}))
	defer server.Close()

	table, err := testClient(server.URL).Search(context.Background(), "111", "SELECT campaign.id FROM campaign")

	require.NoError(t, err)
	assert.True(t, table.Empty())
}

func TestSearchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"developer token not approved"}}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Search(context.Background(), "111", "SELECT campaign.id FROM campaign")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "developer token not approved")
}

func TestLookupPath(t *testing.T) {
	result := map[string]any{
		"segments": map[string]any{"date": "2024-03-01"},
		"metrics":  map[string]any{"costMicros": float64(1500000), "allConversions": 2.5},
		"campaign": map[string]any{"servingStatus": "SERVING"},
	}

	assert.Equal(t, "2024-03-01", lookupPath(result, "segments.date"))
	// snake_case mask segments fall back to the camelCase JSON keys.
	assert.Equal(t, "1500000", lookupPath(result, "metrics.cost_micros"))
	assert.Equal(t, "2.5", lookupPath(result, "metrics.all_conversions"))
	assert.Equal(t, "SERVING", lookupPath(result, "campaign.serving_status"))
	assert.Equal(t, "", lookupPath(result, "campaign.missing_field"))
	assert.Equal(t, "", lookupPath(result, "missing.path"))
}

func TestCredentialsValidate(t *testing.T) {
	creds := Credentials{
		DeveloperToken: "d", ClientID: "c", ClientSecret: "s", RefreshToken: "r",
	}
	assert.NoError(t, creds.Validate())

	creds.RefreshToken = ""
	assert.Error(t, creds.Validate())
}

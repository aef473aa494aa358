package connector

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adstack/ingest-api/internal/config"
	"github.com/adstack/ingest-api/internal/platform/tiktok"
	"github.com/adstack/ingest-api/internal/warehouse"
)

type fakeReporter struct {
	records map[string][]map[string]string // advertiserID/date -> records
	queries []tiktok.ReportQuery
}

func (f *fakeReporter) Report(ctx context.Context, query tiktok.ReportQuery) ([]map[string]string, error) {
	f.queries = append(f.queries, query)
	return f.records[query.AdvertiserID+"/"+query.StartDate], nil
}

func newTikTokUnderTest(resolver *fakeResolver, reporter *fakeReporter, loader *fakeLoader) *TikTok {
	return &TikTok{
		Resolver: resolver,
		Defaults: config.Defaults{SecretProjectID: "secrets-project"},
		Settings: config.PlatformConfig{SecretID: "tiktok-token"},
		Timezone: "UTC",
		NewReporter: func(accessToken string) Reporter {
			return reporter
		},
		NewLoader: func(ctx context.Context, projectID string, credentialsJSON []byte) (warehouse.Loader, error) {
			return loader, nil
		},
		Now:    func() time.Time { return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC) },
		Logger: zerolog.Nop(),
	}
}

func baseTikTokRequest() TikTokRequest {
	return TikTokRequest{
		AccountIDs:           []string{"adv1"},
		Dimensions:           []string{"campaign_id"},
		Metrics:              []string{"spend"},
		BQSecretID:           "bq-key",
		DestinationProjectID: "warehouse-project",
		DestinationDataset:   "ads",
		DestinationTable:     "tiktok_daily",
		ReprocessLastXDays:   intPtr(0),
		StartDate:            "2024-03-01",
		EndDate:              "2024-03-02",
	}
}

func tiktokPayloads() map[string][]byte {
	return map[string][]byte{
		"secrets-project/tiktok-token": []byte(`{"access_token":"tt-token"}`),
		"secrets-project/bq-key":       []byte(`{"type":"service_account"}`),
	}
}

func TestTikTokRunFetchesPerAccountPerDay(t *testing.T) {
	reporter := &fakeReporter{records: map[string][]map[string]string{
		"adv1/2024-03-01": {{"campaign_id": "c1", "spend": "10"}},
		"adv1/2024-03-02": {{"campaign_id": "c1", "spend": "12"}},
	}}
	loader := &fakeLoader{}

	c := newTikTokUnderTest(&fakeResolver{payloads: tiktokPayloads()}, reporter, loader)
	result, err := c.Run(context.Background(), baseTikTokRequest())

	require.NoError(t, err)
	require.Len(t, reporter.queries, 2)
	assert.Equal(t, "2024-03-01", reporter.queries[0].StartDate)
	assert.Equal(t, "2024-03-01", reporter.queries[0].EndDate)
	assert.Equal(t, "AUCTION_AD", reporter.queries[0].DataLevel)
	assert.Equal(t, "BASIC", reporter.queries[0].ReportType)

	assert.Equal(t, int64(2), result.RowsLoaded)
	assert.Equal(t, []string{"campaign_id", "spend", "account_id", "created_time", "ingestion_time"}, loader.table.Columns)

	// TikTok always refreshes daily partitions unless told otherwise.
	require.NotNil(t, loader.refresh)
	assert.Equal(t, "created_time", loader.refresh.PartitionColumn)
	assert.Equal(t, []string{"adv1"}, loader.refresh.EntityIDs)
}

func TestTikTokRunDeleteExistingOptOut(t *testing.T) {
	loader := &fakeLoader{}
	c := newTikTokUnderTest(&fakeResolver{payloads: tiktokPayloads()}, &fakeReporter{}, loader)

	req := baseTikTokRequest()
	disabled := false
	req.DeleteExisting = &disabled

	_, err := c.Run(context.Background(), req)

	require.NoError(t, err)
	assert.Nil(t, loader.refresh)
}

func TestTikTokRunEmptyReport(t *testing.T) {
	loader := &fakeLoader{}
	c := newTikTokUnderTest(&fakeResolver{payloads: tiktokPayloads()}, &fakeReporter{}, loader)

	result, err := c.Run(context.Background(), baseTikTokRequest())

	require.NoError(t, err)
	assert.Zero(t, result.RowsLoaded)
	assert.True(t, loader.table.Empty())
}

func TestTikTokRunRawTokenSecret(t *testing.T) {
	payloads := tiktokPayloads()
	payloads["secrets-project/tiktok-token"] = []byte("bare-token")
	loader := &fakeLoader{}

	c := newTikTokUnderTest(&fakeResolver{payloads: payloads}, &fakeReporter{}, loader)
	_, err := c.Run(context.Background(), baseTikTokRequest())

	require.NoError(t, err)
}

func TestTikTokRunMissingToken(t *testing.T) {
	payloads := tiktokPayloads()
	payloads["secrets-project/tiktok-token"] = []byte(`{"refresh_token":"nope"}`)

	c := newTikTokUnderTest(&fakeResolver{payloads: payloads}, &fakeReporter{}, &fakeLoader{})
	_, err := c.Run(context.Background(), baseTikTokRequest())

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

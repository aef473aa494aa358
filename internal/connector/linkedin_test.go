package connector

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adstack/ingest-api/internal/config"
	"github.com/adstack/ingest-api/internal/platform/linkedin"
	"github.com/adstack/ingest-api/internal/rows"
	"github.com/adstack/ingest-api/internal/warehouse"
)

type fakeSocial struct {
	orgID     string
	orgName   string
	followers int64
	posts     []linkedin.Post
	stats     map[string]linkedin.Statistics

	postsCount int
}

func (f *fakeSocial) CompanyInfo(ctx context.Context, clientName string) (string, string, error) {
	return f.orgID, f.orgName, nil
}

func (f *fakeSocial) Followers(ctx context.Context, organizationURN string) (int64, error) {
	return f.followers, nil
}

func (f *fakeSocial) Posts(ctx context.Context, organizationURN string, count int) ([]linkedin.Post, error) {
	f.postsCount = count
	return f.posts, nil
}

func (f *fakeSocial) ShareStatistics(ctx context.Context, organizationURN, postID string) (linkedin.Statistics, error) {
	return f.stats[postID], nil
}

type multiLoader struct {
	calls []struct {
		table rows.Table
		dest  warehouse.Destination
	}
}

func (m *multiLoader) Load(ctx context.Context, table rows.Table, timestampColumns []string, dest warehouse.Destination, refresh *warehouse.Refresh) (int64, error) {
	m.calls = append(m.calls, struct {
		table rows.Table
		dest  warehouse.Destination
	}{table, dest})
	return int64(table.RowCount()), nil
}

func newLinkedInUnderTest(social *fakeSocial, loader *multiLoader) *LinkedIn {
	return &LinkedIn{
		Resolver: &fakeResolver{payloads: map[string][]byte{
			"secrets-project/linkedin-token": []byte(`{"access_token":"li-token"}`),
			"secrets-project/bq-key":         []byte(`{"type":"service_account"}`),
		}},
		Defaults: config.Defaults{SecretProjectID: "secrets-project", BQSecretID: "bq-key"},
		Settings: config.PlatformConfig{SecretID: "linkedin-token"},
		Timezone: "UTC",
		NewSocial: func(accessToken string) Social {
			return social
		},
		NewLoader: func(ctx context.Context, projectID string, credentialsJSON []byte) (warehouse.Loader, error) {
			return loader, nil
		},
		Now:    func() time.Time { return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC) },
		Logger: zerolog.Nop(),
	}
}

func baseLinkedInRequest() LinkedInRequest {
	return LinkedInRequest{
		OrganizationURN:         "urn:li:organization:42",
		ClientName:              "Acme",
		DestinationProjectID:    "warehouse-project",
		DestinationDataset:      "social",
		DestinationGeneralTable: "linkedin_general",
		DestinationPostsTable:   "linkedin_posts",
	}
}

func TestLinkedInRunLoadsBothTables(t *testing.T) {
	social := &fakeSocial{
		orgID:     "urn:li:organization:42",
		orgName:   "Acme",
		followers: 1200,
		posts: []linkedin.Post{
			{ID: "urn:li:share:1", Author: "urn:li:organization:42", CreatedDate: "2024-03-10", Type: "ARTICLE", Text: "hello"},
			{ID: "urn:li:ugcPost:2", Author: "urn:li:organization:42", CreatedDate: "2024-03-11", Type: "IMAGE"},
		},
		stats: map[string]linkedin.Statistics{
			"urn:li:share:1":   {Impressions: "500", Clicks: "12"},
			"urn:li:ugcPost:2": {Impressions: "300"},
		},
	}
	loader := &multiLoader{}

	c := newLinkedInUnderTest(social, loader)
	result, err := c.Run(context.Background(), baseLinkedInRequest())

	require.NoError(t, err)
	require.Len(t, loader.calls, 2)

	general := loader.calls[0]
	assert.Equal(t, "warehouse-project.social.linkedin_general", general.dest.String())
	assert.Equal(t, 1, general.table.RowCount())
	// date_insertion is two days behind now, day-first, coerced to RFC 3339.
	assert.Equal(t, "2024-03-13T00:00:00Z", general.table.Rows[0][0])

	posts := loader.calls[1]
	assert.Equal(t, "warehouse-project.social.linkedin_posts", posts.dest.String())
	assert.Equal(t, 2, posts.table.RowCount())

	urlIdx := posts.table.ColumnIndex("url")
	require.NotEqual(t, -1, urlIdx)
	assert.Equal(t, "https://www.linkedin.com/embed/feed/update/urn:li:share:1", posts.table.Rows[0][urlIdx])

	assert.Equal(t, int64(3), result.RowsLoaded)
	assert.Equal(t, map[string]int64{"general": 1, "posts": 2}, result.Breakdown)
	assert.Equal(t, map[string]string{
		"general": "warehouse-project.social.linkedin_general",
		"posts":   "warehouse-project.social.linkedin_posts",
	}, result.Targets)
	assert.Nil(t, result.DateRange)
	assert.Equal(t, defaultPostsCount, social.postsCount)
}

func TestLinkedInRunCustomPostsCount(t *testing.T) {
	social := &fakeSocial{orgID: "o", orgName: "Acme"}
	loader := &multiLoader{}

	c := newLinkedInUnderTest(social, loader)
	req := baseLinkedInRequest()
	req.PostsCount = intPtr(5)

	_, err := c.Run(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 5, social.postsCount)
}

func TestLinkedInRunMissingRequiredParameter(t *testing.T) {
	c := newLinkedInUnderTest(&fakeSocial{}, &multiLoader{})
	req := baseLinkedInRequest()
	req.ClientName = ""

	_, err := c.Run(context.Background(), req)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

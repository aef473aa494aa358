package connector

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/adstack/ingest-api/internal/config"
	"github.com/adstack/ingest-api/internal/platform/linkedin"
	"github.com/adstack/ingest-api/internal/rows"
	"github.com/adstack/ingest-api/internal/secrets"
	"github.com/adstack/ingest-api/internal/warehouse"
)

// LinkedInRequest is the load payload for the LinkedIn connector. The
// connector produces two tables: an organization snapshot (followers) and a
// per-post statistics table. There is no reporting date range; the insertion
// date is stamped two days behind the configured timezone's wall clock to
// match the vendor's statistics consolidation lag.
type LinkedInRequest struct {
	OrganizationURN string `json:"organization_urn"`
	ClientName      string `json:"client_name"`
	PostsCount      *int   `json:"posts_count"`
	Timezone        string `json:"timezone"`

	SecretProjectID  string `json:"secret_project_id"`
	LinkedInSecretID string `json:"linkedin_secret_id"`
	BQSecretID       string `json:"bq_secret_id"`

	DestinationProjectID    string `json:"destination_project_id"`
	DestinationDataset      string `json:"destination_dataset"`
	DestinationGeneralTable string `json:"destination_general_table"`
	DestinationPostsTable   string `json:"destination_posts_table"`
}

// Social is the slice of the LinkedIn client the connector depends on.
type Social interface {
	CompanyInfo(ctx context.Context, clientName string) (orgID, orgName string, err error)
	Followers(ctx context.Context, organizationURN string) (int64, error)
	Posts(ctx context.Context, organizationURN string, count int) ([]linkedin.Post, error)
	ShareStatistics(ctx context.Context, organizationURN, postID string) (linkedin.Statistics, error)
}

type SocialFactory func(accessToken string) Social

type LinkedIn struct {
	Resolver  secrets.Resolver
	Defaults  config.Defaults
	Settings  config.PlatformConfig
	Timezone  string
	NewSocial SocialFactory
	NewLoader LoaderFactory
	Now       func() time.Time
	Logger    zerolog.Logger
}

const defaultPostsCount = 40

func (c *LinkedIn) Run(ctx context.Context, req LinkedInRequest) (Result, error) {
	organizationURN, err := param(req.OrganizationURN, "", "organization_urn", true)
	if err != nil {
		return Result{}, err
	}
	clientName, err := param(req.ClientName, "", "client_name", true)
	if err != nil {
		return Result{}, err
	}
	postsCount := defaultPostsCount
	if req.PostsCount != nil {
		postsCount = *req.PostsCount
	}

	secretProject, err := param(req.SecretProjectID, c.Defaults.SecretProjectID, "secret_project_id", true)
	if err != nil {
		return Result{}, err
	}
	linkedinSecret, err := param(req.LinkedInSecretID, c.Settings.SecretID, "linkedin_secret_id", true)
	if err != nil {
		return Result{}, err
	}
	bqSecret, err := param(req.BQSecretID, c.Defaults.BQSecretID, "bq_secret_id", true)
	if err != nil {
		return Result{}, err
	}
	destProject, err := param(req.DestinationProjectID, c.Defaults.DestinationProjectID, "destination_project_id", true)
	if err != nil {
		return Result{}, err
	}
	destDataset, err := param(req.DestinationDataset, c.Defaults.DestinationDataset, "destination_dataset", true)
	if err != nil {
		return Result{}, err
	}
	generalTable, err := param(req.DestinationGeneralTable, "", "destination_general_table", true)
	if err != nil {
		return Result{}, err
	}
	postsTable, err := param(req.DestinationPostsTable, "", "destination_posts_table", true)
	if err != nil {
		return Result{}, err
	}

	timezone, _ := param(req.Timezone, c.Timezone, "timezone", false)
	loc, err := loadLocation(timezone)
	if err != nil {
		return Result{}, err
	}
	dateInsertion := c.Now().In(loc).AddDate(0, 0, -2).Format("02-01-2006")

	accessRaw, err := c.Resolver.Access(ctx, secretProject, linkedinSecret, "")
	if err != nil {
		return Result{}, err
	}
	accessToken := secrets.TokenPayload(accessRaw, "access_token")
	if accessToken == "" {
		return Result{}, validationf("linkedin access token was not found in the secret payload")
	}
	warehouseCreds, err := c.Resolver.Access(ctx, secretProject, bqSecret, "")
	if err != nil {
		return Result{}, err
	}
	if err := serviceAccountJSON(warehouseCreds, "bigquery"); err != nil {
		return Result{}, err
	}

	social := c.NewSocial(accessToken)

	orgID, orgName, err := social.CompanyInfo(ctx, clientName)
	if err != nil {
		return Result{}, err
	}
	followers, err := social.Followers(ctx, organizationURN)
	if err != nil {
		return Result{}, err
	}
	general := rows.New("date_insertion", "id", "client", "followers")
	if err := general.Append(dateInsertion, orgID, orgName, formatInt(followers)); err != nil {
		return Result{}, err
	}

	posts, err := social.Posts(ctx, organizationURN, postsCount)
	if err != nil {
		return Result{}, err
	}
	postRows := rows.New(
		"date_insertion", "author", "created", "post_id", "post_type", "text",
		"thumbnail_url", "url",
		"uniqueImpressionsCount", "sharecount", "engagement", "clickcount",
		"likeCount", "impressioncount", "commentcount",
	)
	for _, post := range posts {
		stats, err := social.ShareStatistics(ctx, organizationURN, post.ID)
		if err != nil {
			return Result{}, err
		}
		if err := postRows.Append(
			dateInsertion, post.Author, post.CreatedDate, post.ID, post.Type, post.Text,
			post.ThumbnailURL, "https://www.linkedin.com/embed/feed/update/"+post.ID,
			stats.UniqueImpressions, stats.Shares, stats.Engagement, stats.Clicks,
			stats.Likes, stats.Impressions, stats.Comments,
		); err != nil {
			return Result{}, err
		}
	}

	general = rows.Normalize(general, []string{"date_insertion"})
	normalizedPosts := rows.Normalize(postRows, []string{"created", "date_insertion"})

	loader, err := c.NewLoader(ctx, destProject, warehouseCreds)
	if err != nil {
		return Result{}, err
	}
	generalDest := warehouse.Destination{ProjectID: destProject, Dataset: destDataset, Table: generalTable}
	postsDest := warehouse.Destination{ProjectID: destProject, Dataset: destDataset, Table: postsTable}

	// No date range means no refresh slice; both loads are plain appends.
	generalLoaded, err := loader.Load(ctx, general, []string{"date_insertion"}, generalDest, nil)
	if err != nil {
		return Result{}, err
	}
	postsLoaded, err := loader.Load(ctx, normalizedPosts, []string{"created", "date_insertion"}, postsDest, nil)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Platform:   PlatformLinkedIn,
		RowsLoaded: generalLoaded + postsLoaded,
		Breakdown: map[string]int64{
			"general": generalLoaded,
			"posts":   postsLoaded,
		},
		Targets: map[string]string{
			"general": generalDest.String(),
			"posts":   postsDest.String(),
		},
	}, nil
}

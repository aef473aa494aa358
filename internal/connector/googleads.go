package connector

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/adstack/ingest-api/internal/config"
	"github.com/adstack/ingest-api/internal/dates"
	"github.com/adstack/ingest-api/internal/platform/googleads"
	"github.com/adstack/ingest-api/internal/rows"
	"github.com/adstack/ingest-api/internal/secrets"
	"github.com/adstack/ingest-api/internal/warehouse"
)

// GoogleAdsRequest is the load payload for the Google Ads connector. One
// GAQL query runs once per customer id; results are concatenated.
type GoogleAdsRequest struct {
	Timezone           string   `json:"timezone"`
	StartDate          string   `json:"start_date"`
	EndDate            string   `json:"end_date"`
	ReprocessLastXDays *int     `json:"reprocess_last_x_days"`
	CustomerIDs        []string `json:"customer_ids"`
	Query              string   `json:"query"`

	SecretProjectID   string `json:"secret_project_id"`
	GoogleAdsSecretID string `json:"google_ads_secret_id"`
	BQSecretID        string `json:"bq_secret_id"`

	DestinationProjectID string `json:"destination_project_id"`
	DestinationDataset   string `json:"destination_dataset"`
	DestinationTable     string `json:"destination_table"`
	DeleteExisting       bool   `json:"delete_existing"`
	PartitionColumn      string `json:"partition_column"`
}

// Searcher is the slice of the Google Ads client the connector depends on.
type Searcher interface {
	Search(ctx context.Context, customerID, query string) (rows.Table, error)
}

type SearcherFactory func(ctx context.Context, creds googleads.Credentials) (Searcher, error)

type GoogleAds struct {
	Resolver    secrets.Resolver
	Defaults    config.Defaults
	Settings    config.PlatformConfig
	Timezone    string
	NewSearcher SearcherFactory
	NewLoader   LoaderFactory
	Now         func() time.Time
	Logger      zerolog.Logger
}

func (c *GoogleAds) Run(ctx context.Context, req GoogleAdsRequest) (Result, error) {
	if len(req.CustomerIDs) == 0 {
		return Result{}, validationf("missing required parameter: customer_ids")
	}
	if req.Query == "" {
		return Result{}, validationf("missing required parameter: query")
	}

	secretProject, err := param(req.SecretProjectID, c.Defaults.SecretProjectID, "secret_project_id", true)
	if err != nil {
		return Result{}, err
	}
	adsSecret, err := param(req.GoogleAdsSecretID, c.Settings.SecretID, "google_ads_secret_id", true)
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
	destTable, err := param(req.DestinationTable, "", "destination_table", true)
	if err != nil {
		return Result{}, err
	}

	timezone, _ := param(req.Timezone, c.Timezone, "timezone", false)
	loc, err := loadLocation(timezone)
	if err != nil {
		return Result{}, err
	}
	window, err := dates.Resolve(c.Now().In(loc), req.StartDate, req.EndDate, reprocessWindow(req.ReprocessLastXDays))
	if err != nil {
		return Result{}, &ValidationError{Msg: err.Error()}
	}

	platformCreds, err := c.Resolver.Access(ctx, secretProject, adsSecret, "")
	if err != nil {
		return Result{}, err
	}
	var parsed googleads.Credentials
	if err := json.Unmarshal(platformCreds, &parsed); err != nil {
		return Result{}, validationf("google ads secret must be a JSON payload")
	}
	if err := parsed.Validate(); err != nil {
		return Result{}, &ValidationError{Msg: err.Error()}
	}
	warehouseCreds, err := c.Resolver.Access(ctx, secretProject, bqSecret, "")
	if err != nil {
		return Result{}, err
	}
	if err := serviceAccountJSON(warehouseCreds, "bigquery"); err != nil {
		return Result{}, err
	}

	searcher, err := c.NewSearcher(ctx, parsed)
	if err != nil {
		return Result{}, err
	}

	ingestionTime := c.Now().UTC().Format(time.RFC3339)
	var tables []rows.Table
	for _, customerID := range req.CustomerIDs {
		table, err := searcher.Search(ctx, customerID, req.Query)
		if err != nil {
			return Result{}, err
		}
		if table.Empty() {
			continue
		}
		table.AddConstant("customer_id", customerID)
		table.AddConstant("ingestion_time", ingestionTime)
		tables = append(tables, table)
	}
	combined, err := rows.Concat(tables...)
	if err != nil {
		return Result{}, err
	}
	combined = rows.Normalize(combined, []string{"segments.date", "ingestion_time"})

	loader, err := c.NewLoader(ctx, destProject, warehouseCreds)
	if err != nil {
		return Result{}, err
	}
	dest := warehouse.Destination{ProjectID: destProject, Dataset: destDataset, Table: destTable}
	var refresh *warehouse.Refresh
	if req.DeleteExisting && req.PartitionColumn != "" {
		refresh = &warehouse.Refresh{
			Start:           window.Start,
			End:             window.End,
			EntityIDs:       req.CustomerIDs,
			PartitionColumn: req.PartitionColumn,
		}
	}
	loaded, err := loader.Load(ctx, combined, []string{"segments.date", "ingestion_time"}, dest, refresh)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Platform:    PlatformGoogleAds,
		RowsLoaded:  loaded,
		DateRange:   window.Strings(),
		Destination: dest.String(),
	}, nil
}

package connector

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/adstack/ingest-api/internal/config"
	"github.com/adstack/ingest-api/internal/dates"
	"github.com/adstack/ingest-api/internal/platform/tiktok"
	"github.com/adstack/ingest-api/internal/rows"
	"github.com/adstack/ingest-api/internal/secrets"
	"github.com/adstack/ingest-api/internal/warehouse"
)

// TikTokRequest is the load payload for the TikTok Ads connector. The
// integrated report is fetched one account and one day at a time so reruns
// refresh whole daily partitions.
type TikTokRequest struct {
	Timezone           string   `json:"timezone"`
	StartDate          string   `json:"start_date"`
	EndDate            string   `json:"end_date"`
	ReprocessLastXDays *int     `json:"reprocess_last_x_days"`
	AccountIDs         []string `json:"account_ids"`
	Dimensions         []string `json:"dimensions"`
	Metrics            []string `json:"metrics"`
	Level              string   `json:"level"`
	ReportType         string   `json:"report_type"`

	SecretProjectID string `json:"secret_project_id"`
	TikTokSecretID  string `json:"tiktok_secret_id"`
	BQSecretID      string `json:"bq_secret_id"`

	DestinationProjectID string `json:"destination_project_id"`
	DestinationDataset   string `json:"destination_dataset"`
	DestinationTable     string `json:"destination_table"`
	DeleteExisting       *bool  `json:"delete_existing"`
}

// Reporter is the slice of the TikTok client the connector depends on.
type Reporter interface {
	Report(ctx context.Context, query tiktok.ReportQuery) ([]map[string]string, error)
}

type ReporterFactory func(accessToken string) Reporter

type TikTok struct {
	Resolver    secrets.Resolver
	Defaults    config.Defaults
	Settings    config.PlatformConfig
	Timezone    string
	NewReporter ReporterFactory
	NewLoader   LoaderFactory
	Now         func() time.Time
	Logger      zerolog.Logger
}

func (c *TikTok) Run(ctx context.Context, req TikTokRequest) (Result, error) {
	if len(req.AccountIDs) == 0 {
		return Result{}, validationf("missing required parameter: account_ids")
	}
	if len(req.Dimensions) == 0 {
		return Result{}, validationf("missing required parameter: dimensions")
	}
	if len(req.Metrics) == 0 {
		return Result{}, validationf("missing required parameter: metrics")
	}

	secretProject, err := param(req.SecretProjectID, c.Defaults.SecretProjectID, "secret_project_id", true)
	if err != nil {
		return Result{}, err
	}
	tiktokSecret, err := param(req.TikTokSecretID, c.Settings.SecretID, "tiktok_secret_id", true)
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
	level := req.Level
	if level == "" {
		level = "AUCTION_AD"
	}
	reportType := req.ReportType
	if reportType == "" {
		reportType = "BASIC"
	}
	// Daily partitions are refreshed on rerun unless explicitly disabled.
	deleteExisting := true
	if req.DeleteExisting != nil {
		deleteExisting = *req.DeleteExisting
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

	accessRaw, err := c.Resolver.Access(ctx, secretProject, tiktokSecret, "")
	if err != nil {
		return Result{}, err
	}
	accessToken := secrets.TokenPayload(accessRaw, "access_token")
	if accessToken == "" {
		return Result{}, validationf("tiktok access token was not found in the secret payload")
	}
	warehouseCreds, err := c.Resolver.Access(ctx, secretProject, bqSecret, "")
	if err != nil {
		return Result{}, err
	}
	if err := serviceAccountJSON(warehouseCreds, "bigquery"); err != nil {
		return Result{}, err
	}

	reporter := c.NewReporter(accessToken)
	ingestionTime := c.Now().UTC().Format(time.RFC3339)

	var records []map[string]string
	for _, accountID := range req.AccountIDs {
		for _, day := range dates.List(window) {
			fetched, err := reporter.Report(ctx, tiktok.ReportQuery{
				AdvertiserID: accountID,
				StartDate:    day,
				EndDate:      day,
				Dimensions:   req.Dimensions,
				Metrics:      req.Metrics,
				DataLevel:    level,
				ReportType:   reportType,
			})
			if err != nil {
				return Result{}, err
			}
			for _, record := range fetched {
				record["account_id"] = accountID
				record["created_time"] = day
				record["ingestion_time"] = ingestionTime
				records = append(records, record)
			}
		}
	}

	preferred := append(append([]string{}, req.Dimensions...), req.Metrics...)
	preferred = append(preferred, "account_id", "created_time", "ingestion_time")
	table := rows.FromMaps(records, preferred)
	table = rows.Normalize(table, []string{"created_time", "ingestion_time"})

	loader, err := c.NewLoader(ctx, destProject, warehouseCreds)
	if err != nil {
		return Result{}, err
	}
	dest := warehouse.Destination{ProjectID: destProject, Dataset: destDataset, Table: destTable}
	var refresh *warehouse.Refresh
	if deleteExisting {
		refresh = &warehouse.Refresh{
			Start:           window.Start,
			End:             window.End,
			EntityIDs:       req.AccountIDs,
			PartitionColumn: "created_time",
		}
	}
	loaded, err := loader.Load(ctx, table, []string{"created_time", "ingestion_time"}, dest, refresh)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Platform:    PlatformTikTok,
		RowsLoaded:  loaded,
		DateRange:   window.Strings(),
		Destination: dest.String(),
	}, nil
}

package connector

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/adstack/ingest-api/internal/config"
	"github.com/adstack/ingest-api/internal/dates"
	"github.com/adstack/ingest-api/internal/report"
	"github.com/adstack/ingest-api/internal/rows"
	"github.com/adstack/ingest-api/internal/secrets"
	"github.com/adstack/ingest-api/internal/warehouse"
)

// DV360Request is the load payload for the Display & Video 360 connector.
type DV360Request struct {
	Timezone           string   `json:"timezone"`
	StartDate          string   `json:"start_date"`
	EndDate            string   `json:"end_date"`
	ReprocessLastXDays *int     `json:"reprocess_last_x_days"`
	AdvertiserIDs      []string `json:"advertiser_ids"`
	Metrics            []string `json:"metrics"`
	Dimensions         []string `json:"dimensions"`
	FileName           string   `json:"file_name"`
	QueryID            string   `json:"query_id"`

	SecretProjectID string `json:"secret_project_id"`
	DV360SecretID   string `json:"dv360_secret_id"`
	BQSecretID      string `json:"bq_secret_id"`

	DestinationProjectID string `json:"destination_project_id"`
	DestinationDataset   string `json:"destination_dataset"`
	DestinationTable     string `json:"destination_table"`
	DeleteExisting       bool   `json:"delete_existing"`
	PartitionColumn      string `json:"partition_column"`

	MinRetryInterval int `json:"min_retry_interval"`
	MaxRetryInterval int `json:"max_retry_interval"`
	MaxRetryCount    int `json:"max_retry_count"`
}

// ServiceFactory builds the report service for one invocation from the
// resolved platform credential. Clients are never shared across invocations.
type ServiceFactory func(ctx context.Context, credentialsJSON []byte) (report.Service, error)

type StoreFactory func(ctx context.Context, credentialsJSON []byte) (report.ObjectStore, error)

type LoaderFactory func(ctx context.Context, projectID string, credentialsJSON []byte) (warehouse.Loader, error)

// DV360 runs the asynchronous report protocol: submit a query run, poll it
// to a terminal state, fetch the CSV artifact from object storage, then
// normalize and load.
type DV360 struct {
	Resolver   secrets.Resolver
	Defaults   config.Defaults
	Settings   config.DV360Config
	Timezone   string
	NewService ServiceFactory
	NewStore   StoreFactory
	NewLoader  LoaderFactory
	Sleep      report.SleepFunc
	Now        func() time.Time
	Logger     zerolog.Logger
}

func (c *DV360) Run(ctx context.Context, req DV360Request) (Result, error) {
	if len(req.AdvertiserIDs) == 0 {
		return Result{}, validationf("missing required parameter: advertiser_ids")
	}
	if len(req.Metrics) == 0 {
		return Result{}, validationf("missing required parameter: metrics")
	}
	if len(req.Dimensions) == 0 {
		return Result{}, validationf("missing required parameter: dimensions")
	}

	secretProject, err := param(req.SecretProjectID, c.Defaults.SecretProjectID, "secret_project_id", true)
	if err != nil {
		return Result{}, err
	}
	dv360Secret, err := param(req.DV360SecretID, c.Settings.SecretID, "dv360_secret_id", true)
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
	fileName := req.FileName
	if fileName == "" {
		fileName = "dv360_report"
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

	// Date validation happens before any secret resolution; a contradictory
	// request never touches the secret store.
	platformCreds, err := c.Resolver.Access(ctx, secretProject, dv360Secret, "")
	if err != nil {
		return Result{}, err
	}
	if err := serviceAccountJSON(platformCreds, "dv360"); err != nil {
		return Result{}, err
	}
	warehouseCreds, err := c.Resolver.Access(ctx, secretProject, bqSecret, "")
	if err != nil {
		return Result{}, err
	}
	if err := serviceAccountJSON(warehouseCreds, "bigquery"); err != nil {
		return Result{}, err
	}

	service, err := c.NewService(ctx, platformCreds)
	if err != nil {
		return Result{}, err
	}

	spec := report.Spec{
		Title:         fileName,
		AdvertiserIDs: req.AdvertiserIDs,
		Dimensions:    req.Dimensions,
		Metrics:       req.Metrics,
		Start:         window.Start,
		End:           window.End,
	}
	submitter := report.Submitter{Service: service, Logger: c.Logger}
	job, err := submitter.Submit(ctx, spec, req.QueryID)
	if err != nil {
		return Result{}, err
	}

	poller := report.Poller{
		MinInterval: c.interval(req.MinRetryInterval, c.Settings.MinRetryInterval),
		MaxInterval: c.interval(req.MaxRetryInterval, c.Settings.MaxRetryInterval),
		MaxAttempts: pick(req.MaxRetryCount, c.Settings.MaxRetryCount),
		Sleep:       c.Sleep,
	}
	job, err = poller.Wait(ctx, func(ctx context.Context) (report.Job, error) {
		return service.Status(ctx, job.QueryID, job.ReportID)
	})
	if err != nil {
		return Result{}, err
	}
	if job.State == report.StateFailed {
		return Result{}, &report.GenerationError{QueryID: job.QueryID, ReportID: job.ReportID}
	}

	store, err := c.NewStore(ctx, platformCreds)
	if err != nil {
		return Result{}, err
	}
	table, err := report.Retriever{Store: store}.Fetch(ctx, job.ArtifactLocator)
	if err != nil {
		return Result{}, err
	}
	c.Logger.Info().
		Str("query_id", job.QueryID).
		Str("report_id", job.ReportID).
		Int("rows", table.RowCount()).
		Msg("report artifact fetched")

	table.AddConstant("ingestion_time", c.Now().UTC().Format(time.RFC3339))
	table = rows.Normalize(table, []string{"ingestion_time"})

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
			EntityIDs:       req.AdvertiserIDs,
			PartitionColumn: req.PartitionColumn,
		}
	}
	loaded, err := loader.Load(ctx, table, []string{"ingestion_time"}, dest, refresh)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Platform:    PlatformDV360,
		RowsLoaded:  loaded,
		DateRange:   window.Strings(),
		Destination: dest.String(),
	}, nil
}

func (c *DV360) interval(requested, configured int) time.Duration {
	return time.Duration(pick(requested, configured)) * time.Second
}

func pick(requested, configured int) int {
	if requested > 0 {
		return requested
	}
	return configured
}

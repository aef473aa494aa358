package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adstack/ingest-api/internal/config"
	"github.com/adstack/ingest-api/internal/connector"
	"github.com/adstack/ingest-api/internal/models"
	"github.com/adstack/ingest-api/internal/report"
	"github.com/adstack/ingest-api/internal/repository"
	"github.com/adstack/ingest-api/internal/warehouse"
)

type stubResolver struct {
	err error
}

func (s *stubResolver) Access(ctx context.Context, projectID, secretID, version string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("{}"), nil
}

type stubRunRepo struct {
	created []repository.CreateRunParams
	listErr error
	runs    []models.LoadRun
}

func (s *stubRunRepo) Create(ctx context.Context, params repository.CreateRunParams) (models.LoadRun, error) {
	s.created = append(s.created, params)
	return models.LoadRun{ID: "run-1", Platform: params.Platform, Status: params.Status}, nil
}

func (s *stubRunRepo) List(ctx context.Context, platform string, limit, offset int) ([]models.LoadRun, error) {
	return s.runs, s.listErr
}

func newValidatingDV360() *connector.DV360 {
	// The request below fails validation, so none of the factories run.
	return &connector.DV360{
		Resolver: &stubResolver{},
		Defaults: config.Defaults{SecretProjectID: "p", BQSecretID: "bq"},
		Settings: config.DV360Config{SecretID: "dv", MinRetryInterval: 1, MaxRetryInterval: 1, MaxRetryCount: 1},
		Timezone: "UTC",
		NewService: func(ctx context.Context, credentialsJSON []byte) (report.Service, error) {
			return nil, errors.New("unexpected")
		},
		NewStore: func(ctx context.Context, credentialsJSON []byte) (report.ObjectStore, error) {
			return nil, errors.New("unexpected")
		},
		NewLoader: func(ctx context.Context, projectID string, credentialsJSON []byte) (warehouse.Loader, error) {
			return nil, errors.New("unexpected")
		},
		Sleep:  func(ctx context.Context, d time.Duration) error { return nil },
		Now:    time.Now,
		Logger: zerolog.Nop(),
	}
}

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthCheck(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"status": "ok"}, body)
}

func TestDV360LoadValidationFailureIs400(t *testing.T) {
	runs := &stubRunRepo{}
	rec := &Recorder{Runs: runs, Logger: zerolog.Nop()}
	handler := NewDV360Handler(newValidatingDV360(), rec, zerolog.Nop())

	payload := map[string]any{
		"advertiser_ids":        []string{"1"},
		"metrics":               []string{"M"},
		"dimensions":            []string{"D"},
		"destination_table":     "t",
		"start_date":            "2024-01-01",
		"end_date":              "2024-01-31",
		"reprocess_last_x_days": 7,
	}
	body, _ := json.Marshal(payload)

	recorder := httptest.NewRecorder()
	handler.Load(recorder, httptest.NewRequest(http.MethodPost, "/api/dv360/load", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["detail"])

	// The failed run is still recorded.
	require.Len(t, runs.created, 1)
	assert.Equal(t, models.LoadRunStatusFailed, runs.created[0].Status)
	assert.Equal(t, "dv360", runs.created[0].Platform)
}

func TestDV360LoadMalformedBodyIs400(t *testing.T) {
	handler := NewDV360Handler(newValidatingDV360(), &Recorder{Logger: zerolog.Nop()}, zerolog.Nop())

	recorder := httptest.NewRecorder()
	handler.Load(recorder, httptest.NewRequest(http.MethodPost, "/api/dv360/load", bytes.NewReader([]byte("{not json"))))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestDV360LoadDownstreamFailureIs500(t *testing.T) {
	c := newValidatingDV360()
	c.Resolver = &stubResolver{err: errors.New("secret store unavailable")}
	handler := NewDV360Handler(c, &Recorder{Logger: zerolog.Nop()}, zerolog.Nop())

	payload := map[string]any{
		"advertiser_ids":         []string{"1"},
		"metrics":                []string{"M"},
		"dimensions":             []string{"D"},
		"destination_project_id": "wp",
		"destination_dataset":    "ds",
		"destination_table":      "t",
		"reprocess_last_x_days":  1,
	}
	body, _ := json.Marshal(payload)

	recorder := httptest.NewRecorder()
	handler.Load(recorder, httptest.NewRequest(http.MethodPost, "/api/dv360/load", bytes.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Contains(t, resp["detail"], "secret store unavailable")
}

func TestRunsList(t *testing.T) {
	dest := "p.d.t"
	runs := &stubRunRepo{runs: []models.LoadRun{
		{ID: "run-1", Platform: "dv360", Status: models.LoadRunStatusSucceeded, RowsLoaded: 10, Destination: &dest},
	}}
	handler := NewRunsHandler(runs, zerolog.Nop())

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/runs?platform=dv360", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Runs []models.LoadRun `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, int64(10), resp.Runs[0].RowsLoaded)
}

func TestRunsListError(t *testing.T) {
	runs := &stubRunRepo{listErr: errors.New("db down")}
	handler := NewRunsHandler(runs, zerolog.Nop())

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestRecorderSuccessPrefersFlatDestination(t *testing.T) {
	runs := &stubRunRepo{}
	rec := &Recorder{Runs: runs, Logger: zerolog.Nop()}

	rec.success(context.Background(), connector.Result{
		Platform:    "dv360",
		RowsLoaded:  5,
		DateRange:   []string{"2024-01-01", "2024-01-02"},
		Destination: "p.d.t",
	})

	require.Len(t, runs.created, 1)
	created := runs.created[0]
	assert.Equal(t, models.LoadRunStatusSucceeded, created.Status)
	require.NotNil(t, created.Destination)
	assert.Equal(t, "p.d.t", *created.Destination)
	require.NotNil(t, created.StartDate)
	assert.Equal(t, "2024-01-01", *created.StartDate)
}

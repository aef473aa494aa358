package handlers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/adstack/ingest-api/internal/connector"
	"github.com/adstack/ingest-api/internal/models"
	"github.com/adstack/ingest-api/internal/notification"
	"github.com/adstack/ingest-api/internal/repository"
)

// Recorder persists load-run history and publishes notifications after each
// connector invocation. Both are best-effort bookkeeping: failures are logged
// and never change the HTTP outcome of the load itself.
type Recorder struct {
	Runs     repository.RunRepository
	Notifier notification.Service
	Logger   zerolog.Logger
}

func (rec *Recorder) success(ctx context.Context, result connector.Result) {
	if rec == nil {
		return
	}
	params := repository.CreateRunParams{
		Platform:   result.Platform,
		Status:     models.LoadRunStatusSucceeded,
		RowsLoaded: result.RowsLoaded,
	}
	if len(result.DateRange) == 2 {
		params.StartDate = &result.DateRange[0]
		params.EndDate = &result.DateRange[1]
	}
	destination := result.Destination
	if destination == "" && len(result.Targets) > 0 {
		for _, target := range result.Targets {
			destination = target
			break
		}
	}
	if destination != "" {
		params.Destination = &destination
	}

	if rec.Runs != nil {
		if _, err := rec.Runs.Create(ctx, params); err != nil {
			rec.Logger.Warn().Err(err).Str("platform", result.Platform).Msg("failed to record load run")
		}
	}
	if rec.Notifier != nil {
		if err := rec.Notifier.NotifyLoadSucceeded(ctx, result.Platform, result.RowsLoaded, destination); err != nil {
			rec.Logger.Warn().Err(err).Str("platform", result.Platform).Msg("failed to publish notification")
		}
	}
}

func (rec *Recorder) failure(ctx context.Context, platform string, runErr error) {
	if rec == nil {
		return
	}
	message := runErr.Error()
	if rec.Runs != nil {
		_, err := rec.Runs.Create(ctx, repository.CreateRunParams{
			Platform:     platform,
			Status:       models.LoadRunStatusFailed,
			ErrorMessage: &message,
		})
		if err != nil {
			rec.Logger.Warn().Err(err).Str("platform", platform).Msg("failed to record load run")
		}
	}
	if rec.Notifier != nil {
		if err := rec.Notifier.NotifyLoadFailed(ctx, platform, message); err != nil {
			rec.Logger.Warn().Err(err).Str("platform", platform).Msg("failed to publish notification")
		}
	}
}

package report

import (
	"context"

	"github.com/rs/zerolog"
)

// Submitter creates (or reuses) a report definition and triggers one
// asynchronous run. Submission failures surface immediately: retrying a
// create could register duplicate definitions on the vendor side.
type Submitter struct {
	Service Service
	Logger  zerolog.Logger
}

// Submit returns a Job with query and report ids populated and state
// RUNNING. When queryID is empty a new definition is created first.
func (s Submitter) Submit(ctx context.Context, spec Spec, queryID string) (Job, error) {
	if queryID == "" {
		created, err := s.Service.Create(ctx, spec)
		if err != nil {
			return Job{}, &SubmissionError{Op: "create", Err: err}
		}
		queryID = created
		s.Logger.Info().Str("query_id", queryID).Msg("report definition created")
	}

	job, err := s.Service.Run(ctx, queryID)
	if err != nil {
		return Job{}, &SubmissionError{Op: "run", Err: err}
	}
	if job.State == "" {
		job.State = StateRunning
	}
	s.Logger.Info().
		Str("query_id", job.QueryID).
		Str("report_id", job.ReportID).
		Msg("report run triggered")
	return job, nil
}

package models

import "time"

type LoadRunStatus string

const (
	LoadRunStatusSucceeded LoadRunStatus = "succeeded"
	LoadRunStatusFailed    LoadRunStatus = "failed"
)

// LoadRun is the persisted record of one connector invocation. It is
// bookkeeping only; report jobs themselves are never stored or resumed.
type LoadRun struct {
	ID           string        `json:"id" db:"id"`
	Platform     string        `json:"platform" db:"platform"`
	Status       LoadRunStatus `json:"status" db:"status"`
	RowsLoaded   int64         `json:"rows_loaded" db:"rows_loaded"`
	StartDate    *string       `json:"start_date,omitempty" db:"start_date"`
	EndDate      *string       `json:"end_date,omitempty" db:"end_date"`
	Destination  *string       `json:"destination,omitempty" db:"destination"`
	ErrorMessage *string       `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

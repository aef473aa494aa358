// Package report implements the asynchronous report lifecycle used by the
// DV360 connector: submit a query run, poll for completion with capped
// exponential backoff, and fetch the finished artifact from object storage.
package report

import (
	"context"
	"time"
)

// State is the server-reported condition of a report run.
type State string

const (
	StateRunning State = "RUNNING"
	StateDone    State = "DONE"
	StateFailed  State = "FAILED"
)

// Terminal reports whether no further transition can occur. Unknown states
// are non-terminal: the server is free to add intermediate states and the
// poller must keep waiting through them.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// StateOf maps a raw server state string onto the known set; anything
// unrecognized counts as RUNNING.
func StateOf(raw string) State {
	switch State(raw) {
	case StateDone:
		return StateDone
	case StateFailed:
		return StateFailed
	default:
		return StateRunning
	}
}

// Job is one run of a report definition. QueryID identifies the reusable
// definition, ReportID this particular run. ArtifactLocator is set only once
// the run is DONE. Jobs live for a single connector invocation; they are
// never persisted or resumed.
type Job struct {
	QueryID         string
	ReportID        string
	State           State
	ArtifactLocator string
	CreatedAt       time.Time
}

// Spec is the immutable description of a report: what to group by, which
// metrics to compute, which advertisers to include, and the inclusive
// calendar range. Output format is fixed to CSV, scheduling to one-time.
type Spec struct {
	Title         string
	AdvertiserIDs []string
	Dimensions    []string
	Metrics       []string
	Start         time.Time
	End           time.Time
}

// Service is the slice of the vendor reporting API the lifecycle depends on.
// Create registers a new report definition, Run triggers an asynchronous run
// of an existing definition, and Status is a pure read of the run snapshot.
type Service interface {
	Create(ctx context.Context, spec Spec) (string, error)
	Run(ctx context.Context, queryID string) (Job, error)
	Status(ctx context.Context, queryID, reportID string) (Job, error)
}

package report

import "fmt"

// SubmissionError signals a rejected report creation or run trigger. It is
// never retried here: re-creating a report definition is not idempotent.
type SubmissionError struct {
	Op  string // "create" or "run"
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("report %s rejected: %v", e.Op, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// PollExhaustedError is the client-side terminal outcome: the job never
// reached a server-reported terminal state within the attempt budget.
type PollExhaustedError struct {
	QueryID  string
	ReportID string
	Attempts int
}

func (e *PollExhaustedError) Error() string {
	return fmt.Sprintf("report %s/%s still running after %d status checks", e.QueryID, e.ReportID, e.Attempts)
}

// GenerationError signals that the server reported FAILED for the run.
// The poller returns the FAILED snapshot; the caller raises this at the
// boundary between polling and artifact retrieval.
type GenerationError struct {
	QueryID  string
	ReportID string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("report %s/%s finished with error", e.QueryID, e.ReportID)
}

// InvalidLocatorError covers artifact locators that do not name a readable
// object: wrong scheme, missing bucket or path, or a DONE job that carried
// no locator at all (a protocol violation).
type InvalidLocatorError struct {
	Locator string
	Reason  string
}

func (e *InvalidLocatorError) Error() string {
	return fmt.Sprintf("invalid artifact locator %q: %s", e.Locator, e.Reason)
}

// RetrievalError wraps I/O or decode failures while fetching an artifact.
type RetrievalError struct {
	Locator string
	Err     error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve artifact %s: %v", e.Locator, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

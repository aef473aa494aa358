package report

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// StatusFunc is one idempotent status check. It must be a pure read of the
// job snapshot and must never re-trigger the run.
type StatusFunc func(ctx context.Context) (Job, error)

// SleepFunc blocks for the given delay or until the context ends. Injected
// so tests can observe the backoff schedule without waiting it out.
type SleepFunc func(ctx context.Context, d time.Duration) error

// ContextSleep is the production SleepFunc.
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Poller drives a report run to a terminal state. Report generation is a
// minutes-to-hours server-side batch job, so the wait between checks doubles
// from MinInterval up to the MaxInterval ceiling, and the number of checks is
// bounded so an invocation can never block forever.
type Poller struct {
	MinInterval time.Duration
	MaxInterval time.Duration
	MaxAttempts int
	Sleep       SleepFunc
}

// Defaults matching the vendor guidance for Bid Manager report generation.
const (
	DefaultMinInterval = 30 * time.Second
	DefaultMaxInterval = 60 * time.Second
	DefaultMaxAttempts = 10
)

// Wait polls status until the job reaches DONE or FAILED and returns that
// snapshot. The delay before the k-th retry is min(MinInterval*2^k,
// MaxInterval); no delay precedes the first check and none follows the last.
// If MaxAttempts checks all observe non-terminal states, Wait fails with
// PollExhaustedError. A FAILED snapshot is returned, not classified: the
// caller decides that FAILED means GenerationError.
func (p Poller) Wait(ctx context.Context, status StatusFunc) (Job, error) {
	min := p.MinInterval
	if min <= 0 {
		min = DefaultMinInterval
	}
	max := p.MaxInterval
	if max <= 0 {
		max = DefaultMaxInterval
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = ContextSleep
	}

	var last Job
	delay := min
	if delay > max {
		delay = max
	}
	for attempt := 0; attempt < attempts; attempt++ {
		job, err := status(ctx)
		if err != nil {
			return Job{}, errors.Wrap(err, "report status check")
		}
		if job.State.Terminal() {
			return job, nil
		}
		last = job
		if attempt == attempts-1 {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return Job{}, err
		}
		delay *= 2
		if delay > max {
			delay = max
		}
	}
	return Job{}, &PollExhaustedError{QueryID: last.QueryID, ReportID: last.ReportID, Attempts: attempts}
}

// Package connector orchestrates one extraction per platform: resolve
// request parameters, resolve the source and warehouse secrets, fetch from
// the vendor API, normalize the rows, and load them into the warehouse.
package connector

import (
	"fmt"
	"strconv"
	"time"

	"github.com/adstack/ingest-api/internal/secrets"
)

// Platform names used in run records, notifications and logs.
const (
	PlatformDV360     = "dv360"
	PlatformGoogleAds = "google_ads"
	PlatformTikTok    = "tiktok"
	PlatformLinkedIn  = "linkedin"
)

// ValidationError marks bad, missing or contradictory request parameters.
// It maps to a client error at the HTTP boundary and is never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Result is the structured outcome of a successful load.
type Result struct {
	Platform    string
	RowsLoaded  int64
	DateRange   []string          // [start, end]; nil when the platform has no date window
	Destination string            // single destination, or empty when Breakdown is set
	Breakdown   map[string]int64  // per-table rows for multi-table platforms
	Targets     map[string]string // per-table destinations for multi-table platforms
}

// param resolves a request value against a configured default.
func param(value, fallback, name string, required bool) (string, error) {
	if value != "" {
		return value, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	if required {
		return "", validationf("missing required parameter: %s", name)
	}
	return "", nil
}

// reprocessWindow applies the request default: absent means 1, so explicit
// start/end dates require an explicit 0.
func reprocessWindow(value *int) int {
	if value == nil {
		return 1
	}
	return *value
}

func formatInt(v int64) string { return strconv.FormatInt(v, 10) }

// serviceAccountJSON rejects a credential secret that is not a JSON object
// before any client is built from it, so a misconfigured secret surfaces as
// a client error rather than a failure deep inside the Google SDKs.
func serviceAccountJSON(raw []byte, name string) error {
	if _, ok := secrets.JSONPayload(raw); !ok {
		return validationf("%s secret must be a service account JSON payload", name)
	}
	return nil
}

func loadLocation(timezone string) (*time.Location, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, validationf("unknown timezone %q", timezone)
	}
	return loc, nil
}

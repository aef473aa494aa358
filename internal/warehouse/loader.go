// Package warehouse loads normalized rows into BigQuery, optionally
// refreshing a date/entity-scoped slice of the destination first.
package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/adstack/ingest-api/internal/rows"
)

type Destination struct {
	ProjectID string
	Dataset   string
	Table     string
}

func (d Destination) String() string {
	return fmt.Sprintf("%s.%s.%s", d.ProjectID, d.Dataset, d.Table)
}

// Refresh describes the delete-then-append policy for idempotent reruns:
// rows whose partition column falls inside [Start, End] and whose account_id
// matches one of EntityIDs are removed before the append.
type Refresh struct {
	Start           time.Time
	End             time.Time
	EntityIDs       []string
	PartitionColumn string
}

// Loader appends a table to the destination, deleting the refresh slice
// first when one is given. An empty table skips the whole operation,
// including the delete, and reports 0 rows.
type Loader interface {
	Load(ctx context.Context, table rows.Table, timestampColumns []string, dest Destination, refresh *Refresh) (int64, error)
}

package rows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeColumn(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"segments.date", "segments_date"},
		{"metrics.cost micros", "metrics_cost_micros"},
		{"already_safe", "already_safe"},
		{"3rd_party", "_3rd_party"},
		{"  ", ""},
		{"a-b/c", "a_b_c"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeColumn(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeRenamesAndDropsColumns(t *testing.T) {
	table := New("segments.date", "", "Spend (USD)")
	require.NoError(t, table.Append("2024-01-05", "decoration", "10.5"))

	got := Normalize(table, []string{"segments.date"})

	assert.Equal(t, []string{"segments_date", "Spend__USD_"}, got.Columns)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "2024-01-05T00:00:00Z", got.Rows[0][0])
	assert.Equal(t, "10.5", got.Rows[0][1])
}

func TestNormalizeCoercesTimestamps(t *testing.T) {
	table := New("created", "name")
	require.NoError(t, table.Append("14-03-2024", "day-first layout"))
	require.NoError(t, table.Append("2024-03-14T09:30:00Z", "already rfc3339"))
	require.NoError(t, table.Append("not a date", "unparseable"))
	require.NoError(t, table.Append("", "empty"))

	got := Normalize(table, []string{"created"})

	assert.Equal(t, "2024-03-14T00:00:00Z", got.Rows[0][0])
	assert.Equal(t, "2024-03-14T09:30:00Z", got.Rows[1][0])
	// Unparseable timestamp values are coerced to empty, not passed through.
	assert.Equal(t, "", got.Rows[2][0])
	assert.Equal(t, "", got.Rows[3][0])
	// Non-timestamp columns are untouched.
	assert.Equal(t, "unparseable", got.Rows[2][1])
}

func TestNormalizeEmptyTable(t *testing.T) {
	got := Normalize(Table{}, []string{"created"})
	assert.True(t, got.Empty())
}

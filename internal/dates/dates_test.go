package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	now := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		start     string
		end       string
		reprocess int
		want      Range
		wantErr   bool
	}{
		{
			name:      "reprocess window",
			reprocess: 7,
			want:      Range{Start: date(2024, time.March, 8), End: date(2024, time.March, 14)},
		},
		{
			name:      "reprocess single day",
			reprocess: 1,
			want:      Range{Start: date(2024, time.March, 14), End: date(2024, time.March, 14)},
		},
		{
			name:  "explicit dates",
			start: "2024-01-01",
			end:   "2024-01-31",
			want:  Range{Start: date(2024, time.January, 1), End: date(2024, time.January, 31)},
		},
		{
			name: "neither defaults to yesterday",
			want: Range{Start: date(2024, time.March, 14), End: date(2024, time.March, 14)},
		},
		{
			name:      "explicit dates with reprocess window rejected",
			start:     "2024-01-01",
			end:       "2024-01-31",
			reprocess: 7,
			wantErr:   true,
		},
		{
			name:      "start date alone with reprocess window rejected",
			start:     "2024-01-01",
			reprocess: 7,
			wantErr:   true,
		},
		{
			name:    "start date without end date rejected",
			start:   "2024-01-01",
			wantErr: true,
		},
		{
			name:    "end before start rejected",
			start:   "2024-02-01",
			end:     "2024-01-01",
			wantErr: true,
		},
		{
			name:    "malformed start date rejected",
			start:   "01/02/2024",
			end:     "2024-02-10",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(now, tt.start, tt.end, tt.reprocess)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUsesCallerLocation(t *testing.T) {
	// 01:00 UTC on March 15 is still March 14 in Sao Paulo; yesterday moves
	// back one more day.
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	now := time.Date(2024, time.March, 15, 1, 0, 0, 0, time.UTC).In(loc)

	got, err := Resolve(now, "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-13", got.StartString())
	assert.Equal(t, "2024-03-13", got.EndString())
}

func TestList(t *testing.T) {
	r := Range{Start: date(2024, time.January, 30), End: date(2024, time.February, 2)}
	assert.Equal(t, []string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"}, List(r))

	single := Range{Start: date(2024, time.May, 5), End: date(2024, time.May, 5)}
	assert.Equal(t, []string{"2024-05-05"}, List(single))
}

func TestRangeStrings(t *testing.T) {
	r := Range{Start: date(2024, time.January, 1), End: date(2024, time.January, 31)}
	assert.Equal(t, []string{"2024-01-01", "2024-01-31"}, r.Strings())
}

// Package dates resolves the reporting window for a connector request.
// Requests either name an explicit start/end pair or ask to reprocess the
// last N days; the two modes are mutually exclusive.
package dates

import (
	"fmt"
	"time"
)

const Layout = "2006-01-02"

type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) StartString() string { return r.Start.Format(Layout) }
func (r Range) EndString() string   { return r.End.Format(Layout) }

// Strings returns the [start, end] pair used in load responses.
func (r Range) Strings() []string {
	return []string{r.StartString(), r.EndString()}
}

// Resolve computes the inclusive date range for a request. With
// reprocessLastXDays > 0 the range is [today-N, yesterday] relative to now;
// combining it with explicit dates is rejected. With both dates given they
// are used verbatim. With neither, the range defaults to yesterday.
func Resolve(now time.Time, startDate, endDate string, reprocessLastXDays int) (Range, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if reprocessLastXDays > 0 && (startDate != "" || endDate != "") {
		return Range{}, fmt.Errorf("if using start_date/end_date, set reprocess_last_x_days to 0")
	}

	if reprocessLastXDays > 0 {
		return Range{
			Start: today.AddDate(0, 0, -reprocessLastXDays),
			End:   today.AddDate(0, 0, -1),
		}, nil
	}

	if startDate != "" && endDate != "" {
		start, err := time.Parse(Layout, startDate)
		if err != nil {
			return Range{}, fmt.Errorf("invalid start_date %q: expected YYYY-MM-DD", startDate)
		}
		end, err := time.Parse(Layout, endDate)
		if err != nil {
			return Range{}, fmt.Errorf("invalid end_date %q: expected YYYY-MM-DD", endDate)
		}
		if end.Before(start) {
			return Range{}, fmt.Errorf("end_date %s precedes start_date %s", endDate, startDate)
		}
		return Range{Start: start, End: end}, nil
	}

	if startDate != "" || endDate != "" {
		return Range{}, fmt.Errorf("start_date and end_date must be provided together")
	}

	yesterday := today.AddDate(0, 0, -1)
	return Range{Start: yesterday, End: yesterday}, nil
}

// List enumerates every day in the range as YYYY-MM-DD strings.
func List(r Range) []string {
	var days []string
	for current := r.Start; !current.After(r.End); current = current.AddDate(0, 0, 1) {
		days = append(days, current.Format(Layout))
	}
	return days
}

package rows

import (
	"strings"
	"time"
	"unicode"
)

// timestampLayouts are tried in order when coercing a declared timestamp
// column. The day-first layout covers the LinkedIn insertion-date format.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006",
}

// Normalize prepares a table for the warehouse: columns are renamed to safe
// snake identifiers, unnamed decoration columns are dropped, and values in
// the declared timestamp columns are coerced to RFC 3339 (unparseable values
// become empty, everything else stays a plain string).
func Normalize(t Table, timestampColumns []string) Table {
	if len(t.Columns) == 0 {
		return t
	}

	isTimestamp := make(map[string]bool, len(timestampColumns))
	for _, col := range timestampColumns {
		isTimestamp[SafeColumn(col)] = true
	}

	var keep []int
	out := Table{}
	for i, col := range t.Columns {
		safe := SafeColumn(col)
		if safe == "" {
			continue
		}
		keep = append(keep, i)
		out.Columns = append(out.Columns, safe)
	}

	for _, row := range t.Rows {
		values := make([]string, 0, len(keep))
		for outIdx, srcIdx := range keep {
			value := ""
			if srcIdx < len(row) {
				value = row[srcIdx]
			}
			if isTimestamp[out.Columns[outIdx]] {
				value = coerceTimestamp(value)
			}
			values = append(values, value)
		}
		out.Rows = append(out.Rows, values)
	}
	return out
}

// SafeColumn rewrites a source column name into a BigQuery-safe identifier:
// non-alphanumeric runs become underscores and a leading digit is prefixed.
func SafeColumn(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	safe := b.String()
	if unicode.IsDigit(rune(safe[0])) {
		safe = "_" + safe
	}
	return safe
}

func coerceTimestamp(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC().Format(time.RFC3339)
		}
	}
	return ""
}

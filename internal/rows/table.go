// Package rows holds the in-memory tabular representation shared by the
// vendor clients and the warehouse loader.
package rows

import (
	"fmt"
	"sort"
)

// Table is a column-ordered set of string-valued records. Values stay
// strings end to end; typed coercion happens only at the warehouse boundary
// for declared timestamp columns.
type Table struct {
	Columns []string
	Rows    [][]string
}

func New(columns ...string) Table {
	return Table{Columns: columns}
}

func (t Table) Empty() bool { return len(t.Rows) == 0 }

func (t Table) RowCount() int { return len(t.Rows) }

// ColumnIndex returns the position of a column, or -1 when absent.
func (t Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Append adds one record; the value count must match the column count.
func (t *Table) Append(values ...string) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.Columns))
	}
	t.Rows = append(t.Rows, values)
	return nil
}

// AddConstant appends a column holding the same value on every row.
func (t *Table) AddConstant(column, value string) {
	t.Columns = append(t.Columns, column)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], value)
	}
}

// FromMaps builds a table from keyed records. Column order follows the
// preferred list first, then the remaining keys sorted for determinism;
// missing values are empty strings.
func FromMaps(records []map[string]string, preferred []string) Table {
	seen := make(map[string]bool)
	var columns []string
	for _, col := range preferred {
		if anyHasKey(records, col) && !seen[col] {
			seen[col] = true
			columns = append(columns, col)
		}
	}
	var extras []string
	for _, record := range records {
		for key := range record {
			if !seen[key] {
				seen[key] = true
				extras = append(extras, key)
			}
		}
	}
	sort.Strings(extras)
	columns = append(columns, extras...)

	table := New(columns...)
	for _, record := range records {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = record[col]
		}
		table.Rows = append(table.Rows, values)
	}
	return table
}

func anyHasKey(records []map[string]string, key string) bool {
	for _, record := range records {
		if _, ok := record[key]; ok {
			return true
		}
	}
	return false
}

// Concat appends tables with identical column sets; empty inputs are skipped.
func Concat(tables ...Table) (Table, error) {
	var out Table
	for _, t := range tables {
		if len(t.Columns) == 0 {
			continue
		}
		if len(out.Columns) == 0 {
			out.Columns = t.Columns
		} else if !sameColumns(out.Columns, t.Columns) {
			return Table{}, fmt.Errorf("cannot concat tables with mismatched columns")
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out, nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

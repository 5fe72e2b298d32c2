// Package model provides the shared data model for the validation core:
// tables, records, issues, stage results, and the final validation report.
package model

import (
	"errors"
	"fmt"
)

// FormatTag identifies the recognized structural contract a table conforms to.
type FormatTag string

// Recognized format tags. Any other value is unrecognized and fails schema
// validation with a critical issue.
const (
	FormatGuideRNA           FormatTag = "guide_rna"
	FormatVariantAnnotation  FormatTag = "variant_annotation"
	FormatSampleMetadata     FormatTag = "sample_metadata"
)

// IsValid reports whether the tag is one of the closed set of recognized formats.
func (f FormatTag) IsValid() bool {
	switch f {
	case FormatGuideRNA, FormatVariantAnnotation, FormatSampleMetadata:
		return true
	default:
		return false
	}
}

// Record is an unordered mapping from field name to value. Values are one of
// string, float64, bool, or nil.
type Record map[string]any

// ErrColumnCountMismatch is returned when a row doesn't match the table's declared columns.
var ErrColumnCountMismatch = errors.New("record contains a column not present in the table header")

// Table is a row-major tabular dataset. Column names are part of its identity:
// two tables with the same rows but different declared columns are not equal.
type Table struct {
	columns []string
	rows    []Record
}

// NewTable builds a table from an explicit column order and rows. Each row is
// validated to contain only declared columns (missing values are fine —
// absence means null, not a column violation).
func NewTable(columns []string, rows []Record) (*Table, error) {
	colSet := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		colSet[c] = struct{}{}
	}

	for i, row := range rows {
		for field := range row {
			if _, ok := colSet[field]; !ok {
				return nil, fmt.Errorf("row %d: %w: %q", i, ErrColumnCountMismatch, field)
			}
		}
	}

	cols := make([]string, len(columns))
	copy(cols, columns)

	return &Table{columns: cols, rows: rows}, nil
}

// Columns returns a copy of the declared column order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)

	return cols
}

// HasColumn reports whether the table declares the given column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}

	return false
}

// Rows returns the underlying row slice. Callers must not mutate it.
func (t *Table) Rows() []Record {
	return t.rows
}

// RowCount returns the number of rows in the table.
func (t *Table) RowCount() int {
	return len(t.rows)
}

// Get returns the value of field in row i, and whether it was present and non-nil.
func (t *Table) Get(i int, field string) (any, bool) {
	if i < 0 || i >= len(t.rows) {
		return nil, false
	}

	v, ok := t.rows[i][field]

	return v, ok && v != nil
}

// StringColumn returns field as a string for every row, in row order. Missing
// or non-string values are returned as the empty string with ok=false at that index.
func (t *Table) StringColumn(field string) ([]string, []bool) {
	out := make([]string, len(t.rows))
	present := make([]bool, len(t.rows))

	for i, row := range t.rows {
		v, ok := row[field]
		if !ok || v == nil {
			continue
		}

		s, ok := v.(string)
		if !ok {
			continue
		}

		out[i] = s
		present[i] = true
	}

	return out, present
}

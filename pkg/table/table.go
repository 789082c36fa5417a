// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package table provides the columnar exposure table passed between
// pipeline stages. A Table maps column names to equal-length string
// slices; row identity is purely positional. Values the pipeline cannot
// supply are stored as the explicit sentinel "None" rather than left
// absent, so every stage sees the same rectangular shape.
package table

import (
	"fmt"
	"strconv"
)

// None is the sentinel stored for values that are not available.
const None = "None"

// Table is a rectangular string table: every column has the same length.
// Columns preserve insertion order for serialization.
type Table struct {
	cols  map[string][]string
	order []string
}

// New returns an empty Table with no columns.
func New() *Table {
	return &Table{cols: make(map[string][]string)}
}

// FromColumns builds a Table from a column map. Column order is not
// defined by the map; callers that care about order should use AddColumn.
func FromColumns(cols map[string][]string) (*Table, error) {
	t := New()
	for name, values := range cols {
		if err := t.AddColumn(name, values); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if len(t.order) == 0 {
		return 0
	}
	return len(t.cols[t.order[0]])
}

// Names returns the column names in insertion order.
func (t *Table) Names() []string {
	names := make([]string, len(t.order))
	copy(names, t.order)
	return names
}

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns the values of the named column, or nil if absent.
// The returned slice is the table's backing storage; callers must not
// resize it.
func (t *Table) Column(name string) []string {
	return t.cols[name]
}

// Value returns the value at column name, row i.
func (t *Table) Value(name string, i int) string {
	col, ok := t.cols[name]
	if !ok {
		return ""
	}
	return col[i]
}

// Int parses the value at column name, row i as an integer.
func (t *Table) Int(name string, i int) (int, error) {
	v := t.Value(name, i)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("column %s row %d: parsing %q as int: %w", name, i, v, err)
	}
	return n, nil
}

// Float parses the value at column name, row i as a float64.
func (t *Table) Float(name string, i int) (float64, error) {
	v := t.Value(name, i)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s row %d: parsing %q as float: %w", name, i, v, err)
	}
	return f, nil
}

// AddColumn adds a new column. The value count must match the current row
// count unless the table is empty.
func (t *Table) AddColumn(name string, values []string) error {
	if _, ok := t.cols[name]; ok {
		return fmt.Errorf("column %s already exists", name)
	}
	if len(t.order) > 0 && len(values) != t.Len() {
		return fmt.Errorf("column %s has %d values, table has %d rows", name, len(values), t.Len())
	}
	stored := make([]string, len(values))
	copy(stored, values)
	t.cols[name] = stored
	t.order = append(t.order, name)
	return nil
}

// SetColumn replaces the values of an existing column. Used by stages
// that override a column in place (e.g. filter overrides).
func (t *Table) SetColumn(name string, values []string) error {
	if _, ok := t.cols[name]; !ok {
		return fmt.Errorf("column %s does not exist", name)
	}
	if len(values) != t.Len() {
		return fmt.Errorf("column %s has %d values, table has %d rows", name, len(values), t.Len())
	}
	stored := make([]string, len(values))
	copy(stored, values)
	t.cols[name] = stored
	return nil
}

// Row returns row i as a column-name-to-value map.
func (t *Table) Row(i int) map[string]string {
	row := make(map[string]string, len(t.order))
	for _, name := range t.order {
		row[name] = t.cols[name][i]
	}
	return row
}

// AppendRow appends one row. The row must supply a value for every column
// and nothing else; a partial row would leave the table ragged.
func (t *Table) AppendRow(row map[string]string) error {
	if len(row) != len(t.order) {
		return fmt.Errorf("row has %d values, table has %d columns", len(row), len(t.order))
	}
	for _, name := range t.order {
		v, ok := row[name]
		if !ok {
			return fmt.Errorf("row is missing column %s", name)
		}
		t.cols[name] = append(t.cols[name], v)
	}
	return nil
}

// AppendRowFrom appends row i of src. Every column of the receiver must
// exist in src.
func (t *Table) AppendRowFrom(src *Table, i int) error {
	for _, name := range t.order {
		col := src.Column(name)
		if col == nil {
			return fmt.Errorf("source table is missing column %s", name)
		}
		t.cols[name] = append(t.cols[name], col[i])
	}
	return nil
}

// EmptyLike returns a new Table with the same columns as t and zero rows.
func (t *Table) EmptyLike() *Table {
	out := New()
	for _, name := range t.order {
		out.cols[name] = nil
		out.order = append(out.order, name)
	}
	return out
}

// Validate checks that every column has the same length. Stages call this
// at their boundaries so a ragged table fails where it was produced.
func (t *Table) Validate() error {
	n := t.Len()
	for _, name := range t.order {
		if len(t.cols[name]) != n {
			return fmt.Errorf("ragged table: column %s has %d values, expected %d", name, len(t.cols[name]), n)
		}
	}
	return nil
}

// Merge returns a new table containing the columns of t followed by the
// columns of other. Both tables must have the same row count, and no
// column name may appear in both: an overlap means two stages disagree
// about who owns a field, which is a bug, not a merge.
func (t *Table) Merge(other *Table) (*Table, error) {
	if t.Len() != other.Len() {
		return nil, fmt.Errorf("cannot merge tables with %d and %d rows", t.Len(), other.Len())
	}
	out := New()
	for _, name := range t.order {
		if err := out.AddColumn(name, t.cols[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range other.order {
		if err := out.AddColumn(name, other.cols[name]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

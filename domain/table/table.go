package table

import (
	"math"

	"gotlf/domain/core"
)

// Type defines the semantic type of a column for analysis
type Type string

const (
	// Numeric columns hold continuous values with an explicit missing mask.
	Numeric Type = "numeric"
	// Categorical columns hold string levels; the empty string is missing.
	Categorical Type = "categorical"
	// Flag columns hold Y/N indicators (ADaM convention).
	Flag Type = "flag"
	// Identifier columns hold subject or record keys.
	Identifier Type = "identifier"
)

// Column is a fixed-type one-dimensional sequence of values with an
// explicit mask for missing entries. Once built it is treated as read-only
// by every downstream stage.
type Column struct {
	Name string
	Type Type

	floats  []float64
	strs    []string
	missing []bool
}

// NewNumericColumn builds a numeric column. A nil missing mask means no
// missing values; NaN entries are marked missing regardless.
func NewNumericColumn(name string, values []float64, missing []bool) *Column {
	m := make([]bool, len(values))
	for i, v := range values {
		if missing != nil && missing[i] {
			m[i] = true
		}
		if math.IsNaN(v) {
			m[i] = true
		}
	}
	data := make([]float64, len(values))
	copy(data, values)
	return &Column{Name: name, Type: Numeric, floats: data, missing: m}
}

// NewStringColumn builds a categorical, flag or identifier column.
// Empty strings are recorded as missing.
func NewStringColumn(name string, typ Type, values []string) *Column {
	m := make([]bool, len(values))
	data := make([]string, len(values))
	for i, v := range values {
		data[i] = v
		if v == "" {
			m[i] = true
		}
	}
	return &Column{Name: name, Type: typ, strs: data, missing: m}
}

// Len returns the number of entries in the column
func (c *Column) Len() int {
	if c.Type == Numeric {
		return len(c.floats)
	}
	return len(c.strs)
}

// IsNumeric reports whether the column holds continuous values
func (c *Column) IsNumeric() bool {
	return c.Type == Numeric
}

// IsMissing reports whether the value at row i is missing
func (c *Column) IsMissing(i int) bool {
	return c.missing[i]
}

// Float returns the numeric value at row i; NaN when missing or non-numeric
func (c *Column) Float(i int) float64 {
	if c.Type != Numeric || c.missing[i] {
		return math.NaN()
	}
	return c.floats[i]
}

// String returns the string value at row i; empty when missing or numeric
func (c *Column) String(i int) string {
	if c.Type == Numeric {
		return ""
	}
	return c.strs[i]
}

// Floats returns a copy of the non-missing numeric values, in row order
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.floats))
	for i, v := range c.floats {
		if !c.missing[i] {
			out = append(out, v)
		}
	}
	return out
}

// Levels returns the distinct non-missing string values in first-seen order
func (c *Column) Levels() []string {
	seen := make(map[string]bool)
	var levels []string
	for i, v := range c.strs {
		if c.missing[i] || seen[v] {
			continue
		}
		seen[v] = true
		levels = append(levels, v)
	}
	return levels
}

// MissingCount returns the number of missing entries
func (c *Column) MissingCount() int {
	n := 0
	for _, m := range c.missing {
		if m {
			n++
		}
	}
	return n
}

// subset returns a new column containing the rows where keep is true
func (c *Column) subset(keep []bool) *Column {
	out := &Column{Name: c.Name, Type: c.Type}
	for i, k := range keep {
		if !k {
			continue
		}
		if c.Type == Numeric {
			out.floats = append(out.floats, c.floats[i])
		} else {
			out.strs = append(out.strs, c.strs[i])
		}
		out.missing = append(out.missing, c.missing[i])
	}
	return out
}

// Table is a named collection of equal-length columns, the in-memory form
// of one loaded dataset. Tables are created by the loader and by row
// filtering; they are never mutated after construction.
type Table struct {
	Name string

	cols   []*Column
	byName map[string]*Column
	nrows  int
}

// New builds a table from columns, which must all have the same length
func New(name string, cols ...*Column) (*Table, error) {
	t := &Table{Name: name, byName: make(map[string]*Column, len(cols))}
	for _, c := range cols {
		if len(t.cols) > 0 && c.Len() != t.nrows {
			return nil, core.NewSchemaMismatchError(name, c.Name, "column length mismatch")
		}
		t.nrows = c.Len()
		t.cols = append(t.cols, c)
		t.byName[c.Name] = c
	}
	return t, nil
}

// Column returns the named column or ErrColumnNotFound
func (t *Table) Column(name string) (*Column, error) {
	c, ok := t.byName[name]
	if !ok {
		return nil, core.NewColumnNotFoundError(t.Name, name)
	}
	return c, nil
}

// HasColumn reports whether the table contains the named column
func (t *Table) HasColumn(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// NumRows returns the number of rows
func (t *Table) NumRows() int {
	return t.nrows
}

// NumCols returns the number of columns
func (t *Table) NumCols() int {
	return len(t.cols)
}

// ColumnNames returns the column names in table order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Filter returns a new table containing the rows where keep is true.
// The keep mask must have one entry per row.
func (t *Table) Filter(keep []bool) (*Table, error) {
	if len(keep) != t.nrows {
		return nil, core.NewSchemaMismatchError(t.Name, "", "filter mask length mismatch")
	}
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.subset(keep)
	}
	return New(t.Name, cols...)
}

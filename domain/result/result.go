// Package result defines the normalized long-format output contract every
// summarizer produces: grouping keys + statistic name + value. The external
// table formatter renders any of these tables uniformly, so no summary
// needs per-table special casing downstream.
package result

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Value is one statistic value with an explicit missing marker. A missing
// statistic (for example the mean of an empty arm) is distinct from zero
// and from an omitted row; it is always emitted, flagged as missing.
type Value struct {
	Num     float64 `json:"num"`
	Str     string  `json:"str,omitempty"`
	Missing bool    `json:"missing"`
}

// Number builds a present numeric value
func Number(v float64) Value {
	return Value{Num: v}
}

// Text builds a present categorical value
func Text(s string) Value {
	return Value{Str: s}
}

// MissingValue builds the sentinel for a statistic that could not be
// computed (empty subset). Never substituted with zero.
func MissingValue() Value {
	return Value{Missing: true}
}

// IsText reports whether the value is categorical
func (v Value) IsText() bool {
	return v.Str != ""
}

// Format renders the value for the formatter: numbers with the given
// precision, text verbatim, missing values as the empty string.
func (v Value) Format(precision int) string {
	if v.Missing {
		return ""
	}
	if v.IsText() {
		return v.Str
	}
	return strconv.FormatFloat(v.Num, 'f', precision, 64)
}

// Row is one (grouping values, statistic, value) entry of a long-format
// summary table. Groups aligns with the parent table's GroupKeys.
type Row struct {
	Groups    []string `json:"groups"`
	Statistic string   `json:"statistic"`
	Value     Value    `json:"value"`
}

// Table is a normalized long-format summary result. Every grouping value
// that was evaluated appears in the rows, including empty subsets, so an
// empty result is always distinguishable from an omitted one.
type Table struct {
	Name      string   `json:"name"`
	GroupKeys []string `json:"group_keys"`
	Rows      []Row    `json:"rows"`
}

// NewTable creates an empty long-format table with the given grouping keys
func NewTable(name string, groupKeys ...string) *Table {
	return &Table{Name: name, GroupKeys: groupKeys}
}

// Append adds one statistic row. The number of group values must match the
// table's grouping keys.
func (t *Table) Append(groups []string, statistic string, value Value) error {
	if len(groups) != len(t.GroupKeys) {
		return fmt.Errorf("result table %s: got %d group values, want %d",
			t.Name, len(groups), len(t.GroupKeys))
	}
	g := make([]string, len(groups))
	copy(g, groups)
	t.Rows = append(t.Rows, Row{Groups: g, Statistic: statistic, Value: value})
	return nil
}

// Get returns the value for an exact (groups, statistic) match
func (t *Table) Get(groups []string, statistic string) (Value, bool) {
	for _, r := range t.Rows {
		if r.Statistic != statistic || len(r.Groups) != len(groups) {
			continue
		}
		match := true
		for i := range groups {
			if r.Groups[i] != groups[i] {
				match = false
				break
			}
		}
		if match {
			return r.Value, true
		}
	}
	return Value{}, false
}

// WriteCSV encodes the table in the long-format contract consumed by the
// external table formatter: one header row of grouping keys plus
// "statistic" and "value", then one row per statistic.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append(append([]string{}, t.GroupKeys...), "statistic", "value", "missing")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header for %s: %w", t.Name, err)
	}
	for _, r := range t.Rows {
		rec := append(append([]string{}, r.Groups...), r.Statistic, r.Value.Format(6),
			strconv.FormatBool(r.Value.Missing))
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row for %s: %w", t.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

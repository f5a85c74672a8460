package domain

import (
	"fmt"
	"math"
	"time"
)

// Table is one station's merged time series: a row per observation timestamp
// and a float64 column per variable. Missing values are NaN; sentinel codes
// are kept as their numeric values until cleaning replaces them.
type Table struct {
	STID    string
	Times   []time.Time // UTC, ascending
	columns []string
	values  map[string][]float64
}

// TableSet maps STID to that station's table, the shape produced by
// area downloads.
type TableSet map[string]*Table

// NewTable creates an empty table for a station.
func NewTable(stid string) *Table {
	return &Table{
		STID:   stid,
		values: make(map[string][]float64),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Times) }

// Columns returns the variable names in insertion order.
func (t *Table) Columns() []string { return t.columns }

// HasColumn reports whether the named variable exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.values[name]
	return ok
}

// Column returns the values for a variable. The slice is shared, not copied.
func (t *Table) Column(name string) ([]float64, error) {
	vals, ok := t.values[name]
	if !ok {
		return nil, fmt.Errorf("no column %q in table for station %s", name, t.STID)
	}
	return vals, nil
}

// SetColumn adds or replaces a variable column. The value count must match
// the row count unless the table is still empty of columns.
func (t *Table) SetColumn(name string, vals []float64) error {
	if len(t.columns) > 0 && len(vals) != len(t.Times) {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(vals), len(t.Times))
	}
	if _, exists := t.values[name]; !exists {
		t.columns = append(t.columns, name)
	}
	t.values[name] = vals
	return nil
}

// AppendRows extends the table with another table's rows. Column sets are
// unioned: cells a side never reported become NaN. Rows are assumed to
// already be in time order across the append.
func (t *Table) AppendRows(o *Table) {
	oldLen := len(t.Times)
	t.Times = append(t.Times, o.Times...)

	for _, name := range o.columns {
		if _, exists := t.values[name]; !exists {
			t.columns = append(t.columns, name)
			t.values[name] = nanSlice(oldLen)
		}
	}
	for _, name := range t.columns {
		if vals, ok := o.values[name]; ok {
			t.values[name] = append(t.values[name], vals...)
		} else {
			t.values[name] = append(t.values[name], nanSlice(o.Len())...)
		}
	}
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Clone deep-copies the table so cleaning operations can stay non-destructive.
func (t *Table) Clone() *Table {
	c := &Table{
		STID:    t.STID,
		Times:   append([]time.Time(nil), t.Times...),
		columns: append([]string(nil), t.columns...),
		values:  make(map[string][]float64, len(t.values)),
	}
	for name, vals := range t.values {
		c.values[name] = append([]float64(nil), vals...)
	}
	return c
}

// Clone deep-copies every table in the set.
func (ts TableSet) Clone() TableSet {
	out := make(TableSet, len(ts))
	for stid, t := range ts {
		out[stid] = t.Clone()
	}
	return out
}

// MissingCount returns the number of NaN cells in the named column, or across
// the whole table when name is empty.
func (t *Table) MissingCount(name string) int {
	count := 0
	for col, vals := range t.values {
		if name != "" && col != name {
			continue
		}
		for _, v := range vals {
			if math.IsNaN(v) {
				count++
			}
		}
	}
	return count
}

// MissingDates returns the distinct UTC dates that contain at least one NaN
// cell, in chronological order.
func (t *Table) MissingDates() []time.Time {
	var dates []time.Time
	seen := make(map[time.Time]bool)
	for i, ts := range t.Times {
		if !t.rowHasNaN(i) {
			continue
		}
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		if !seen[day] {
			seen[day] = true
			dates = append(dates, day)
		}
	}
	return dates
}

func (t *Table) rowHasNaN(i int) bool {
	for _, vals := range t.values {
		if math.IsNaN(vals[i]) {
			return true
		}
	}
	return false
}

// RowIndex returns the row position of the given timestamp, or -1. Times are
// ascending so a binary search would do, but tables are small enough that a
// scan keeps the map-based callers simple.
func (t *Table) RowIndex(ts time.Time) int {
	for i, v := range t.Times {
		if v.Equal(ts) {
			return i
		}
	}
	return -1
}

package timeseries

import (
	"math"
	"sort"
)

// Table is the canonical wide table: one row per month, one column per
// indicator. A missing cell means no observation for that month.
//
// Columns are tracked separately from cells so a column declared by a
// persisted header survives a load/save cycle even when it has no values.
//
// Table is not safe for concurrent mutation.
type Table struct {
	rows    map[Month]map[string]float64
	columns map[string]struct{}
}

// New returns an empty table.
func New() *Table {
	return &Table{
		rows:    make(map[Month]map[string]float64),
		columns: make(map[string]struct{}),
	}
}

// AddColumn declares an indicator column without populating any cell.
func (t *Table) AddColumn(name string) {
	t.columns[name] = struct{}{}
}

// Set stores value at (m, indicator), overwriting any previous value.
// Non-finite values are ignored and Set returns false.
func (t *Table) Set(m Month, indicator string, value float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}
	if value == 0 {
		value = 0 // drop the sign of -0
	}
	row, ok := t.rows[m]
	if !ok {
		row = make(map[string]float64)
		t.rows[m] = row
	}
	row[indicator] = value
	t.columns[indicator] = struct{}{}
	return true
}

// Get returns the value at (m, indicator) and whether it is present.
func (t *Table) Get(m Month, indicator string) (float64, bool) {
	row, ok := t.rows[m]
	if !ok {
		return 0, false
	}
	v, ok := row[indicator]
	return v, ok
}

// Row returns a copy of the populated cells for m, or nil if m has no row.
func (t *Table) Row(m Month) map[string]float64 {
	row, ok := t.rows[m]
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

// HasMonth reports whether m has a row.
func (t *Table) HasMonth(m Month) bool {
	_, ok := t.rows[m]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Empty reports whether t is nil or has no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// Cells returns the number of populated cells.
func (t *Table) Cells() int {
	n := 0
	for _, row := range t.rows {
		n += len(row)
	}
	return n
}

// Months returns the row keys in ascending order.
func (t *Table) Months() []Month {
	months := make([]Month, 0, len(t.rows))
	for m := range t.rows {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}

// Columns returns the column names in ascending byte order.
func (t *Table) Columns() []string {
	cols := make([]string, 0, len(t.columns))
	for c := range t.columns {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// MaxMonth returns the latest month with a row. ok is false for an empty table.
func (t *Table) MaxMonth() (m Month, ok bool) {
	if t.Empty() {
		return Month{}, false
	}
	for k := range t.rows {
		if !ok || m.Before(k) {
			m, ok = k, true
		}
	}
	return m, ok
}

// MinMonth returns the earliest month with a row. ok is false for an empty table.
func (t *Table) MinMonth() (m Month, ok bool) {
	if t.Empty() {
		return Month{}, false
	}
	for k := range t.rows {
		if !ok || k.Before(m) {
			m, ok = k, true
		}
	}
	return m, ok
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	out := New()
	if t == nil {
		return out
	}
	for c := range t.columns {
		out.columns[c] = struct{}{}
	}
	for m, row := range t.rows {
		cp := make(map[string]float64, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out.rows[m] = cp
	}
	return out
}

// Equal reports whether t and other have the same columns and cells.
// A nil table equals an empty table.
func (t *Table) Equal(other *Table) bool {
	if t == nil {
		t = New()
	}
	if other == nil {
		other = New()
	}
	if len(t.columns) != len(other.columns) || len(t.rows) != len(other.rows) {
		return false
	}
	for c := range t.columns {
		if _, ok := other.columns[c]; !ok {
			return false
		}
	}
	for m, row := range t.rows {
		orow, ok := other.rows[m]
		if !ok || len(orow) != len(row) {
			return false
		}
		for k, v := range row {
			ov, ok := orow[k]
			if !ok || ov != v {
				return false
			}
		}
	}
	return true
}

// Records returns every populated cell, ordered by month then column.
func (t *Table) Records() []Record {
	var out []Record
	cols := t.Columns()
	for _, m := range t.Months() {
		row := t.rows[m]
		for _, c := range cols {
			if v, ok := row[c]; ok {
				out = append(out, Record{Month: m, Indicator: c, Value: v})
			}
		}
	}
	return out
}

// FromRecords reshapes long-format records into a wide table.
// Records colliding on (month, indicator) are averaged. Colliding values are
// summed in ascending order, so the mean does not depend on input order.
func FromRecords(records []Record) *Table {
	cells := make(map[Month]map[string][]float64)
	for _, r := range records {
		row, ok := cells[r.Month]
		if !ok {
			row = make(map[string][]float64)
			cells[r.Month] = row
		}
		row[r.Indicator] = append(row[r.Indicator], r.Value)
	}

	t := New()
	for m, row := range cells {
		for name, values := range row {
			t.Set(m, name, mean(values))
		}
	}
	return t
}

// mean sorts values in place and averages them. Finite inputs always give a
// finite mean, even when their sum overflows.
func mean(values []float64) float64 {
	if len(values) == 1 {
		return values[0]
	}
	sort.Float64s(values)
	n := float64(len(values))
	var sum float64
	for _, v := range values {
		sum += v
	}
	if !math.IsInf(sum, 0) {
		return sum / n
	}
	var scaled float64
	for _, v := range values {
		scaled += v / n
	}
	return scaled
}

// Package merge reconciles a freshly parsed table with the persisted one.
//
// The fresh table is authoritative cell by cell: any value it carries
// overwrites the prior value for the same (month, indicator). Cells the
// fresh table does not mention are kept, including whole columns that
// upstream stopped reporting. Months only in the fresh table are added.
//
// Nothing here sorts. Ordering is applied when the table is written.
package merge

import "github.com/roach88/laborsync/internal/timeseries"

// Stats counts what a merge did at cell granularity.
type Stats struct {
	RowsAdded      int `json:"rows_added"`
	CellsAdded     int `json:"cells_added"`
	CellsRevised   int `json:"cells_revised"`
	CellsUnchanged int `json:"cells_unchanged"`
}

// Result is the outcome of Merge.
type Result struct {
	// Table is the reconciled table. When Changed is false it is prior
	// itself (or an empty table if prior was nil), not a copy.
	Table *timeseries.Table

	// Changed reports whether Table differs from prior.
	Changed bool

	Stats Stats
}

// Merge applies fresh on top of prior. Neither input is modified.
func Merge(prior, fresh *timeseries.Table) Result {
	if prior == nil {
		prior = timeseries.New()
	}
	if fresh.Empty() {
		return Result{Table: prior}
	}

	out := prior.Clone()
	var st Stats
	for _, m := range fresh.Months() {
		if !out.HasMonth(m) {
			st.RowsAdded++
		}
		for indicator, v := range fresh.Row(m) {
			old, ok := out.Get(m, indicator)
			switch {
			case !ok:
				st.CellsAdded++
			case old != v:
				st.CellsRevised++
			default:
				st.CellsUnchanged++
			}
			out.Set(m, indicator, v)
		}
	}
	for _, c := range fresh.Columns() {
		out.AddColumn(c)
	}

	if out.Equal(prior) {
		return Result{Table: prior, Stats: st}
	}
	return Result{Table: out, Changed: true, Stats: st}
}

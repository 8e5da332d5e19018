// Package timeseries provides the canonical month-keyed types shared by the
// sync pipeline.
//
// This package contains value types only. Every other internal package
// imports timeseries; timeseries imports nothing internal.
//
// Key constraints:
//   - A Month is a calendar month with no time zone and no day component.
//   - A Table holds at most one row per Month (the map key enforces it).
//   - Table values are always finite float64s.
//   - There is no API that removes a populated cell. Cells are only
//     overwritten.
//   - Ordering is never stored. Months() and Columns() sort on demand.
package timeseries

// Package tablefile persists the canonical table as CSV.
//
// # File contract
//
// This is the only on-disk format the dashboard reads:
//
//   - Header row: "Date", then indicator names in ascending byte order.
//   - One row per month, ascending by month.
//   - Date column is YYYY-MM-DD, always the first of the month.
//   - Values use the shortest decimal form that parses back to the same
//     float64, so load-then-save is byte-stable.
//   - An absent cell is an empty field.
//
// # Atomic replace
//
// Save never writes the target in place. It writes a temp file in the same
// directory, fsyncs it, renames it over the target and fsyncs the
// directory. A reader sees either the old file or the new one. Two
// concurrent writers race only on the rename; the last one wins.
package tablefile

// Package engine runs one incremental synchronization of the labor table.
//
// A run is a straight pipeline:
//
//  1. Load the persisted table (absent means cold start)
//  2. Plan year windows from it
//  3. Fetch every window and series batch, possibly concurrently
//  4. Parse payloads in ascending window order
//  5. Merge the fresh table over the prior one
//  6. Save, unless nothing changed
//  7. Record the run in the ledger
//
// Nothing is written unless every fetch and every parse succeeded, so a
// failed run leaves the table file exactly as it was. Saving goes through
// an atomic replace, which makes overlapping runs safe: the last writer wins
// with a complete table.
//
// All failures are *RunError values carrying a Code. Rejected observations
// are not failures; they are counted in the Report.
package engine

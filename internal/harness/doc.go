// Package harness runs declarative sync scenarios against the real engine.
//
// A scenario seeds an in-memory upstream and an optional prior table, then
// runs one or more syncs in order. Each step may revise upstream values,
// move the clock or inject a failure, and states what the run report must
// show. After every step the harness checks the merge invariants; after the
// last step it evaluates the scenario's assertions against the final table.
//
// # Scenario Format
//
//	name: revision_without_loss
//	description: "A revised month replaces its value and keeps its neighbours"
//	now: 2024-06-15
//	min_history_year: 2022
//	catalog:
//	  - { code: LNS14000000, name: Unemployment Rate }
//	upstream:
//	  - { series: LNS14000000, from: 2022-01-01, to: 2024-05-01, value: 3.9 }
//	steps:
//	  - name: cold
//	    expect: { outcome: updated, mode: cold, rows: 29 }
//	  - name: revision
//	    upstream:
//	      - { series: LNS14000000, month: 2024-04-01, value: 4.0 }
//	    expect: { outcome: updated, mode: warm, cells_revised: 1 }
//	assertions:
//	  - { type: cell, month: 2024-04-01, indicator: Unemployment Rate, value: 4.0 }
//	  - { type: row_count, count: 29 }
//
// # Assertion Types
//
//   - cell: the table holds value at (month, indicator)
//   - cell_absent: the table has no value at (month, indicator)
//   - row_count: the table has exactly count months
//   - columns: the table's columns, in order
//   - saves: the table was written exactly count times
//   - ledger_runs: exactly count runs were recorded
//
// # Determinism
//
// Runs use a fixed clock, sequential run ids ("run-1", "run-2", ...) and an
// in-memory table store, so the final table can be compared against a golden
// CSV with RunWithGolden.
package harness

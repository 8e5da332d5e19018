// Package store provides the SQLite-backed run ledger for laborsync.
//
// The ledger is diagnostic. The CSV table file is the only state the sync
// engine consults, so nothing here influences planning or merging. It keeps:
//   - Runs: one row per sync invocation with its outcome and counters
//   - Payloads: raw upstream responses of successful fetches, archived so a
//     run can be replayed and its table hash re-derived
//
// # Ordering
//
// Runs list newest first by started_at, then id. Payloads read back in the
// seq order the engine assigned, which is ascending window order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Payloads reference their run
package store

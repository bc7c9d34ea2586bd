// Package store provides a SQLite-backed journal of committed update passes.
//
// The journal is append-only:
//   - Updates: one row per update pass (id, logical seq, task, timing, counts)
//   - Update runs: the run rows that pass displayed, in display order
//
// # Ordering
//
// Updates are ordered by seq (the engine's logical clock), never by
// started_at. Ties break on id COLLATE BINARY.
//
// # Idempotency
//
// WriteUpdate uses ON CONFLICT(id) DO NOTHING, so replaying the same update
// id is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

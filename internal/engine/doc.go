// Package engine keeps the live run view: it runs update passes through the
// scheduler, folds each payload into a new immutable Snapshot, and applies
// user mutations (field selection, filters, sort, plotted runs) on top of the
// last committed pass.
//
// ARCHITECTURE:
//
// Update pass:
//  1. A trigger (Refresh, Watch) asks the scheduler to run "update"
//  2. The task calls the run producer outside any lock
//  3. The run tree, schema, changes and file list are built locally
//  4. Under the engine lock the selection model is synced, slots are
//     reconciled, and a complete Snapshot is assembled
//  5. The Snapshot is swapped in with a single atomic store, journaled if a
//     store is configured, and sent to subscribers
//
// Readers call Snapshot() and never observe a partially built pass. Every
// Snapshot is stamped with a seq from the logical Clock; ordering never
// relies on wall-clock time.
//
// Only the scheduler decides when a task runs. "update" and "reset" share
// its single flight, so a reset never overlaps an update.
package engine

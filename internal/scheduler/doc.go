// Package scheduler runs named, expensive tasks one at a time.
//
// ARCHITECTURE:
//
// Single-Flight:
// At most one task is in flight across the whole scheduler, not per name.
// Update-style and reset-style tasks therefore never overlap.
//
// Debounce:
// A task that completed less than the debounce window ago (200ms by default)
// is not run again; the call returns immediately.
//
// Queue:
// A call made while a task is in flight, or while the scheduler is paused,
// records the name in a pending queue and returns without waiting. The queue
// is an ordered set: a name already queued is not queued twice. When the
// in-flight task completes, queued names are run oldest first.
//
// There is no cancellation. Once a task starts it runs to completion and its
// error is returned to the caller that started it. Errors from queued
// follow-up runs have no caller left to receive them and are logged.
package scheduler

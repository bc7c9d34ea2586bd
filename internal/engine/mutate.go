package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/runview/internal/query"
	"github.com/roach88/runview/internal/selection"
	"github.com/roach88/runview/internal/slots"
)

// ToggleField flips the selection of a field path and publishes the result.
// Returns selection.ErrUnknownPath for a path not in the current schema.
func (e *Engine) ToggleField(path string) (selection.Status, error) {
	e.mu.Lock()
	status, err := e.selection.Toggle(path)
	if err != nil {
		e.mu.Unlock()
		return status, err
	}
	snap := e.publishLocked()
	e.mu.Unlock()

	e.notify(snap)
	return status, nil
}

// FieldChildren returns the direct children of a field path, or the top
// level of a group when path is "params" or "metrics".
func (e *Engine) FieldChildren(path string) []selection.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection.Children(path)
}

// AddFilter validates and installs a filter. Adding a filter that is already
// installed is a no-op and reports false.
func (e *Engine) AddFilter(def query.FilterDefinition) (bool, error) {
	if err := def.Validate(); err != nil {
		return false, err
	}

	e.mu.Lock()
	if !e.filters.Add(def) {
		e.mu.Unlock()
		return false, nil
	}
	snap := e.publishLocked()
	e.mu.Unlock()

	e.notify(snap)
	return true, nil
}

// RemoveFilter removes the filter with the given id. Reports whether one
// was removed.
func (e *Engine) RemoveFilter(id string) bool {
	e.mu.Lock()
	if !e.filters.Remove(id) {
		e.mu.Unlock()
		return false
	}
	snap := e.publishLocked()
	e.mu.Unlock()

	e.notify(snap)
	return true
}

// SetSort replaces the sort keys. No keys restores discovery order.
func (e *Engine) SetSort(defs ...query.SortDefinition) {
	e.mu.Lock()
	e.sorts = slices.Clone(defs)
	snap := e.publishLocked()
	e.mu.Unlock()

	e.notify(snap)
}

// SelectRuns makes ids the plotted set. Every id must name a run of the
// current snapshot; queued runs are never plotted and are ignored.
// Ids beyond the palette capacity stay Unassigned.
func (e *Engine) SelectRuns(ids []string) (slots.Assignment, error) {
	e.mu.Lock()
	coll := e.pass.coll

	plotted := make([]string, 0, len(ids))
	for _, id := range ids {
		run, ok := coll.Find(id)
		if !ok {
			e.mu.Unlock()
			return nil, NewUnknownRunError(id)
		}
		if run.Queued {
			continue
		}
		plotted = append(plotted, id)
	}

	assignment := e.allocator.Select(plotted, coll.All())
	snap := e.publishLocked()
	e.mu.Unlock()

	e.notify(snap)
	return assignment, nil
}

// ToggleRun frees the slot of a plotted run or draws one for an unplotted
// run. Returns the run's new slot.
func (e *Engine) ToggleRun(id string) (slots.Slot, error) {
	e.mu.Lock()
	run, ok := e.pass.coll.Find(id)
	if !ok || run.Queued {
		e.mu.Unlock()
		return slots.Unassigned, NewUnknownRunError(id)
	}

	slot, err := e.allocator.Toggle(id)
	if err != nil {
		e.mu.Unlock()
		return slots.Unassigned, fmt.Errorf("toggle run: %w", err)
	}
	snap := e.publishLocked()
	e.mu.Unlock()

	e.notify(snap)
	return slot, nil
}

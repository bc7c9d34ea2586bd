package engine

import (
	"time"

	"github.com/roach88/runview/internal/query"
	"github.com/roach88/runview/internal/runs"
	"github.com/roach88/runview/internal/schema"
	"github.com/roach88/runview/internal/selection"
	"github.com/roach88/runview/internal/slots"
)

// Snapshot is one committed view. It is never modified after it is
// published; a later pass or mutation publishes a new one.
type Snapshot struct {
	// Seq orders snapshots. Zero means nothing has been committed yet.
	Seq int64
	// UpdateID is the id of the pass the run data came from.
	UpdateID  string
	UpdatedAt time.Time

	Runs        *runs.Collection
	Descriptors []schema.Descriptor
	// Statuses holds the selection status of every live field path.
	Statuses       map[string]selection.Status
	SelectedLeaves []string

	Assignment slots.Assignment
	Available  []slots.Slot

	Filters []query.FilterDefinition
	Sorts   []query.SortDefinition
	// Rows is the run table with Filters and Sorts applied.
	Rows []runs.Row

	// Changes lists leaf paths where the workspace differs from its baseline.
	Changes []string
	// Files lists the params and metrics source files of the pass.
	Files []string
	// FilesChanged reports a different file list from the previous pass.
	FilesChanged bool
}

// Slot returns the slot of a run, Unassigned if it has none.
func (s *Snapshot) Slot(id string) slots.Slot {
	return s.Assignment[id]
}

// Descriptor looks up a field descriptor by path.
func (s *Snapshot) Descriptor(path string) (schema.Descriptor, bool) {
	for _, d := range s.Descriptors {
		if d.Path == path {
			return d, true
		}
	}
	return schema.Descriptor{}, false
}

// Plotted returns the ids of runs holding a slot, in palette order.
func (s *Snapshot) Plotted(palette slots.Palette) []string {
	byslot := make(map[slots.Slot]string, len(s.Assignment))
	for id, slot := range s.Assignment {
		if slot.IsAssigned() {
			byslot[slot] = id
		}
	}
	var out []string
	for _, slot := range palette {
		if id, ok := byslot[slot]; ok {
			out = append(out, id)
		}
	}
	return out
}

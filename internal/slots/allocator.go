package slots

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/runview/internal/model"
)

var (
	// ErrUnknownRun is returned for a run id the allocator has not seen.
	ErrUnknownRun = errors.New("unknown run")
	// ErrNoFreeSlot is returned when every slot is already held.
	ErrNoFreeSlot = errors.New("no free slot")
)

// Allocator carries an assignment and free pool across updates.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Allocator struct {
	mu         sync.Mutex
	palette    Palette
	assignment Assignment
	available  []Slot
}

// NewAllocator creates an allocator with every slot free.
// An empty palette falls back to DefaultPalette.
func NewAllocator(palette Palette) *Allocator {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	a := &Allocator{palette: palette.Clone()}
	a.reset()
	return a
}

// Palette returns a copy of the palette.
func (a *Allocator) Palette() Palette {
	return a.palette.Clone()
}

// Reconcile applies Reconcile to the allocator's state and returns a copy
// of the new assignment.
func (a *Allocator) Reconcile(current []model.Run, checkpointsByTip map[string][]model.Run) Assignment {
	a.mu.Lock()
	defer a.mu.Unlock()

	res := Reconcile(a.palette, current, checkpointsByTip, a.assignment, a.available)
	a.assignment = res.Assignment
	a.available = res.Available
	return a.assignment.Clone()
}

// Select makes ids the plotted set among runs. Listed runs not in ids lose
// their slot; ids keep their slot or draw a free one in order. Ids beyond
// the free capacity end up Unassigned.
func (a *Allocator) Select(ids []string, runs []model.Run) Assignment {
	a.mu.Lock()
	defer a.mu.Unlock()

	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}

	for _, r := range runs {
		if selected[r.ID] {
			continue
		}
		a.release(r.ID)
	}
	for _, id := range ids {
		if a.assignment[id].IsAssigned() {
			continue
		}
		a.assignment[id] = a.draw()
	}
	return a.assignment.Clone()
}

// Toggle frees the slot of an assigned run, or draws one for an unassigned
// run. Returns the run's new slot.
func (a *Allocator) Toggle(id string) (Slot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current, ok := a.assignment[id]
	if !ok {
		return Unassigned, fmt.Errorf("toggle %q: %w", id, ErrUnknownRun)
	}
	if current.IsAssigned() {
		a.release(id)
		return Unassigned, nil
	}
	if len(a.available) == 0 {
		return Unassigned, fmt.Errorf("toggle %q: %w", id, ErrNoFreeSlot)
	}
	s := a.draw()
	a.assignment[id] = s
	return s, nil
}

// Reset frees every slot and forgets every run.
func (a *Allocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reset()
}

// Slot returns the slot of a run. The bool is false for unknown runs.
func (a *Allocator) Slot(id string) (Slot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.assignment[id]
	return s, ok
}

// Assignment returns a copy of the current assignment.
func (a *Allocator) Assignment() Assignment {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.assignment.Clone()
}

// Available returns the free slots in palette order.
func (a *Allocator) Available() []Slot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Slot{}, a.available...)
}

func (a *Allocator) reset() {
	a.assignment = make(Assignment)
	a.available = a.palette.Clone()
}

// release must be called with a.mu held.
func (a *Allocator) release(id string) {
	s, ok := a.assignment[id]
	if !ok {
		return
	}
	a.assignment[id] = Unassigned
	if s.IsAssigned() {
		a.available = freeSlots(a.palette, append(a.available, s), nil)
	}
}

// draw must be called with a.mu held.
func (a *Allocator) draw() Slot {
	if len(a.available) == 0 {
		return Unassigned
	}
	s := a.available[0]
	a.available = a.available[1:]
	return s
}

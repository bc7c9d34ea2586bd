// Package slots assigns a bounded palette of visual slots (colours) to runs.
//
// At most len(palette) runs hold a concrete slot at once and no slot is held
// twice. Free slots are always handed out lowest palette index first.
package slots

import (
	"github.com/roach88/runview/internal/model"
)

// Slot is one palette entry, a hex colour.
type Slot string

// Unassigned marks a run that is known but holds no slot.
const Unassigned Slot = ""

// IsAssigned reports whether s is a concrete slot.
func (s Slot) IsAssigned() bool {
	return s != Unassigned
}

// Palette is the ordered set of slots.
type Palette []Slot

// DefaultPalette has seven colours.
var DefaultPalette = Palette{
	"#945dd6",
	"#13adc7",
	"#f46837",
	"#48bb78",
	"#4299e1",
	"#ed8936",
	"#f56565",
}

// ParsePalette converts configured colour strings into a palette.
func ParsePalette(colours []string) Palette {
	p := make(Palette, len(colours))
	for i, c := range colours {
		p[i] = Slot(c)
	}
	return p
}

// Index returns the position of s in the palette, or -1.
func (p Palette) Index(s Slot) int {
	for i, entry := range p {
		if entry == s {
			return i
		}
	}
	return -1
}

// Clone returns a copy of the palette.
func (p Palette) Clone() Palette {
	return append(Palette(nil), p...)
}

// Assignment maps run ids to their slot.
type Assignment map[string]Slot

// Clone returns a copy of the assignment.
func (a Assignment) Clone() Assignment {
	out := make(Assignment, len(a))
	for id, s := range a {
		out[id] = s
	}
	return out
}

// Assigned returns the number of runs holding a concrete slot.
func (a Assignment) Assigned() int {
	n := 0
	for _, s := range a {
		if s.IsAssigned() {
			n++
		}
	}
	return n
}

// Result is the outcome of a reconcile.
type Result struct {
	Assignment Assignment
	Available  []Slot
}

// Reconcile assigns slots to the current runs.
//
// Runs are processed in order; callers order them by priority. Each run is
// followed by the checkpoints filed under its id.
//
//   - Queued runs receive nothing and any slot they held is freed.
//   - A run with an existing entry keeps it exactly.
//   - A new run draws the lowest free slot, or Unassigned when none is free.
//   - A new checkpoint is always Unassigned.
//   - Slots of runs no longer present are freed.
//
// An existing slot that is not in the palette counts as no entry.
func Reconcile(palette Palette, current []model.Run, checkpointsByTip map[string][]model.Run, existing Assignment, available []Slot) Result {
	present := make(map[string]bool)
	for _, r := range current {
		if !r.Queued {
			present[r.ID] = true
		}
	}
	for _, cps := range checkpointsByTip {
		for _, cp := range cps {
			if !cp.Queued {
				present[cp.ID] = true
			}
		}
	}

	if len(present) == 0 {
		return Result{Assignment: Assignment{}, Available: freeSlots(palette, palette, nil)}
	}

	held := make(map[Slot]string)
	candidates := append([]Slot(nil), available...)
	for id, s := range existing {
		if !s.IsAssigned() || palette.Index(s) < 0 {
			continue
		}
		if !present[id] {
			candidates = append(candidates, s)
			continue
		}
		if holder, dup := held[s]; !dup || id < holder {
			held[s] = id
		}
	}
	pool := freeSlots(palette, candidates, held)

	out := make(Assignment)
	keep := func(id string) bool {
		prev, ok := existing[id]
		if !ok {
			return false
		}
		if !prev.IsAssigned() {
			out[id] = Unassigned
			return true
		}
		if palette.Index(prev) < 0 {
			return false
		}
		if held[prev] != id {
			// A duplicate holder loses the slot.
			out[id] = Unassigned
			return true
		}
		out[id] = prev
		return true
	}

	for _, r := range current {
		if r.Queued {
			continue
		}
		if _, done := out[r.ID]; done {
			continue
		}
		if !keep(r.ID) {
			if len(pool) > 0 {
				out[r.ID] = pool[0]
				pool = pool[1:]
			} else {
				out[r.ID] = Unassigned
			}
		}

		for _, cp := range checkpointsByTip[r.ID] {
			if cp.Queued {
				continue
			}
			if !keep(cp.ID) {
				out[cp.ID] = Unassigned
			}
		}
	}

	// Checkpoints whose tip is not listed keep only what they already had.
	for _, cps := range checkpointsByTip {
		for _, cp := range cps {
			if _, done := out[cp.ID]; !done && !cp.Queued {
				keep(cp.ID)
			}
		}
	}

	return Result{Assignment: out, Available: append([]Slot{}, pool...)}
}

// freeSlots returns the palette entries found in candidates and not held,
// in palette order without duplicates.
func freeSlots(palette Palette, candidates []Slot, held map[Slot]string) []Slot {
	in := make(map[Slot]bool, len(candidates))
	for _, s := range candidates {
		in[s] = true
	}
	out := make([]Slot, 0, len(palette))
	for _, s := range palette {
		if _, taken := held[s]; in[s] && !taken {
			out = append(out, s)
		}
	}
	return out
}

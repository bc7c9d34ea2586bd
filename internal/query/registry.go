package query

// Filters is an ordered set of filter definitions keyed by ID.
//
// Not safe for concurrent use; the engine guards it.
type Filters struct {
	defs []FilterDefinition
}

// NewFilters creates a registry holding defs, dropping duplicates.
func NewFilters(defs ...FilterDefinition) *Filters {
	f := &Filters{}
	for _, d := range defs {
		f.Add(d)
	}
	return f
}

// Add appends a filter unless one with the same ID is present.
// Returns false if it was already present.
func (f *Filters) Add(def FilterDefinition) bool {
	if f.index(def.ID()) >= 0 {
		return false
	}
	f.defs = append(f.defs, def)
	return true
}

// Remove deletes the filter with the given ID. Returns false if absent.
func (f *Filters) Remove(id string) bool {
	i := f.index(id)
	if i < 0 {
		return false
	}
	f.defs = append(f.defs[:i:i], f.defs[i+1:]...)
	return true
}

// RemoveAll deletes every given filter that is present.
func (f *Filters) RemoveAll(defs []FilterDefinition) {
	for _, d := range defs {
		f.Remove(d.ID())
	}
}

// List returns a copy of the filters in insertion order.
func (f *Filters) List() []FilterDefinition {
	out := make([]FilterDefinition, len(f.defs))
	copy(out, f.defs)
	return out
}

// Len returns the number of filters.
func (f *Filters) Len() int {
	return len(f.defs)
}

func (f *Filters) index(id string) int {
	for i, d := range f.defs {
		if d.ID() == id {
			return i
		}
	}
	return -1
}

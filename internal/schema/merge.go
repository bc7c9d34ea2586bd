package schema

import (
	"github.com/roach88/runview/internal/model"
)

// Map is an insertion-ordered set of descriptors indexed by path.
//
// Descriptors live in a slice (the arena) and are looked up through a
// path -> index map, so merges never chase pointers that a slice growth could
// invalidate. A parent is inserted before its children.
//
// Not safe for concurrent use. An update pass builds its own Map.
type Map struct {
	index   map[string]int
	entries []Descriptor
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

// Merge folds a value tree into the map under the given ancestor path
// segments. ancestors[0] is the group.
func (m *Map) Merge(tree model.Tree, ancestors ...string) *Map {
	for _, e := range tree {
		m.mergeValue(e.Key, e.Value, ancestors)
	}
	return m
}

// Get returns a copy of the descriptor at path.
func (m *Map) Get(path string) (Descriptor, bool) {
	i, ok := m.index[path]
	if !ok {
		return Descriptor{}, false
	}
	return m.entries[i].clone(), true
}

// Len returns the number of descriptors.
func (m *Map) Len() int {
	return len(m.entries)
}

// Descriptors returns copies of all descriptors in insertion order.
func (m *Map) Descriptors() []Descriptor {
	out := make([]Descriptor, len(m.entries))
	for i, d := range m.entries {
		out[i] = d.clone()
	}
	return out
}

func (m *Map) mergeValue(key string, value any, ancestors []string) {
	i := m.entryIndex(key, ancestors)

	if children, ok := model.Children(value); ok {
		// Recursion may grow the arena; re-index afterwards.
		m.Merge(children, appendPath(ancestors, key)...)
		m.entries[i].HasChildren = true
		return
	}
	m.entries[i].mergePrimitive(value)
}

func (m *Map) entryIndex(key string, ancestors []string) int {
	path := model.JoinPath(appendPath(ancestors, key)...)
	if i, ok := m.index[path]; ok {
		return i
	}

	group := ""
	if len(ancestors) > 0 {
		group = ancestors[0]
	}
	m.entries = append(m.entries, Descriptor{
		Path:       path,
		ParentPath: model.JoinPath(ancestors...),
		Name:       key,
		Group:      group,
	})
	i := len(m.entries) - 1
	m.index[path] = i
	return i
}

// appendPath returns ancestors+key without aliasing the ancestors backing array.
func appendPath(ancestors []string, key string) []string {
	out := make([]string, len(ancestors)+1)
	copy(out, ancestors)
	out[len(ancestors)] = key
	return out
}

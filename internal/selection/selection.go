// Package selection keeps the tri-state checkbox status of every field path
// ever observed.
//
// Nodes live in an arena indexed by path. Leaves hold user-owned status;
// an interior node's status is always derived from its live children.
// Paths that leave the schema keep their status and come back with it.
package selection

import (
	"errors"
	"fmt"

	"github.com/roach88/runview/internal/schema"
)

// ErrUnknownPath is returned when toggling a path that is not in the
// current schema.
var ErrUnknownPath = errors.New("unknown path")

// Status is the checkbox state of a field.
type Status int

const (
	Unselected Status = iota
	Indeterminate
	Selected
)

func (s Status) String() string {
	switch s {
	case Unselected:
		return "unselected"
	case Indeterminate:
		return "indeterminate"
	case Selected:
		return "selected"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const noParent = -1

type node struct {
	path       string
	parentPath string
	name       string
	parent     int
	children   []int
	interior   bool
	live       bool
	status     Status
}

// Model is the selection state. Not safe for concurrent use.
type Model struct {
	index map[string]int
	nodes []node
	// order is the descriptor order of the last Sync, live nodes only.
	order []int
}

// New creates an empty model.
func New() *Model {
	return &Model{index: make(map[string]int)}
}

// Sync aligns the model with the current schema.
//
// Descriptors must list parents before children. New paths start selected;
// known paths keep their status, live or not. A path that turns from
// interior into a leaf while indeterminate becomes selected. Interior
// statuses are recomputed afterwards.
func (m *Model) Sync(descriptors []schema.Descriptor) {
	for i := range m.nodes {
		m.nodes[i].live = false
	}
	m.order = m.order[:0]

	for _, d := range descriptors {
		i := m.ensure(d)
		m.nodes[i].live = true
		m.nodes[i].interior = !d.IsLeaf()
		// A former interior node keeps a derived status; a partial selection
		// was not an unselection.
		if d.IsLeaf() && m.nodes[i].status == Indeterminate {
			m.nodes[i].status = Selected
		}
		m.order = append(m.order, i)
	}

	// Children always have a higher index than their parent.
	for i := len(m.nodes) - 1; i >= 0; i-- {
		m.recompute(i)
	}
}

// Toggle flips a path between selected and unselected and forces the new
// status onto every live descendant. Indeterminate toggles to unselected.
// Returns the new status of the path.
func (m *Model) Toggle(path string) (Status, error) {
	i, ok := m.index[path]
	if !ok || !m.nodes[i].live {
		return Unselected, fmt.Errorf("toggle %q: %w", path, ErrUnknownPath)
	}

	next := Selected
	if m.nodes[i].status != Unselected {
		next = Unselected
	}
	m.force(i, next)

	for p := m.nodes[i].parent; p != noParent; p = m.nodes[p].parent {
		m.recompute(p)
	}
	return m.nodes[i].status, nil
}

// Status returns the stored status of a path, live or not.
func (m *Model) Status(path string) (Status, bool) {
	i, ok := m.index[path]
	if !ok {
		return Unselected, false
	}
	return m.nodes[i].status, true
}

// IsLive reports whether the path is in the current schema.
func (m *Model) IsLive(path string) bool {
	i, ok := m.index[path]
	return ok && m.nodes[i].live
}

// SelectedLeaves returns every live leaf path that is not unselected, in
// schema order.
func (m *Model) SelectedLeaves() []string {
	var out []string
	for _, i := range m.order {
		n := m.nodes[i]
		if !n.interior && n.status != Unselected {
			out = append(out, n.path)
		}
	}
	return out
}

// Statuses returns the status of every live path.
func (m *Model) Statuses() map[string]Status {
	out := make(map[string]Status, len(m.order))
	for _, i := range m.order {
		out[m.nodes[i].path] = m.nodes[i].status
	}
	return out
}

// Len returns the number of stored paths, live or not.
func (m *Model) Len() int {
	return len(m.nodes)
}

// Node is one entry of a tree view level.
type Node struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	Status      Status `json:"status"`
	HasChildren bool   `json:"hasChildren"`
	// Descendants holds the statuses of the node's live leaf descendants.
	Descendants []Status `json:"descendants,omitempty"`
}

// Children returns the live direct children of path in schema order.
// A group name ("params", "metrics") lists the top level of that group.
func (m *Model) Children(path string) []Node {
	var out []Node
	for _, i := range m.order {
		n := m.nodes[i]
		if n.parentPath != path {
			continue
		}
		out = append(out, Node{
			Path:        n.path,
			Name:        n.name,
			Status:      n.status,
			HasChildren: n.interior,
			Descendants: m.leafStatuses(i, nil),
		})
	}
	return out
}

func (m *Model) ensure(d schema.Descriptor) int {
	if i, ok := m.index[d.Path]; ok {
		return i
	}

	parent := noParent
	if p, ok := m.index[d.ParentPath]; ok {
		parent = p
	}
	m.nodes = append(m.nodes, node{
		path:       d.Path,
		parentPath: d.ParentPath,
		name:       d.Name,
		parent:     parent,
		status:     Selected,
	})
	i := len(m.nodes) - 1
	m.index[d.Path] = i
	if parent != noParent {
		m.nodes[parent].children = append(m.nodes[parent].children, i)
	}
	return i
}

// recompute derives an interior node's status from its live children.
// Leaves, absent nodes and nodes without live children are left alone.
func (m *Model) recompute(i int) {
	n := &m.nodes[i]
	if !n.live || !n.interior {
		return
	}

	var selected, unselected, seen int
	for _, c := range n.children {
		child := m.nodes[c]
		if !child.live {
			continue
		}
		seen++
		switch child.status {
		case Selected:
			selected++
		case Unselected:
			unselected++
		}
	}

	switch {
	case seen == 0:
	case selected == seen:
		n.status = Selected
	case unselected == seen:
		n.status = Unselected
	default:
		n.status = Indeterminate
	}
}

func (m *Model) force(i int, s Status) {
	m.nodes[i].status = s
	for _, c := range m.nodes[i].children {
		if m.nodes[c].live {
			m.force(c, s)
		}
	}
}

func (m *Model) leafStatuses(i int, acc []Status) []Status {
	for _, c := range m.nodes[i].children {
		child := m.nodes[c]
		if !child.live {
			continue
		}
		if !child.interior {
			acc = append(acc, child.status)
			continue
		}
		acc = m.leafStatuses(c, acc)
	}
	return acc
}

package schema

import (
	"sort"

	"github.com/roach88/runview/internal/model"
)

// Changes lists the leaf paths whose workspace value differs from the
// baseline of the first branch, sorted. A leaf present on only one side
// counts as changed.
func Changes(p *model.Payload) []string {
	if p == nil || !p.Workspace.HasData() {
		return nil
	}

	var base *model.Fields
	if len(p.Branches) > 0 && p.Branches[0].Baseline.HasData() {
		base = p.Branches[0].Baseline.Data
	}

	workspace := leafValues(p.Workspace.Data)
	baseline := leafValues(base)

	var changed []string
	for path, v := range workspace {
		b, ok := baseline[path]
		if !ok || !sameLeaf(v, b) {
			changed = append(changed, path)
		}
	}
	for path := range baseline {
		if _, ok := workspace[path]; !ok {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed
}

// Files lists the source files contributing params or metrics across the
// payload as "params/<file>" or "metrics/<file>", sorted and unique.
func Files(p *model.Payload) []string {
	if p == nil {
		return nil
	}

	seen := make(map[string]struct{})
	add := func(f *model.Fields) {
		if f == nil {
			return
		}
		for _, group := range model.Groups {
			for _, file := range f.Group(group) {
				seen[model.JoinPath(group, file.Key)] = struct{}{}
			}
		}
	}

	add(p.Workspace.Data)
	for _, branch := range p.Branches {
		add(branch.Baseline.Data)
		for _, run := range branch.Runs {
			add(run.Record.Data)
		}
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// SameFiles reports whether two sorted file lists are equal.
func SameFiles(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func leafValues(f *model.Fields) map[string]any {
	out := make(map[string]any)
	if f == nil {
		return out
	}
	for _, group := range model.Groups {
		collectLeaves(out, f.Group(group), group)
	}
	return out
}

func collectLeaves(out map[string]any, tree model.Tree, prefix string) {
	for _, e := range tree {
		path := model.JoinPath(prefix, e.Key)
		if children, ok := model.Children(e.Value); ok {
			collectLeaves(out, children, path)
			continue
		}
		out[path] = e.Value
	}
}

// sameLeaf compares two primitive values. Leaves never hold slices or trees.
func sameLeaf(a, b any) bool {
	if model.IsInterior(a) || model.IsInterior(b) {
		return false
	}
	return model.TypeOf(a) == model.TypeOf(b) && model.FormatValue(a) == model.FormatValue(b)
}

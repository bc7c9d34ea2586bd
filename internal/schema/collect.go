package schema

import (
	"github.com/roach88/runview/internal/model"
)

// Schema holds one descriptor map per group.
type Schema struct {
	Params  *Map
	Metrics *Map
}

// New creates an empty schema.
func New() *Schema {
	return &Schema{Params: NewMap(), Metrics: NewMap()}
}

// Collect folds every record of the payload into a fresh schema.
//
// Order: workspace baseline, then for each branch its baseline followed by
// its runs. A branch whose baseline has no data is skipped with its runs.
func Collect(p *model.Payload) *Schema {
	s := New()
	if p == nil {
		return s
	}

	if p.Workspace.HasData() {
		s.Merge(p.Workspace.Data)
	}
	for _, branch := range p.Branches {
		if !branch.Baseline.HasData() {
			continue
		}
		s.Merge(branch.Baseline.Data)
		for _, run := range branch.Runs {
			if run.Record.HasData() {
				s.Merge(run.Record.Data)
			}
		}
	}
	return s
}

// Merge folds one record's params and metrics into the schema.
func (s *Schema) Merge(f *model.Fields) *Schema {
	if f == nil {
		return s
	}
	s.Params.Merge(f.Params, model.GroupParams)
	s.Metrics.Merge(f.Metrics, model.GroupMetrics)
	return s
}

// Descriptors returns params descriptors followed by metrics descriptors.
func (s *Schema) Descriptors() []Descriptor {
	return append(s.Params.Descriptors(), s.Metrics.Descriptors()...)
}

// Get looks a path up in either group.
func (s *Schema) Get(path string) (Descriptor, bool) {
	if d, ok := s.Params.Get(path); ok {
		return d, true
	}
	return s.Metrics.Get(path)
}

// Len returns the total number of descriptors.
func (s *Schema) Len() int {
	return s.Params.Len() + s.Metrics.Len()
}

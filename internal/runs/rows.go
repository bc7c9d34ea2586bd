package runs

import (
	"github.com/roach88/runview/internal/model"
	"github.com/roach88/runview/internal/query"
)

// Row is one line of the run table. SubRows nest one level per tree depth:
// branches hold experiments, experiments hold checkpoints.
type Row struct {
	Run     model.Run `json:"run"`
	SubRows []Row     `json:"subRows,omitempty"`
}

// Rows assembles the run table.
//
// The workspace comes first, then one row per branch. Experiments under a
// branch are sorted by sorts; their checkpoints keep discovery order and are
// filtered. An experiment failing the filters is kept while any of its
// checkpoints pass. The workspace and branch rows are never filtered.
func Rows(c *Collection, filters []query.FilterDefinition, sorts []query.SortDefinition) []Row {
	var rows []Row
	if c.Workspace != nil {
		rows = append(rows, Row{Run: *c.Workspace})
	}

	for _, branch := range c.Branches {
		row := Row{Run: branch}
		for _, exp := range query.SortBy(sorts, c.ExperimentsOf(branch)) {
			expRow := Row{Run: exp}
			for _, cp := range query.Filter(filters, c.Checkpoints(exp.ID)) {
				expRow.SubRows = append(expRow.SubRows, Row{Run: cp})
			}
			if len(expRow.SubRows) > 0 || query.Match(filters, exp) {
				row.SubRows = append(row.SubRows, expRow)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Flatten walks rows depth first and reports each run with its depth.
func Flatten(rows []Row, fn func(run model.Run, depth int)) {
	var walk func([]Row, int)
	walk = func(rs []Row, depth int) {
		for _, r := range rs {
			fn(r.Run, depth)
			walk(r.SubRows, depth+1)
		}
	}
	walk(rows, 0)
}

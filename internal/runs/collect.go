// Package runs classifies the records of a payload into the run tree: the
// workspace, branches, top-level experiments per branch, and checkpoints per
// tip. Discovery order is preserved everywhere.
package runs

import (
	"fmt"

	"github.com/roach88/runview/internal/model"
)

// Collection is the run tree built from one payload.
type Collection struct {
	// Workspace is nil when the producer returned no workspace data.
	Workspace *model.Run
	Branches  []model.Run

	// ExperimentsByBranch is keyed by branch display name.
	ExperimentsByBranch map[string][]model.Run
	// CheckpointsByTip is keyed by the id of the tip run.
	CheckpointsByTip map[string][]model.Run
}

// Collect builds the run tree. Records without data are skipped, and a branch
// whose baseline has no data is skipped together with its runs.
func Collect(p *model.Payload) *Collection {
	c := &Collection{
		ExperimentsByBranch: make(map[string][]model.Run),
		CheckpointsByTip:    make(map[string][]model.Run),
	}
	if p == nil {
		return c
	}

	if p.Workspace.HasData() {
		ws := newRun(model.WorkspaceID, p.Workspace.Data)
		ws.Sha = ""
		if ws.DisplayName = p.Workspace.Data.Name; ws.DisplayName == "" {
			ws.DisplayName = model.WorkspaceID
		}
		c.Workspace = &ws
	}

	for _, b := range p.Branches {
		if !b.Baseline.HasData() {
			continue
		}
		branch := newRun(b.Sha, b.Baseline.Data)
		c.Branches = append(c.Branches, branch)

		records := recordsBySha(b.Runs)
		for _, rec := range b.Runs {
			if !rec.Record.HasData() {
				continue
			}
			run := newRun(rec.Sha, rec.Record.Data)
			run.DisplayNameOrParent = displayNameOrParent(rec.Record.Data, b.Sha, records)

			if run.IsCheckpoint() {
				c.CheckpointsByTip[run.CheckpointTip] = append(c.CheckpointsByTip[run.CheckpointTip], run)
				continue
			}
			c.ExperimentsByBranch[branch.DisplayName] = append(c.ExperimentsByBranch[branch.DisplayName], run)
		}
	}
	return c
}

// Experiments returns every top-level experiment, branch by branch.
func (c *Collection) Experiments() []model.Run {
	var out []model.Run
	seen := make(map[string]bool)
	for _, b := range c.Branches {
		if seen[b.DisplayName] {
			continue
		}
		seen[b.DisplayName] = true
		out = append(out, c.ExperimentsByBranch[b.DisplayName]...)
	}
	return out
}

// ExperimentsOf returns the experiments filed under a branch.
//
// Branches sharing a display name share one experiment list. It belongs to
// the first of them; later ones get none, so each experiment is listed once,
// as in Experiments.
func (c *Collection) ExperimentsOf(branch model.Run) []model.Run {
	for _, b := range c.Branches {
		if b.DisplayName != branch.DisplayName {
			continue
		}
		if b.ID != branch.ID {
			return nil
		}
		break
	}
	return c.ExperimentsByBranch[branch.DisplayName]
}

// Checkpoints returns the checkpoints of a tip in discovery order.
func (c *Collection) Checkpoints(tipID string) []model.Run {
	return c.CheckpointsByTip[tipID]
}

// TopLevel returns the runs that can be plotted on their own: the workspace,
// the branches, then every experiment.
func (c *Collection) TopLevel() []model.Run {
	var out []model.Run
	if c.Workspace != nil {
		out = append(out, *c.Workspace)
	}
	out = append(out, c.Branches...)
	return append(out, c.Experiments()...)
}

// All returns every run, each experiment followed by its checkpoints.
func (c *Collection) All() []model.Run {
	var out []model.Run
	if c.Workspace != nil {
		out = append(out, *c.Workspace)
	}
	out = append(out, c.Branches...)
	for _, exp := range c.Experiments() {
		out = append(out, exp)
		out = append(out, c.Checkpoints(exp.ID)...)
	}
	return out
}

// Find returns the run with the given id.
func (c *Collection) Find(id string) (model.Run, bool) {
	for _, r := range c.All() {
		if r.ID == id {
			return r, true
		}
	}
	for _, cps := range c.CheckpointsByTip {
		for _, r := range cps {
			if r.ID == id {
				return r, true
			}
		}
	}
	return model.Run{}, false
}

// Len returns the number of runs, orphaned checkpoints included.
func (c *Collection) Len() int {
	n := len(c.Branches)
	if c.Workspace != nil {
		n++
	}
	for _, exps := range c.ExperimentsByBranch {
		n += len(exps)
	}
	for _, cps := range c.CheckpointsByTip {
		n += len(cps)
	}
	return n
}

func newRun(sha string, f *model.Fields) model.Run {
	return model.Run{
		ID:               sha,
		DisplayName:      displayName(sha, f.Name),
		Sha:              sha,
		CheckpointTip:    f.CheckpointTip,
		CheckpointParent: f.CheckpointParent,
		Params:           f.Params,
		Metrics:          f.Metrics,
		Queued:           f.Queued,
		Running:          f.Running,
		Failed:           f.Failed,
		Timestamp:        f.Timestamp,
		Executor:         f.Executor,
	}
}

func displayName(sha, name string) string {
	if name != "" {
		return name
	}
	return model.ShortSHA(sha)
}

func recordsBySha(recs []model.ShaRecord) map[string]*model.Fields {
	out := make(map[string]*model.Fields, len(recs))
	for _, r := range recs {
		if r.Record.HasData() {
			out[r.Sha] = r.Record.Data
		}
	}
	return out
}

// displayNameOrParent annotates a run with its checkpoint parent when the
// parent lies outside the run's own lineage and is not the branch baseline.
// Otherwise a named run is annotated with its name.
func displayNameOrParent(f *model.Fields, branchSha string, records map[string]*model.Fields) string {
	if parent := f.CheckpointParent; parent != "" && parent != branchSha {
		p, ok := records[parent]
		if !ok || p.CheckpointTip != f.CheckpointTip {
			return fmt.Sprintf("(%s)", model.ShortSHA(parent))
		}
	}
	if f.Name != "" {
		return fmt.Sprintf("[%s]", f.Name)
	}
	return ""
}

package engine

import (
	"context"

	"github.com/roach88/runview/internal/model"
	"github.com/roach88/runview/internal/runs"
	"github.com/roach88/runview/internal/store"
)

// journal writes one pass to the store. Failures are logged, never returned:
// the view stays usable without history.
func (e *Engine) journal(ctx context.Context, u store.UpdateRecord, rs []store.RunRecord) {
	if e.store == nil {
		return
	}
	if err := e.store.WriteUpdate(ctx, u, rs); err != nil {
		e.logger.Warn("journal write failed", "update_id", u.ID, "task", u.Task, "error", err)
	}
}

// runRecords flattens the displayed rows of a snapshot in table order.
func runRecords(snap *Snapshot) []store.RunRecord {
	var (
		out     []store.RunRecord
		parents []string
	)
	runs.Flatten(snap.Rows, func(run model.Run, depth int) {
		parents = append(parents[:depth], run.ID)

		rec := store.RunRecord{
			Position:    len(out),
			RunID:       run.ID,
			DisplayName: run.DisplayName,
			Kind:        kindOf(run, depth),
			Slot:        string(snap.Slot(run.ID)),
			Queued:      run.Queued,
			Running:     run.Running,
			Failed:      run.Failed,
		}
		if depth > 0 {
			rec.Parent = parents[depth-1]
		}
		out = append(out, rec)
	})
	return out
}

func kindOf(run model.Run, depth int) string {
	switch {
	case depth == 0 && run.ID == model.WorkspaceID:
		return store.KindWorkspace
	case depth == 0:
		return store.KindBranch
	case depth == 1:
		return store.KindExperiment
	default:
		return store.KindCheckpoint
	}
}

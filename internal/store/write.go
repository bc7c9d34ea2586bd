package store

import (
	"context"
	"fmt"
	"time"
)

// Run kinds as stored in update_runs.kind.
const (
	KindWorkspace  = "workspace"
	KindBranch     = "branch"
	KindExperiment = "experiment"
	KindCheckpoint = "checkpoint"
)

// UpdateRecord is one committed update pass.
type UpdateRecord struct {
	ID         string
	Seq        int64
	Task       string
	StartedAt  time.Time
	Duration   time.Duration
	RunCount   int
	FieldCount int
	Files      []string
	// Error is empty for a successful pass.
	Error string
}

// RunRecord is one displayed run of an update pass.
type RunRecord struct {
	Position    int
	RunID       string
	DisplayName string
	Kind        string
	// Parent is the id of the row this run is nested under, empty at top level.
	Parent  string
	Slot    string
	Queued  bool
	Running bool
	Failed  bool
}

// WriteUpdate inserts an update pass and its runs in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: if the update id already
// exists nothing is written, runs included.
func (s *Store) WriteUpdate(ctx context.Context, u UpdateRecord, runs []RunRecord) error {
	filesJSON, err := marshalFiles(u.Files)
	if err != nil {
		return fmt.Errorf("write update: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write update: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO updates
		(id, seq, task, started_at, duration_ms, run_count, field_count, files, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		u.ID,
		u.Seq,
		u.Task,
		formatTime(u.StartedAt),
		u.Duration.Milliseconds(),
		u.RunCount,
		u.FieldCount,
		filesJSON,
		u.Error,
	)
	if err != nil {
		return fmt.Errorf("write update: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write update: rows affected: %w", err)
	}
	if inserted == 0 {
		return nil
	}

	for _, r := range runs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO update_runs
			(update_id, position, run_id, display_name, kind, parent, slot, queued, running, failed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			u.ID,
			r.Position,
			r.RunID,
			r.DisplayName,
			r.Kind,
			r.Parent,
			r.Slot,
			boolToInt(r.Queued),
			boolToInt(r.Running),
			boolToInt(r.Failed),
		)
		if err != nil {
			return fmt.Errorf("write update run %s: %w", r.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write update: commit: %w", err)
	}
	return nil
}

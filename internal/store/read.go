package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested update does not exist.
var ErrNotFound = errors.New("not found")

// ReadUpdates returns the most recent update passes, newest first.
// Ordered by seq DESC, id DESC COLLATE BINARY. A limit <= 0 returns all.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ReadUpdates(ctx context.Context, limit int) ([]UpdateRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, task, started_at, duration_ms, run_count, field_count, files, error
		FROM updates
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query updates: %w", err)
	}
	defer rows.Close()

	updates := []UpdateRecord{}
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate updates: %w", err)
	}
	return updates, nil
}

// ReadUpdate returns a single update pass by id.
func (s *Store) ReadUpdate(ctx context.Context, id string) (UpdateRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, task, started_at, duration_ms, run_count, field_count, files, error
		FROM updates
		WHERE id = ?
	`, id)

	u, err := scanUpdate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return UpdateRecord{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	return u, err
}

// ReadRuns returns the runs of an update pass in position order.
//
// Returns an empty slice (not nil) if the update has no runs.
func (s *Store) ReadRuns(ctx context.Context, updateID string) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, run_id, display_name, kind, parent, slot, queued, running, failed
		FROM update_runs
		WHERE update_id = ?
		ORDER BY position ASC
	`, updateID)
	if err != nil {
		return nil, fmt.Errorf("query update runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(
			&r.Position,
			&r.RunID,
			&r.DisplayName,
			&r.Kind,
			&r.Parent,
			&r.Slot,
			&r.Queued,
			&r.Running,
			&r.Failed,
		); err != nil {
			return nil, fmt.Errorf("scan update run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate update runs: %w", err)
	}
	return runs, nil
}

// LastSeq returns the highest journaled seq, or 0 for an empty journal.
// The engine resumes its logical clock from here.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM updates`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpdate(row scanner) (UpdateRecord, error) {
	var (
		u          UpdateRecord
		startedAt  string
		durationMS int64
		filesJSON  string
	)
	if err := row.Scan(
		&u.ID,
		&u.Seq,
		&u.Task,
		&startedAt,
		&durationMS,
		&u.RunCount,
		&u.FieldCount,
		&filesJSON,
		&u.Error,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UpdateRecord{}, err
		}
		return UpdateRecord{}, fmt.Errorf("scan update: %w", err)
	}

	ts, err := parseTime(startedAt)
	if err != nil {
		return UpdateRecord{}, err
	}
	u.StartedAt = ts
	u.Duration = time.Duration(durationMS) * time.Millisecond

	files, err := unmarshalFiles(filesJSON)
	if err != nil {
		return UpdateRecord{}, err
	}
	u.Files = files
	return u, nil
}

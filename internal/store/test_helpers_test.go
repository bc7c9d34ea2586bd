package store

import (
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testStart = time.Date(2021, time.January, 14, 10, 57, 59, 0, time.UTC)

// createTestUpdate creates an update record with minimal required fields.
func createTestUpdate(id string, seq int64) UpdateRecord {
	return UpdateRecord{
		ID:         id,
		Seq:        seq,
		Task:       "update",
		StartedAt:  testStart.Add(time.Duration(seq) * time.Second),
		Duration:   1500 * time.Millisecond,
		RunCount:   2,
		FieldCount: 5,
		Files:      []string{"metrics/summary.json", "params/params.yaml"},
	}
}

// createTestRuns creates a workspace row and a branch row.
func createTestRuns() []RunRecord {
	return []RunRecord{
		{Position: 0, RunID: "workspace", DisplayName: "workspace", Kind: KindWorkspace, Slot: "#945dd6", Running: true},
		{Position: 1, RunID: "53c3851", DisplayName: "main", Kind: KindBranch, Slot: "#13adc7"},
		{Position: 2, RunID: "4fb124a", DisplayName: "exp-e7a67", Kind: KindExperiment, Parent: "53c3851", Queued: true},
		{Position: 3, RunID: "d1343a8", DisplayName: "d1343a8", Kind: KindCheckpoint, Parent: "4fb124a", Failed: true},
	}
}

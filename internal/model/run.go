package model

import "strings"

// WorkspaceID is the reserved id of the uncommitted workspace run.
const WorkspaceID = "workspace"

// ShortSHALength is the length a sha is truncated to when a run has no name.
// It applies to experiments, checkpoints and branch baselines alike.
const ShortSHALength = 7

// Run is one recorded or in-progress execution.
//
// A run whose CheckpointTip is set and differs from its ID is a checkpoint of
// that tip and is never a top-level entry.
type Run struct {
	ID                  string `json:"id"`
	DisplayName         string `json:"displayName"`
	DisplayNameOrParent string `json:"displayNameOrParent,omitempty"`
	Sha                 string `json:"sha,omitempty"`
	CheckpointTip       string `json:"checkpoint_tip,omitempty"`
	CheckpointParent    string `json:"checkpoint_parent,omitempty"`
	Params              Tree   `json:"params,omitempty"`
	Metrics             Tree   `json:"metrics,omitempty"`
	Queued              bool   `json:"queued"`
	Running             bool   `json:"running"`
	Failed              bool   `json:"failed"`
	Timestamp           string `json:"timestamp,omitempty"`
	Executor            string `json:"executor,omitempty"`
}

// IsCheckpoint reports whether the run belongs to another run's lineage.
func (r Run) IsCheckpoint() bool {
	return IsCheckpoint(r.CheckpointTip, r.ID)
}

// IsCheckpoint reports whether a record with the given tip and id is a checkpoint.
func IsCheckpoint(checkpointTip, id string) bool {
	return checkpointTip != "" && checkpointTip != id
}

// Group returns the params or metrics tree of the run.
func (r Run) Group(group string) Tree {
	switch group {
	case GroupParams:
		return r.Params
	case GroupMetrics:
		return r.Metrics
	}
	return nil
}

// Lookup reads the value at a slash-joined path.
//
// Paths rooted at "params" or "metrics" navigate the value trees; a single
// segment names a top-level attribute (id, displayName, timestamp, queued,
// running, failed, checkpoint_tip, checkpoint_parent, executor).
// Missing values return false.
func (r Run) Lookup(path string) (any, bool) {
	head, rest, nested := strings.Cut(path, PathSeparator)
	if head == GroupParams || head == GroupMetrics {
		tree := r.Group(head)
		if tree == nil {
			return nil, false
		}
		return Resolve(tree, rest)
	}
	if nested {
		return nil, false
	}

	switch head {
	case "id":
		return r.ID, true
	case "displayName", "label":
		return r.DisplayName, true
	case "sha":
		return nonEmpty(r.Sha)
	case "timestamp":
		return nonEmpty(r.Timestamp)
	case "checkpoint_tip":
		return nonEmpty(r.CheckpointTip)
	case "checkpoint_parent":
		return nonEmpty(r.CheckpointParent)
	case "executor":
		return nonEmpty(r.Executor)
	case "queued":
		return r.Queued, true
	case "running":
		return r.Running, true
	case "failed":
		return r.Failed, true
	}
	return nil, false
}

func nonEmpty(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	return s, true
}

// ShortSHA truncates a sha to ShortSHALength.
func ShortSHA(sha string) string {
	if len(sha) <= ShortSHALength {
		return sha
	}
	return sha[:ShortSHALength]
}

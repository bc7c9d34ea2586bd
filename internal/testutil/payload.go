package testutil

import (
	"fmt"

	"github.com/roach88/runview/internal/model"
)

// Sha returns a deterministic 40-character hex sha for n.
func Sha(n int) string {
	return fmt.Sprintf("%040x", n)
}

// PayloadBuilder assembles a model.Payload without going through JSON.
type PayloadBuilder struct {
	p model.Payload
}

// NewPayload starts a payload with the given workspace baseline fields.
func NewPayload(workspace model.Fields) *PayloadBuilder {
	return &PayloadBuilder{p: model.Payload{Workspace: Record(workspace)}}
}

// Branch appends a branch with its baseline and runs, in order.
func (b *PayloadBuilder) Branch(sha string, baseline model.Record, runs ...model.ShaRecord) *PayloadBuilder {
	b.p.Branches = append(b.p.Branches, model.Branch{Sha: sha, Baseline: baseline, Runs: runs})
	return b
}

// Build returns the assembled payload.
func (b *PayloadBuilder) Build() *model.Payload {
	p := b.p
	return &p
}

// Record wraps fields as a record with data.
func Record(f model.Fields) model.Record {
	return model.Record{Data: &f}
}

// ErrorRecord is a record the producer failed to collect.
func ErrorRecord(msg string) model.Record {
	return model.Record{Error: msg}
}

// Run pairs a sha with a record carrying f.
func Run(sha string, f model.Fields) model.ShaRecord {
	return model.ShaRecord{Sha: sha, Record: Record(f)}
}

// FailedRun pairs a sha with an error record.
func FailedRun(sha string) model.ShaRecord {
	return model.ShaRecord{Sha: sha, Record: ErrorRecord("unable to collect")}
}

// File builds a {file: tree} group tree with a single file.
func File(name string, tree model.Tree) model.Tree {
	return model.Tree{{Key: name, Value: tree}}
}

// Values builds a flat tree from alternating key/value arguments.
// It panics on an odd argument count or a non-string key.
func Values(kv ...any) model.Tree {
	if len(kv)%2 != 0 {
		panic("testutil.Values: odd argument count")
	}
	tree := make(model.Tree, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("testutil.Values: key %v is not a string", kv[i]))
		}
		tree = append(tree, model.Entry{Key: key, Value: kv[i+1]})
	}
	return tree
}

package model

import (
	"bytes"
	"fmt"
	"io"

	"github.com/bcicen/jstream"
)

// Payload is the raw output of the run producer.
//
// Branch order and run order within a branch are the order the producer
// emitted them in and must be preserved.
type Payload struct {
	Workspace Record
	Branches  []Branch
}

// Branch is one baseline commit together with the runs recorded against it.
type Branch struct {
	Sha      string
	Baseline Record
	Runs     []ShaRecord
}

// ShaRecord pairs a run record with the sha it was reported under.
type ShaRecord struct {
	Sha    string
	Record Record
}

// Record is either extracted data or an error marker.
// A record with nil Data is skipped by every consumer.
type Record struct {
	Data  *Fields
	Error string
}

// HasData reports whether the producer returned data for this record.
func (r Record) HasData() bool {
	return r.Data != nil
}

// Fields holds the attributes of one run record.
// Params and Metrics are keyed by source file name; files the producer
// could not read are dropped during parsing.
type Fields struct {
	Name             string
	CheckpointTip    string
	CheckpointParent string
	Queued           bool
	Running          bool
	Failed           bool
	Timestamp        string
	Executor         string
	Params           Tree
	Metrics          Tree
}

// Group returns the params or metrics tree of the record.
func (f *Fields) Group(group string) Tree {
	switch group {
	case GroupParams:
		return f.Params
	case GroupMetrics:
		return f.Metrics
	}
	return nil
}

// DecodeValue decodes one JSON document, keeping object key order.
// Objects become Tree, arrays []any, numbers float64.
func DecodeValue(r io.Reader) (any, error) {
	decoder := jstream.NewDecoder(r, 0).ObjectAsKVS()

	var (
		out   any
		count int
	)
	for mv := range decoder.Stream() {
		out = fromStream(mv.Value)
		count++
	}
	if err := decoder.Err(); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("decode json: empty document")
	}
	return out, nil
}

// DecodePayload decodes and parses a raw payload document.
func DecodePayload(r io.Reader) (*Payload, error) {
	v, err := DecodeValue(r)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return ParsePayload(v)
}

// DecodePayloadBytes is DecodePayload over an in-memory document.
func DecodePayloadBytes(data []byte) (*Payload, error) {
	return DecodePayload(bytes.NewReader(data))
}

// ParsePayload interprets a decoded document as a Payload.
//
// The top level must be an object. Its "workspace" entry supplies the
// workspace baseline; every other entry is a branch keyed by sha. Records
// that are not objects, or that carry no data, parse as empty records.
func ParsePayload(v any) (*Payload, error) {
	top, ok := v.(Tree)
	if !ok {
		return nil, fmt.Errorf("parse payload: expected object, got %s", TypeOf(v))
	}

	p := &Payload{}
	for _, entry := range top {
		branchObj, _ := entry.Value.(Tree)

		if entry.Key == WorkspaceID {
			baseline, _ := branchObj.Get("baseline")
			p.Workspace = parseRecord(baseline)
			continue
		}

		branch := Branch{Sha: entry.Key}
		for _, rec := range branchObj {
			if rec.Key == "baseline" {
				branch.Baseline = parseRecord(rec.Value)
				continue
			}
			branch.Runs = append(branch.Runs, ShaRecord{Sha: rec.Key, Record: parseRecord(rec.Value)})
		}
		p.Branches = append(p.Branches, branch)
	}
	return p, nil
}

func fromStream(v any) any {
	switch t := v.(type) {
	case jstream.KVS:
		tree := make(Tree, 0, len(t))
		for _, kv := range t {
			tree = append(tree, Entry{Key: kv.Key, Value: fromStream(kv.Value)})
		}
		return tree
	case []interface{}:
		arr := make([]any, len(t))
		for i, elem := range t {
			arr[i] = fromStream(elem)
		}
		return arr
	}
	return v
}

func parseRecord(v any) Record {
	obj, ok := v.(Tree)
	if !ok {
		return Record{}
	}

	var rec Record
	if errVal, ok := obj.Get("error"); ok {
		rec.Error = errorMessage(errVal)
	}
	if data, ok := obj.Get("data"); ok {
		if fields, ok := data.(Tree); ok {
			rec.Data = parseFields(fields)
		}
	}
	return rec
}

func errorMessage(v any) string {
	if obj, ok := v.(Tree); ok {
		for _, key := range []string{"msg", "message", "type"} {
			if msg, ok := obj.Get(key); ok {
				if s, ok := msg.(string); ok && s != "" {
					return s
				}
			}
		}
		return "unknown error"
	}
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return "unknown error"
}

func parseFields(obj Tree) *Fields {
	f := &Fields{}
	for _, e := range obj {
		switch e.Key {
		case "name":
			f.Name = asString(e.Value)
		case "checkpoint_tip":
			f.CheckpointTip = asString(e.Value)
		case "checkpoint_parent":
			f.CheckpointParent = asString(e.Value)
		case "queued":
			f.Queued = asBool(e.Value)
		case "running":
			f.Running = asBool(e.Value)
		case "failed":
			f.Failed = asBool(e.Value)
		case "status":
			applyStatus(f, asString(e.Value))
		case "timestamp":
			f.Timestamp = asString(e.Value)
		case "executor":
			f.Executor = asString(e.Value)
		case GroupParams:
			f.Params = extractFiles(e.Value)
		case GroupMetrics:
			f.Metrics = extractFiles(e.Value)
		}
	}
	return f
}

// applyStatus maps the single status string newer producers emit onto the flags.
func applyStatus(f *Fields, status string) {
	switch status {
	case "Queued":
		f.Queued = true
	case "Running":
		f.Running = true
	case "Failed":
		f.Failed = true
	}
}

// extractFiles unwraps {file: {data: tree}} into {file: tree}, dropping files
// that carry an error or no data.
func extractFiles(v any) Tree {
	files, ok := v.(Tree)
	if !ok {
		return nil
	}
	out := make(Tree, 0, len(files))
	for _, file := range files {
		obj, ok := file.Value.(Tree)
		if !ok {
			continue
		}
		data, ok := obj.Get("data")
		if !ok {
			continue
		}
		tree, ok := data.(Tree)
		if !ok {
			continue
		}
		out = append(out, Entry{Key: file.Key, Value: tree})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

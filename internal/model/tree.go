package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// PathSeparator joins the segments of a field path.
const PathSeparator = "/"

// Group names. Every field path starts with one of these.
const (
	GroupParams  = "params"
	GroupMetrics = "metrics"
)

// Groups lists the groups in their display order.
var Groups = []string{GroupParams, GroupMetrics}

// Entry is one key/value pair of a Tree.
type Entry struct {
	Key   string
	Value any
}

// Tree is a JSON object with its key order preserved.
//
// Values are one of: string, float64, bool, nil, Tree, or []any.
// Use Get for lookups; iteration order is the order keys were decoded in.
type Tree []Entry

// Get returns the value stored under key.
func (t Tree) Get(key string) (any, bool) {
	for _, e := range t {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in order.
func (t Tree) Keys() []string {
	keys := make([]string, len(t))
	for i, e := range t {
		keys[i] = e.Key
	}
	return keys
}

// MarshalJSON writes the tree as a JSON object, keeping key order.
func (t Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Children returns the ordered child entries of an interior value.
// Objects yield their own entries; arrays yield entries keyed "0", "1", ...
// Primitives are not interior and return false.
func Children(v any) (Tree, bool) {
	switch t := v.(type) {
	case Tree:
		return t, true
	case []any:
		out := make(Tree, len(t))
		for i, elem := range t {
			out[i] = Entry{Key: strconv.Itoa(i), Value: elem}
		}
		return out, true
	}
	return nil, false
}

// IsInterior reports whether v has children (object or array).
func IsInterior(v any) bool {
	_, ok := Children(v)
	return ok
}

// JoinPath joins path segments with PathSeparator.
func JoinPath(segments ...string) string {
	return strings.Join(segments, PathSeparator)
}

// Resolve walks v along a slash-joined path and returns the value found.
//
// At each level the longest child key that matches the front of the remaining
// path on a separator boundary wins, so keys that themselves contain a
// separator (for example "nested/params.yaml") resolve correctly.
// An empty path returns v itself.
func Resolve(v any, path string) (any, bool) {
	if path == "" {
		return v, true
	}
	children, ok := Children(v)
	if !ok {
		return nil, false
	}

	best := -1
	for i, e := range children {
		if path != e.Key && !strings.HasPrefix(path, e.Key+PathSeparator) {
			continue
		}
		if best < 0 || len(e.Key) > len(children[best].Key) {
			best = i
		}
	}
	if best < 0 {
		return nil, false
	}

	match := children[best]
	if len(match.Key) == len(path) {
		return match.Value, true
	}
	return Resolve(match.Value, path[len(match.Key)+len(PathSeparator):])
}

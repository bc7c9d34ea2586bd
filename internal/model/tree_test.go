package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeGet(t *testing.T) {
	tree := Tree{{Key: "a", Value: 1.0}, {Key: "b", Value: "x"}}

	v, ok := tree.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok = tree.Get("missing")
	assert.False(t, ok)
}

func TestTreeMarshalJSONKeepsOrder(t *testing.T) {
	tree := Tree{
		{Key: "zebra", Value: 1.0},
		{Key: "apple", Value: Tree{{Key: "y", Value: true}, {Key: "x", Value: nil}}},
	}

	b, err := json.Marshal(tree)
	require.NoError(t, err)
	assert.Equal(t, `{"zebra":1,"apple":{"y":true,"x":null}}`, string(b))
}

func TestChildrenOfArray(t *testing.T) {
	children, ok := Children([]any{"a", 2.0})
	require.True(t, ok)
	assert.Equal(t, Tree{{Key: "0", Value: "a"}, {Key: "1", Value: 2.0}}, children)

	_, ok = Children("leaf")
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	tree := Tree{
		{Key: "params.yaml", Value: Tree{
			{Key: "epochs", Value: 5.0},
			{Key: "process", Value: Tree{{Key: "threshold", Value: 0.86}}},
		}},
		{Key: "nested/params.yaml", Value: Tree{{Key: "test", Value: true}}},
		{Key: "list", Value: []any{"a", "b"}},
	}

	tests := []struct {
		path  string
		want  any
		found bool
	}{
		{"params.yaml/epochs", 5.0, true},
		{"params.yaml/process/threshold", 0.86, true},
		{"nested/params.yaml/test", true, true},
		{"list/1", "b", true},
		{"params.yaml/missing", nil, false},
		{"params.yaml/epochs/deeper", nil, false},
		{"nested", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, found := Resolve(tree, tt.path)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveEmptyPathReturnsValue(t *testing.T) {
	got, ok := Resolve("leaf", "")
	assert.True(t, ok)
	assert.Equal(t, "leaf", got)
}

func TestRunLookup(t *testing.T) {
	run := Run{
		ID:          "exp-1",
		DisplayName: "exp-1",
		Timestamp:   "2021-01-14T10:57:59",
		Running:     true,
		Params: Tree{
			{Key: "params.yaml", Value: Tree{{Key: "filter", Value: 3.0}}},
		},
	}

	v, ok := run.Lookup("params/params.yaml/filter")
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)

	v, ok = run.Lookup("running")
	assert.True(t, ok)
	assert.Equal(t, true, v)

	v, ok = run.Lookup("timestamp")
	assert.True(t, ok)
	assert.Equal(t, "2021-01-14T10:57:59", v)

	_, ok = run.Lookup("metrics/summary.json/loss")
	assert.False(t, ok, "run has no metrics")

	_, ok = run.Lookup("executor")
	assert.False(t, ok, "empty executor is absent")

	_, ok = run.Lookup("queued/extra")
	assert.False(t, ok)
}

func TestIsCheckpoint(t *testing.T) {
	assert.False(t, IsCheckpoint("", "abc"))
	assert.False(t, IsCheckpoint("abc", "abc"), "a tip is not a checkpoint of itself")
	assert.True(t, IsCheckpoint("abc", "def"))
}

func TestShortSHA(t *testing.T) {
	assert.Equal(t, "53c3851", ShortSHA("53c3851f46955fa3e2b8f6e1c52999acc8c9ea77"))
	assert.Equal(t, "abc", ShortSHA("abc"))
}

// Package query filters and sorts runs by path-addressed values.
//
// A path is resolved with model.Run.Lookup. A missing value is less than any
// defined value and never raises an error.
package query

import (
	"fmt"
	"strings"

	"github.com/roach88/runview/internal/model"
)

// Operator is a filter comparison.
type Operator string

const (
	Equal              Operator = "=="
	NotEqual           Operator = "!="
	GreaterThan        Operator = ">"
	GreaterThanOrEqual Operator = ">="
	LessThan           Operator = "<"
	LessThanOrEqual    Operator = "<="
	Contains           Operator = "∈"
	NotContains        Operator = "!∈"
	IsTrue             Operator = "⊤"
	IsFalse            Operator = "⊥"
)

// Operators lists every supported operator.
var Operators = []Operator{
	Equal, NotEqual,
	GreaterThan, GreaterThanOrEqual,
	LessThan, LessThanOrEqual,
	Contains, NotContains,
	IsTrue, IsFalse,
}

// Valid reports whether op is a supported operator.
func (op Operator) Valid() bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// TakesValue reports whether the operator compares against a filter value.
func (op Operator) TakesValue() bool {
	return op != IsTrue && op != IsFalse
}

// FilterDefinition is a single predicate over a run.
type FilterDefinition struct {
	Path     string   `json:"path" yaml:"path"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    string   `json:"value" yaml:"value"`
}

// ID identifies a filter by its path, operator and value concatenated.
func (f FilterDefinition) ID() string {
	return f.Path + string(f.Operator) + f.Value
}

// String renders the filter in the form ParseFilter accepts.
func (f FilterDefinition) String() string {
	return f.ID()
}

// Validate checks the path is set and the operator is known.
func (f FilterDefinition) Validate() error {
	if f.Path == "" {
		return fmt.Errorf("%w %q: empty path", ErrInvalidFilter, f.String())
	}
	if !f.Operator.Valid() {
		return fmt.Errorf("%w %q", ErrUnknownOperator, f.Operator)
	}
	return nil
}

// Matches evaluates the filter against a run.
func (f FilterDefinition) Matches(r model.Run) bool {
	v, ok := r.Lookup(f.Path)

	switch f.Operator {
	case IsTrue, IsFalse:
		b, isBool := v.(bool)
		return ok && isBool && b == (f.Operator == IsTrue)
	case Contains:
		return contains(v, ok, f.Value)
	case NotContains:
		return !contains(v, ok, f.Value)
	}

	// Null equals nothing a filter can name.
	if ok && v == nil && (f.Operator == Equal || f.Operator == NotEqual) {
		return f.Operator == NotEqual
	}

	c, ordered := compareToFilterValue(v, ok, f.Value)
	if !ordered {
		return f.Operator == NotEqual
	}
	switch f.Operator {
	case Equal:
		return c == 0
	case NotEqual:
		return c != 0
	case GreaterThan:
		return c > 0
	case GreaterThanOrEqual:
		return c >= 0
	case LessThan:
		return c < 0
	case LessThanOrEqual:
		return c <= 0
	}
	return false
}

func contains(v any, ok bool, needle string) bool {
	s, isString := v.(string)
	if !ok || !isString {
		return false
	}
	return strings.Contains(normalize(s), normalize(needle))
}

// Match reports whether a run passes every definition.
// No definitions match everything.
func Match(defs []FilterDefinition, r model.Run) bool {
	for _, f := range defs {
		if !f.Matches(r) {
			return false
		}
	}
	return true
}

// Filter returns the runs passing every definition, in order.
// With no definitions the input slice is returned as is.
func Filter(defs []FilterDefinition, runs []model.Run) []model.Run {
	if len(defs) == 0 {
		return runs
	}
	kept, _ := Split(defs, runs)
	return kept
}

// Split partitions runs into those passing every definition and those
// failing at least one, both in input order.
func Split(defs []FilterDefinition, runs []model.Run) (unfiltered, filtered []model.Run) {
	if len(defs) == 0 {
		return runs, nil
	}
	for _, r := range runs {
		if Match(defs, r) {
			unfiltered = append(unfiltered, r)
			continue
		}
		filtered = append(filtered, r)
	}
	return unfiltered, filtered
}

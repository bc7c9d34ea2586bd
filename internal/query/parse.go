package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidFilter is returned for a filter expression that cannot be parsed.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrUnknownOperator is returned for an operator outside Operators.
	ErrUnknownOperator = errors.New("unknown operator")
)

// parseOrder is Operators longest first, so ">=" wins over ">" at the same
// position.
var parseOrder = func() []Operator {
	ops := append([]Operator(nil), Operators...)
	sort.SliceStable(ops, func(i, j int) bool { return len(ops[i]) > len(ops[j]) })
	return ops
}()

// ParseFilter parses "<path><operator><value>", for example
// "params/params.yaml/epochs>=10" or "metrics/summary.json/converged⊤".
// Whitespace around the path and value is ignored. The first operator found
// scanning left to right splits the expression.
func ParseFilter(expr string) (FilterDefinition, error) {
	for i := 0; i < len(expr); i++ {
		for _, op := range parseOrder {
			if !strings.HasPrefix(expr[i:], string(op)) {
				continue
			}
			f := FilterDefinition{
				Path:     strings.TrimSpace(expr[:i]),
				Operator: op,
				Value:    strings.TrimSpace(expr[i+len(op):]),
			}
			if err := checkParsed(expr, f); err != nil {
				return FilterDefinition{}, err
			}
			return f, nil
		}
	}
	return FilterDefinition{}, fmt.Errorf("%w %q: no operator", ErrInvalidFilter, expr)
}

func checkParsed(expr string, f FilterDefinition) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.Operator.TakesValue() && f.Value == "" {
		return fmt.Errorf("%w %q: missing value", ErrInvalidFilter, expr)
	}
	if !f.Operator.TakesValue() && f.Value != "" {
		return fmt.Errorf("%w %q: %s takes no value", ErrInvalidFilter, expr, f.Operator)
	}
	return nil
}

package query

import (
	"slices"

	"github.com/roach88/runview/internal/model"
)

// SortDefinition orders runs by the value at Path.
type SortDefinition struct {
	Path       string `json:"path" yaml:"path"`
	Descending bool   `json:"descending" yaml:"descending"`
}

// Sort stable-sorts a copy of runs by def. A nil definition returns the
// input slice unchanged.
func Sort(def *SortDefinition, runs []model.Run) []model.Run {
	if def == nil {
		return runs
	}
	return SortBy([]SortDefinition{*def}, runs)
}

// SortBy stable-sorts a copy of runs by each definition in turn; later
// definitions break ties of earlier ones. No definitions returns the input.
func SortBy(defs []SortDefinition, runs []model.Run) []model.Run {
	if len(defs) == 0 || len(runs) < 2 {
		return runs
	}

	out := slices.Clone(runs)
	slices.SortStableFunc(out, func(a, b model.Run) int {
		for _, def := range defs {
			av, aok := a.Lookup(def.Path)
			bv, bok := b.Lookup(def.Path)
			c := Compare(av, aok, bv, bok)
			if def.Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	return out
}

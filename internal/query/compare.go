package query

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/runview/internal/model"
)

// typeRank orders values of different types when sorting.
var typeRank = map[string]int{
	model.TypeNull:    0,
	model.TypeBoolean: 1,
	model.TypeNumber:  2,
	model.TypeString:  3,
	model.TypeObject:  4,
}

func normalize(s string) string {
	return norm.NFC.String(s)
}

// compareToFilterValue compares a run value with the (string) filter value.
// The second result is false when the two cannot be ordered; every ordering
// test then fails.
//
// A missing value is less than anything. Null counts as 0 against a numeric
// filter value. A number only orders against a numeric filter value.
// Booleans and strings otherwise compare by rendering.
func compareToFilterValue(v any, ok bool, filterValue string) (int, bool) {
	if !ok {
		return -1, true
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(filterValue), 64)
	filterIsNumber := err == nil

	switch v.(type) {
	case nil:
		if !filterIsNumber {
			return 0, false
		}
		return compareFloats(0, f), true
	case float64, int, int64:
		if !filterIsNumber {
			return 0, false
		}
		n, _ := numeric(v)
		return compareFloats(n, f), true
	case bool:
		if filterIsNumber {
			n, _ := numeric(v)
			return compareFloats(n, f), true
		}
	}
	return strings.Compare(normalize(model.FormatValue(v)), normalize(filterValue)), true
}

// Compare orders two looked-up values for sorting. Missing sorts first.
func Compare(a any, aok bool, b any, bok bool) int {
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}

	ta, tb := model.TypeOf(a), model.TypeOf(b)
	if ta != tb {
		return typeRank[ta] - typeRank[tb]
	}

	switch ta {
	case model.TypeNull:
		return 0
	case model.TypeNumber, model.TypeBoolean:
		na, _ := numeric(a)
		nb, _ := numeric(b)
		return compareFloats(na, nb)
	}
	return strings.Compare(normalize(model.FormatValue(a)), normalize(model.FormatValue(b)))
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

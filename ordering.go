package lenbatch

import (
	"cmp"
	"fmt"
	"slices"

	lberrors "github.com/tamirms/lenbatch/errors"
)

// Reduction collapses a tuple key to the single length used for budgets.
type Reduction uint8

const (
	// ReduceMax uses the largest dimension.
	ReduceMax Reduction = iota

	// ReduceSum adds all dimensions.
	ReduceSum
)

// String returns the reduction name.
func (r Reduction) String() string {
	switch r {
	case ReduceMax:
		return "max"
	case ReduceSum:
		return "sum"
	default:
		return "unknown"
	}
}

// ReductionByName parses "max" or "sum".
func ReductionByName(name string) (Reduction, error) {
	switch name {
	case "max", "":
		return ReduceMax, nil
	case "sum":
		return ReduceSum, nil
	}
	return 0, fmt.Errorf("%w: %q", lberrors.ErrUnknownReduction, name)
}

func (r Reduction) apply(key []int) int {
	acc := 0
	for _, v := range key {
		if r == ReduceSum {
			acc += v
		} else {
			acc = max(acc, v)
		}
	}
	return acc
}

// compareKeys orders keys lexicographically; scalar keys are arity-1 tuples.
func compareKeys(a, b []int) int {
	return slices.Compare(a, b)
}

// keySum returns the sum of all dimensions of a key.
func keySum(key []int) int {
	s := 0
	for _, v := range key {
		s += v
	}
	return s
}

// sortDescending sorts idx in place by key descending, breaking ties by
// ascending original index.
func sortDescending(keys Keys, idx []int) {
	slices.SortFunc(idx, func(a, b int) int {
		if c := compareKeys(keys.At(b), keys.At(a)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
}

// sortAscending sorts idx in place by key ascending with the same tie-break.
func sortAscending(keys Keys, idx []int) {
	slices.SortFunc(idx, func(a, b int) int {
		if c := compareKeys(keys.At(a), keys.At(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
}

// sortByLengthDescending sorts idx by precomputed lengths descending, ties by
// ascending index.
func sortByLengthDescending(lengths []int, idx []int) {
	slices.SortFunc(idx, func(a, b int) int {
		if c := cmp.Compare(lengths[b], lengths[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
}

// identity returns [0, n).
func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

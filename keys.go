package lenbatch

import (
	"fmt"

	lberrors "github.com/tamirms/lenbatch/errors"
)

// KeySource is the upstream collaborator: an array-like structure supplying one
// length key (scalar or fixed-arity tuple) per original index.
//
// Key appends the key of item i to dst[:0] and returns the result.
type KeySource interface {
	Len() int
	Arity() int
	Key(i int, dst []int) []int
}

// Keys is an immutable snapshot of per-item length keys.
//
// Arity 1 represents scalar keys; arity > 1 represents tuples such as
// (source length, target length). The shape is resolved once at construction
// and is fixed for the lifetime of every sampler built from it.
type Keys struct {
	data  []int
	arity int
}

// ScalarKeys snapshots one non-negative length per item.
func ScalarKeys(lengths []int) (Keys, error) {
	data := make([]int, len(lengths))
	for i, v := range lengths {
		if v < 0 {
			return Keys{}, fmt.Errorf("%w: item %d has key %d", lberrors.ErrNegativeKey, i, v)
		}
		data[i] = v
	}
	return Keys{data: data, arity: 1}, nil
}

// TupleKeys snapshots a fixed-arity tuple of non-negative lengths per item.
// Every tuple must have the same, non-zero number of dimensions. An empty
// input yields empty scalar keys.
func TupleKeys(lengths [][]int) (Keys, error) {
	if len(lengths) == 0 {
		return Keys{arity: 1}, nil
	}
	arity := len(lengths[0])
	if arity == 0 {
		return Keys{}, lberrors.ErrInvalidArity
	}
	data := make([]int, 0, len(lengths)*arity)
	for i, key := range lengths {
		if len(key) != arity {
			return Keys{}, fmt.Errorf("%w: item %d has %d dimensions, want %d",
				lberrors.ErrArityMismatch, i, len(key), arity)
		}
		for _, v := range key {
			if v < 0 {
				return Keys{}, fmt.Errorf("%w: item %d has key %v", lberrors.ErrNegativeKey, i, key)
			}
		}
		data = append(data, key...)
	}
	return Keys{data: data, arity: arity}, nil
}

// KeysFrom snapshots all keys of src.
func KeysFrom(src KeySource) (Keys, error) {
	n, arity := src.Len(), src.Arity()
	if arity <= 0 {
		return Keys{}, lberrors.ErrInvalidArity
	}
	data := make([]int, 0, n*arity)
	var scratch []int
	for i := range n {
		scratch = src.Key(i, scratch)
		if len(scratch) != arity {
			return Keys{}, fmt.Errorf("%w: item %d has %d dimensions, want %d",
				lberrors.ErrArityMismatch, i, len(scratch), arity)
		}
		for _, v := range scratch {
			if v < 0 {
				return Keys{}, fmt.Errorf("%w: item %d has key %v", lberrors.ErrNegativeKey, i, scratch)
			}
		}
		data = append(data, scratch...)
	}
	return Keys{data: data, arity: arity}, nil
}

// Len returns the number of items.
func (k Keys) Len() int {
	if k.arity == 0 {
		return 0
	}
	return len(k.data) / k.arity
}

// Arity returns the number of dimensions per key (1 for scalar keys).
func (k Keys) Arity() int {
	if k.arity == 0 {
		return 1
	}
	return k.arity
}

// At returns the key of item i. The returned slice must not be modified.
func (k Keys) At(i int) []int {
	lo := i * k.arity
	hi := lo + k.arity
	return k.data[lo:hi:hi]
}

// Key implements KeySource.
func (k Keys) Key(i int, dst []int) []int {
	return append(dst[:0], k.At(i)...)
}

// Reduce collapses the key of item i to a single length.
func (k Keys) Reduce(i int, r Reduction) int {
	if k.arity == 1 {
		return k.data[i]
	}
	return r.apply(k.At(i))
}

// bounds returns the per-dimension minimum and maximum over all items.
// Precondition: k.Len() > 0.
func (k Keys) bounds() (lo, hi []int) {
	lo = append([]int(nil), k.At(0)...)
	hi = append([]int(nil), k.At(0)...)
	for i := 1; i < k.Len(); i++ {
		for d, v := range k.At(i) {
			lo[d] = min(lo[d], v)
			hi[d] = max(hi[d], v)
		}
	}
	return lo, hi
}

package lenbatch

import (
	"iter"
	"slices"
)

// SortedSampler yields every index ordered by key, descending by default,
// ties broken by ascending original index. The order is not randomized: every
// pass yields the same permutation.
type SortedSampler struct {
	order  []int
	passes passCounter
}

// NewSortedSampler orders all indices of keys. Honors WithAscending.
func NewSortedSampler(keys Keys, opts ...Option) *SortedSampler {
	cfg := newConfig(opts)
	order := identity(keys.Len())
	if cfg.ascending {
		sortAscending(keys, order)
	} else {
		sortDescending(keys, order)
	}
	cfg.logger.V(1).Info("sorted sampler ready", "items", len(order), "ascending", cfg.ascending)
	return &SortedSampler{order: order}
}

// Len returns the number of indices per pass.
func (s *SortedSampler) Len() int {
	return len(s.order)
}

// Epoch returns a copy of the sorted order; epoch is ignored.
func (s *SortedSampler) Epoch(uint64) []int {
	return slices.Clone(s.order)
}

// Indices returns a restartable sequence over the sorted order.
func (s *SortedSampler) Indices() iter.Seq[int] {
	return indexSeq(s, &s.passes)
}

package lenbatch

import (
	"fmt"
	"iter"
	"math/rand/v2"

	lberrors "github.com/tamirms/lenbatch/errors"
	intbits "github.com/tamirms/lenbatch/internal/bits"
)

// SortedBucketSampler batches items of similar length without fixed buckets.
//
// Each epoch the index list (shuffled when shuffling) is cut into windows of
// mult*batchSize items. Every window is sorted by key descending and chunked
// into batches of batchSize; the resulting batch list is shuffled as a whole.
// Keys are only compared locally, so the sampler adapts to any length
// distribution while keeping padding low.
type SortedBucketSampler struct {
	keys      Keys
	batchSize int
	window    int
	numBatch  int

	shuffle bool
	seed    uint64
	passes  passCounter
}

// NewSortedBucketSampler honors WithMult, WithShuffle, WithSeed and WithLogger.
func NewSortedBucketSampler(keys Keys, batchSize int, opts ...Option) (*SortedBucketSampler, error) {
	cfg := newConfig(opts)
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", lberrors.ErrInvalidBatchSize, batchSize)
	}
	if cfg.mult <= 0 {
		return nil, fmt.Errorf("%w: got %d", lberrors.ErrInvalidMult, cfg.mult)
	}

	// A window never needs to exceed the whole index list.
	n := keys.Len()
	window := min(cfg.mult, max(1, intbits.CeilDiv(n, batchSize))) * batchSize
	numBatch := 0
	for lo := 0; lo < n; lo += window {
		numBatch += intbits.CeilDiv(min(window, n-lo), batchSize)
	}

	s := &SortedBucketSampler{
		keys:      keys,
		batchSize: batchSize,
		window:    window,
		numBatch:  numBatch,
		shuffle:   cfg.shuffle,
		seed:      cfg.seed,
	}
	cfg.logger.V(1).Info("sorted bucket sampler ready",
		"items", n, "batches", numBatch, "window", window, "shuffle", cfg.shuffle)
	return s, nil
}

// Len returns the number of batches per epoch.
func (s *SortedBucketSampler) Len() int {
	return s.numBatch
}

// Epoch returns the batches of one epoch.
func (s *SortedBucketSampler) Epoch(epoch uint64) []Batch {
	var r *rand.Rand
	ids := identity(s.keys.Len())
	if s.shuffle {
		r = epochRand(s.seed, epoch)
		shuffle(r, ids)
	}
	batches := make([]Batch, 0, s.numBatch)
	for lo := 0; lo < len(ids); lo += s.window {
		w := ids[lo:min(lo+s.window, len(ids))]
		sortDescending(s.keys, w)
		batches = chunk(batches, w, s.batchSize)
	}
	if r != nil {
		shuffle(r, batches)
	}
	return batches
}

// Batches returns a restartable sequence; each pass is a new epoch.
func (s *SortedBucketSampler) Batches() iter.Seq[Batch] {
	return batchSeq(s, &s.passes)
}

package lenbatch

import (
	"fmt"
	"iter"

	lberrors "github.com/tamirms/lenbatch/errors"
	intbits "github.com/tamirms/lenbatch/internal/bits"
)

// ShardedIterator restricts a batch sampler to one of numParts parts.
//
// Part p receives batches p, p+numParts, p+2*numParts, ... of every epoch.
// With even size every part is padded to ceil(T/numParts) batches, where T is
// the wrapped sampler's batch count, by cycling through the part's own
// batches. A part that owns no batch at all borrows from position
// p % T onward.
type ShardedIterator struct {
	sampler   BatchSampler
	numParts  int
	partIndex int
	evenSize  bool
	passes    passCounter
}

// NewShardedIterator wraps s. Honors WithEvenSize and WithLogger.
func NewShardedIterator(s BatchSampler, numParts, partIndex int, opts ...Option) (*ShardedIterator, error) {
	cfg := newConfig(opts)
	if s == nil {
		return nil, lberrors.ErrNilSampler
	}
	if numParts <= 0 {
		return nil, fmt.Errorf("%w: got %d", lberrors.ErrInvalidNumParts, numParts)
	}
	if partIndex < 0 || partIndex >= numParts {
		return nil, fmt.Errorf("%w: got %d of %d", lberrors.ErrPartIndexOutOfRange, partIndex, numParts)
	}
	it := &ShardedIterator{
		sampler:   s,
		numParts:  numParts,
		partIndex: partIndex,
		evenSize:  cfg.evenSize,
	}
	cfg.logger.V(1).Info("sharded iterator ready",
		"parts", numParts, "part", partIndex, "even", cfg.evenSize, "batches", it.Len())
	return it, nil
}

// own returns how many of total batches part p owns.
func (it *ShardedIterator) own(total int) int {
	if total <= it.partIndex {
		return 0
	}
	return intbits.CeilDiv(total-it.partIndex, it.numParts)
}

// Len returns the number of batches this part yields per epoch.
func (it *ShardedIterator) Len() int {
	total := it.sampler.Len()
	if it.evenSize {
		return intbits.CeilDiv(total, it.numParts)
	}
	return it.own(total)
}

// Epoch returns this part's batches of one epoch.
func (it *ShardedIterator) Epoch(epoch uint64) []Batch {
	all := it.sampler.Epoch(epoch)
	total := len(all)
	out := make([]Batch, 0, it.Len())
	for k := it.partIndex; k < total; k += it.numParts {
		out = append(out, all[k])
	}
	if !it.evenSize || total == 0 {
		return out
	}

	want := intbits.CeilDiv(total, it.numParts)
	if owned := len(out); owned > 0 {
		for k := 0; len(out) < want; k++ {
			out = append(out, out[k%owned])
		}
		return out
	}
	for k := it.partIndex % total; len(out) < want; k++ {
		out = append(out, all[k%total])
	}
	return out
}

// Batches returns a restartable sequence; each pass is a new epoch.
func (it *ShardedIterator) Batches() iter.Seq[Batch] {
	return batchSeq(it, &it.passes)
}

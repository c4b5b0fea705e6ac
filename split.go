package lenbatch

import (
	"fmt"
	"iter"
	"math"

	lberrors "github.com/tamirms/lenbatch/errors"
	intbits "github.com/tamirms/lenbatch/internal/bits"
)

// SplitSampler yields the indices of one part of [0, numSamples), with the
// range optionally repeated. Parts are contiguous runs of positions in the
// repeated range; a position p maps to index p % numSamples.
//
// Without even size, part lengths differ by at most one and the union of all
// parts yields every index exactly repeat times. With even size every part has
// ceil(numSamples*repeat/numParts) positions and the surplus wraps back to the
// start of the range.
type SplitSampler struct {
	numSamples int
	start      int
	length     int

	shuffle bool
	seed    uint64
	passes  passCounter
}

// NewSplitSampler honors WithRepeat, WithEvenSize, WithShuffle, WithSeed and
// WithLogger. Shuffling permutes the part's own indices per epoch; it never
// moves an index between parts.
func NewSplitSampler(numSamples, numParts, partIndex int, opts ...Option) (*SplitSampler, error) {
	cfg := newConfig(opts)
	switch {
	case numSamples <= 0:
		return nil, fmt.Errorf("%w: got %d", lberrors.ErrInvalidNumSamples, numSamples)
	case numParts <= 0:
		return nil, fmt.Errorf("%w: got %d", lberrors.ErrInvalidNumParts, numParts)
	case partIndex < 0 || partIndex >= numParts:
		return nil, fmt.Errorf("%w: got %d of %d", lberrors.ErrPartIndexOutOfRange, partIndex, numParts)
	case cfg.repeat <= 0:
		return nil, fmt.Errorf("%w: got %d", lberrors.ErrInvalidRepeat, cfg.repeat)
	case numSamples > (math.MaxInt-numParts)/cfg.repeat:
		return nil, fmt.Errorf("%w: %d samples repeated %d times overflows", lberrors.ErrInvalidRepeat, numSamples, cfg.repeat)
	}

	total := numSamples * cfg.repeat
	var start, length int
	if cfg.evenSize {
		length = intbits.CeilDiv(total, numParts)
		start = partIndex * length
	} else {
		base, rem := total/numParts, total%numParts
		start = partIndex*base + min(partIndex, rem)
		length = base
		if partIndex < rem {
			length++
		}
	}

	cfg.logger.V(1).Info("split sampler ready",
		"samples", numSamples, "parts", numParts, "part", partIndex,
		"repeat", cfg.repeat, "even", cfg.evenSize, "length", length)
	return &SplitSampler{
		numSamples: numSamples,
		start:      start,
		length:     length,
		shuffle:    cfg.shuffle,
		seed:       cfg.seed,
	}, nil
}

// Len returns the number of indices per pass.
func (s *SplitSampler) Len() int {
	return s.length
}

// Epoch returns the part's indices for one epoch.
func (s *SplitSampler) Epoch(epoch uint64) []int {
	out := make([]int, s.length)
	for j := range out {
		out[j] = (s.start + j) % s.numSamples
	}
	if s.shuffle {
		shuffle(epochRand(s.seed, epoch), out)
	}
	return out
}

// Indices returns a restartable sequence; each pass is a new epoch.
func (s *SplitSampler) Indices() iter.Seq[int] {
	return indexSeq(s, &s.passes)
}

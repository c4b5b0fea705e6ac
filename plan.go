package lenbatch

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	lberrors "github.com/tamirms/lenbatch/errors"
)

// PartPlan is the materialized batch sequence of one part.
type PartPlan struct {
	Part        int
	Batches     []Batch
	Fingerprint uint64
}

// Plan holds the batch sequences of every part for one epoch.
type Plan struct {
	Epoch    uint64
	EvenSize bool
	Parts    []PartPlan
}

// PlanParts simulates numParts independent workers. Each part builds its own
// sampler with newSampler, as a separate process would, wraps it in a
// ShardedIterator and materializes one epoch.
//
// Honors WithEpoch, WithEvenSize, WithWorkers and WithLogger. newSampler may be
// called concurrently. The first failing part cancels the rest.
func PlanParts(ctx context.Context, numParts int, newSampler func(part int) (BatchSampler, error), opts ...Option) (*Plan, error) {
	cfg := newConfig(opts)
	if numParts <= 0 {
		return nil, fmt.Errorf("%w: got %d", lberrors.ErrInvalidNumParts, numParts)
	}
	if newSampler == nil {
		return nil, lberrors.ErrNilSampler
	}

	plan := &Plan{
		Epoch:    cfg.epoch,
		EvenSize: cfg.evenSize,
		Parts:    make([]PartPlan, numParts),
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.workers > 0 {
		g.SetLimit(cfg.workers)
	}
	for p := range numParts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := newSampler(p)
			if err != nil {
				return fmt.Errorf("part %d: %w", p, err)
			}
			it, err := NewShardedIterator(s, numParts, p, WithEvenSize(cfg.evenSize))
			if err != nil {
				return fmt.Errorf("part %d: %w", p, err)
			}
			batches := it.Epoch(cfg.epoch)
			plan.Parts[p] = PartPlan{
				Part:        p,
				Batches:     batches,
				Fingerprint: Fingerprint(batches),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cfg.logger.V(1).Info("plan ready", "parts", numParts, "epoch", cfg.epoch, "even", cfg.evenSize)
	return plan, nil
}

// Fingerprint digests a batch sequence with xxHash64. Each batch contributes
// its length followed by its indices, all little-endian 64-bit, so equal
// fingerprints mean equal sequences with overwhelming probability.
func Fingerprint(batches []Batch) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, b := range batches {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(b)))
		_, _ = d.Write(buf[:])
		for _, i := range b {
			binary.LittleEndian.PutUint64(buf[:], uint64(i))
			_, _ = d.Write(buf[:])
		}
	}
	return d.Sum64()
}

// Verify checks the plan against numItems indices.
//
// Without even size every index in [0, numItems) must appear exactly once
// across all parts. With even size every part must hold the same number of
// batches and every index must appear at least once.
func (p *Plan) Verify(numItems int) error {
	seen := make([]int, numItems)
	for _, part := range p.Parts {
		if p.EvenSize && len(part.Batches) != len(p.Parts[0].Batches) {
			return fmt.Errorf("%w: part %d has %d batches, part 0 has %d",
				lberrors.ErrCoverage, part.Part, len(part.Batches), len(p.Parts[0].Batches))
		}
		for _, b := range part.Batches {
			if len(b) == 0 {
				return fmt.Errorf("%w: part %d has an empty batch", lberrors.ErrCoverage, part.Part)
			}
			for _, i := range b {
				if i < 0 || i >= numItems {
					return fmt.Errorf("%w: part %d yields index %d outside [0, %d)",
						lberrors.ErrCoverage, part.Part, i, numItems)
				}
				seen[i]++
			}
		}
	}
	for i, c := range seen {
		switch {
		case c == 0:
			return fmt.Errorf("%w: index %d is never yielded", lberrors.ErrCoverage, i)
		case c > 1 && !p.EvenSize:
			return fmt.Errorf("%w: index %d is yielded %d times", lberrors.ErrCoverage, i, c)
		}
	}
	return nil
}

// NumBatches returns the total batch count across parts.
func (p *Plan) NumBatches() int {
	n := 0
	for _, part := range p.Parts {
		n += len(part.Batches)
	}
	return n
}

package lenbatch

import (
	"fmt"
	"iter"
	"math"
	"math/rand/v2"
	"slices"
	"strings"

	lberrors "github.com/tamirms/lenbatch/errors"
)

// BucketStats describes one non-empty bucket of a FixedBucketSampler.
type BucketStats struct {
	Key        []int // inclusive upper bound per dimension
	Size       int   // number of items
	BatchSize  int   // effective batch size after ratio scaling
	NumBatches int
}

// FixedBucketSampler groups items into fixed buckets by key and batches
// within each bucket.
//
// Buckets are resolved once at construction, either from an explicit list of
// bucket keys or from a BucketScheme over the observed key range. Every item
// lands in exactly one bucket; buckets left empty are dropped, so no epoch
// ever yields an empty batch.
type FixedBucketSampler struct {
	bucketKeys [][]int
	members    [][]int
	batchSizes []int
	numItems   int
	numBatches int

	shuffle bool
	seed    uint64
	passes  passCounter
}

// NewFixedBucketSampler buckets keys and derives per-bucket batch sizes.
//
// Exactly one of WithNumBuckets or WithBucketKeys is required. Also honors
// WithBucketScheme, WithRatio, WithAverageLength, WithShuffle, WithSeed and
// WithLogger.
func NewFixedBucketSampler(keys Keys, batchSize int, opts ...Option) (*FixedBucketSampler, error) {
	cfg := newConfig(opts)

	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", lberrors.ErrInvalidBatchSize, batchSize)
	}
	if keys.Len() == 0 {
		return nil, lberrors.ErrEmptyKeys
	}
	if math.IsNaN(cfg.ratio) || cfg.ratio < 0 || cfg.ratio > 1 {
		return nil, fmt.Errorf("%w: got %v", lberrors.ErrInvalidRatio, cfg.ratio)
	}

	bucketKeys, err := resolveBucketKeys(keys, cfg)
	if err != nil {
		return nil, err
	}
	members, err := assignBuckets(keys, bucketKeys)
	if err != nil {
		return nil, err
	}

	// Drop empty buckets
	var keptKeys, keptMembers [][]int
	for b, ids := range members {
		if len(ids) > 0 {
			keptKeys = append(keptKeys, bucketKeys[b])
			keptMembers = append(keptMembers, ids)
		}
	}

	batchSizes := bucketBatchSizes(keys, keptKeys, keptMembers, batchSize, cfg)
	numBatches := 0
	for b, ids := range keptMembers {
		numBatches += (len(ids) + batchSizes[b] - 1) / batchSizes[b]
	}

	s := &FixedBucketSampler{
		bucketKeys: keptKeys,
		members:    keptMembers,
		batchSizes: batchSizes,
		numItems:   keys.Len(),
		numBatches: numBatches,
		shuffle:    cfg.shuffle,
		seed:       cfg.seed,
	}
	cfg.logger.V(1).Info("fixed bucket sampler ready",
		"items", s.numItems, "buckets", len(keptKeys), "batches", numBatches,
		"scheme", fmt.Sprint(cfg.scheme), "ratio", cfg.ratio, "shuffle", cfg.shuffle)
	return s, nil
}

// resolveBucketKeys returns bucket keys sorted lexicographically without
// duplicates.
func resolveBucketKeys(keys Keys, cfg *config) ([][]int, error) {
	arity := keys.Arity()
	var out [][]int

	switch {
	case cfg.numBucketsSet && cfg.bucketKeys != nil:
		return nil, lberrors.ErrBucketsConflict

	case cfg.bucketKeys != nil:
		bk := *cfg.bucketKeys
		if bk.Len() == 0 {
			return nil, fmt.Errorf("%w: bucket key list is empty", lberrors.ErrBucketsUnspecified)
		}
		if bk.Arity() != arity {
			return nil, fmt.Errorf("%w: bucket keys have %d dimensions, items have %d",
				lberrors.ErrArityMismatch, bk.Arity(), arity)
		}
		for i := range bk.Len() {
			out = append(out, slices.Clone(bk.At(i)))
		}

	case cfg.numBucketsSet:
		n := cfg.numBuckets
		if n <= 0 {
			return nil, fmt.Errorf("%w: got %d", lberrors.ErrInvalidNumBuckets, n)
		}
		scheme := cfg.scheme
		if scheme == nil {
			scheme = ConstantWidth{}
		}
		lo, hi := keys.bounds()
		perDim := make([][]int, arity)
		for d := range arity {
			perDim[d] = scheme.Boundaries(lo[d], hi[d], n)
			if len(perDim[d]) != n {
				return nil, fmt.Errorf("%w: scheme %v returned %d boundaries, want %d",
					lberrors.ErrConfiguration, scheme, len(perDim[d]), n)
			}
		}
		out = make([][]int, n)
		for i := range out {
			key := make([]int, arity)
			for d := range arity {
				key[d] = perDim[d][i]
			}
			out[i] = key
		}

	default:
		return nil, lberrors.ErrBucketsUnspecified
	}

	slices.SortFunc(out, compareKeys)
	out = slices.CompactFunc(out, func(a, b []int) bool { return slices.Equal(a, b) })
	return out, nil
}

// assignBuckets places every item in exactly one bucket.
//
// Scalar keys go to the first bucket whose key is >= the item key. Tuple keys
// go to the tightest bucket (smallest dimension sum, then first in order)
// among those bounding the item in every dimension.
func assignBuckets(keys Keys, bucketKeys [][]int) ([][]int, error) {
	members := make([][]int, len(bucketKeys))

	if keys.Arity() == 1 {
		upper := make([]int, len(bucketKeys))
		for b, k := range bucketKeys {
			upper[b] = k[0]
		}
		for i := range keys.Len() {
			v := keys.At(i)[0]
			b, _ := slices.BinarySearch(upper, v)
			if b == len(upper) {
				return nil, fmt.Errorf("%w: item %d has key %d, largest bucket is %d",
					lberrors.ErrKeyExceedsBuckets, i, v, upper[len(upper)-1])
			}
			members[b] = append(members[b], i)
		}
		return members, nil
	}

	sums := make([]int, len(bucketKeys))
	for b, k := range bucketKeys {
		sums[b] = keySum(k)
	}
	for i := range keys.Len() {
		key := keys.At(i)
		best := -1
		for b, bk := range bucketKeys {
			if !dominates(bk, key) {
				continue
			}
			if best < 0 || sums[b] < sums[best] {
				best = b
			}
		}
		if best < 0 {
			return nil, fmt.Errorf("%w: item %d has key %v", lberrors.ErrKeyExceedsBuckets, i, key)
		}
		members[best] = append(members[best], i)
	}
	return members, nil
}

// dominates reports whether bucket key bk is >= key in every dimension.
func dominates(bk, key []int) bool {
	for d, v := range key {
		if v > bk[d] {
			return false
		}
	}
	return true
}

// bucketBatchSizes scales batchSize down for buckets with a larger cost:
// max(1, round(batchSize * (1 - ratio*cost/maxCost))).
func bucketBatchSizes(keys Keys, bucketKeys, members [][]int, batchSize int, cfg *config) []int {
	costs := make([]float64, len(bucketKeys))
	maxCost := 0.0
	for b := range bucketKeys {
		if cfg.useAverageLength {
			total := 0
			for _, i := range members[b] {
				total += keySum(keys.At(i))
			}
			costs[b] = float64(total) / float64(len(members[b]))
		} else {
			costs[b] = float64(keySum(bucketKeys[b]))
		}
		maxCost = max(maxCost, costs[b])
	}

	sizes := make([]int, len(bucketKeys))
	for b := range sizes {
		sizes[b] = batchSize
		if cfg.ratio > 0 && maxCost > 0 {
			scaled := float64(batchSize) * (1 - cfg.ratio*costs[b]/maxCost)
			sizes[b] = max(1, int(math.Round(scaled)))
		}
	}
	return sizes
}

// Len returns the number of batches per epoch.
func (s *FixedBucketSampler) Len() int {
	return s.numBatches
}

// Epoch returns the batches of one epoch. Without shuffling, buckets are
// emitted in key order and items in original index order.
func (s *FixedBucketSampler) Epoch(epoch uint64) []Batch {
	var r *rand.Rand
	if s.shuffle {
		r = epochRand(s.seed, epoch)
	}
	batches := make([]Batch, 0, s.numBatches)
	for b, ids := range s.members {
		ids = slices.Clone(ids)
		if r != nil {
			shuffle(r, ids)
		}
		batches = chunk(batches, ids, s.batchSizes[b])
	}
	if r != nil {
		shuffle(r, batches)
	}
	return batches
}

// Batches returns a restartable sequence; each pass is a new epoch.
func (s *FixedBucketSampler) Batches() iter.Seq[Batch] {
	return batchSeq(s, &s.passes)
}

// Stats describes every non-empty bucket in key order.
func (s *FixedBucketSampler) Stats() []BucketStats {
	out := make([]BucketStats, len(s.bucketKeys))
	for b := range out {
		size := len(s.members[b])
		out[b] = BucketStats{
			Key:        slices.Clone(s.bucketKeys[b]),
			Size:       size,
			BatchSize:  s.batchSizes[b],
			NumBatches: (size + s.batchSizes[b] - 1) / s.batchSizes[b],
		}
	}
	return out
}

// String summarizes the bucket layout.
func (s *FixedBucketSampler) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "FixedBucketSampler:\n")
	fmt.Fprintf(&sb, "  items=%d, batches=%d, buckets=%d\n", s.numItems, s.numBatches, len(s.bucketKeys))
	keys := make([]string, len(s.bucketKeys))
	sizes := make([]int, len(s.members))
	for b := range s.bucketKeys {
		keys[b] = formatKey(s.bucketKeys[b])
		sizes[b] = len(s.members[b])
	}
	fmt.Fprintf(&sb, "  key=[%s]\n", strings.Join(keys, ", "))
	fmt.Fprintf(&sb, "  cnt=%v\n", sizes)
	fmt.Fprintf(&sb, "  batch_size=%v", s.batchSizes)
	return sb.String()
}

func formatKey(key []int) string {
	if len(key) == 1 {
		return fmt.Sprint(key[0])
	}
	parts := make([]string, len(key))
	for d, v := range key {
		parts[d] = fmt.Sprint(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

package lenbatch

import (
	"fmt"
	"iter"

	lberrors "github.com/tamirms/lenbatch/errors"
)

// SortType selects the order in which BoundedBudgetSampler scans items.
type SortType uint8

const (
	// SortMax scans items by reduced length descending, ties by index.
	SortMax SortType = iota

	// SortSequential scans items in original index order.
	SortSequential
)

// String returns the sort type name.
func (t SortType) String() string {
	switch t {
	case SortMax:
		return "max"
	case SortSequential:
		return "sequential"
	default:
		return "unknown"
	}
}

// SortTypeByName parses "max" or "sequential".
func SortTypeByName(name string) (SortType, error) {
	switch name {
	case "max", "":
		return SortMax, nil
	case "sequential":
		return SortSequential, nil
	}
	return 0, fmt.Errorf("%w: %q", lberrors.ErrUnknownSortType, name)
}

// BoundedBudgetSampler packs items greedily into batches bounded by a token
// budget, a sentence budget, or both.
//
// Packing happens once at construction. Per epoch only the order of the
// batch list changes, and only when shuffling.
type BoundedBudgetSampler struct {
	batches  []Batch
	numItems int

	shuffle bool
	seed    uint64
	passes  passCounter
}

// budget tracks the running measure of one open batch.
type budget struct {
	maxTokens    int
	maxSentences int
	padded       bool
}

// fits reports whether a batch of count items, total length sum and longest
// item maxLen respects both limits.
func (b budget) fits(count, sum, maxLen int) bool {
	if b.maxSentences >= 0 && count > b.maxSentences {
		return false
	}
	if b.maxTokens < 0 {
		return true
	}
	tokens := sum
	if b.padded {
		tokens = maxLen * count
	}
	return tokens <= b.maxTokens
}

// NewBoundedBudgetSampler honors WithMaxTokens, WithMaxSentences,
// WithBatchSizeMultiple, WithSortType, WithReduction, WithPaddedBudget,
// WithStrictBudget, WithShuffle, WithSeed and WithLogger.
//
// Items longer than the token budget become singleton batches unless
// WithStrictBudget is set, in which case construction fails.
func NewBoundedBudgetSampler(keys Keys, opts ...Option) (*BoundedBudgetSampler, error) {
	cfg := newConfig(opts)
	if keys.Len() == 0 {
		return nil, lberrors.ErrEmptyKeys
	}
	if cfg.maxTokens == 0 {
		return nil, fmt.Errorf("%w: max tokens is 0", lberrors.ErrInvalidBudget)
	}
	if cfg.maxSentences == 0 {
		return nil, fmt.Errorf("%w: max sentences is 0", lberrors.ErrInvalidBudget)
	}
	if cfg.maxTokens < 0 && cfg.maxSentences < 0 {
		return nil, lberrors.ErrUnboundedBudget
	}
	if cfg.batchMultiple < 1 {
		return nil, fmt.Errorf("%w: got %d", lberrors.ErrInvalidBatchSizeMultiple, cfg.batchMultiple)
	}

	n := keys.Len()
	lengths := make([]int, n)
	oversized := 0
	for i := range lengths {
		lengths[i] = keys.Reduce(i, cfg.reduction)
		if cfg.maxTokens >= 0 && lengths[i] > cfg.maxTokens {
			if cfg.strictBudget {
				return nil, fmt.Errorf("%w: item %d has length %d, max tokens %d",
					lberrors.ErrItemExceedsBudget, i, lengths[i], cfg.maxTokens)
			}
			oversized++
		}
	}

	order := identity(n)
	switch cfg.sortType {
	case SortMax:
		sortByLengthDescending(lengths, order)
	case SortSequential:
	default:
		return nil, fmt.Errorf("%w: %d", lberrors.ErrUnknownSortType, cfg.sortType)
	}

	b := budget{maxTokens: cfg.maxTokens, maxSentences: cfg.maxSentences, padded: cfg.paddedBudget}
	batches := pack(order, lengths, b, cfg.batchMultiple)

	cfg.logger.V(1).Info("bounded budget sampler ready",
		"items", n, "batches", len(batches), "maxTokens", cfg.maxTokens,
		"maxSentences", cfg.maxSentences, "multiple", cfg.batchMultiple,
		"sort", cfg.sortType.String(), "oversized", oversized)
	return &BoundedBudgetSampler{
		batches:  batches,
		numItems: n,
		shuffle:  cfg.shuffle,
		seed:     cfg.seed,
	}, nil
}

// pack scans order and closes a batch whenever the next item would break the
// budget.
//
// With m > 1, a closing batch whose size is above m but not a multiple of it
// carries its last len%m items into the next batch, provided they still fit
// together with the incoming item. Otherwise the batch is emitted whole.
func pack(order, lengths []int, b budget, m int) []Batch {
	var batches []Batch
	var cur []int
	sum, maxLen := 0, 0

	for _, i := range order {
		l := lengths[i]
		if len(cur) == 0 || b.fits(len(cur)+1, sum+l, max(maxLen, l)) {
			cur = append(cur, i)
			sum += l
			maxLen = max(maxLen, l)
			continue
		}

		keep := 0
		if r := len(cur) % m; m > 1 && len(cur) > m && r != 0 {
			tailSum, tailMax := l, l
			for _, j := range cur[len(cur)-r:] {
				tailSum += lengths[j]
				tailMax = max(tailMax, lengths[j])
			}
			if b.fits(r+1, tailSum, tailMax) {
				keep = r
			}
		}

		cut := len(cur) - keep
		batches = append(batches, Batch(cur[:cut:cut]))
		next := make([]int, 0, keep+1)
		next = append(next, cur[cut:]...)
		next = append(next, i)
		cur = next

		sum, maxLen = 0, 0
		for _, j := range cur {
			sum += lengths[j]
			maxLen = max(maxLen, lengths[j])
		}
	}
	if len(cur) > 0 {
		batches = append(batches, Batch(cur))
	}
	return batches
}

// Len returns the number of batches per epoch.
func (s *BoundedBudgetSampler) Len() int {
	return len(s.batches)
}

// Epoch returns a copy of the packed batches, reordered when shuffling.
func (s *BoundedBudgetSampler) Epoch(epoch uint64) []Batch {
	out := cloneBatches(s.batches, s.numItems)
	if s.shuffle {
		shuffle(epochRand(s.seed, epoch), out)
	}
	return out
}

// Batches returns a restartable sequence; each pass is a new epoch.
func (s *BoundedBudgetSampler) Batches() iter.Seq[Batch] {
	return batchSeq(s, &s.passes)
}

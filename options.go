package lenbatch

import (
	"github.com/go-logr/logr"
)

const (
	// defaultSeed is an arbitrary default; overridden via WithSeed.
	defaultSeed = 0x1234567890abcdef

	// defaultMult is the SortedBucketSampler window multiplier.
	defaultMult = 100

	// unlimited disables a budget.
	unlimited = -1
)

// Option is a functional option for configuring samplers.
// Each constructor reads the options relevant to it and ignores the rest.
type Option func(*config)

type config struct {
	seed    uint64
	shuffle bool
	logger  logr.Logger

	// SortedSampler
	ascending bool

	// FixedBucketSampler
	numBuckets       int
	numBucketsSet    bool
	bucketKeys       *Keys
	scheme           BucketScheme
	ratio            float64
	useAverageLength bool

	// SortedBucketSampler
	mult int

	// SplitSampler, ShardedIterator
	repeat   int
	evenSize bool

	// BoundedBudgetSampler
	maxTokens     int
	maxSentences  int
	batchMultiple int
	sortType      SortType
	reduction     Reduction
	paddedBudget  bool
	strictBudget  bool

	// PlanParts
	epoch   uint64
	workers int
}

func defaultConfig() *config {
	return &config{
		seed:          defaultSeed,
		logger:        logr.Discard(),
		scheme:        ConstantWidth{},
		mult:          defaultMult,
		repeat:        1,
		maxTokens:     unlimited,
		maxSentences:  unlimited,
		batchMultiple: 1,
		sortType:      SortMax,
		reduction:     ReduceMax,
	}
}

func newConfig(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithSeed sets the seed driving every shuffle. Samplers built from the same
// keys and seed produce identical batch sequences in any process.
func WithSeed(seed uint64) Option {
	return func(c *config) {
		c.seed = seed
	}
}

// WithShuffle enables per-epoch reshuffling.
func WithShuffle(shuffle bool) Option {
	return func(c *config) {
		c.shuffle = shuffle
	}
}

// WithLogger sets the logger used for construction summaries (V(1)).
func WithLogger(logger logr.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithAscending makes SortedSampler order keys ascending instead of descending.
func WithAscending(ascending bool) Option {
	return func(c *config) {
		c.ascending = ascending
	}
}

// WithNumBuckets derives n bucket keys from the key range using the
// configured BucketScheme. Mutually exclusive with WithBucketKeys.
func WithNumBuckets(n int) Option {
	return func(c *config) {
		c.numBuckets = n
		c.numBucketsSet = true
	}
}

// WithBucketKeys sets explicit inclusive bucket upper bounds. Their arity must
// match the item keys. Mutually exclusive with WithNumBuckets.
func WithBucketKeys(keys Keys) Option {
	return func(c *config) {
		c.bucketKeys = &keys
	}
}

// WithBucketScheme selects how bucket boundaries are spaced.
// Default is ConstantWidth.
func WithBucketScheme(scheme BucketScheme) Option {
	return func(c *config) {
		c.scheme = scheme
	}
}

// WithRatio shrinks the batch size of buckets holding longer items.
// A bucket whose cost equals the largest bucket cost gets
// batchSize*(1-ratio) items. Must be within [0, 1].
func WithRatio(ratio float64) Option {
	return func(c *config) {
		c.ratio = ratio
	}
}

// WithAverageLength uses each bucket's average item length, rather than its
// upper bound, as the cost for ratio scaling.
func WithAverageLength(use bool) Option {
	return func(c *config) {
		c.useAverageLength = use
	}
}

// WithMult sets the SortedBucketSampler window size to mult*batchSize.
// Default is 100.
func WithMult(mult int) Option {
	return func(c *config) {
		c.mult = mult
	}
}

// WithRepeat makes SplitSampler repeat the index range r times before splitting.
func WithRepeat(r int) Option {
	return func(c *config) {
		c.repeat = r
	}
}

// WithEvenSize pads every part to the same length (SplitSampler) or batch
// count (ShardedIterator, PlanParts) by cycling already assigned work.
func WithEvenSize(even bool) Option {
	return func(c *config) {
		c.evenSize = even
	}
}

// WithMaxTokens bounds the total length of a batch. Negative means unlimited.
func WithMaxTokens(n int) Option {
	return func(c *config) {
		c.maxTokens = n
	}
}

// WithMaxSentences bounds the number of items in a batch. Negative means unlimited.
func WithMaxSentences(n int) Option {
	return func(c *config) {
		c.maxSentences = n
	}
}

// WithBatchSizeMultiple asks for batch sizes that are a multiple of m
// wherever the budgets allow it.
func WithBatchSizeMultiple(m int) Option {
	return func(c *config) {
		c.batchMultiple = m
	}
}

// WithSortType selects the BoundedBudgetSampler scan order. Default is SortMax.
func WithSortType(t SortType) Option {
	return func(c *config) {
		c.sortType = t
	}
}

// WithReduction selects how tuple keys collapse to a single length for
// budgets. Default is ReduceMax.
func WithReduction(r Reduction) Option {
	return func(c *config) {
		c.reduction = r
	}
}

// WithPaddedBudget measures a batch as longest item times item count (the
// padded token count) instead of the sum of item lengths.
func WithPaddedBudget(padded bool) Option {
	return func(c *config) {
		c.paddedBudget = padded
	}
}

// WithStrictBudget rejects items longer than the token budget at construction
// instead of emitting them as singleton batches.
func WithStrictBudget(strict bool) Option {
	return func(c *config) {
		c.strictBudget = strict
	}
}

// WithEpoch selects the epoch materialized by PlanParts. Default is 0.
func WithEpoch(epoch uint64) Option {
	return func(c *config) {
		c.epoch = epoch
	}
}

// WithWorkers bounds the number of parts PlanParts builds concurrently.
// Zero or negative means one goroutine per part.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

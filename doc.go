// Package lenbatch decides which items form which batch, in what order batches
// are emitted, and how the batch stream is split across workers, for items
// annotated with length keys.
//
// Every sampler is reproducible: the batches of epoch e are a pure function of
// the keys, the options, the seed and e. Workers that build the same sampler
// from the same seed therefore agree on the global batch order without
// communicating, and each takes its share through a ShardedIterator.
//
// # Basic Usage
//
// Bucketing by length:
//
//	keys, err := lenbatch.ScalarKeys(lengths)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	s, err := lenbatch.NewFixedBucketSampler(keys, 64,
//	    lenbatch.WithNumBuckets(16),
//	    lenbatch.WithBucketScheme(lenbatch.ExponentialWidth(1.2)),
//	    lenbatch.WithShuffle(true),
//	    lenbatch.WithSeed(seed))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for batch := range s.Batches() {
//	    train(batch)
//	}
//
// Token budgets on several workers:
//
//	s, err := lenbatch.NewBoundedBudgetSampler(keys,
//	    lenbatch.WithMaxTokens(8192),
//	    lenbatch.WithBatchSizeMultiple(8),
//	    lenbatch.WithShuffle(true))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	part, err := lenbatch.NewShardedIterator(s, numWorkers, rank, lenbatch.WithEvenSize(true))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	batches := part.Epoch(epoch)
//
// # Package Structure
//
//   - Keys: keys.go (Keys, KeySource), ordering.go (key order, Reduction)
//   - Samplers: sorted.go, fixed_bucket.go, sorted_bucket.go, split.go, budget.go
//   - Bucket boundaries: scheme.go (ConstantWidth, LinearWidth, ExponentialWidth)
//   - Sharding and planning: sharded.go, plan.go (PlanParts, Fingerprint)
//   - Configuration: options.go (Option, With* functions)
//   - Randomness: random.go (per-epoch generators, shuffle)
//   - Storage: keyfile/ (memory-mapped key files)
//   - Errors: errors/ (sentinels shared by all packages)
package lenbatch

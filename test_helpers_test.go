package lenbatch

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// randomLengths returns n lengths uniform in [lo, hi).
func randomLengths(rng *rand.Rand, n, lo, hi int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = lo + rng.IntN(hi-lo)
	}
	return out
}

func mustScalarKeys(t testing.TB, lengths []int) Keys {
	t.Helper()
	keys, err := ScalarKeys(lengths)
	if err != nil {
		t.Fatalf("ScalarKeys: %v", err)
	}
	return keys
}

func mustTupleKeys(t testing.TB, lengths [][]int) Keys {
	t.Helper()
	keys, err := TupleKeys(lengths)
	if err != nil {
		t.Fatalf("TupleKeys: %v", err)
	}
	return keys
}

func randomScalarKeys(t testing.TB, n, lo, hi int) Keys {
	t.Helper()
	return mustScalarKeys(t, randomLengths(newTestRNG(t), n, lo, hi))
}

func randomTupleKeys(t testing.TB, n, arity, lo, hi int) Keys {
	t.Helper()
	rng := newTestRNG(t)
	raw := make([][]int, n)
	for i := range raw {
		raw[i] = randomLengths(rng, arity, lo, hi)
	}
	return mustTupleKeys(t, raw)
}

// indexCounts returns how often each index in [0, n) occurs in batches.
// Out-of-range indices fail the test.
func indexCounts(t testing.TB, batches []Batch, n int) []int {
	t.Helper()
	counts := make([]int, n)
	for k, b := range batches {
		if len(b) == 0 {
			t.Fatalf("batch %d is empty", k)
		}
		for _, i := range b {
			if i < 0 || i >= n {
				t.Fatalf("batch %d holds index %d outside [0, %d)", k, i, n)
			}
			counts[i]++
		}
	}
	return counts
}

// assertExactCover fails unless every index in [0, n) occurs exactly once.
func assertExactCover(t testing.TB, batches []Batch, n int) {
	t.Helper()
	for i, c := range indexCounts(t, batches, n) {
		if c != 1 {
			t.Fatalf("index %d occurs %d times, want 1", i, c)
		}
	}
}

// staticSampler replays a fixed batch list for every epoch.
type staticSampler []Batch

func (s staticSampler) Len() int { return len(s) }

func (s staticSampler) Epoch(uint64) []Batch { return cloneBatches(s, 0) }

// batchSizes returns the sizes of batches.
func batchSizes(batches []Batch) []int {
	out := make([]int, len(batches))
	for k, b := range batches {
		out[k] = len(b)
	}
	return out
}

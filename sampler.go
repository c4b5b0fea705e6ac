package lenbatch

import (
	"iter"
	"sync/atomic"
)

// Batch is an ordered, non-empty list of original item indices.
type Batch []int

// BatchSampler produces the batch sequence of one epoch.
//
// Epoch is a pure function of the sampler's keys, configuration, seed and the
// epoch index: calling it twice with the same epoch returns equal sequences,
// and it is safe for concurrent use. Len is the exact number of batches every
// epoch contains.
type BatchSampler interface {
	Len() int
	Epoch(epoch uint64) []Batch
}

// IndexSampler produces the index sequence of one epoch.
type IndexSampler interface {
	Len() int
	Epoch(epoch uint64) []int
}

// passCounter hands out consecutive pass numbers to iterators.
// The zero value starts at pass 0.
type passCounter struct {
	next atomic.Uint64
}

func (p *passCounter) claim() uint64 {
	return p.next.Add(1) - 1
}

// batchSeq returns a restartable sequence over s. Each time the sequence is
// ranged over it claims a fresh pass number, so successive passes reshuffle
// while staying reproducible from the seed.
func batchSeq(s BatchSampler, passes *passCounter) iter.Seq[Batch] {
	return func(yield func(Batch) bool) {
		for _, b := range s.Epoch(passes.claim()) {
			if !yield(b) {
				return
			}
		}
	}
}

// indexSeq is batchSeq for index samplers.
func indexSeq(s IndexSampler, passes *passCounter) iter.Seq[int] {
	return func(yield func(int) bool) {
		for _, i := range s.Epoch(passes.claim()) {
			if !yield(i) {
				return
			}
		}
	}
}

// Flatten concatenates batches into a single index list.
func Flatten(batches []Batch) []int {
	n := 0
	for _, b := range batches {
		n += len(b)
	}
	out := make([]int, 0, n)
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}

// chunk splits ids into consecutive batches of at most size items.
// The batches alias ids.
func chunk(dst []Batch, ids []int, size int) []Batch {
	for lo := 0; lo < len(ids); lo += size {
		hi := min(lo+size, len(ids))
		dst = append(dst, Batch(ids[lo:hi:hi]))
	}
	return dst
}

// cloneBatches deep-copies batches into a single backing array of size hint.
func cloneBatches(batches []Batch, hint int) []Batch {
	flat := make([]int, 0, hint)
	out := make([]Batch, len(batches))
	for k, b := range batches {
		lo := len(flat)
		flat = append(flat, b...)
		out[k] = Batch(flat[lo:len(flat):len(flat)])
	}
	return out
}

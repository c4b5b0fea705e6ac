package lenbatch

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/zeebo/xxh3"

	intbits "github.com/tamirms/lenbatch/internal/bits"
)

// epochStreamSalt separates the two PCG seed words derived from one epoch.
const epochStreamSalt = 0x9e3779b97f4a7c15

// epochRand returns the generator for one epoch of one sampler.
//
// The generator state depends only on (seed, epoch): the epoch index is hashed
// with xxHash3 under the sampler seed, so different epochs get unrelated
// streams while every process that shares the seed derives the same one.
func epochRand(seed, epoch uint64) *rand.Rand {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], epoch)
	h := xxh3.HashSeed(buf[:], seed)
	return rand.New(rand.NewPCG(h, h^epochStreamSalt))
}

// shuffle permutes s in place with a Fisher-Yates pass. The index draw uses
// FastRange over the generator's 64-bit output so the permutation for a given
// generator state is fixed by this module, not by the standard library's
// Shuffle implementation.
func shuffle[T any](r *rand.Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := intbits.FastRange(r.Uint64(), i+1)
		s[i], s[j] = s[j], s[i]
	}
}

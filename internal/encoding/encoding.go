// Package encoding provides little-endian serialization for key tuples.
//
// A key of arity A occupies A*ComponentSize bytes; each component is an
// unsigned 32-bit little-endian integer.
package encoding

import (
	"encoding/binary"
	"math"
)

// ComponentSize is the encoded size of one key component in bytes.
const ComponentSize = 4

// MaxComponent is the largest encodable key component.
const MaxComponent = math.MaxUint32

// KeySize returns the encoded size of a key with the given arity.
func KeySize(arity int) int {
	return arity * ComponentSize
}

// WriteKey packs key into dst at slot position pos.
// dst must hold at least (pos+1)*KeySize(len(key)) bytes.
// Components are truncated to 32 bits; callers validate the range first.
func WriteKey(dst []byte, pos int, key []int) {
	off := pos * KeySize(len(key))
	for _, v := range key {
		binary.LittleEndian.PutUint32(dst[off:], uint32(v))
		off += ComponentSize
	}
}

// ReadKey unpacks the key at slot position pos into dst (resized to arity)
// and returns it.
func ReadKey(src []byte, pos, arity int, dst []int) []int {
	dst = dst[:0]
	off := pos * KeySize(arity)
	for range arity {
		dst = append(dst, int(binary.LittleEndian.Uint32(src[off:])))
		off += ComponentSize
	}
	return dst
}

// ReadComponent reads a single component of the key at slot position pos.
func ReadComponent(src []byte, pos, arity, dim int) int {
	off := (pos*arity + dim) * ComponentSize
	return int(binary.LittleEndian.Uint32(src[off:]))
}

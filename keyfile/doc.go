// Package keyfile stores per-item length keys in a compact memory-mapped file.
//
// File layout:
//
//	[Header 32B][Data numKeys*arity*4B][Footer 16B]
//
// Header:
//
//	Offset  Size  Field     Type
//	0       4     Magic     0x464B424C ("LBKF")
//	4       2     Version   0x0001
//	6       2     Arity     uint16_le
//	8       8     NumKeys   uint64_le
//	16      16    Reserved  [16]byte (zero)
//
// Data holds one uint32_le per key component, keys in item order. The footer
// carries the xxHash64 of the data region followed by 8 reserved bytes.
//
// A File implements lenbatch.KeySource, so samplers can be built straight from
// a file without an intermediate copy of the raw lengths:
//
//	f, err := keyfile.Open("train.lbkf")
//	if err != nil {
//		return err
//	}
//	defer f.Close()
//	keys, err := f.Keys()
package keyfile

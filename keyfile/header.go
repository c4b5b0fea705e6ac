package keyfile

import (
	"encoding/binary"
	"math"

	lberrors "github.com/tamirms/lenbatch/errors"
	"github.com/tamirms/lenbatch/internal/encoding"
)

const (
	// magic is "LBKF" in little-endian.
	magic = uint32(0x464B424C)

	// version is the current format version
	version = uint16(0x0001)

	headerSize = 32
	footerSize = 16

	// MaxArity is the largest number of dimensions per key.
	MaxArity = math.MaxUint16
)

type header struct {
	Magic    uint32
	Version  uint16
	Arity    uint16
	NumKeys  uint64
	Reserved [16]byte
}

func (h *header) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.Arity)
	binary.LittleEndian.PutUint64(buf[8:16], h.NumKeys)
	copy(buf[16:32], h.Reserved[:])
}

// decodeHeader parses and validates a 32-byte header.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, lberrors.ErrTruncatedFile
	}
	h := &header{
		Magic:   binary.LittleEndian.Uint32(buf[0:4]),
		Version: binary.LittleEndian.Uint16(buf[4:6]),
		Arity:   binary.LittleEndian.Uint16(buf[6:8]),
		NumKeys: binary.LittleEndian.Uint64(buf[8:16]),
	}
	copy(h.Reserved[:], buf[16:32])

	if h.Magic != magic {
		return nil, lberrors.ErrInvalidMagic
	}
	if h.Version != version {
		return nil, lberrors.ErrInvalidVersion
	}
	if h.Arity == 0 {
		return nil, lberrors.ErrCorruptedFile
	}
	return h, nil
}

// footer is the 16-byte trailer.
type footer struct {
	DataHash uint64 // xxHash64 of the data region
	Reserved [8]byte
}

func (f *footer) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.DataHash)
	copy(buf[8:16], f.Reserved[:])
}

func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) < footerSize {
		return nil, lberrors.ErrTruncatedFile
	}
	f := &footer{DataHash: binary.LittleEndian.Uint64(buf[0:8])}
	copy(f.Reserved[:], buf[8:16])
	return f, nil
}

// fileSize returns the exact size of a file holding numKeys keys, or false
// when it does not fit in an int64.
func fileSize(numKeys uint64, arity int) (int64, bool) {
	keySize := uint64(encoding.KeySize(arity))
	maxKeys := (math.MaxInt64 - headerSize - footerSize) / keySize
	if numKeys > maxKeys {
		return 0, false
	}
	return int64(headerSize + numKeys*keySize + footerSize), true
}

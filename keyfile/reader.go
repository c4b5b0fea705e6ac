package keyfile

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	"github.com/tamirms/lenbatch"
	lberrors "github.com/tamirms/lenbatch/errors"
	"github.com/tamirms/lenbatch/internal/encoding"
)

// File is a read-only key file.
//
// Read methods are safe for concurrent use. Close must only be called after
// all reads have completed; Key must not be called after Close.
type File struct {
	mmap mmap.MMap
	data []byte
	keys []byte // data region

	header *header
	arity  int

	closed atomic.Bool
}

// Open memory-maps the key file at path. The file descriptor is closed
// before Open returns.
func Open(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open key file: %w", err)
	}
	defer file.Close()
	return OpenFile(file)
}

// OpenFile memory-maps f. The caller is responsible for closing f, which may
// happen immediately after OpenFile returns.
func OpenFile(f *os.File) (*File, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat key file: %w", err)
	}
	size := stat.Size()
	if size < headerSize+footerSize {
		return nil, lberrors.ErrTruncatedFile
	}

	// Samplers snapshot keys front to back
	fadviseSequential(int(f.Fd()), 0, size)

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap key file: %w", err)
	}
	kf := &File{mmap: mm, data: []byte(mm)}
	if err := kf.init(); err != nil {
		return nil, errors.Join(err, kf.Close())
	}
	return kf, nil
}

// OpenBytes reads a key file held in memory. Close is a no-op. The caller
// must not modify data while the File is in use.
func OpenBytes(data []byte) (*File, error) {
	if len(data) < headerSize+footerSize {
		return nil, lberrors.ErrTruncatedFile
	}
	kf := &File{data: data}
	if err := kf.init(); err != nil {
		return nil, err
	}
	return kf, nil
}

func (f *File) init() error {
	hdr, err := decodeHeader(f.data[:headerSize])
	if err != nil {
		return err
	}
	want, ok := fileSize(hdr.NumKeys, int(hdr.Arity))
	switch {
	case !ok:
		return lberrors.ErrCorruptedFile
	case int64(len(f.data)) < want:
		return lberrors.ErrTruncatedFile
	case int64(len(f.data)) > want:
		return lberrors.ErrCorruptedFile
	}
	f.header = hdr
	f.arity = int(hdr.Arity)
	f.keys = f.data[headerSize : len(f.data)-footerSize]
	return nil
}

// Len returns the number of keys.
func (f *File) Len() int {
	return int(f.header.NumKeys)
}

// Arity returns the number of dimensions per key.
func (f *File) Arity() int {
	return f.arity
}

// Key implements lenbatch.KeySource.
func (f *File) Key(i int, dst []int) []int {
	return encoding.ReadKey(f.keys, i, f.arity, dst)
}

// Component returns dimension d of key i without decoding the rest of the
// tuple.
func (f *File) Component(i, d int) int {
	return encoding.ReadComponent(f.keys, i, f.arity, d)
}

// Keys snapshots the whole file. The result stays valid after Close.
func (f *File) Keys() (lenbatch.Keys, error) {
	if f.closed.Load() {
		return lenbatch.Keys{}, lberrors.ErrFileClosed
	}
	return lenbatch.KeysFrom(f)
}

// Verify checks the data region against the footer checksum.
func (f *File) Verify() error {
	if f.closed.Load() {
		return lberrors.ErrFileClosed
	}
	ftr, err := decodeFooter(f.data[len(f.data)-footerSize:])
	if err != nil {
		return err
	}
	if xxhash.Sum64(f.keys) != ftr.DataHash {
		return lberrors.ErrChecksumFailed
	}
	return nil
}

// Close releases the mapping.
func (f *File) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	if f.mmap != nil {
		return f.mmap.Unmap()
	}
	return nil
}

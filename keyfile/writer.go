package keyfile

import (
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	"github.com/tamirms/lenbatch"
	lberrors "github.com/tamirms/lenbatch/errors"
	"github.com/tamirms/lenbatch/internal/encoding"
)

// Writer streams keys into a new key file through a read-write mapping.
//
// The file is sized exactly up front, so Finish never truncates or remaps.
// A Writer is not safe for concurrent use.
type Writer struct {
	path string
	file *os.File
	mmap mmap.MMap
	data []byte

	hasher  *xxhash.Digest
	header  header
	keySize int

	count    uint64
	finished bool
}

// Create pre-allocates a key file for numKeys keys of the given arity.
func Create(path string, numKeys uint64, arity int) (*Writer, error) {
	if arity <= 0 || arity > MaxArity {
		return nil, fmt.Errorf("%w: got %d", lberrors.ErrInvalidArity, arity)
	}
	size, ok := fileSize(numKeys, arity)
	if !ok {
		return nil, fmt.Errorf("%w: %d keys of arity %d", lberrors.ErrKeyCountMismatch, numKeys, arity)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create key file: %w", err)
	}

	// Reserve disk blocks so a full disk fails here rather than as SIGBUS
	if err := fallocateFile(file, size); err != nil {
		primaryErr := fmt.Errorf("allocate key file: %w", err)
		return nil, errors.Join(primaryErr, file.Close(), os.Remove(path))
	}

	mm, err := mmap.MapRegion(file, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		primaryErr := fmt.Errorf("mmap key file: %w", err)
		return nil, errors.Join(primaryErr, file.Close(), os.Remove(path))
	}

	w := &Writer{
		path:    path,
		file:    file,
		mmap:    mm,
		data:    []byte(mm),
		hasher:  xxhash.New(),
		keySize: encoding.KeySize(arity),
		header: header{
			Magic:   magic,
			Version: version,
			Arity:   uint16(arity),
			NumKeys: numKeys,
		},
	}
	prefaultRegion(w.data[headerSize : len(w.data)-footerSize])
	return w, nil
}

// Append writes the next key. Components must be within [0, 2^32).
func (w *Writer) Append(key ...int) error {
	if w.mmap == nil {
		return lberrors.ErrWriterClosed
	}
	if len(key) != int(w.header.Arity) {
		return fmt.Errorf("%w: key has %d dimensions, file has %d",
			lberrors.ErrArityMismatch, len(key), w.header.Arity)
	}
	if w.count >= w.header.NumKeys {
		return fmt.Errorf("%w: file holds %d keys", lberrors.ErrKeyCountMismatch, w.header.NumKeys)
	}
	for _, v := range key {
		if v < 0 {
			return fmt.Errorf("%w: key %d is %v", lberrors.ErrNegativeKey, w.count, key)
		}
		if uint64(v) > encoding.MaxComponent {
			return fmt.Errorf("%w: key %d is %v", lberrors.ErrKeyTooLarge, w.count, key)
		}
	}

	region := w.data[headerSize:]
	encoding.WriteKey(region, int(w.count), key)
	off := int(w.count) * w.keySize
	if _, err := w.hasher.Write(region[off : off+w.keySize]); err != nil {
		panic("hash.Hash.Write returned unexpected error: " + err.Error())
	}
	w.count++
	return nil
}

// Finish writes the header and footer and closes the file. The writer is
// unusable afterwards. If fewer keys than announced were appended, the file is
// removed and ErrKeyCountMismatch is returned.
func (w *Writer) Finish() error {
	if w.mmap == nil {
		return lberrors.ErrWriterClosed
	}
	if w.count != w.header.NumKeys {
		primaryErr := fmt.Errorf("%w: appended %d of %d keys",
			lberrors.ErrKeyCountMismatch, w.count, w.header.NumKeys)
		return errors.Join(primaryErr, w.Close())
	}

	w.header.encodeTo(w.data[:headerSize])
	ftr := footer{DataHash: w.hasher.Sum64()}
	ftr.encodeTo(w.data[len(w.data)-footerSize:])

	if err := w.mmap.Flush(); err != nil {
		primaryErr := fmt.Errorf("mmap flush failed: %w", err)
		return errors.Join(primaryErr, w.Close())
	}
	unmapErr := w.mmap.Unmap()
	w.mmap = nil
	if unmapErr != nil {
		primaryErr := fmt.Errorf("mmap unmap failed: %w", unmapErr)
		return errors.Join(primaryErr, w.Close())
	}

	w.finished = true
	closeErr := w.file.Close()
	w.file = nil
	return closeErr
}

// Close aborts an unfinished writer and removes the partial file.
// Idempotent; a no-op after a successful Finish.
func (w *Writer) Close() error {
	var unmapErr, closeErr, removeErr error
	if w.mmap != nil {
		unmapErr = w.mmap.Unmap()
		w.mmap = nil
	}
	if w.file != nil {
		closeErr = w.file.Close()
		w.file = nil
	}
	if !w.finished && w.path != "" {
		if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
			removeErr = err
		}
		w.path = ""
	}
	return errors.Join(unmapErr, closeErr, removeErr)
}

// Write stores every key of src at path.
func Write(path string, src lenbatch.KeySource) error {
	w, err := Create(path, uint64(src.Len()), src.Arity())
	if err != nil {
		return err
	}
	var key []int
	for i := range src.Len() {
		key = src.Key(i, key)
		if err := w.Append(key...); err != nil {
			return errors.Join(err, w.Close())
		}
	}
	return w.Finish()
}

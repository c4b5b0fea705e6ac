package keyfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tamirms/lenbatch"
	lberrors "github.com/tamirms/lenbatch/errors"
)

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

func randomKeys(t *testing.T, n, arity int) lenbatch.Keys {
	t.Helper()
	rng := newTestRNG(t)
	raw := make([][]int, n)
	for i := range raw {
		raw[i] = make([]int, arity)
		for d := range raw[i] {
			raw[i][d] = rng.IntN(512)
		}
	}
	keys, err := lenbatch.TupleKeys(raw)
	if err != nil {
		t.Fatalf("TupleKeys: %v", err)
	}
	return keys
}

// writeTestFile writes keys to a temp file and returns its path.
func writeTestFile(t *testing.T, keys lenbatch.Keys) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keys.lbkf")
	if err := Write(path, keys); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return path
}

func allKeys(src lenbatch.KeySource) [][]int {
	out := make([][]int, src.Len())
	for i := range out {
		out[i] = src.Key(i, nil)
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	for _, arity := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("Arity%d", arity), func(t *testing.T) {
			keys := randomKeys(t, 1000, arity)
			path := writeTestFile(t, keys)

			f, err := Open(path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer f.Close()

			if f.Len() != keys.Len() || f.Arity() != arity {
				t.Fatalf("got %d keys of arity %d, want %d of %d", f.Len(), f.Arity(), keys.Len(), arity)
			}
			if err := f.Verify(); err != nil {
				t.Errorf("Verify: %v", err)
			}
			if diff := cmp.Diff(allKeys(keys), allKeys(f)); diff != "" {
				t.Errorf("keys mismatch (-want +got):\n%s", diff)
			}
			for i := range keys.Len() {
				for d, want := range keys.At(i) {
					if got := f.Component(i, d); got != want {
						t.Fatalf("Component(%d, %d) = %d, want %d", i, d, got, want)
					}
				}
			}

			snap, err := f.Keys()
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if err := f.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if diff := cmp.Diff(allKeys(keys), allKeys(snap)); diff != "" {
				t.Errorf("snapshot mismatch after Close (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.lbkf")
	w, err := Create(path, 0, 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	if f.Len() != 0 {
		t.Errorf("Len = %d, want 0", f.Len())
	}
	if err := f.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestOpenVariantsAgree(t *testing.T) {
	keys := randomKeys(t, 300, 2)
	path := writeTestFile(t, keys)

	osf, err := os.Open(path)
	if err != nil {
		t.Fatalf("os.Open: %v", err)
	}
	fromFile, err := OpenFile(osf)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	osf.Close()
	defer fromFile.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	fromBytes, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	defer fromBytes.Close()

	if diff := cmp.Diff(allKeys(fromFile), allKeys(fromBytes)); diff != "" {
		t.Errorf("OpenFile and OpenBytes disagree (-file +bytes):\n%s", diff)
	}
	if err := fromBytes.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestCorruptionDetection(t *testing.T) {
	keys := randomKeys(t, 200, 2)
	valid, err := os.ReadFile(writeTestFile(t, keys))
	if err != nil {
		t.Fatal(err)
	}
	mutate := func(f func([]byte) []byte) []byte {
		buf := make([]byte, len(valid))
		copy(buf, valid)
		return f(buf)
	}

	tests := []struct {
		name    string
		data    []byte
		openErr error
		verErr  error
	}{
		{
			name:    "BadMagic",
			data:    mutate(func(b []byte) []byte { b[0] ^= 0xFF; return b }),
			openErr: lberrors.ErrInvalidMagic,
		},
		{
			name:    "BadVersion",
			data:    mutate(func(b []byte) []byte { b[4] = 0x7F; return b }),
			openErr: lberrors.ErrInvalidVersion,
		},
		{
			name:    "ZeroArity",
			data:    mutate(func(b []byte) []byte { b[6], b[7] = 0, 0; return b }),
			openErr: lberrors.ErrCorruptedFile,
		},
		{
			name:    "Truncated",
			data:    mutate(func(b []byte) []byte { return b[:len(b)-4] }),
			openErr: lberrors.ErrTruncatedFile,
		},
		{
			name:    "TooShort",
			data:    valid[:headerSize],
			openErr: lberrors.ErrTruncatedFile,
		},
		{
			name:    "TrailingBytes",
			data:    mutate(func(b []byte) []byte { return append(b, 0) }),
			openErr: lberrors.ErrCorruptedFile,
		},
		{
			name:   "FlippedDataByte",
			data:   mutate(func(b []byte) []byte { b[headerSize+17] ^= 0x01; return b }),
			verErr: lberrors.ErrChecksumFailed,
		},
		{
			name:   "FlippedFooter",
			data:   mutate(func(b []byte) []byte { b[len(b)-footerSize] ^= 0x01; return b }),
			verErr: lberrors.ErrChecksumFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := OpenBytes(tt.data)
			if tt.openErr != nil {
				if !errors.Is(err, tt.openErr) {
					t.Fatalf("OpenBytes error = %v, want %v", err, tt.openErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("OpenBytes: %v", err)
			}
			if err := f.Verify(); !errors.Is(err, tt.verErr) {
				t.Errorf("Verify error = %v, want %v", err, tt.verErr)
			}
		})
	}
}

func TestWriterErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("InvalidArity", func(t *testing.T) {
		if _, err := Create(filepath.Join(dir, "a"), 1, 0); !errors.Is(err, lberrors.ErrInvalidArity) {
			t.Errorf("got %v, want ErrInvalidArity", err)
		}
	})

	t.Run("AppendValidation", func(t *testing.T) {
		path := filepath.Join(dir, "b")
		w, err := Create(path, 2, 2)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		defer w.Close()

		cases := []struct {
			key  []int
			want error
		}{
			{[]int{1}, lberrors.ErrArityMismatch},
			{[]int{1, -1}, lberrors.ErrNegativeKey},
			{[]int{1, 1 << 33}, lberrors.ErrKeyTooLarge},
		}
		for _, c := range cases {
			if err := w.Append(c.key...); !errors.Is(err, c.want) {
				t.Errorf("Append(%v) = %v, want %v", c.key, err, c.want)
			}
		}
		if err := w.Append(1, 2); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := w.Append(3, 4); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := w.Append(5, 6); !errors.Is(err, lberrors.ErrKeyCountMismatch) {
			t.Errorf("Append past capacity = %v, want ErrKeyCountMismatch", err)
		}
	})

	t.Run("ShortFinishRemovesFile", func(t *testing.T) {
		path := filepath.Join(dir, "c")
		w, err := Create(path, 3, 1)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := w.Append(7); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := w.Finish(); !errors.Is(err, lberrors.ErrKeyCountMismatch) {
			t.Errorf("Finish = %v, want ErrKeyCountMismatch", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("partial file still exists: %v", err)
		}
		if err := w.Append(1); !errors.Is(err, lberrors.ErrWriterClosed) {
			t.Errorf("Append after abort = %v, want ErrWriterClosed", err)
		}
	})

	t.Run("CloseAborts", func(t *testing.T) {
		path := filepath.Join(dir, "d")
		w, err := Create(path, 1, 1)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Errorf("second Close: %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("aborted file still exists: %v", err)
		}
	})

	t.Run("CloseAfterFinishKeepsFile", func(t *testing.T) {
		path := filepath.Join(dir, "e")
		w, err := Create(path, 1, 1)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := w.Append(9); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := w.Finish(); err != nil {
			t.Fatalf("Finish: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Errorf("Close after Finish: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("finished file missing: %v", err)
		}
	})
}

func TestClosedFile(t *testing.T) {
	f, err := Open(writeTestFile(t, randomKeys(t, 10, 1)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := f.Keys(); !errors.Is(err, lberrors.ErrFileClosed) {
		t.Errorf("Keys after Close = %v, want ErrFileClosed", err)
	}
	if err := f.Verify(); !errors.Is(err, lberrors.ErrFileClosed) {
		t.Errorf("Verify after Close = %v, want ErrFileClosed", err)
	}
}

func TestSamplerFromFile(t *testing.T) {
	keys := randomKeys(t, 500, 1)
	f, err := Open(writeTestFile(t, keys))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	fromFile, err := f.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}

	a, err := lenbatch.NewFixedBucketSampler(keys, 16, lenbatch.WithNumBuckets(8), lenbatch.WithShuffle(true))
	if err != nil {
		t.Fatal(err)
	}
	b, err := lenbatch.NewFixedBucketSampler(fromFile, 16, lenbatch.WithNumBuckets(8), lenbatch.WithShuffle(true))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a.Epoch(3), b.Epoch(3)); diff != "" {
		t.Errorf("sampler over file differs (-mem +file):\n%s", diff)
	}
}

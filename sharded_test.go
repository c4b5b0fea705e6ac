package lenbatch

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	lberrors "github.com/tamirms/lenbatch/errors"
)

func newBudgetSampler(t *testing.T, n int) (*BoundedBudgetSampler, Keys) {
	t.Helper()
	return newBudgetSamplerArity(t, n, 1)
}

// newBudgetSamplerArity builds a shuffled budget sampler over keys derived
// from t.Name(), so repeated calls within one test yield equal samplers.
func newBudgetSamplerArity(t *testing.T, n, arity int) (*BoundedBudgetSampler, Keys) {
	t.Helper()
	keys := randomTupleKeys(t, n, arity, 1, 64)
	s, err := NewBoundedBudgetSampler(keys, WithMaxTokens(256), WithShuffle(true), WithSeed(3))
	if err != nil {
		t.Fatal(err)
	}
	return s, keys
}

func TestShardedIteratorCoverage(t *testing.T) {
	for _, arity := range []int{1, 2} {
		for _, parts := range []int{1, 2, 3, 8, 13} {
			t.Run(fmt.Sprintf("arity=%d/parts=%d", arity, parts), func(t *testing.T) {
				var all []Batch
				total := 0
				for p := range parts {
					// Each part builds its own sampler, as a separate process would.
					s, _ := newBudgetSamplerArity(t, 1500, arity)
					it, err := NewShardedIterator(s, parts, p)
					if err != nil {
						t.Fatal(err)
					}
					batches := it.Epoch(4)
					if len(batches) != it.Len() {
						t.Fatalf("part %d: %d batches, Len %d", p, len(batches), it.Len())
					}
					all = append(all, batches...)
					total = s.Len()
				}
				assertExactCover(t, all, 1500)
				if len(all) != total {
					t.Errorf("parts hold %d batches, sampler %d", len(all), total)
				}
			})
		}
	}
}

func TestShardedIteratorEvenSize(t *testing.T) {
	s, keys := newBudgetSampler(t, 1500)
	for _, parts := range []int{3, 7, 16} {
		t.Run(fmt.Sprintf("parts=%d", parts), func(t *testing.T) {
			want := (s.Len() + parts - 1) / parts
			var all []Batch
			for p := range parts {
				it, err := NewShardedIterator(s, parts, p, WithEvenSize(true))
				if err != nil {
					t.Fatal(err)
				}
				batches := it.Epoch(0)
				if len(batches) != want || it.Len() != want {
					t.Fatalf("part %d: %d batches (Len %d), want %d", p, len(batches), it.Len(), want)
				}
				all = append(all, batches...)
			}
			for i, c := range indexCounts(t, all, keys.Len()) {
				if c == 0 {
					t.Fatalf("index %d never yielded", i)
				}
			}
		})
	}
}

func TestShardedIteratorSelection(t *testing.T) {
	src := staticSampler{{0}, {1}, {2}, {3}, {4}}
	tests := []struct {
		parts, part int
		even        bool
		want        []Batch
	}{
		{2, 0, false, []Batch{{0}, {2}, {4}}},
		{2, 1, false, []Batch{{1}, {3}}},
		{2, 1, true, []Batch{{1}, {3}, {1}}},
		{3, 2, true, []Batch{{2}, {2}}},
		{7, 6, false, []Batch{}},
		{7, 6, true, []Batch{{1}}},
		{7, 4, true, []Batch{{4}}},
	}
	for _, tt := range tests {
		it, err := NewShardedIterator(src, tt.parts, tt.part, WithEvenSize(tt.even))
		if err != nil {
			t.Fatal(err)
		}
		got := it.Epoch(0)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("parts=%d part=%d even=%v mismatch (-want +got):\n%s", tt.parts, tt.part, tt.even, diff)
		}
		if it.Len() != len(tt.want) {
			t.Errorf("parts=%d part=%d even=%v: Len = %d, want %d", tt.parts, tt.part, tt.even, it.Len(), len(tt.want))
		}
	}
}

func TestShardedIteratorPasses(t *testing.T) {
	s, _ := newBudgetSampler(t, 500)
	it, err := NewShardedIterator(s, 4, 1)
	if err != nil {
		t.Fatal(err)
	}
	first := slices.Collect(it.Batches())
	second := slices.Collect(it.Batches())
	if diff := cmp.Diff(it.Epoch(0), first); diff != "" {
		t.Errorf("first pass is not epoch 0:\n%s", diff)
	}
	if diff := cmp.Diff(it.Epoch(1), second); diff != "" {
		t.Errorf("second pass is not epoch 1:\n%s", diff)
	}
}

func TestShardedIteratorErrors(t *testing.T) {
	src := staticSampler{{0}}
	tests := []struct {
		name        string
		s           BatchSampler
		parts, part int
		want        error
	}{
		{"NilSampler", nil, 1, 0, lberrors.ErrNilSampler},
		{"ZeroParts", src, 0, 0, lberrors.ErrInvalidNumParts},
		{"NegativePart", src, 2, -1, lberrors.ErrPartIndexOutOfRange},
		{"PartTooLarge", src, 2, 2, lberrors.ErrPartIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewShardedIterator(tt.s, tt.parts, tt.part); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

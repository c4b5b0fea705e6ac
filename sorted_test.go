package lenbatch

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSortedSampler(t *testing.T) {
	tests := []struct {
		name string
		keys Keys
		opts []Option
		want []int
	}{
		{"Descending", mustScalarKeys(t, []int{5, 1, 9, 3}), nil, []int{2, 0, 3, 1}},
		{"Ascending", mustScalarKeys(t, []int{5, 1, 9, 3}), []Option{WithAscending(true)}, []int{1, 3, 0, 2}},
		{"TiesByIndex", mustScalarKeys(t, []int{4, 4, 2, 4}), nil, []int{0, 1, 3, 2}},
		{"AscendingTiesByIndex", mustScalarKeys(t, []int{4, 4, 2, 4}), []Option{WithAscending(true)}, []int{2, 0, 1, 3}},
		{"Lexicographic", mustTupleKeys(t, [][]int{{2, 5}, {2, 9}, {3, 0}}), nil, []int{2, 1, 0}},
		{"Empty", mustScalarKeys(t, nil), nil, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSortedSampler(tt.keys, tt.opts...)
			if s.Len() != len(tt.want) {
				t.Errorf("Len = %d, want %d", s.Len(), len(tt.want))
			}
			if diff := cmp.Diff(tt.want, s.Epoch(0)); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSortedSamplerRestartable(t *testing.T) {
	keys := randomScalarKeys(t, 500, 0, 50)
	s := NewSortedSampler(keys)

	first := slices.Collect(s.Indices())
	second := slices.Collect(s.Indices())
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("passes differ (-first +second):\n%s", diff)
	}
	for k := 1; k < len(first); k++ {
		a, b := keys.At(first[k-1])[0], keys.At(first[k])[0]
		if a < b || (a == b && first[k-1] > first[k]) {
			t.Fatalf("position %d: key %d (index %d) before key %d (index %d)", k, a, first[k-1], b, first[k])
		}
	}

	// Epoch hands out copies
	e := s.Epoch(3)
	e[0] = -1
	if s.Epoch(3)[0] == -1 {
		t.Error("Epoch returned the internal order")
	}
}

package vector

import (
	"reflect"
	"testing"
)

func indexes(cs []Candidate) []int {
	out := make([]int, len(cs))
	for i, c := range cs {
		out[i] = c.Index
	}
	return out
}

func TestTopK_bounded(t *testing.T) {
	top := NewTopK(3)
	scores := []float64{0.1, 0.7, 0.3, 0.9, 0.2, 0.8}
	for i, s := range scores {
		top.Offer(Candidate{Score: s, Index: i})
		if top.Len() > 3 {
			t.Fatalf("Len = %d after %d offers", top.Len(), i+1)
		}
	}
	if got := indexes(top.Sorted()); !reflect.DeepEqual(got, []int{3, 5, 1}) {
		t.Errorf("Sorted = %v, want [3 5 1]", got)
	}
}

func TestTopK_fewerThanK(t *testing.T) {
	top := NewTopK(5)
	top.Offer(Candidate{Score: 0.2, Index: 0})
	top.Offer(Candidate{Score: 0.4, Index: 1})
	if top.Len() != 2 {
		t.Fatalf("Len = %d, want 2", top.Len())
	}
	if got := indexes(top.Sorted()); !reflect.DeepEqual(got, []int{1, 0}) {
		t.Errorf("Sorted = %v", got)
	}
}

func TestTopK_lowerScoreLeavesFullSetUnchanged(t *testing.T) {
	top := NewTopK(2)
	top.Offer(Candidate{Score: 0.5, Index: 0})
	top.Offer(Candidate{Score: 0.6, Index: 1})
	before := top.Sorted()
	if top.Offer(Candidate{Score: 0.1, Index: 2}) {
		t.Error("lower-scoring candidate was admitted")
	}
	if !reflect.DeepEqual(before, top.Sorted()) {
		t.Errorf("set changed: %v -> %v", before, top.Sorted())
	}
}

func TestTopK_tiesKeepEarlierRows(t *testing.T) {
	top := NewTopK(2)
	for i := 0; i < 4; i++ {
		top.Offer(Candidate{Score: 0.5, Index: i})
	}
	if got := indexes(top.Sorted()); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("Sorted = %v, want [0 1]", got)
	}

	// A higher score evicts the later of the tied minimum members.
	top.Offer(Candidate{Score: 0.9, Index: 4})
	if got := indexes(top.Sorted()); !reflect.DeepEqual(got, []int{4, 0}) {
		t.Errorf("Sorted = %v, want [4 0]", got)
	}
}

func TestTopK_min(t *testing.T) {
	top := NewTopK(2)
	if _, ok := top.Min(); ok {
		t.Error("empty set reported a minimum")
	}
	top.Offer(Candidate{Score: 0.3, Index: 0})
	top.Offer(Candidate{Score: 0.1, Index: 1})
	if m, _ := top.Min(); m.Index != 1 {
		t.Errorf("Min = %+v", m)
	}
}

func TestTopK_zero(t *testing.T) {
	top := NewTopK(0)
	if top.Offer(Candidate{Score: 1}) || top.Len() != 0 {
		t.Error("zero-capacity set admitted a candidate")
	}
}

package vector

import (
	"container/heap"
	"sort"
)

// Candidate is a scored corpus row, identified by its position in the corpus.
type Candidate struct {
	Score float64
	Index int
}

// worse orders candidates so the next one to evict sorts first: lower score, then later row.
func worse(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Index > b.Index
}

type candidateHeap []Candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)        { *h = append(*h, x.(Candidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// TopK keeps the k best candidates seen so far. Once full, a candidate is admitted only
// if its score is strictly greater than the current minimum, which it then evicts.
// Among members tied at the minimum the later row goes first.
type TopK struct {
	k int
	h candidateHeap
}

// NewTopK returns an empty set bounded to k members.
func NewTopK(k int) *TopK {
	if k < 0 {
		k = 0
	}
	return &TopK{k: k, h: make(candidateHeap, 0, k)}
}

// Offer considers c for membership and reports whether it was kept.
func (t *TopK) Offer(c Candidate) bool {
	if t.k == 0 {
		return false
	}
	if len(t.h) < t.k {
		heap.Push(&t.h, c)
		return true
	}
	if c.Score <= t.h[0].Score {
		return false
	}
	t.h[0] = c
	heap.Fix(&t.h, 0)
	return true
}

// Len returns the current number of members.
func (t *TopK) Len() int { return len(t.h) }

// Cap returns the bound k.
func (t *TopK) Cap() int { return t.k }

// Min returns the member that would be evicted next.
func (t *TopK) Min() (Candidate, bool) {
	if len(t.h) == 0 {
		return Candidate{}, false
	}
	return t.h[0], true
}

// Sorted returns the members by descending score, ties by ascending row index.
// The set itself is left untouched.
func (t *TopK) Sorted() []Candidate {
	out := make([]Candidate, len(t.h))
	copy(out, t.h)
	sort.Slice(out, func(i, j int) bool { return worse(out[j], out[i]) })
	return out
}

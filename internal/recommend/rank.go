// Package recommend ranks corpus rows against a pair of query embeddings and serves
// tasting-note recommendations.
package recommend

import (
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/sommelier/internal/corpus"
	"github.com/hyperjump/sommelier/internal/metrics"
	"github.com/hyperjump/sommelier/internal/vector"
)

var (
	// ErrInvalidK is returned for a result count below one.
	ErrInvalidK = errors.New("k must be at least 1")
	// ErrEmptyCorpus is returned when there are no rows to rank.
	ErrEmptyCorpus = errors.New("corpus is empty")
	// ErrInsufficientResults is returned when the corpus holds fewer than k rows. A short
	// list is never returned in its place.
	ErrInsufficientResults = errors.New("failed to retrieve enough results")
)

// Result holds the ids of the best rows for each criterion, best first.
type Result struct {
	Search    []string `json:"search"`
	Recommend []string `json:"recommend"`
}

// Rank scores every row of c against the two query vectors and keeps the k best per
// criterion: Recommend by the similarity column, Search by the search column. Ordering is
// by descending cosine score, ties broken by earlier row first.
func Rank(c *corpus.Corpus, similarity, search []float64, k int) (*Result, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if c.Len() == 0 {
		return nil, ErrEmptyCorpus
	}
	if len(similarity) != c.SimilarityDims {
		return nil, fmt.Errorf("similarity query: %w",
			&vector.DimensionMismatchError{Got: len(similarity), Expected: c.SimilarityDims})
	}
	if len(search) != c.SearchDims {
		return nil, fmt.Errorf("search query: %w",
			&vector.DimensionMismatchError{Got: len(search), Expected: c.SearchDims})
	}
	if c.Len() < k {
		return nil, fmt.Errorf("%w: corpus has %d rows, need %d", ErrInsufficientResults, c.Len(), k)
	}

	start := time.Now()
	byRecommend := vector.NewTopK(k)
	bySearch := vector.NewTopK(k)
	for i, row := range c.Rows {
		a, err := vector.Cosine(similarity, row.Similarity)
		if err != nil {
			return nil, fmt.Errorf("row %d similarity: %w", i, err)
		}
		b, err := vector.Cosine(search, row.Search)
		if err != nil {
			return nil, fmt.Errorf("row %d search: %w", i, err)
		}
		byRecommend.Offer(vector.Candidate{Score: a, Index: i})
		bySearch.Offer(vector.Candidate{Score: b, Index: i})
	}
	metrics.RankDuration.Observe(time.Since(start).Seconds())

	return &Result{
		Recommend: ids(c, byRecommend.Sorted()),
		Search:    ids(c, bySearch.Sorted()),
	}, nil
}

func ids(c *corpus.Corpus, cands []vector.Candidate) []string {
	out := make([]string, len(cands))
	for i, cand := range cands {
		out[i] = c.Rows[cand.Index].ID
	}
	return out
}

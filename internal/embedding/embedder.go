// Package embedding defines the text embedding capability and its caching and test
// implementations.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// Default embedding models. The corpus similarity column was produced with
// ModelSimilarity and the search column with the document counterpart of ModelSearch.
const (
	ModelSimilarity = "text-similarity-curie-001"
	ModelSearch     = "text-search-curie-query-001"
)

// ErrUpstream means the embedding capability did not return a usable vector.
var ErrUpstream = errors.New("embedding upstream failure")

// Embedder produces a vector embedding of text with the named model.
type Embedder interface {
	Embed(ctx context.Context, text, model string) ([]float64, error)
}

// Require embeds text with e and insists on a usable vector. Any failure, including an
// empty result, is reported as ErrUpstream.
func Require(ctx context.Context, e Embedder, text, model string) ([]float64, error) {
	v, err := e.Embed(ctx, text, model)
	if err != nil {
		if errors.Is(err, ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrUpstream, model, err)
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: %s returned an empty embedding", ErrUpstream, model)
	}
	return v, nil
}

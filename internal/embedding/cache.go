package embedding

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hyperjump/sommelier/internal/metrics"
)

// CachedEmbedder memoizes embeddings per (model, text) in an LRU cache. Failed calls are
// not cached.
type CachedEmbedder struct {
	next  Embedder
	cache *lru.Cache[string, []float64]
}

// NewCachedEmbedder wraps next with a cache holding up to size entries.
func NewCachedEmbedder(next Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = 1000
	}
	cache, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{next: next, cache: cache}, nil
}

// Embed returns the cached embedding or asks the wrapped embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text, model string) ([]float64, error) {
	key := model + "\x00" + text
	if v, ok := c.cache.Get(key); ok {
		metrics.EmbeddingCacheHits.Inc()
		return v, nil
	}
	metrics.EmbeddingCacheMisses.Inc()
	v, err := c.next.Embed(ctx, text, model)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, v)
	return v, nil
}

// Len returns the number of cached embeddings.
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}

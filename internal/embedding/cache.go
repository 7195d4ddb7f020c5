package embedding

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/ristretto"
)

// CachedEmbedder memoizes vectors by exact text. It is meant for repeated
// queries; each stored entry is still embedded once by the store.
type CachedEmbedder struct {
	next   Embedder
	cache  *ristretto.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedEmbedder wraps next with a cache holding up to size vectors.
func NewCachedEmbedder(next Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		return nil, fmt.Errorf("embedding cache: size must be positive, got %d", size)
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(size) * 10,
		MaxCost:     int64(size),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	return &CachedEmbedder{next: next, cache: cache}, nil
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	if v, ok := c.cache.Get(text); ok {
		c.hits.Add(1)
		return copyVector(v.(Vector)), nil
	}
	c.misses.Add(1)
	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, copyVector(v), 1)
	return v, nil
}

func (c *CachedEmbedder) Dims() int { return c.next.Dims() }

// Stats returns cache hit and miss counts.
func (c *CachedEmbedder) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Wait blocks until buffered cache writes are applied.
func (c *CachedEmbedder) Wait() { c.cache.Wait() }

// Close releases the cache.
func (c *CachedEmbedder) Close() { c.cache.Close() }

func copyVector(v Vector) Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

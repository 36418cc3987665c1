package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"docingest/internal/port"
)

// EmbeddingCache keeps recently computed vectors keyed by model and text.
type EmbeddingCache struct {
	lru *expirable.LRU[string, []float32]
}

func NewEmbeddingCache(maxSize int, ttl time.Duration) *EmbeddingCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &EmbeddingCache{lru: expirable.NewLRU[string, []float32](maxSize, nil, ttl)}
}

func cacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func (c *EmbeddingCache) Get(model, text string) ([]float32, bool) {
	return c.lru.Get(cacheKey(model, text))
}

func (c *EmbeddingCache) Put(model, text string, vec []float32) {
	c.lru.Add(cacheKey(model, text), vec)
}

func (c *EmbeddingCache) Invalidate() {
	c.lru.Purge()
}

func (c *EmbeddingCache) Size() int {
	return c.lru.Len()
}

// CachedEmbedder answers repeated texts from the cache and sends only the
// misses to the wrapped embedder, in one call.
type CachedEmbedder struct {
	port.Embedder
	cache *EmbeddingCache
}

func NewCachedEmbedder(embedder port.Embedder, cache *EmbeddingCache) *CachedEmbedder {
	return &CachedEmbedder{
		Embedder: embedder,
		cache:    cache,
	}
}

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	model := e.Embedder.ModelName()
	out := make([][]float32, len(texts))

	var (
		missTexts []string
		missIdx   []int
	)
	for i, t := range texts {
		if vec, hit := e.cache.Get(model, t); hit {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := e.Embedder.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	// A short answer is passed through for the caller to reject.
	if len(vecs) != len(missTexts) {
		return vecs, nil
	}

	for j, vec := range vecs {
		out[missIdx[j]] = vec
		e.cache.Put(model, missTexts[j], vec)
	}
	return out, nil
}

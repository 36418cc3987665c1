package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls [][]string
	err   error
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls = append(e.calls, texts)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (e *countingEmbedder) Dimension() int    { return 1 }
func (e *countingEmbedder) ModelName() string { return "count" }

func TestCachedEmbedderSendsOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, NewEmbeddingCache(10, time.Minute))
	ctx := context.Background()

	_, err := e.Embed(ctx, []string{"a", "bb"})
	require.NoError(t, err)

	vecs, err := e.Embed(ctx, []string{"bb", "ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {3}, {1}}, vecs)

	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"ccc"}, inner.calls[1])

	_, err = e.Embed(ctx, []string{"a", "ccc"})
	require.NoError(t, err)
	assert.Len(t, inner.calls, 2)
}

func TestCachedEmbedderDoesNotCacheErrors(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("boom")}
	c := NewEmbeddingCache(10, time.Minute)
	e := NewCachedEmbedder(inner, c)

	_, err := e.Embed(context.Background(), []string{"a"})
	assert.Error(t, err)
	assert.Equal(t, 0, c.Size())
}

func TestEmbeddingCacheKeyedByModel(t *testing.T) {
	c := NewEmbeddingCache(10, time.Minute)
	c.Put("m1", "text", []float32{1})

	_, hit := c.Get("m2", "text")
	assert.False(t, hit)

	vec, hit := c.Get("m1", "text")
	assert.True(t, hit)
	assert.Equal(t, []float32{1}, vec)

	c.Invalidate()
	assert.Equal(t, 0, c.Size())
}

func TestEmbeddingCacheEvictsOldest(t *testing.T) {
	c := NewEmbeddingCache(2, time.Minute)
	c.Put("m", "a", []float32{1})
	c.Put("m", "b", []float32{2})
	c.Put("m", "c", []float32{3})

	_, hit := c.Get("m", "a")
	assert.False(t, hit)
	assert.Equal(t, 2, c.Size())
}

package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// newEmbeddingsServer answers /embeddings with [len(text), index] per input,
// returning the data in reverse order.
func newEmbeddingsServer(t *testing.T, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{float64(len(req.Input[i])), float64(i)},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func TestOpenAIEmbedderEmbed(t *testing.T) {
	var requests atomic.Int32
	srv := newEmbeddingsServer(t, &requests)
	defer srv.Close()

	e, err := NewOpenAICompatibleEmbedder("openai", "test-key", "text-embedding-3-small", srv.URL+"/v1", 0)
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {2, 1}, {3, 2}}, vecs)
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, 1536, e.Dimension())
	assert.Equal(t, "text-embedding-3-small", e.ModelName())
}

func TestOpenAIEmbedderBatches(t *testing.T) {
	var requests atomic.Int32
	srv := newEmbeddingsServer(t, &requests)
	defer srv.Close()

	e, err := NewOpenAICompatibleEmbedder("jina", "test-key", "jina-embeddings-v3", srv.URL+"/v1", 0)
	require.NoError(t, err)
	e.WithBatchSize(2)

	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	assert.Equal(t, float32(5), vecs[4][0])
	assert.Equal(t, int32(3), requests.Load())
	assert.Equal(t, 1024, e.Dimension())
}

func TestOpenAIEmbedderEmptyInput(t *testing.T) {
	e, err := NewOpenAIEmbedder("test-key", "text-embedding-3-large")
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
	assert.Equal(t, 3072, e.Dimension())
}

func TestOpenAIEmbedderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	e, err := NewOpenAICompatibleEmbedder("deepseek", "test-key", "x", srv.URL, 8)
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deepseek embeddings request failed")
}

func TestOpenAIEmbedderRequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder("", "text-embedding-3-small")
	assert.Error(t, err)

	e, err := NewOllamaEmbedder("nomic-embed-text", "")
	require.NoError(t, err)
	assert.Equal(t, 768, e.Dimension())
	assert.Equal(t, "ollama", e.Provider())
}

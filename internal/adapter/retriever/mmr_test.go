package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docingest/internal/domain"
)

func hit(id string, score float64, text string) domain.ScoredPoint {
	return domain.ScoredPoint{ID: id, Score: score, Payload: map[string]any{"text": text}}
}

func ids(hits []domain.ScoredPoint) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func TestMMRPrefersDiverseHits(t *testing.T) {
	reranker := NewMMRReranker(0.5, 0.9)

	results := reranker.Rerank([]domain.ScoredPoint{
		hit("c1", 1.0, "login user password session"),
		hit("c2", 0.95, "login user password token"),
		hit("c3", 0.9, "database query connection pool"),
	}, 2)

	assert.Equal(t, []string{"c1", "c3"}, ids(results))
}

func TestMMRDropsDuplicates(t *testing.T) {
	reranker := NewMMRReranker(0.7, 0.8)

	// c2 is a child window of c1 and shares all of its words.
	results := reranker.Rerank([]domain.ScoredPoint{
		hit("c1", 0.9, "Revenue grew strongly in the third quarter."),
		hit("c2", 0.8, "revenue grew strongly third quarter"),
	}, 2)

	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ID)
}

func TestMMRLambdaOneKeepsOrder(t *testing.T) {
	reranker := NewMMRReranker(1.0, 1.0)

	results := reranker.Rerank([]domain.ScoredPoint{
		hit("a", 0.9, "alpha beta"),
		hit("b", 0.8, "alpha beta"),
		hit("c", 0.7, "gamma delta"),
	}, 3)

	assert.Equal(t, []string{"a", "b", "c"}, ids(results))
}

func TestMMRLimit(t *testing.T) {
	reranker := NewMMRReranker(0.7, 0.9)

	results := reranker.Rerank([]domain.ScoredPoint{
		hit("a", 0.9, "alpha"),
		hit("b", 0.8, "beta"),
		hit("c", 0.7, "gamma"),
	}, 2)
	assert.Len(t, results, 2)

	results = reranker.Rerank([]domain.ScoredPoint{hit("a", 0.9, "alpha")}, 5)
	assert.Len(t, results, 1)
}

func TestMMREmptyCandidates(t *testing.T) {
	reranker := NewMMRReranker(0.7, 0.8)

	assert.Nil(t, reranker.Rerank(nil, 10))
	assert.Nil(t, reranker.Rerank([]domain.ScoredPoint{}, 10))
}

func TestJaccardSimilarity(t *testing.T) {
	set := func(words ...string) map[string]struct{} {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			m[w] = struct{}{}
		}
		return m
	}

	tests := []struct {
		name     string
		a, b     map[string]struct{}
		expected float64
	}{
		{"identical", set("a", "b", "c"), set("a", "b", "c"), 1.0},
		{"no overlap", set("a", "b", "c"), set("d", "e", "f"), 0.0},
		{"half overlap", set("a", "b"), set("b", "c"), 1.0 / 3.0},
		{"empty a", set(), set("a", "b"), 0.0},
		{"empty b", set("a", "b"), set(), 0.0},
		{"both empty", set(), set(), 1.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, jaccardSimilarity(tc.a, tc.b), 0.001)
		})
	}
}

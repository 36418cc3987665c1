package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docingest/internal/domain"
	"docingest/internal/port"
)

// SearchUseCase embeds a query and looks it up in a collection.
type SearchUseCase struct {
	store    port.VectorStore
	embedder port.Embedder
	minScore float64 // Filter results below this score (0 = disabled)

	reranker   port.Reranker
	candidates int // hits fetched per requested result when reranking
}

func NewSearchUseCase(store port.VectorStore, embedder port.Embedder, minScore float64) *SearchUseCase {
	return &SearchUseCase{store: store, embedder: embedder, minScore: minScore}
}

// WithReranker fetches limit*candidates hits and lets r choose limit of them.
func (u *SearchUseCase) WithReranker(r port.Reranker, candidates int) *SearchUseCase {
	u.reranker = r
	u.candidates = max(candidates, 1)
	return u
}

// Search returns up to limit hits from collection, best first.
func (u *SearchUseCase) Search(ctx context.Context, collection, query string, limit int, filters map[string]string) ([]domain.ScoredPoint, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}
	if limit <= 0 {
		limit = 5
	}

	vecs, err := u.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("failed to embed query: got %d vectors", len(vecs))
	}

	fetch := limit
	if u.reranker != nil {
		fetch = limit * u.candidates
	}
	hits, err := u.store.Search(ctx, collection, vecs[0], fetch, filters)
	if err != nil {
		return nil, err
	}

	if u.minScore > 0 {
		hits = u.filterByThreshold(hits)
	}
	if u.reranker != nil {
		hits = u.reranker.Rerank(hits, limit)
	}
	return hits, nil
}

// filterByThreshold removes results below the minimum score threshold.
func (u *SearchUseCase) filterByThreshold(hits []domain.ScoredPoint) []domain.ScoredPoint {
	filtered := make([]domain.ScoredPoint, 0, len(hits))
	for _, h := range hits {
		if h.Score >= u.minScore {
			filtered = append(filtered, h)
		}
	}
	return filtered
}

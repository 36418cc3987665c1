package port

import "docingest/internal/domain"

// Chunker splits text into an ordered chunk sequence. Caller metadata is
// copied into every chunk before strategy specific keys are applied.
type Chunker interface {
	Chunk(text string, metadata *domain.Metadata) []domain.Chunk
}

// Reranker reorders search hits, best first, returning at most k.
type Reranker interface {
	Rerank(candidates []domain.ScoredPoint, k int) []domain.ScoredPoint
}

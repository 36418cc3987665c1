package retriever

import (
	"docingest/internal/adapter/analyzer"
	"docingest/internal/domain"
)

// MMRReranker diversifies search hits with Maximal Marginal Relevance,
// comparing hits by the word sets of their payload text. Overlapping
// windows and parent/child pairs of the same passage are the usual
// near-duplicates it removes.
type MMRReranker struct {
	lambda       float64
	dedupJaccard float64
	tokenizer    *analyzer.Tokenizer
}

// NewMMRReranker creates a new MMR reranker. Hits whose similarity to an
// already selected hit exceeds dedupJaccard are dropped.
func NewMMRReranker(lambda, dedupJaccard float64) *MMRReranker {
	return &MMRReranker{
		lambda:       lambda,
		dedupJaccard: dedupJaccard,
		tokenizer:    analyzer.NewTokenizer(),
	}
}

// Rerank picks up to k hits from candidates, which must be best first.
// MMR(c) = λ * relevance(c) - (1-λ) * max_similarity(c, selected)
func (r *MMRReranker) Rerank(candidates []domain.ScoredPoint, k int) []domain.ScoredPoint {
	if len(candidates) == 0 {
		return nil
	}
	k = min(k, len(candidates))

	// Normalize scores to [0, 1] for fair comparison
	maxScore := candidates[0].Score
	for _, c := range candidates {
		maxScore = max(maxScore, c.Score)
	}
	if maxScore <= 0 {
		maxScore = 1
	}

	terms := make([]map[string]struct{}, len(candidates))
	for i, c := range candidates {
		text, _ := c.Payload["text"].(string)
		terms[i] = r.tokenizer.Terms(text)
	}

	selected := make([]int, 0, k)
	remaining := make([]int, len(candidates))
	for i := range remaining {
		remaining[i] = i
	}

	for len(selected) < k && len(remaining) > 0 {
		bestPos := -1
		bestMMR := -1e9

		for pos, i := range remaining {
			relevance := candidates[i].Score / maxScore

			maxSim := 0.0
			for _, j := range selected {
				maxSim = max(maxSim, jaccardSimilarity(terms[i], terms[j]))
			}
			if maxSim > r.dedupJaccard {
				continue
			}

			mmr := r.lambda*relevance - (1-r.lambda)*maxSim
			if mmr > bestMMR {
				bestMMR = mmr
				bestPos = pos
			}
		}

		if bestPos == -1 {
			// Everything left duplicates a selected hit.
			break
		}

		selected = append(selected, remaining[bestPos])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	out := make([]domain.ScoredPoint, len(selected))
	for n, i := range selected {
		out[n] = candidates[i]
	}
	return out
}

func jaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for t := range a {
		if _, exists := b[t]; exists {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

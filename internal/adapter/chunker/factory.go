package chunker

import (
	"fmt"

	"docingest/internal/domain"
	"docingest/internal/logger"
	"docingest/internal/port"
)

var (
	_ port.Chunker = (*FixedChunker)(nil)
	_ port.Chunker = (*SemanticChunker)(nil)
	_ port.Chunker = (*HierarchicalChunker)(nil)
)

// Options carries every sizing parameter a strategy may need. Each strategy
// reads only its own fields.
type Options struct {
	Strategy     domain.Strategy
	ChunkSize    int
	ChunkOverlap int

	// Hierarchical. Zero selects the default.
	ParentChunkSize int
	ChildChunkSize  int

	// Semantic. A nil threshold selects the default; MaxChunkSize is ChunkSize.
	SimilarityThreshold *float64
	MinChunkSize        int
	EmbedFunc           EmbedFunc
	Logger              logger.Logger
}

// New builds the chunker for opts.Strategy.
func New(opts Options) (port.Chunker, error) {
	switch opts.Strategy {
	case domain.StrategyFixed:
		c, err := NewFixedChunker(opts.ChunkSize, opts.ChunkOverlap)
		if err != nil {
			return nil, err
		}
		return c, nil

	case domain.StrategySemantic:
		threshold := DefaultSimilarityThreshold
		if opts.SimilarityThreshold != nil {
			threshold = *opts.SimilarityThreshold
		}
		minSize := opts.MinChunkSize
		if minSize == 0 {
			minSize = DefaultMinChunkSize
		}
		c, err := NewSemanticChunker(
			WithEmbedFunc(opts.EmbedFunc),
			WithSimilarityThreshold(threshold),
			WithMinChunkSize(minSize),
			WithMaxChunkSize(opts.ChunkSize),
			WithLogger(opts.Logger),
		)
		if err != nil {
			return nil, err
		}
		return c, nil

	case domain.StrategyHierarchical:
		parentSize := opts.ParentChunkSize
		if parentSize == 0 {
			parentSize = DefaultParentChunkSize
		}
		childSize := opts.ChildChunkSize
		if childSize == 0 {
			childSize = DefaultChildChunkSize
		}
		c, err := NewHierarchicalChunker(parentSize, childSize, opts.ChunkOverlap)
		if err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, opts.Strategy)
	}
}

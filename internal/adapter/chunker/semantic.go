package chunker

import (
	"fmt"
	"strings"

	"docingest/internal/domain"
	"docingest/internal/logger"
	"docingest/internal/vecmath"
)

const (
	DefaultSimilarityThreshold = 0.7
	DefaultMinChunkSize        = 100
	DefaultMaxChunkSize        = 1000
)

// EmbedFunc embeds a single piece of text. It may be slow or fail; the
// semantic chunker never retries it.
type EmbedFunc func(text string) ([]float32, error)

// SemanticChunker groups sentences into chunks. With an EmbedFunc it splits
// where adjacent sentences diverge; without one it packs sentences up to
// maxChunkSize.
type SemanticChunker struct {
	embed               EmbedFunc
	similarityThreshold float64
	minChunkSize        int
	maxChunkSize        int
	log                 logger.Logger
}

type SemanticOption func(*SemanticChunker)

// WithEmbedFunc enables similarity grouping. A nil func leaves it disabled.
func WithEmbedFunc(fn EmbedFunc) SemanticOption {
	return func(c *SemanticChunker) { c.embed = fn }
}

func WithSimilarityThreshold(threshold float64) SemanticOption {
	return func(c *SemanticChunker) { c.similarityThreshold = threshold }
}

func WithMinChunkSize(size int) SemanticOption {
	return func(c *SemanticChunker) { c.minChunkSize = size }
}

func WithMaxChunkSize(size int) SemanticOption {
	return func(c *SemanticChunker) { c.maxChunkSize = size }
}

func WithLogger(l logger.Logger) SemanticOption {
	return func(c *SemanticChunker) {
		if l != nil {
			c.log = l
		}
	}
}

func NewSemanticChunker(opts ...SemanticOption) (*SemanticChunker, error) {
	c := &SemanticChunker{
		similarityThreshold: DefaultSimilarityThreshold,
		minChunkSize:        DefaultMinChunkSize,
		maxChunkSize:        DefaultMaxChunkSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Default()
	}

	if c.similarityThreshold < 0 || c.similarityThreshold > 1 {
		return nil, fmt.Errorf("%w: similarity_threshold must be within [0, 1], got %g", domain.ErrInvalidConfig, c.similarityThreshold)
	}
	if c.minChunkSize < 0 {
		return nil, fmt.Errorf("%w: min_chunk_size must be non-negative, got %d", domain.ErrInvalidConfig, c.minChunkSize)
	}
	if c.maxChunkSize <= 0 {
		return nil, fmt.Errorf("%w: max_chunk_size must be positive, got %d", domain.ErrInvalidConfig, c.maxChunkSize)
	}
	return c, nil
}

// Chunk splits text into sentences and groups them. An embedding failure
// anywhere in the input switches the whole input to sentence packing.
func (c *SemanticChunker) Chunk(text string, metadata *domain.Metadata) []domain.Chunk {
	if text == "" {
		return nil
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	if c.embed == nil {
		return c.chunkBySentences(sentences, metadata)
	}

	embeddings, err := c.embedSentences(sentences)
	if err != nil {
		c.log.Warn("embedding sentences failed, falling back to sentence chunking",
			"error", err, "sentences", len(sentences))
		return c.chunkBySentences(sentences, metadata)
	}

	return c.chunkBySimilarity(sentences, embeddings, metadata)
}

// embedSentences calls the EmbedFunc once per sentence, in order.
func (c *SemanticChunker) embedSentences(sentences []sentence) (embeddings [][]float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			embeddings, err = nil, fmt.Errorf("embed func panicked: %v", r)
		}
	}()

	embeddings = make([][]float32, len(sentences))
	for i, s := range sentences {
		vec, err := c.embed(s.text)
		if err != nil {
			return nil, fmt.Errorf("embed sentence %d: %w", i, err)
		}
		if i > 0 && len(vec) != len(embeddings[0]) {
			return nil, fmt.Errorf("%w: sentence %d has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, i, len(vec), len(embeddings[0]))
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// chunkBySentences packs sentences until the next one would push the group
// past maxChunkSize. A flushed chunk ends at the sentence that overflowed,
// not the last sentence it contains.
func (c *SemanticChunker) chunkBySentences(sentences []sentence, metadata *domain.Metadata) []domain.Chunk {
	var chunks []domain.Chunk
	var group []string
	groupSize := 0
	groupStart := sentences[0].start

	for _, s := range sentences {
		sentenceLen := s.length()

		if groupSize+sentenceLen > c.maxChunkSize && len(group) > 0 {
			chunks = append(chunks, newSemanticChunk(group, groupStart, s.end, domain.ChunkSemanticFallback, len(chunks), metadata))
			group = nil
			groupSize = 0
			groupStart = s.start
		}

		group = append(group, s.text)
		groupSize += sentenceLen
	}

	if len(group) > 0 {
		end := sentences[len(sentences)-1].end
		chunks = append(chunks, newSemanticChunk(group, groupStart, end, domain.ChunkSemanticFallback, len(chunks), metadata))
	}

	return chunks
}

// chunkBySimilarity starts a new group before sentence i when it is
// dissimilar to sentence i-1 or would overflow maxChunkSize, provided the
// current group already holds at least minChunkSize characters.
func (c *SemanticChunker) chunkBySimilarity(sentences []sentence, embeddings [][]float32, metadata *domain.Metadata) []domain.Chunk {
	var chunks []domain.Chunk

	group := []sentence{sentences[0]}
	groupSize := sentences[0].length()

	for i := 1; i < len(sentences); i++ {
		s := sentences[i]
		sentenceLen := s.length()
		similarity := vecmath.Cosine(embeddings[i-1], embeddings[i])

		shouldSplit := similarity < c.similarityThreshold || groupSize+sentenceLen > c.maxChunkSize
		if shouldSplit && groupSize >= c.minChunkSize {
			chunks = append(chunks, groupChunk(group, domain.ChunkSemantic, len(chunks), metadata))
			group = []sentence{s}
			groupSize = sentenceLen
			continue
		}

		group = append(group, s)
		groupSize += sentenceLen
	}

	chunks = append(chunks, groupChunk(group, domain.ChunkSemantic, len(chunks), metadata))
	return chunks
}

func groupChunk(group []sentence, chunkType domain.ChunkType, index int, metadata *domain.Metadata) domain.Chunk {
	texts := make([]string, len(group))
	for i, s := range group {
		texts[i] = s.text
	}
	return newSemanticChunk(texts, group[0].start, group[len(group)-1].end, chunkType, index, metadata)
}

func newSemanticChunk(texts []string, start, end int, chunkType domain.ChunkType, index int, metadata *domain.Metadata) domain.Chunk {
	meta := metadata.Clone().
		Set(domain.KeyChunkIndex, index).
		Set(domain.KeyChunkType, string(chunkType)).
		Set(domain.KeyNumSentences, len(texts))

	return domain.Chunk{
		Text:      strings.Join(texts, " "),
		StartChar: start,
		EndChar:   end,
		Metadata:  meta,
	}
}

// HasEmbedFunc reports whether similarity grouping is enabled.
func (c *SemanticChunker) HasEmbedFunc() bool {
	return c.embed != nil
}

func (c *SemanticChunker) String() string {
	return fmt.Sprintf("SemanticChunker(threshold=%g, min=%d, max=%d)", c.similarityThreshold, c.minChunkSize, c.maxChunkSize)
}

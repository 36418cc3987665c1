package domain

import (
	"fmt"
	"strings"
)

// Strategy names a chunking algorithm. The set is closed.
type Strategy string

const (
	StrategyFixed        Strategy = "fixed"
	StrategySemantic     Strategy = "semantic"
	StrategyHierarchical Strategy = "hierarchical"
)

// Strategies lists every supported strategy.
var Strategies = []Strategy{StrategyFixed, StrategySemantic, StrategyHierarchical}

// ParseStrategy maps a user supplied name onto a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Strategies {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

func (s Strategy) String() string {
	return string(s)
}

// ChunkType is the value of the chunk_type metadata key.
type ChunkType string

const (
	ChunkFixed              ChunkType = "fixed"
	ChunkHierarchicalParent ChunkType = "hierarchical_parent"
	ChunkHierarchicalChild  ChunkType = "hierarchical_child"
	ChunkSemantic           ChunkType = "semantic"
	ChunkSemanticFallback   ChunkType = "semantic_fallback"
)

// Metadata keys written by the chunkers. Downstream storage and previews
// depend on these names.
const (
	KeyChunkIndex       = "chunk_index"
	KeyChunkType        = "chunk_type"
	KeyChunkSize        = "chunk_size"
	KeyNumSentences     = "num_sentences"
	KeyParentIndex      = "parent_index"
	KeyChildIndex       = "child_index"
	KeyIsParent         = "is_parent"
	KeyHasChildren      = "has_children"
	KeyParentChunkIndex = "parent_chunk_index"
)

// Chunk is a span of the original text plus its metadata. StartChar and
// EndChar are character (rune) offsets into the text handed to the chunker.
type Chunk struct {
	Text      string    `json:"text"`
	StartChar int       `json:"start_char"`
	EndChar   int       `json:"end_char"`
	Metadata  *Metadata `json:"metadata"`
}

// Index returns the chunk_index metadata value, or -1.
func (c Chunk) Index() int {
	if i, ok := c.Metadata.Int(KeyChunkIndex); ok {
		return i
	}
	return -1
}

// Type returns the chunk_type metadata value.
func (c Chunk) Type() ChunkType {
	v, _ := c.Metadata.Get(KeyChunkType)
	switch t := v.(type) {
	case ChunkType:
		return t
	case string:
		return ChunkType(t)
	}
	return ""
}

// IsParent reports whether the chunk is a hierarchical parent.
func (c Chunk) IsParent() bool {
	b, _ := c.Metadata.Bool(KeyIsParent)
	return b
}

// Document is an uploaded file awaiting ingestion.
type Document struct {
	ID       string
	Filename string
	Path     string
	Size     int64
}

// Metadata returns the file level metadata merged into every chunk.
func (d Document) Metadata() *Metadata {
	return MetadataOf(
		"file_id", d.ID,
		"filename", d.Filename,
		"file_size", d.Size,
	)
}

// ChunkPreview is a truncated view of a stored chunk.
type ChunkPreview struct {
	ChunkID   string    `json:"chunk_id"`
	Text      string    `json:"text"`
	StartChar int       `json:"start_char"`
	EndChar   int       `json:"end_char"`
	Metadata  *Metadata `json:"metadata"`
}

// IngestResult summarises one processed document.
type IngestResult struct {
	FileID         string         `json:"file_id"`
	Filename       string         `json:"filename"`
	FileSize       int64          `json:"file_size"`
	TotalChunks    int            `json:"total_chunks"`
	Strategy       Strategy       `json:"chunking_strategy"`
	EmbeddingModel string         `json:"embedding_model"`
	Collection     string         `json:"collection_name"`
	Preview        []ChunkPreview `json:"chunks_preview"`
	PointIDs       []string       `json:"point_ids"`
	Status         string         `json:"status"`
}

// CollectionInfo describes a vector store collection.
type CollectionInfo struct {
	Name                string `json:"name"`
	VectorsCount        int    `json:"vectors_count"`
	IndexedVectorsCount int    `json:"indexed_vectors_count"`
	PointsCount         int    `json:"points_count"`
	Status              string `json:"status"`
}

// ScoredPoint is a similarity search hit.
type ScoredPoint struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

package chunker

import (
	"fmt"

	"docingest/internal/domain"
)

const (
	DefaultParentChunkSize = 2048
	DefaultChildChunkSize  = 512
)

// HierarchicalChunker emits coarse parent windows, each immediately followed
// by the finer child windows cut from that parent's text.
type HierarchicalChunker struct {
	parentChunkSize   int
	childChunkSize    int
	childChunkOverlap int

	parent *FixedChunker
	child  *FixedChunker
}

func NewHierarchicalChunker(parentChunkSize, childChunkSize, childChunkOverlap int) (*HierarchicalChunker, error) {
	if childChunkSize >= parentChunkSize {
		return nil, fmt.Errorf("%w: child_chunk_size %d must be less than parent_chunk_size %d",
			domain.ErrInvalidConfig, childChunkSize, parentChunkSize)
	}

	parent, err := NewFixedChunker(parentChunkSize, 0)
	if err != nil {
		return nil, fmt.Errorf("parent tier: %w", err)
	}
	child, err := NewFixedChunker(childChunkSize, childChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("child tier: %w", err)
	}

	return &HierarchicalChunker{
		parentChunkSize:   parentChunkSize,
		childChunkSize:    childChunkSize,
		childChunkOverlap: childChunkOverlap,
		parent:            parent,
		child:             child,
	}, nil
}

// Chunk returns one flat sequence. Child offsets are the child's offsets
// within the (trimmed) parent text shifted by the parent's StartChar.
func (h *HierarchicalChunker) Chunk(text string, metadata *domain.Metadata) []domain.Chunk {
	if text == "" {
		return nil
	}

	var all []domain.Chunk
	for parentIdx, p := range h.parent.Chunk(text, metadata) {
		parentChunkIndex := len(all)
		all = append(all, domain.Chunk{
			Text:      p.Text,
			StartChar: p.StartChar,
			EndChar:   p.EndChar,
			Metadata: metadata.Clone().
				Set(domain.KeyChunkIndex, parentChunkIndex).
				Set(domain.KeyChunkType, string(domain.ChunkHierarchicalParent)).
				Set(domain.KeyParentIndex, parentIdx).
				Set(domain.KeyIsParent, true).
				Set(domain.KeyHasChildren, true),
		})

		for childIdx, c := range h.child.Chunk(p.Text, nil) {
			all = append(all, domain.Chunk{
				Text:      c.Text,
				StartChar: p.StartChar + c.StartChar,
				EndChar:   p.StartChar + c.EndChar,
				Metadata: metadata.Clone().
					Set(domain.KeyChunkIndex, len(all)).
					Set(domain.KeyChunkType, string(domain.ChunkHierarchicalChild)).
					Set(domain.KeyParentIndex, parentIdx).
					Set(domain.KeyChildIndex, childIdx).
					Set(domain.KeyIsParent, false).
					Set(domain.KeyParentChunkIndex, parentChunkIndex),
			})
		}
	}

	return all
}

// ParentChunks re-runs Chunk and keeps the parents.
func (h *HierarchicalChunker) ParentChunks(text string, metadata *domain.Metadata) []domain.Chunk {
	return filterChunks(h.Chunk(text, metadata), func(c domain.Chunk) bool { return c.IsParent() })
}

// ChildChunks re-runs Chunk and keeps the children.
func (h *HierarchicalChunker) ChildChunks(text string, metadata *domain.Metadata) []domain.Chunk {
	return filterChunks(h.Chunk(text, metadata), func(c domain.Chunk) bool { return !c.IsParent() })
}

func filterChunks(chunks []domain.Chunk, keep func(domain.Chunk) bool) []domain.Chunk {
	var out []domain.Chunk
	for _, c := range chunks {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (h *HierarchicalChunker) String() string {
	return fmt.Sprintf("HierarchicalChunker(parent=%d, child=%d)", h.parentChunkSize, h.childChunkSize)
}

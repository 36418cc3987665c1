package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"docingest/internal/domain"
)

// FixedChunker slides a window of chunkSize characters over the text,
// advancing by chunkSize-chunkOverlap each step.
type FixedChunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewFixedChunker validates the window parameters.
func NewFixedChunker(chunkSize, chunkOverlap int) (*FixedChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk_size must be positive, got %d", domain.ErrInvalidConfig, chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("%w: chunk_overlap must be non-negative, got %d", domain.ErrInvalidConfig, chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk_overlap %d must be less than chunk_size %d", domain.ErrInvalidConfig, chunkOverlap, chunkSize)
	}
	return &FixedChunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}, nil
}

// Chunk emits one chunk per window whose trimmed text is non-empty.
// StartChar/EndChar are the untrimmed window bounds, so EndChar-StartChar can
// exceed the rune length of Text.
func (c *FixedChunker) Chunk(text string, metadata *domain.Metadata) []domain.Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	textLength := len(runes)
	step := c.chunkSize - c.chunkOverlap

	var chunks []domain.Chunk
	for start := 0; start < textLength; start += step {
		end := min(start+c.chunkSize, textLength)

		chunkText := strings.TrimSpace(string(runes[start:end]))
		if chunkText == "" {
			continue
		}

		meta := metadata.Clone().
			Set(domain.KeyChunkIndex, len(chunks)).
			Set(domain.KeyChunkType, string(domain.ChunkFixed)).
			Set(domain.KeyChunkSize, utf8.RuneCountInString(chunkText))

		chunks = append(chunks, domain.Chunk{
			Text:      chunkText,
			StartChar: start,
			EndChar:   end,
			Metadata:  meta,
		})
	}

	return chunks
}

func (c *FixedChunker) String() string {
	return fmt.Sprintf("FixedChunker(chunk_size=%d, overlap=%d)", c.chunkSize, c.chunkOverlap)
}

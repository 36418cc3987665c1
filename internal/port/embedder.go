package port

import (
	"context"

	"docingest/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorStore persists chunk vectors in named collections and searches them.
type VectorStore interface {
	// EnsureCollection creates the collection if it does not exist yet.
	EnsureCollection(ctx context.Context, name string, dimension int) error

	// Upsert adds or replaces points in a collection.
	Upsert(ctx context.Context, collection string, items []VectorItem) error

	// Search finds the limit nearest points to the query vector. Filters
	// match payload values by equality.
	Search(ctx context.Context, collection string, query []float32, limit int, filters map[string]string) ([]domain.ScoredPoint, error)

	ListCollections(ctx context.Context) ([]string, error)

	// CollectionInfo returns domain.ErrCollectionNotFound for unknown names.
	CollectionInfo(ctx context.Context, name string) (*domain.CollectionInfo, error)

	DeleteCollection(ctx context.Context, name string) error

	Close() error
}

// VectorItem is a point to be stored.
type VectorItem struct {
	ID      string           // UUID, assigned by the caller
	Vector  []float32        // Embedding vector
	Payload *domain.Metadata // text, offsets, chunk and file metadata
}

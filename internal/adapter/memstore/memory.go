package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docingest/internal/domain"
	"docingest/internal/port"
	"docingest/internal/vecmath"
)

var _ port.VectorStore = (*MemoryStore)(nil)

// MemoryStore keeps collections in process memory and searches them by brute
// force. It also serves as the search index behind the bolt store.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	dimension int
	order     []string
	points    map[string]point
}

type point struct {
	vector  []float32
	payload *domain.Metadata
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*collection)}
}

func (s *MemoryStore) EnsureCollection(_ context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: collection %q needs a positive dimension", domain.ErrInvalidConfig, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		if c.dimension != dimension {
			return fmt.Errorf("%w: collection %q has dimension %d, got %d", domain.ErrDimensionMismatch, name, c.dimension, dimension)
		}
		return nil
	}
	s.collections[name] = &collection{dimension: dimension, points: make(map[string]point)}
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, name string, items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}

	for _, item := range items {
		if item.ID == "" {
			return fmt.Errorf("upsert into %s: point without id", name)
		}
		if len(item.Vector) != c.dimension {
			return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, c.dimension, len(item.Vector))
		}
	}
	for _, item := range items {
		if _, exists := c.points[item.ID]; !exists {
			c.order = append(c.order, item.ID)
		}
		c.points[item.ID] = point{vector: item.Vector, payload: item.Payload.Clone()}
	}
	return nil
}

// Search scores every point in the collection. Ties keep insertion order.
func (s *MemoryStore) Search(_ context.Context, name string, query []float32, limit int, filters map[string]string) ([]domain.ScoredPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	if len(query) != c.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %d", domain.ErrDimensionMismatch, len(query), c.dimension)
	}

	results := make([]domain.ScoredPoint, 0, len(c.order))
	for _, id := range c.order {
		p := c.points[id]
		if !p.payload.Matches(filters) {
			continue
		}
		results = append(results, domain.ScoredPoint{
			ID:      id,
			Score:   vecmath.Cosine(query, p.vector),
			Payload: p.payload.ToMap(),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func (s *MemoryStore) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) CollectionInfo(_ context.Context, name string) (*domain.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	n := len(c.points)
	return &domain.CollectionInfo{
		Name:                name,
		VectorsCount:        n,
		IndexedVectorsCount: n,
		PointsCount:         n,
		Status:              "green",
	}, nil
}

// Dimension returns the dimension of a collection, or 0 when it is unknown.
func (s *MemoryStore) Dimension(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return c.dimension
	}
	return 0
}

func (s *MemoryStore) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	delete(s.collections, name)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

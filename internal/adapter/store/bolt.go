package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"docingest/internal/adapter/memstore"
	"docingest/internal/domain"
	"docingest/internal/port"
)

var _ port.VectorStore = (*BoltVectorStore)(nil)

var (
	bucketCollections = []byte("collections")
	bucketMeta        = []byte("meta")
	bucketPoints      = []byte("points")
	keyDimension      = []byte("dimension")
)

// BoltVectorStore persists collections in BoltDB and mirrors them into an
// in-memory index for brute-force search.
type BoltVectorStore struct {
	db    *bbolt.DB
	mu    sync.Mutex // serializes writes to bolt and the index
	index *memstore.MemoryStore
}

type storedPoint struct {
	Vector  []float32        `json:"v"`
	Payload *domain.Metadata `json:"p,omitempty"`
}

// OpenBolt opens (or creates) the database at path and loads every
// collection into memory.
func OpenBolt(path string) (*BoltVectorStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketCollections, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltVectorStore{db: db, index: memstore.NewMemoryStore()}
	if err := s.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}
	return s, nil
}

func (s *BoltVectorStore) load() error {
	ctx := context.Background()
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCollections).ForEachBucket(func(name []byte) error {
			cb := tx.Bucket(bucketCollections).Bucket(name)
			var dimension int
			if err := json.Unmarshal(cb.Get(keyDimension), &dimension); err != nil {
				return fmt.Errorf("collection %s: bad dimension: %w", name, err)
			}
			if err := s.index.EnsureCollection(ctx, string(name), dimension); err != nil {
				return err
			}

			var items []port.VectorItem
			err := cb.Bucket(bucketPoints).ForEach(func(k, v []byte) error {
				var p storedPoint
				if err := json.Unmarshal(v, &p); err != nil {
					return nil // Skip corrupted entries
				}
				items = append(items, port.VectorItem{ID: string(k), Vector: p.Vector, Payload: p.Payload})
				return nil
			})
			if err != nil {
				return err
			}
			return s.index.Upsert(ctx, string(name), items)
		})
	})
}

func (s *BoltVectorStore) EnsureCollection(ctx context.Context, name string, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index.Dimension(name) != 0 {
		return s.index.EnsureCollection(ctx, name, dimension)
	}
	if dimension <= 0 {
		return fmt.Errorf("%w: collection %q needs a positive dimension", domain.ErrInvalidConfig, name)
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		cb, err := tx.Bucket(bucketCollections).CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		if _, err := cb.CreateBucketIfNotExists(bucketPoints); err != nil {
			return err
		}
		data, err := json.Marshal(dimension)
		if err != nil {
			return err
		}
		return cb.Put(keyDimension, data)
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}

	return s.index.EnsureCollection(ctx, name, dimension)
}

// Upsert validates the batch against the index before writing it to disk.
func (s *BoltVectorStore) Upsert(ctx context.Context, collection string, items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dimension := s.index.Dimension(collection)
	if dimension == 0 {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
	}
	for _, item := range items {
		if len(item.Vector) != dimension {
			return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, dimension, len(item.Vector))
		}
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		points := tx.Bucket(bucketCollections).Bucket([]byte(collection)).Bucket(bucketPoints)
		for _, item := range items {
			if item.ID == "" {
				return fmt.Errorf("upsert into %s: point without id", collection)
			}
			data, err := json.Marshal(storedPoint{Vector: item.Vector, Payload: item.Payload})
			if err != nil {
				return err
			}
			if err := points.Put([]byte(item.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.index.Upsert(ctx, collection, items)
}

func (s *BoltVectorStore) Search(ctx context.Context, collection string, query []float32, limit int, filters map[string]string) ([]domain.ScoredPoint, error) {
	return s.index.Search(ctx, collection, query, limit, filters)
}

func (s *BoltVectorStore) ListCollections(ctx context.Context) ([]string, error) {
	return s.index.ListCollections(ctx)
}

func (s *BoltVectorStore) CollectionInfo(ctx context.Context, name string) (*domain.CollectionInfo, error) {
	return s.index.CollectionInfo(ctx, name)
}

func (s *BoltVectorStore) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.DeleteCollection(ctx, name); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCollections).DeleteBucket([]byte(name))
	})
}

func (s *BoltVectorStore) Close() error {
	return s.db.Close()
}

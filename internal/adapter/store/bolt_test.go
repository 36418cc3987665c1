package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docingest/config"
	"docingest/internal/domain"
	"docingest/internal/port"
)

func openTestBolt(t *testing.T, path string) *BoltVectorStore {
	t.Helper()
	s, err := OpenBolt(path)
	require.NoError(t, err)
	return s
}

func TestBoltVectorStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	ctx := context.Background()

	s := openTestBolt(t, path)
	require.NoError(t, s.EnsureCollection(ctx, "documents", 2))
	require.NoError(t, s.Upsert(ctx, "documents", []port.VectorItem{
		{ID: "a", Vector: []float32{1, 0}, Payload: domain.MetadataOf("text", "alpha", domain.KeyChunkIndex, 0)},
		{ID: "b", Vector: []float32{0, 1}, Payload: domain.MetadataOf("text", "beta", domain.KeyChunkIndex, 1)},
	}))
	require.NoError(t, s.Close())

	s = openTestBolt(t, path)
	defer s.Close()

	names, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"documents"}, names)

	hits, err := s.Search(ctx, "documents", []float32{0, 1}, 1, map[string]string{domain.KeyChunkIndex: "1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ID)
	assert.Equal(t, "beta", hits[0].Payload["text"])

	info, err := s.CollectionInfo(ctx, "documents")
	require.NoError(t, err)
	assert.Equal(t, 2, info.PointsCount)
}

func TestBoltVectorStoreRejectsBadBatches(t *testing.T) {
	s := openTestBolt(t, filepath.Join(t.TempDir(), "vectors.db"))
	defer s.Close()
	ctx := context.Background()

	err := s.Upsert(ctx, "missing", []port.VectorItem{{ID: "a", Vector: []float32{1}}})
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)

	require.NoError(t, s.EnsureCollection(ctx, "documents", 2))
	assert.ErrorIs(t, s.EnsureCollection(ctx, "documents", 3), domain.ErrDimensionMismatch)

	err = s.Upsert(ctx, "documents", []port.VectorItem{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{1}},
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	info, err := s.CollectionInfo(ctx, "documents")
	require.NoError(t, err)
	assert.Zero(t, info.PointsCount)
}

func TestBoltVectorStoreDeleteCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	ctx := context.Background()

	s := openTestBolt(t, path)
	require.NoError(t, s.EnsureCollection(ctx, "documents", 2))
	require.NoError(t, s.DeleteCollection(ctx, "documents"))
	assert.ErrorIs(t, s.DeleteCollection(ctx, "documents"), domain.ErrCollectionNotFound)
	require.NoError(t, s.Close())

	s = openTestBolt(t, path)
	defer s.Close()
	names, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestBoltVectorStoreMigration(t *testing.T) {
	s := openTestBolt(t, filepath.Join(t.TempDir(), "vectors.db"))
	defer s.Close()
	cfg := config.DefaultConfig()

	result, err := s.CheckMigration(cfg)
	require.NoError(t, err)
	assert.True(t, result.NeedsMigration)
	assert.False(t, result.NeedsRebuild)

	require.NoError(t, s.Migrate(cfg))
	result, err = s.CheckMigration(cfg)
	require.NoError(t, err)
	assert.False(t, result.NeedsMigration)
	assert.False(t, result.NeedsRebuild)

	cfg.Embedding.Model = "text-embedding-3-large"
	result, err = s.CheckMigration(cfg)
	require.NoError(t, err)
	assert.True(t, result.NeedsRebuild)
	assert.Equal(t, "embedding configuration changed", result.Reason)
}

func TestBoltVectorStoreClear(t *testing.T) {
	s := openTestBolt(t, filepath.Join(t.TempDir(), "vectors.db"))
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.EnsureCollection(ctx, "a", 2))
	require.NoError(t, s.EnsureCollection(ctx, "b", 2))
	require.NoError(t, s.Migrate(config.DefaultConfig()))
	require.NoError(t, s.Clear())

	names, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	info, err := s.GetSchemaInfo()
	require.NoError(t, err)
	assert.Zero(t, info.Version)
	assert.Empty(t, info.ConfigHash)
}

func TestBoltVectorStoreRebuildFromNewerSchema(t *testing.T) {
	s := openTestBolt(t, filepath.Join(t.TempDir(), "vectors.db"))
	defer s.Close()
	cfg := config.DefaultConfig()

	require.NoError(t, s.EnsureCollection(context.Background(), "documents", 2))
	require.NoError(t, s.SetSchemaInfo(&SchemaInfo{Version: CurrentSchemaVersion + 1, ConfigHash: "future"}))

	result, err := s.CheckMigration(cfg)
	require.NoError(t, err)
	require.True(t, result.NeedsRebuild)
	require.Error(t, s.Migrate(cfg))

	require.NoError(t, s.Clear())
	require.NoError(t, s.Migrate(cfg))

	info, err := s.GetSchemaInfo()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, info.Version)
	assert.Equal(t, ComputeConfigHash(cfg), info.ConfigHash)

	result, err = s.CheckMigration(cfg)
	require.NoError(t, err)
	assert.False(t, result.NeedsRebuild)
	assert.False(t, result.NeedsMigration)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(config.VectorStoreConfig{Provider: "bolt"}, dir)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(config.VectorStoreConfig{Provider: "memory"}, dir)
	require.NoError(t, err)
	assert.NoError(t, s.Close())

	_, err = Open(config.VectorStoreConfig{Provider: "chroma"}, dir)
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
}

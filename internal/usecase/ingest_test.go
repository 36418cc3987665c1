package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docingest/config"
	"docingest/internal/adapter/embedding"
	"docingest/internal/adapter/extract"
	"docingest/internal/adapter/fs"
	"docingest/internal/adapter/memstore"
	"docingest/internal/domain"
	"docingest/internal/logger"
	"docingest/internal/port"
)

type recordingStore struct {
	*memstore.MemoryStore
	mu      sync.Mutex
	upserts []port.VectorItem
}

func (s *recordingStore) Upsert(ctx context.Context, collection string, items []port.VectorItem) error {
	s.mu.Lock()
	s.upserts = append(s.upserts, items...)
	s.mu.Unlock()
	return s.MemoryStore.Upsert(ctx, collection, items)
}

type recordingEmbedder struct {
	port.Embedder
	mu    sync.Mutex
	calls [][]string
}

func (e *recordingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, append([]string(nil), texts...))
	e.mu.Unlock()
	return e.Embedder.Embed(ctx, texts)
}

type failingEmbedder struct{ port.Embedder }

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("provider down")
}

type fixture struct {
	cfg       *config.Config
	store     *recordingStore
	embedder  port.Embedder
	uploadDir string
	srcDir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimension = 64
	cfg.VectorStore.Provider = "memory"
	cfg.Upload.Dir = filepath.Join(t.TempDir(), "uploads")

	return &fixture{
		cfg:       cfg,
		store:     &recordingStore{MemoryStore: memstore.NewMemoryStore()},
		embedder:  embedding.NewMockEmbedder(64),
		uploadDir: cfg.Upload.Dir,
		srcDir:    t.TempDir(),
	}
}

func (f *fixture) useCase() *IngestUseCase {
	uploads := fs.NewUploadStore(f.cfg.Upload.Dir, f.cfg.Upload.MaxFileSize())
	return NewIngestUseCase(f.store, f.embedder, extract.New(), uploads, f.cfg, logger.NewLogger(logger.TestConfig()))
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.srcDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (f *fixture) uploads(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.uploadDir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestIngestFixed(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "lorem.txt", strings.Repeat("lorem ipsum dolor ", 67))

	res, err := f.useCase().Ingest(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "lorem.txt", res.Filename)
	assert.Equal(t, int64(1206), res.FileSize)
	assert.Equal(t, 3, res.TotalChunks)
	assert.Equal(t, domain.StrategyFixed, res.Strategy)
	assert.Equal(t, "mock:mock", res.EmbeddingModel)
	assert.Equal(t, "documents", res.Collection)
	assert.Len(t, res.PointIDs, 3)

	require.Len(t, res.Preview, 3)
	assert.Equal(t, res.PointIDs[0], res.Preview[0].ChunkID)
	assert.Len(t, res.Preview[0].Text, 203)
	assert.True(t, strings.HasSuffix(res.Preview[0].Text, "..."))
	assert.Equal(t, 462, res.Preview[1].StartChar)

	info, err := f.store.CollectionInfo(context.Background(), "documents")
	require.NoError(t, err)
	assert.Equal(t, 3, info.PointsCount)

	assert.Equal(t, []string{res.FileID + ".txt"}, f.uploads(t))
}

func TestIngestPayloadLayout(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "short.md", "A short document.")

	res, err := f.useCase().Ingest(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, f.store.upserts, 1)

	item := f.store.upserts[0]
	assert.Equal(t, res.PointIDs[0], item.ID)
	assert.Equal(t, []string{
		"text", "start_char", "end_char",
		"file_id", "filename", "file_size",
		domain.KeyChunkIndex, domain.KeyChunkType, domain.KeyChunkSize,
	}, item.Payload.Keys())

	fileID, _ := item.Payload.String("file_id")
	assert.Equal(t, res.FileID, fileID)
	text, _ := item.Payload.String("text")
	assert.Equal(t, "A short document.", text)
}

func TestIngestPreviewLimit(t *testing.T) {
	f := newFixture(t)
	f.cfg.Upload.PreviewChunks = 1
	f.cfg.Embedding.BatchSize = 2
	path := f.write(t, "lorem.txt", strings.Repeat("lorem ipsum dolor ", 67))

	res, err := f.useCase().Ingest(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, res.Preview, 1)
	assert.Equal(t, 3, res.TotalChunks)
	assert.Len(t, f.store.upserts, 3)
}

func TestIngestSemanticEmbedsSentences(t *testing.T) {
	f := newFixture(t)
	f.cfg.Chunking.Strategy = "semantic"
	rec := &recordingEmbedder{Embedder: f.embedder}
	f.embedder = rec

	text := "Cats purr softly. Cats sleep a lot. Revenue grew this quarter. Profits rose sharply."
	path := f.write(t, "mixed.txt", text)

	res, err := f.useCase().Ingest(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, domain.StrategySemantic, res.Strategy)

	// One call per sentence, then the chunk batch.
	require.Len(t, rec.calls, 5)
	assert.Equal(t, []string{"Cats purr softly."}, rec.calls[0])
	assert.Equal(t, []string{"Profits rose sharply."}, rec.calls[3])
	assert.Len(t, rec.calls[4], res.TotalChunks)

	for _, item := range f.store.upserts {
		typ, _ := item.Payload.String(domain.KeyChunkType)
		assert.Equal(t, string(domain.ChunkSemantic), typ)
	}
}

func TestIngestHierarchical(t *testing.T) {
	f := newFixture(t)
	f.cfg.Chunking.Strategy = "hierarchical"
	path := f.write(t, "long.txt", strings.Repeat("abcdefghij", 300))

	res, err := f.useCase().Ingest(context.Background(), path)
	require.NoError(t, err)

	// 2 parents (2048 + 952), children of 512 overlapping by 50.
	parents := 0
	for _, item := range f.store.upserts {
		if isParent, _ := item.Payload.Bool(domain.KeyIsParent); isParent {
			parents++
		}
	}
	assert.Equal(t, 2, parents)
	assert.Equal(t, len(f.store.upserts), res.TotalChunks)
}

func TestIngestEmptyDocumentRemovesUpload(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "empty.txt", "")

	_, err := f.useCase().Ingest(context.Background(), path)
	require.ErrorIs(t, err, domain.ErrNoChunks)
	assert.Empty(t, f.uploads(t))
}

func TestIngestEmbeddingFailureRemovesUpload(t *testing.T) {
	f := newFixture(t)
	f.embedder = failingEmbedder{f.embedder}
	path := f.write(t, "doc.txt", "Some content here.")

	_, err := f.useCase().Ingest(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
	assert.Empty(t, f.uploads(t))
	assert.Empty(t, f.store.upserts)
}

func TestIngestTooLarge(t *testing.T) {
	f := newFixture(t)
	f.cfg.Upload.MaxFileSizeMB = 1
	path := f.write(t, "big.txt", strings.Repeat("x", 1024*1024+1))

	_, err := f.useCase().Ingest(context.Background(), path)
	require.ErrorIs(t, err, domain.ErrFileTooLarge)
	assert.Empty(t, f.uploads(t))
}

func TestIngestReader(t *testing.T) {
	f := newFixture(t)

	res, err := f.useCase().IngestReader(context.Background(), "inline.md", strings.NewReader("Inline content."))
	require.NoError(t, err)
	assert.Equal(t, "inline.md", res.Filename)
	assert.Equal(t, 1, res.TotalChunks)
}

func TestIngestText(t *testing.T) {
	f := newFixture(t)

	res, err := f.useCase().IngestText(context.Background(), "pasted", strings.Repeat("lorem ipsum dolor ", 67))
	require.NoError(t, err)
	assert.Equal(t, "pasted", res.Filename)
	assert.Equal(t, 3, res.TotalChunks)
	assert.Len(t, f.store.upserts, 3)
	assert.Empty(t, f.uploads(t))

	_, err = f.useCase().IngestText(context.Background(), "blank", "")
	assert.ErrorIs(t, err, domain.ErrNoChunks)
}

func TestChunkDoesNotStore(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "lorem.txt", strings.Repeat("lorem ipsum dolor ", 67))

	chunks, err := f.useCase().Chunk(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
	filename, _ := chunks[0].Metadata.String("filename")
	assert.Equal(t, "lorem.txt", filename)

	assert.Empty(t, f.store.upserts)
	assert.Empty(t, f.uploads(t))
}

func TestChunkUnknownStrategy(t *testing.T) {
	f := newFixture(t)
	f.cfg.Chunking.Strategy = "recursive"
	path := f.write(t, "a.txt", "text")

	_, err := f.useCase().Chunk(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrUnknownStrategy)
}

func TestIngestDir(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.txt", "First file.")
	f.write(t, "b.md", "Second file.")
	f.write(t, "empty.txt", "")
	f.write(t, "skip.png", "binary")

	var (
		mu   sync.Mutex
		done []string
	)
	walker := fs.NewWalker(fs.IncludesFor(f.cfg.Upload.AllowedExtensions), f.cfg.Upload.Excludes)
	res, err := f.useCase().IngestDir(context.Background(), f.srcDir, walker, func(path string, err error) {
		mu.Lock()
		defer mu.Unlock()
		done = append(done, filepath.Base(path))
	})
	require.NoError(t, err)

	assert.Len(t, res.Ingested, 2)
	assert.Equal(t, 2, res.Chunks)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "empty.txt", filepath.Base(res.Failed[0].Path))
	assert.ElementsMatch(t, []string{"a.txt", "b.md", "empty.txt"}, done)
}

func TestEmbedFunc(t *testing.T) {
	fn := EmbedFunc(context.Background(), embedding.NewMockEmbedder(8))
	vec, err := fn("hello world")
	require.NoError(t, err)
	assert.Len(t, vec, 8)

	_, err = EmbedFunc(context.Background(), failingEmbedder{})("x")
	assert.Error(t, err)
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docingest/config"
	"docingest/internal/adapter/chunker"
	"docingest/internal/adapter/fs"
	"docingest/internal/domain"
	"docingest/internal/logger"
	"docingest/internal/port"
)

const previewTextLimit = 200

// IngestUseCase stores a copy of each file, extracts and chunks its text,
// embeds the chunks and upserts them into the vector store.
type IngestUseCase struct {
	store     port.VectorStore
	embedder  port.Embedder
	extractor port.TextExtractor
	uploads   *fs.UploadStore
	cfg       *config.Config
	log       logger.Logger
}

// NewIngestUseCase creates a new ingest use case. embedder may be nil when
// only Chunk is used.
func NewIngestUseCase(
	store port.VectorStore,
	embedder port.Embedder,
	extractor port.TextExtractor,
	uploads *fs.UploadStore,
	cfg *config.Config,
	log logger.Logger,
) *IngestUseCase {
	if log == nil {
		log = logger.Default()
	}
	return &IngestUseCase{
		store:     store,
		embedder:  embedder,
		extractor: extractor,
		uploads:   uploads,
		cfg:       cfg,
		log:       log,
	}
}

// Ingest processes the file at path. The stored copy is removed when any
// step fails.
func (u *IngestUseCase) Ingest(ctx context.Context, path string) (*domain.IngestResult, error) {
	doc, err := u.uploads.SaveFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", path, err)
	}
	return u.processOrRemove(ctx, doc)
}

// IngestReader processes content read from r under the given file name.
func (u *IngestUseCase) IngestReader(ctx context.Context, filename string, r io.Reader) (*domain.IngestResult, error) {
	doc, err := u.uploads.Save(filename, r)
	if err != nil {
		return nil, err
	}
	return u.processOrRemove(ctx, doc)
}

func (u *IngestUseCase) processOrRemove(ctx context.Context, doc domain.Document) (*domain.IngestResult, error) {
	result, err := u.Process(ctx, doc)
	if err != nil {
		if rmErr := u.uploads.Remove(doc); rmErr != nil {
			u.log.Warn("failed to remove stored upload", "path", doc.Path, "error", rmErr)
		}
		return nil, err
	}
	return result, nil
}

// Process runs the pipeline for a document already in the upload directory.
func (u *IngestUseCase) Process(ctx context.Context, doc domain.Document) (*domain.IngestResult, error) {
	if u.embedder == nil {
		return nil, errors.New("ingest requires an embedder")
	}
	log := u.log.With("file_id", doc.ID, "filename", doc.Filename)

	chunks, err := u.chunkDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	return u.index(ctx, doc, chunks, log)
}

// IngestText chunks, embeds and stores text that has no backing file.
func (u *IngestUseCase) IngestText(ctx context.Context, filename, text string) (*domain.IngestResult, error) {
	if u.embedder == nil {
		return nil, errors.New("ingest requires an embedder")
	}
	doc := domain.Document{
		ID:       uuid.NewString(),
		Filename: filename,
		Size:     int64(len(text)),
	}
	log := u.log.With("file_id", doc.ID, "filename", doc.Filename)

	chunks, err := u.chunkText(ctx, doc, text)
	if err != nil {
		return nil, err
	}
	return u.index(ctx, doc, chunks, log)
}

// index embeds chunks and upserts them with their payloads.
func (u *IngestUseCase) index(ctx context.Context, doc domain.Document, chunks []domain.Chunk, log logger.Logger) (*domain.IngestResult, error) {
	strategy, _ := domain.ParseStrategy(u.cfg.Chunking.Strategy)
	log.Debug("document chunked", "chunks", len(chunks), "strategy", strategy)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := u.embedBatches(ctx, texts)
	if err != nil {
		return nil, err
	}

	collection := u.cfg.VectorStore.Collection
	dimension := len(vectors[0])
	if want := u.embedder.Dimension(); want != dimension {
		log.Warn("embedding dimension differs from configuration", "configured", want, "actual", dimension)
	}
	if err := u.store.EnsureCollection(ctx, collection, dimension); err != nil {
		return nil, fmt.Errorf("failed to prepare collection %s: %w", collection, err)
	}

	fileMeta := doc.Metadata()
	items := make([]port.VectorItem, len(chunks))
	pointIDs := make([]string, len(chunks))
	for i, c := range chunks {
		pointIDs[i] = uuid.NewString()
		items[i] = port.VectorItem{
			ID:     pointIDs[i],
			Vector: vectors[i],
			Payload: domain.MetadataOf(
				"text", c.Text,
				"start_char", c.StartChar,
				"end_char", c.EndChar,
			).Merge(c.Metadata).Merge(fileMeta),
		}
	}
	if err := u.upsertBatches(ctx, collection, items); err != nil {
		return nil, err
	}

	result := &domain.IngestResult{
		FileID:         doc.ID,
		Filename:       doc.Filename,
		FileSize:       doc.Size,
		TotalChunks:    len(chunks),
		Strategy:       strategy,
		EmbeddingModel: u.cfg.Embedding.Provider + ":" + u.embedder.ModelName(),
		Collection:     collection,
		Preview:        preview(chunks, pointIDs, u.cfg.Upload.PreviewChunks),
		PointIDs:       pointIDs,
		Status:         "success",
	}
	log.Info("document ingested", "chunks", result.TotalChunks, "collection", collection)
	return result, nil
}

// Chunk extracts and chunks a file without storing anything. Semantic
// chunking only embeds sentences when the use case has an embedder.
func (u *IngestUseCase) Chunk(ctx context.Context, path string) ([]domain.Chunk, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	doc := domain.Document{
		ID:       uuid.NewString(),
		Filename: filepath.Base(path),
		Path:     path,
		Size:     info.Size(),
	}
	return u.chunkDocument(ctx, doc)
}

// ChunkText chunks text without storing anything.
func (u *IngestUseCase) ChunkText(ctx context.Context, filename, text string) ([]domain.Chunk, error) {
	doc := domain.Document{
		ID:       uuid.NewString(),
		Filename: filename,
		Size:     int64(len(text)),
	}
	return u.chunkText(ctx, doc, text)
}

func (u *IngestUseCase) chunkDocument(ctx context.Context, doc domain.Document) ([]domain.Chunk, error) {
	text, err := u.extractor.Extract(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from %s: %w", doc.Filename, err)
	}
	return u.chunkText(ctx, doc, text)
}

func (u *IngestUseCase) chunkText(ctx context.Context, doc domain.Document, text string) ([]domain.Chunk, error) {
	c, err := u.newChunker(ctx)
	if err != nil {
		return nil, err
	}

	chunks := c.Chunk(text, doc.Metadata())
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoChunks, doc.Filename)
	}
	return chunks, nil
}

// newChunker builds the configured chunker. Only the semantic strategy gets
// an embed callback.
func (u *IngestUseCase) newChunker(ctx context.Context) (port.Chunker, error) {
	strategy, err := domain.ParseStrategy(u.cfg.Chunking.Strategy)
	if err != nil {
		return nil, err
	}

	ch := u.cfg.Chunking
	threshold := ch.SemanticThreshold
	opts := chunker.Options{
		Strategy:            strategy,
		ChunkSize:           ch.ChunkSize,
		ChunkOverlap:        ch.ChunkOverlap,
		ParentChunkSize:     ch.ParentChunkSize,
		ChildChunkSize:      ch.ChildChunkSize,
		SimilarityThreshold: &threshold,
		MinChunkSize:        ch.MinChunkSize,
		Logger:              u.log,
	}
	if strategy == domain.StrategySemantic && u.embedder != nil {
		opts.EmbedFunc = EmbedFunc(ctx, u.embedder)
	}
	return chunker.New(opts)
}

// EmbedFunc adapts an Embedder to the single-text callback used by the
// semantic chunker.
func EmbedFunc(ctx context.Context, e port.Embedder) chunker.EmbedFunc {
	return func(text string) ([]float32, error) {
		vecs, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vecs) != 1 {
			return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
		}
		return vecs[0], nil
	}
}

func (u *IngestUseCase) embedBatches(ctx context.Context, texts []string) ([][]float32, error) {
	size := max(u.cfg.Embedding.BatchSize, 1)
	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += size {
		end := min(i+size, len(texts))
		batch, err := u.embedder.Embed(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(batch) != end-i {
			return nil, fmt.Errorf("failed to embed chunks: got %d vectors for %d texts", len(batch), end-i)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (u *IngestUseCase) upsertBatches(ctx context.Context, collection string, items []port.VectorItem) error {
	size := max(u.cfg.Embedding.BatchSize, 1)
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		if err := u.store.Upsert(ctx, collection, items[i:end]); err != nil {
			return fmt.Errorf("failed to upsert chunks into %s: %w", collection, err)
		}
	}
	return nil
}

func preview(chunks []domain.Chunk, pointIDs []string, n int) []domain.ChunkPreview {
	n = min(n, len(chunks))
	out := make([]domain.ChunkPreview, 0, n)
	for i := 0; i < n; i++ {
		c := chunks[i]
		out = append(out, domain.ChunkPreview{
			ChunkID:   pointIDs[i],
			Text:      truncate(c.Text, previewTextLimit),
			StartChar: c.StartChar,
			EndChar:   c.EndChar,
			Metadata:  c.Metadata,
		})
	}
	return out
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

// FileError records a file that failed during directory ingest.
type FileError struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// DirResult summarises a directory ingest.
type DirResult struct {
	Ingested []*domain.IngestResult `json:"ingested"`
	Failed   []FileError            `json:"failed"`
	Chunks   int                    `json:"total_chunks"`
}

// IngestDir ingests every file the walker yields, upload.workers at a
// time. A failing file does not stop the others. onDone, when set, is
// called once per file.
func (u *IngestUseCase) IngestDir(ctx context.Context, root string, walker port.FileWalker, onDone func(path string, err error)) (*DirResult, error) {
	files, err := walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	results := make([]*domain.IngestResult, len(files))
	var (
		mu     sync.Mutex
		failed []FileError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(u.cfg.Upload.Workers, 1))
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := u.Ingest(gctx, f.Path)
			if onDone != nil {
				mu.Lock()
				onDone(f.Path, err)
				mu.Unlock()
			}
			if err != nil {
				u.log.Warn("file ingest failed", "path", f.Path, "error", err)
				mu.Lock()
				failed = append(failed, FileError{Path: f.Path, Err: err.Error()})
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &DirResult{Failed: failed}
	for _, r := range results {
		if r != nil {
			out.Ingested = append(out.Ingested, r)
			out.Chunks += r.TotalChunks
		}
	}
	sort.Slice(out.Failed, func(i, j int) bool { return out.Failed[i].Path < out.Failed[j].Path })
	return out, nil
}

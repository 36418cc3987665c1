//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"syscall/js"

	"docingest/config"
	"docingest/internal/adapter/embedding"
	"docingest/internal/adapter/memstore"
	"docingest/internal/adapter/retriever"
	"docingest/internal/logger"
	"docingest/internal/usecase"
)

const dimension = 256

var (
	cfg      *config.Config
	store    *memstore.MemoryStore
	embedder = embedding.NewMockEmbedder(dimension)
	mmr      = retriever.NewMMRReranker(0.7, 0.8)
)

func init() {
	cfg = config.DefaultConfig()
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimension = dimension
	cfg.VectorStore.Provider = "memory"
	store = memstore.NewMemoryStore()
}

func main() {
	c := make(chan struct{})

	js.Global().Set("docChunk", js.FuncOf(chunkContent))
	js.Global().Set("docIngest", js.FuncOf(ingestContent))
	js.Global().Set("docSearch", js.FuncOf(searchContent))
	js.Global().Set("docClear", js.FuncOf(clearStore))
	js.Global().Set("docStats", js.FuncOf(getStats))

	<-c
}

func newIngest(strategy string) (*usecase.IngestUseCase, error) {
	c := *cfg
	if strategy != "" {
		c.Chunking.Strategy = strategy
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return usecase.NewIngestUseCase(store, embedder, nil, nil, &c, logger.NewLogger(logger.TestConfig())), nil
}

func chunkContent(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return makeError("usage: docChunk(content, [strategy])")
	}
	strategy := ""
	if len(args) > 1 {
		strategy = args[1].String()
	}

	uc, err := newIngest(strategy)
	if err != nil {
		return makeError(err.Error())
	}
	chunks, err := uc.ChunkText(context.Background(), "inline", args[0].String())
	if err != nil {
		return makeError("chunking failed: " + err.Error())
	}
	return makeResult(map[string]any{
		"chunks": chunks,
	})
}

func ingestContent(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return makeError("usage: docIngest(filename, content, [strategy])")
	}
	strategy := ""
	if len(args) > 2 {
		strategy = args[2].String()
	}

	uc, err := newIngest(strategy)
	if err != nil {
		return makeError(err.Error())
	}
	result, err := uc.IngestText(context.Background(), args[0].String(), args[1].String())
	if err != nil {
		return makeError("ingest failed: " + err.Error())
	}
	return makeResult(map[string]any{
		"success": true,
		"result":  result,
	})
}

func searchContent(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return makeError("usage: docSearch(query, [topK])")
	}

	query := args[0].String()
	topK := 5
	if len(args) > 1 {
		topK = args[1].Int()
	}

	search := usecase.NewSearchUseCase(store, embedder, 0).WithReranker(mmr, 2)
	hits, err := search.Search(context.Background(), cfg.VectorStore.Collection, query, topK, nil)
	if err != nil {
		return makeError("search failed: " + err.Error())
	}
	return makeResult(map[string]any{
		"results": hits,
		"query":   query,
	})
}

func clearStore(this js.Value, args []js.Value) any {
	store = memstore.NewMemoryStore()
	return makeResult(map[string]any{
		"success": true,
	})
}

func getStats(this js.Value, args []js.Value) any {
	info, err := store.CollectionInfo(context.Background(), cfg.VectorStore.Collection)
	if err != nil {
		return makeResult(map[string]any{"points": 0})
	}
	return makeResult(map[string]any{
		"collection": info.Name,
		"points":     info.PointsCount,
		"dimension":  store.Dimension(info.Name),
	})
}

func makeError(msg string) any {
	result, _ := json.Marshal(map[string]any{
		"error": msg,
	})
	return string(result)
}

func makeResult(data map[string]any) any {
	result, _ := json.Marshal(data)
	return string(result)
}

package store

import (
	"fmt"
	"strings"

	"docingest/config"
	"docingest/internal/adapter/memstore"
	"docingest/internal/domain"
	"docingest/internal/port"
)

// Open returns the vector store selected by cfg. The bolt database lives
// under dataDir.
func Open(cfg config.VectorStoreConfig, dataDir string) (port.VectorStore, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "bolt":
		if err := config.EnsureDataDir(dataDir); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		s, err := OpenBolt(config.StorePath(dataDir))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "qdrant":
		return NewQdrantStore(cfg.URL, cfg.APIKey(), cfg.Timeout), nil
	case "memory":
		return memstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: vector store %q", domain.ErrUnsupportedProvider, cfg.Provider)
	}
}

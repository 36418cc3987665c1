package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docingest/config"
	"docingest/internal/adapter/cache"
	"docingest/internal/adapter/embedding"
	"docingest/internal/adapter/store"
	"docingest/internal/logger"
	"docingest/internal/port"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	logJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "docingest",
	Short: "Document ingestion - chunk, embed and store documents for retrieval",
	Long: `docingest extracts text from documents (txt, md, pdf, docx, html), splits it
with a fixed, semantic or hierarchical chunker, embeds the chunks and stores
them in a vector collection.

Example usage:
  docingest ingest report.pdf                 # Ingest a single file
  docingest ingest ./docs --strategy semantic # Ingest a directory
  docingest search -q "quarterly revenue"     # Search the collection
  docingest chunk notes.md --json             # Preview chunks only`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if err := config.LoadEnv(rootDir); err != nil {
			return err
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		if !filepath.IsAbs(cfg.Upload.Dir) {
			cfg.Upload.Dir = filepath.Join(rootDir, cfg.Upload.Dir)
		}

		logCfg := logger.DefaultConfig()
		logCfg.Level = logger.ParseLevel(cfg.Logging.Level)
		if logLevel != "" {
			logCfg.Level = logger.ParseLevel(logLevel)
		}
		logCfg.JSON = cfg.Logging.JSON || logJSON
		logger.Init(logCfg)

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docingest.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "data directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

var embedders *embedding.Registry

// newEmbedder returns the embedder configured in cfg, shared through the
// registry for the lifetime of the process.
func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	if embedders == nil {
		embedders = embedding.NewRegistry(cfg.Embedding.CacheSize)
	}
	e, err := embedders.Get(embedding.Settings{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		APIKey:    cfg.Embedding.APIKey(),
		BaseURL:   cfg.Embedding.BaseURL,
		Dimension: cfg.Embedding.Dimension,
		BatchSize: cfg.Embedding.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	if cfg.Embedding.VectorCacheSize > 0 {
		e = cache.NewCachedEmbedder(e, cache.NewEmbeddingCache(cfg.Embedding.VectorCacheSize, cfg.Embedding.VectorCacheTTL))
	}
	return e, nil
}

// openStore opens the configured vector store. A local bolt store has its
// schema checked against the embedding settings first.
func openStore(cfg *config.Config, rebuild bool) (port.VectorStore, error) {
	st, err := store.Open(cfg.VectorStore, GetRootDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	bolt, ok := st.(*store.BoltVectorStore)
	if !ok {
		return st, nil
	}

	migration, err := bolt.CheckMigration(cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to check migration: %w", err)
	}

	log := logger.Default()
	switch {
	case migration.NeedsRebuild && rebuild:
		log.Warn("clearing vector store", "reason", migration.Reason)
		if err := bolt.Clear(); err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to clear vector store: %w", err)
		}
	case migration.NeedsRebuild:
		log.Warn("vector store was built with different settings; run with --rebuild to clear it", "reason", migration.Reason)
		return st, nil
	case migration.NeedsMigration:
		log.Debug("running schema migration", "reason", migration.Reason)
	}

	if err := bolt.Migrate(cfg); err != nil {
		st.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return st, nil
}

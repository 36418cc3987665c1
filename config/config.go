package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"docingest/internal/domain"
)

// Config holds all configuration for docingest.
type Config struct {
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Upload      UploadConfig      `yaml:"upload"`
	Search      SearchConfig      `yaml:"search"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ChunkingConfig selects and sizes the chunking strategy.
type ChunkingConfig struct {
	Strategy          string  `yaml:"strategy"` // "fixed", "semantic", "hierarchical"
	ChunkSize         int     `yaml:"chunk_size"`
	ChunkOverlap      int     `yaml:"chunk_overlap"`
	ParentChunkSize   int     `yaml:"parent_chunk_size"`
	ChildChunkSize    int     `yaml:"child_chunk_size"`
	SemanticThreshold float64 `yaml:"semantic_threshold"`
	MinChunkSize      int     `yaml:"min_chunk_size"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "openai", "deepseek", "jina", "ollama", "mock"
	Model     string `yaml:"model"`       // e.g., "text-embedding-3-small"
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL   string `yaml:"base_url"`    // Overrides the provider's endpoint
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
	CacheSize int    `yaml:"cache_size"` // Embedders kept alive by the registry

	VectorCacheSize int           `yaml:"vector_cache_size"` // 0 disables the vector cache
	VectorCacheTTL  time.Duration `yaml:"vector_cache_ttl"`
}

// VectorStoreConfig holds vector database configuration.
type VectorStoreConfig struct {
	Provider   string        `yaml:"provider"` // "bolt", "qdrant", "memory"
	URL        string        `yaml:"url"`
	APIKeyEnv  string        `yaml:"api_key_env"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

// UploadConfig holds file intake configuration.
type UploadConfig struct {
	Dir               string   `yaml:"dir"`
	MaxFileSizeMB     int      `yaml:"max_file_size_mb"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	Excludes          []string `yaml:"excludes"`
	Workers           int      `yaml:"workers"`
	PreviewChunks     int      `yaml:"preview_chunks"`
}

// SearchConfig holds query-time settings.
type SearchConfig struct {
	Limit        int     `yaml:"limit"`
	MinScore     float64 `yaml:"min_score"`
	MMR          bool    `yaml:"mmr"`
	MMRLambda    float64 `yaml:"mmr_lambda"`    // 1 = relevance only
	DedupJaccard float64 `yaml:"dedup_jaccard"` // Drop hits this similar to a better one
	Candidates   int     `yaml:"candidates"`    // Hits fetched per result when reranking
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			Strategy:          "fixed",
			ChunkSize:         512,
			ChunkOverlap:      50,
			ParentChunkSize:   2048,
			ChildChunkSize:    512,
			SemanticThreshold: 0.7,
			MinChunkSize:      100,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			BatchSize: 100,
			CacheSize: 10,

			VectorCacheSize: 1000,
			VectorCacheTTL:  10 * time.Minute,
		},
		VectorStore: VectorStoreConfig{
			Provider:   "bolt",
			URL:        "http://localhost:6333",
			APIKeyEnv:  "QDRANT_API_KEY",
			Collection: "documents",
			Timeout:    30 * time.Second,
		},
		Upload: UploadConfig{
			Dir:               "./uploads",
			MaxFileSizeMB:     50,
			AllowedExtensions: []string{".txt", ".md", ".pdf", ".docx", ".html"},
			Excludes:          []string{"**/.git/**", "**/node_modules/**", "**/.docingest/**"},
			Workers:           4,
			PreviewChunks:     3,
		},
		Search: SearchConfig{
			Limit:        5,
			MMRLambda:    0.7,
			DedupJaccard: 0.8,
			Candidates:   3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the ranges the chunking and upload settings must respect.
func (c *Config) Validate() error {
	var errs []error
	ch := c.Chunking

	if _, err := domain.ParseStrategy(ch.Strategy); err != nil {
		errs = append(errs, err)
	}
	if ch.ChunkSize < 100 || ch.ChunkSize > 4000 {
		errs = append(errs, fmt.Errorf("%w: chunk_size must be within [100, 4000], got %d", domain.ErrInvalidConfig, ch.ChunkSize))
	}
	if ch.ChunkOverlap < 0 || ch.ChunkOverlap > 500 {
		errs = append(errs, fmt.Errorf("%w: chunk_overlap must be within [0, 500], got %d", domain.ErrInvalidConfig, ch.ChunkOverlap))
	}
	if ch.SemanticThreshold < 0 || ch.SemanticThreshold > 1 {
		errs = append(errs, fmt.Errorf("%w: semantic_threshold must be within [0, 1], got %g", domain.ErrInvalidConfig, ch.SemanticThreshold))
	}
	if c.Embedding.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: embedding.batch_size must be positive", domain.ErrInvalidConfig))
	}
	if c.Upload.MaxFileSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("%w: upload.max_file_size_mb must be positive", domain.ErrInvalidConfig))
	}
	if c.Upload.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%w: upload.workers must be positive", domain.ErrInvalidConfig))
	}
	if c.Search.MMRLambda < 0 || c.Search.MMRLambda > 1 {
		errs = append(errs, fmt.Errorf("%w: search.mmr_lambda must be within [0, 1], got %g", domain.ErrInvalidConfig, c.Search.MMRLambda))
	}

	return errors.Join(errs...)
}

// MaxFileSize returns the upload limit in bytes.
func (u UploadConfig) MaxFileSize() int64 {
	return int64(u.MaxFileSizeMB) * 1024 * 1024
}

// Allows reports whether a file name carries an allowed extension.
func (u UploadConfig) Allows(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return slices.Contains(u.AllowedExtensions, ext)
}

// APIKey resolves the embedding API key from the environment.
func (e EmbeddingConfig) APIKey() string {
	if e.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(e.APIKeyEnv)
}

// APIKey resolves the vector store API key from the environment.
func (v VectorStoreConfig) APIKey() string {
	if v.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(v.APIKeyEnv)
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docingest.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docingest.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docingest", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// LoadEnv loads a .env file from dir into the process environment. Variables
// already set win. A missing file is not an error.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StorePath returns the path to the local vector database.
func StorePath(dir string) string {
	return filepath.Join(dir, ".docingest", "vectors.db")
}

// EnsureDataDir ensures the .docingest directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".docingest"), 0755)
}

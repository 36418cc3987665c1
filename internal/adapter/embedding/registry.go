package embedding

import (
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"docingest/internal/domain"
	"docingest/internal/port"
)

// Settings identifies one embedding service.
type Settings struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	Dimension int
	BatchSize int
}

func (s Settings) key() string {
	return fmt.Sprintf("%s|%s|%s|%d", strings.ToLower(s.Provider), s.Model, s.BaseURL, s.Dimension)
}

// New builds the embedder named by s.Provider.
func New(s Settings) (port.Embedder, error) {
	var (
		e   *OpenAIEmbedder
		err error
	)

	switch strings.ToLower(s.Provider) {
	case "mock":
		return NewMockEmbedder(s.Dimension), nil
	case "openai":
		e, err = NewOpenAICompatibleEmbedder("openai", s.APIKey, s.Model, orDefault(s.BaseURL, openAIBaseURL), s.Dimension)
	case "deepseek":
		e, err = NewOpenAICompatibleEmbedder("deepseek", s.APIKey, s.Model, orDefault(s.BaseURL, deepSeekBaseURL), s.Dimension)
	case "jina":
		e, err = NewOpenAICompatibleEmbedder("jina", s.APIKey, s.Model, orDefault(s.BaseURL, jinaBaseURL), s.Dimension)
	case "ollama":
		e, err = NewOpenAICompatibleEmbedder("ollama", orDefault(s.APIKey, "ollama"), s.Model, orDefault(s.BaseURL, ollamaBaseURL), s.Dimension)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, s.Provider)
	}
	if err != nil {
		return nil, err
	}
	return e.WithBatchSize(s.BatchSize), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Registry hands out one embedder per distinct Settings and keeps the most
// recently used ones alive.
type Registry struct {
	mu    sync.Mutex
	cache *lru.Cache[string, port.Embedder]
}

func NewRegistry(size int) *Registry {
	if size <= 0 {
		size = 10
	}
	cache, err := lru.New[string, port.Embedder](size)
	if err != nil {
		cache, _ = lru.New[string, port.Embedder](10)
	}
	return &Registry{cache: cache}
}

// Get returns the cached embedder for s, building it on first use.
func (r *Registry) Get(s Settings) (port.Embedder, error) {
	key := s.key()

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.cache.Get(key); ok {
		return e, nil
	}
	e, err := New(s)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, e)
	return e, nil
}

func (r *Registry) Len() int {
	return r.cache.Len()
}

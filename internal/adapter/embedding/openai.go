package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"docingest/internal/vecmath"
)

const (
	openAIBaseURL   = "https://api.openai.com/v1"
	deepSeekBaseURL = "https://api.deepseek.com/v1"
	jinaBaseURL     = "https://api.jina.ai/v1"
	ollamaBaseURL   = "http://localhost:11434/v1"

	defaultBatchSize = 100
)

// OpenAIEmbedder talks to any endpoint implementing the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client    openai.Client
	provider  string
	model     string
	dimension int
	batchSize int
}

func NewOpenAIEmbedder(apiKey, model string) (*OpenAIEmbedder, error) {
	return NewOpenAICompatibleEmbedder("openai", apiKey, model, openAIBaseURL, 0)
}

func NewDeepSeekEmbedder(apiKey, model string) (*OpenAIEmbedder, error) {
	return NewOpenAICompatibleEmbedder("deepseek", apiKey, model, deepSeekBaseURL, 0)
}

func NewJinaEmbedder(apiKey, model string) (*OpenAIEmbedder, error) {
	return NewOpenAICompatibleEmbedder("jina", apiKey, model, jinaBaseURL, 0)
}

// NewOllamaEmbedder needs no API key; baseURL defaults to a local server.
func NewOllamaEmbedder(model, baseURL string) (*OpenAIEmbedder, error) {
	if baseURL == "" {
		baseURL = ollamaBaseURL
	}
	return NewOpenAICompatibleEmbedder("ollama", "ollama", model, baseURL, 0)
}

// NewOpenAICompatibleEmbedder builds an embedder for baseURL. A zero dimension
// is looked up from the model name.
func NewOpenAICompatibleEmbedder(provider, apiKey, model, baseURL string, dimension int) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: API key is required", provider)
	}
	if model == "" {
		return nil, fmt.Errorf("%s: model is required", provider)
	}
	if dimension <= 0 {
		dimension = KnownDimension(model)
	}

	timeout := 60 * time.Second
	if provider == "ollama" {
		timeout = 120 * time.Second
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(2),
	)

	return &OpenAIEmbedder{
		client:    client,
		provider:  provider,
		model:     model,
		dimension: dimension,
		batchSize: defaultBatchSize,
	}, nil
}

// KnownDimension returns the output size of well-known embedding models.
func KnownDimension(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	case "jina-embeddings-v3", "mxbai-embed-large":
		return 1024
	case "jina-embeddings-v4":
		return 2048
	case "nomic-embed-text":
		return 768
	case "all-minilm":
		return 384
	default:
		return 1536
	}
}

// WithBatchSize caps the number of texts sent per request.
func (e *OpenAIEmbedder) WithBatchSize(n int) *OpenAIEmbedder {
	if n > 0 {
		e.batchSize = n
	}
	return e
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	allEmbeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))

		embeddings, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	return allEmbeddings, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("%s embeddings request failed: %w", e.provider, err)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(embeddings) {
			return nil, fmt.Errorf("%s returned out-of-range index %d", e.provider, data.Index)
		}
		embeddings[data.Index] = vecmath.Float32s(data.Embedding)
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, fmt.Errorf("%s returned no embedding for input %d", e.provider, i)
		}
	}

	return embeddings, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

func (e *OpenAIEmbedder) Provider() string {
	return e.provider
}

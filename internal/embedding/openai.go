package embedding

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the remote OpenAI-compatible embeddings client.
type OpenAIConfig struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration

	// Role prefixes for asymmetric models (e5-style). Leave empty for
	// symmetric models.
	PassagePrefix string
	QueryPrefix   string

	// MaxInputChars guards the model's token limit; longer inputs are
	// truncated, never rejected.
	MaxInputChars int
	BatchSize     int
}

// OpenAIEmbedder embeds text through an OpenAI-compatible embeddings API.
// Returned vectors are L2-normalized before they leave this package.
type OpenAIEmbedder struct {
	client        *openai.Client
	model         string
	passagePrefix string
	queryPrefix   string
	maxInputChars int
	batchSize     int
	dimension     int
}

// NewOpenAIEmbedder creates the client. The API key is read from the
// configured environment variable and never logged.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = 8000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	apiCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &OpenAIEmbedder{
		client:        openai.NewClientWithConfig(apiCfg),
		model:         cfg.Model,
		passagePrefix: cfg.PassagePrefix,
		queryPrefix:   cfg.QueryPrefix,
		maxInputChars: cfg.MaxInputChars,
		batchSize:     cfg.BatchSize,
	}, nil
}

func (e *OpenAIEmbedder) Name() string { return "openai" }

// Dimension is 0 until the first successful embed call reveals it.
func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

// EmbedPassages embeds document chunks with the passage role prefix applied,
// batching requests to stay under API payload limits.
func (e *OpenAIEmbedder) EmbedPassages(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := make([]string, 0, end-start)
		for _, text := range texts[start:end] {
			batch = append(batch, e.passagePrefix+Truncate(text, e.maxInputChars))
		}
		got, err := e.embed(ctx, batch)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, got...)
	}
	return vectors, nil
}

// EmbedQuery embeds a query with the query role prefix applied.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	vectors, err := e.embed(ctx, []string{e.queryPrefix + Truncate(text, e.maxInputChars)})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedder) embed(ctx context.Context, inputs []string) ([][]float64, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: inputs,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(resp.Data))
	}
	vectors := make([][]float64, len(inputs))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(inputs) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		vec := make([]float64, len(data.Embedding))
		for i, x := range data.Embedding {
			vec[i] = float64(x)
		}
		Normalize(vec)
		vectors[data.Index] = vec
	}
	for _, vec := range vectors {
		if e.dimension == 0 {
			e.dimension = len(vec)
		}
		if len(vec) != e.dimension {
			return nil, fmt.Errorf("embedding dimension changed from %d to %d", e.dimension, len(vec))
		}
	}
	return vectors, nil
}

package embeddings

import (
	"context"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// TEIConfig holds configuration for the TEI provider. TEI exposes an
// OpenAI-compatible embeddings endpoint, so the same client also works
// against OpenAI itself.
type TEIConfig struct {
	// BaseURL is the server URL, e.g. http://localhost:8081/v1.
	BaseURL string
	// Model is the embedding model name.
	Model string
	// APIKey is optional for TEI, required for OpenAI.
	APIKey string
}

// TEIProvider generates embeddings via an external inference server.
type TEIProvider struct {
	embedder  *lcembeddings.EmbedderImpl
	dimension int
}

// NewTEIProvider creates the provider. No connection is made until the
// first embed call.
func NewTEIProvider(cfg TEIConfig) (*TEIProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL required for TEI provider", ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model required for TEI provider", ErrInvalidConfig)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		// langchaingo requires a token; TEI ignores it.
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embeddings client: %w", err)
	}

	embedder, err := lcembeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &TEIProvider{
		embedder:  embedder,
		dimension: detectDimension(cfg.Model),
	}, nil
}

// EmbedDocuments embeds a batch of passage texts.
func (p *TEIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vectors, nil
}

// EmbedQuery embeds a single query text.
func (p *TEIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	vector, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vector, nil
}

// Dimension returns the embedding dimension for the configured model.
func (p *TEIProvider) Dimension() int {
	return p.dimension
}

// Close is a no-op; the provider is a stateless HTTP client.
func (p *TEIProvider) Close() error {
	return nil
}

// Package embeddings provides text embedding generation for concept
// matching. Two providers are supported: FastEmbed (local ONNX models,
// the default) and TEI (an external Text Embeddings Inference server,
// reached through its OpenAI-compatible API).
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid embeddings configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Provider generates embedding vectors. Implementations are safe for
// concurrent use after construction.
type Provider interface {
	// EmbedDocuments embeds a batch of passage texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single query text.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	// Provider is "fastembed" (default) or "tei".
	Provider string
	// Model is the embedding model name.
	Model string
	// BaseURL is the TEI server URL (TEI only).
	BaseURL string
	// CacheDir is the model cache directory (FastEmbed only).
	CacheDir string
}

// NewProvider creates an embedding provider from the configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "fastembed", "":
		return NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	case "tei":
		return NewTEIProvider(TEIConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// detectDimension guesses the embedding dimension from the model name.
// Falls back to 384, the dimension of the small sentence-transformer
// family this system defaults to.
func detectDimension(model string) int {
	switch {
	case strings.Contains(model, "base"):
		return 768
	case strings.Contains(model, "large"):
		return 1024
	default:
		return 384
	}
}

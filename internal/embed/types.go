// Package embed provides query and chunk embedding.
//
// Providers share one interface; the engine only needs Embed for
// queries, batch embedding exists for indexing paths. All providers
// report their dimensionality so callers can derive the vector column
// name.
package embed

import (
	"context"
	"time"
)

// Embedder converts text to dense vectors.
type Embedder interface {
	// Embed embeds a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimensionality.
	Dimensions() int

	// Close releases provider resources.
	Close() error
}

// Config selects and configures a provider.
type Config struct {
	// Provider is one of "openai", "ollama", "static".
	Provider string `yaml:"provider"`

	// Model is the embedding model name.
	Model string `yaml:"model"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates openai-compatible providers.
	APIKey string `yaml:"api_key"`

	// Dimensions is required for openai, detected for ollama.
	Dimensions int `yaml:"dimensions"`

	// Timeout bounds a single embedding call.
	Timeout time.Duration `yaml:"timeout"`

	// CacheSize enables an LRU cache over query embeddings when
	// positive.
	CacheSize int `yaml:"cache_size"`
}

// DefaultConfig returns the offline default.
func DefaultConfig() Config {
	return Config{
		Provider:   "static",
		Dimensions: StaticDimensions,
		Timeout:    30 * time.Second,
		CacheSize:  1024,
	}
}

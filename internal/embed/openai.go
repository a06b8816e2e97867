package embed

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/zhagnzhenfei/industry-assistant/internal/errors"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
// Works against api.openai.com and self-hosted compatible servers via
// BaseURL.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dims   int
	retry  errors.RetryConfig
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an embedder from config. Dimensions must
// be set; the engine derives the vector column name from it before
// any call happens.
func NewOpenAIEmbedder(cfg Config) (*OpenAIEmbedder, error) {
	if cfg.Dimensions <= 0 {
		return nil, errors.New(errors.CodeConfigInvalid, "openai embedder requires dimensions", nil)
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cc),
		model:  cfg.Model,
		dims:   cfg.Dimensions,
		retry:  errors.DefaultRetryConfig(),
	}, nil
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Embedder.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := errors.RetryWithResult(ctx, e.retry, func() (openai.EmbeddingResponse, error) {
		return e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input:      texts,
			Model:      openai.EmbeddingModel(e.model),
			Dimensions: e.dims,
		})
	})
	if err != nil {
		return nil, errors.New(errors.CodeEmbedUnavailable, "create embeddings", err).
			WithDetail("model", e.model)
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.New(errors.CodeEmbedUnavailable, "embedding count mismatch", nil)
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, errors.New(errors.CodeEmbedUnavailable, "embedding index out of range", nil)
		}
		if len(d.Embedding) != e.dims {
			return nil, errors.New(errors.CodeDimensionMismatch, "unexpected embedding dimensionality", nil).
				WithDetail("model", e.model)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Dimensions implements Embedder.
func (e *OpenAIEmbedder) Dimensions() int { return e.dims }

// Close implements Embedder.
func (e *OpenAIEmbedder) Close() error { return nil }

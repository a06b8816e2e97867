package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zhagnzhenfei/industry-assistant/internal/errors"
)

// OllamaEmbedder calls a local Ollama server's /api/embed endpoint.
type OllamaEmbedder struct {
	baseURL string
	model   string
	dims    int
	http    *http.Client
	retry   errors.RetryConfig
}

var _ Embedder = (*OllamaEmbedder)(nil)

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaEmbedder creates an embedder and probes the model once to
// detect its dimensionality when the config leaves it zero.
func NewOllamaEmbedder(ctx context.Context, cfg Config) (*OllamaEmbedder, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "bge-m3"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	e := &OllamaEmbedder{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		dims:    cfg.Dimensions,
		http:    &http.Client{Timeout: timeout},
		retry:   errors.DefaultRetryConfig(),
	}
	if e.dims == 0 {
		probe, err := e.EmbedBatch(ctx, []string{"dimension probe"})
		if err != nil {
			return nil, err
		}
		e.dims = len(probe[0])
	}
	return e, nil
}

// Embed implements Embedder.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Embedder.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, errors.InternalError("encode embed request", err)
	}

	vecs, err := errors.RetryWithResult(ctx, e.retry, func() ([][]float32, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			e.baseURL+"/api/embed", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("ollama returned %s", resp.Status)
		}
		var out ollamaEmbedResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, err
		}
		return out.Embeddings, nil
	})
	if err != nil {
		return nil, errors.New(errors.CodeEmbedUnavailable, "ollama embed", err).
			WithDetail("model", e.model).
			WithSuggestion("check that the Ollama server is running and the model is pulled")
	}
	if len(vecs) != len(texts) {
		return nil, errors.New(errors.CodeEmbedUnavailable, "embedding count mismatch", nil)
	}
	if e.dims > 0 {
		for _, v := range vecs {
			if len(v) != e.dims {
				return nil, errors.New(errors.CodeDimensionMismatch, "unexpected embedding dimensionality", nil).
					WithDetail("model", e.model)
			}
		}
	}
	return vecs, nil
}

// Dimensions implements Embedder.
func (e *OllamaEmbedder) Dimensions() int { return e.dims }

// Close implements Embedder.
func (e *OllamaEmbedder) Close() error { return nil }

// Package rerank scores query-document pairs with an external
// cross-encoder model.
//
// The engine treats reranking as best effort: a failing or open
// circuit falls back to local hybrid scoring, so a slow rerank
// service degrades quality, never availability.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zhagnzhenfei/industry-assistant/internal/errors"
)

// Reranker scores documents against a query. Scores align with the
// input documents by index.
type Reranker interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}

// Config configures the HTTP reranker.
type Config struct {
	// BaseURL of the rerank service.
	BaseURL string `yaml:"base_url"`

	// Model name passed through to the service.
	Model string `yaml:"model"`

	// APIKey is sent as a bearer token when set.
	APIKey string `yaml:"api_key"`

	// Timeout bounds one rerank call.
	Timeout time.Duration `yaml:"timeout"`
}

// HTTPReranker calls a jina/cohere style /rerank endpoint. A circuit
// breaker fails fast once the service keeps erroring.
type HTTPReranker struct {
	cfg     Config
	http    *http.Client
	breaker *errors.CircuitBreaker
}

var _ Reranker = (*HTTPReranker)(nil)

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// NewHTTPReranker creates a reranker from config.
func NewHTTPReranker(cfg Config) (*HTTPReranker, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New(errors.CodeConfigInvalid, "reranker requires base_url", nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPReranker{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: errors.NewCircuitBreaker("rerank", errors.WithMaxFailures(3)),
	}, nil
}

// Score implements Reranker.
func (r *HTTPReranker) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	var scores []float64
	err := r.breaker.Execute(func() error {
		body, err := json.Marshal(rerankRequest{
			Model:     r.cfg.Model,
			Query:     query,
			Documents: documents,
		})
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			r.cfg.BaseURL+"/rerank", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if r.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
		}

		resp, err := r.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("rerank service returned %s", resp.Status)
		}

		var out rerankResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return err
		}
		scores = make([]float64, len(documents))
		for _, res := range out.Results {
			if res.Index < 0 || res.Index >= len(scores) {
				return fmt.Errorf("rerank result index %d out of range", res.Index)
			}
			scores[res.Index] = res.RelevanceScore
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(errors.CodeRerankUnavailable, "rerank call failed", err).
			WithDetail("model", r.cfg.Model)
	}
	return scores, nil
}

package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhagnzhenfei/industry-assistant/internal/errors"
)

func TestHTTPRerankerScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rerank", r.URL.Path)
		require.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "test-model", req.Model)

		// Score documents in reverse order to prove index alignment.
		out := rerankResponse{}
		for i := range req.Documents {
			out.Results = append(out.Results, struct {
				Index          int     `json:"index"`
				RelevanceScore float64 `json:"relevance_score"`
			}{Index: len(req.Documents) - 1 - i, RelevanceScore: float64(i)})
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	rr, err := NewHTTPReranker(Config{BaseURL: srv.URL, Model: "test-model", APIKey: "k"})
	require.NoError(t, err)

	scores, err := rr.Score(context.Background(), "query", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1, 0}, scores)
}

func TestHTTPRerankerEmptyInput(t *testing.T) {
	rr, err := NewHTTPReranker(Config{BaseURL: "http://unused"})
	require.NoError(t, err)

	scores, err := rr.Score(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Nil(t, scores)
}

func TestHTTPRerankerFailureOpensBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	rr, err := NewHTTPReranker(Config{BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err = rr.Score(context.Background(), "q", []string{"d"})
		require.Error(t, err)
		assert.Equal(t, errors.CodeRerankUnavailable, errors.GetCode(err))
	}
	// Breaker is open now, the call fails without reaching the server.
	assert.Equal(t, errors.StateOpen, rr.breaker.State())
}

func TestNewHTTPRerankerRequiresBaseURL(t *testing.T) {
	_, err := NewHTTPReranker(Config{})
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

package search

import (
	"github.com/zhagnzhenfei/industry-assistant/internal/docstore"
)

// rerankPageLimit is the last page eligible for reranking. Pages
// beyond it are served straight from the store at the exact offset.
const rerankPageLimit = 3

// candidatePoolFloor is the minimum candidate pool fetched for
// rerank-eligible pages.
const candidatePoolFloor = 128

// Policy holds the relaxation thresholds for the single retry issued
// when a strict search returns zero hits.
type Policy struct {
	InitialMinMatch        float64
	RelaxedMinMatch        float64
	InitialSimilarityFloor float64
	RelaxedSimilarityFloor float64

	// MaxRelaxations bounds the retry count. The pipeline contract
	// is a single relaxation pass.
	MaxRelaxations int
}

// DefaultPolicy returns the standard relaxation thresholds.
func DefaultPolicy() Policy {
	return Policy{
		InitialMinMatch:        0.3,
		RelaxedMinMatch:        0.1,
		InitialSimilarityFloor: 0.1,
		RelaxedSimilarityFloor: 0.17,
		MaxRelaxations:         1,
	}
}

// SearchParams drives one raw store search.
type SearchParams struct {
	// Question is the user query. Empty means an ordered scan.
	Question string

	Indexes []string
	KBIDs   []string
	DocIDs  []string

	// Page is 1-based. PageSize defaults to TopK.
	Page     int
	PageSize int

	// TopK caps the candidate pool for both match clauses.
	TopK int

	// SimilarityFloor drops dense candidates below this cosine
	// similarity.
	SimilarityFloor float64

	// Fields to return per chunk. Defaults to the standard chunk
	// fields plus the query vector column.
	Fields []string

	// Highlight requests content and title highlights.
	Highlight bool

	// Sort orders a questionless scan by page, position and
	// recency instead of insertion order.
	Sort bool

	// RankFeature boosts chunks whose tag features overlap the
	// query tags.
	RankFeature map[string]float64
}

// SearchOutcome is the raw result of one store search.
type SearchOutcome struct {
	Total       int64
	IDs         []string
	QueryVector []float32
	Fields      map[string]map[string]any
	Highlights  map[string]string

	// Aggregations are per-document hit counts over the full match
	// set, not only the returned page.
	Aggregations []docstore.AggregationBucket

	// Keywords are the query terms plus their fine-grained
	// sub-terms, used for highlighting.
	Keywords []string
}

// RetrievalRequest drives the full retrieve-and-rerank pipeline.
type RetrievalRequest struct {
	Question string

	Indexes []string
	KBIDs   []string
	DocIDs  []string

	Page     int
	PageSize int

	// SimilarityThreshold drops reranked chunks scoring below it.
	SimilarityThreshold float64

	// VectorWeight blends vector similarity against token overlap.
	// Token weight is its complement.
	VectorWeight float64

	// TopK caps the candidate pool, default 1024.
	TopK int

	// Aggregations keeps scanning past a full page so document hit
	// counts cover every above-threshold candidate.
	Aggregations bool

	Highlight bool

	// RankFeature carries query tag weights. Nil defaults to a
	// pagerank-only boost.
	RankFeature map[string]float64
}

// Chunk is one ranked retrieval hit.
type Chunk struct {
	ID            string
	DocID         string
	DocName       string
	KBID          string
	Content       string
	ContentTokens string
	ImportantKwd  []string
	ImageID       string
	Positions     []int

	Similarity       float64
	TermSimilarity   float64
	VectorSimilarity float64

	Vector    []float32
	Highlight string
}

// DocAgg is a per-document hit count.
type DocAgg struct {
	DocName string
	DocID   string
	Count   int
}

// RetrievalResult is one ranked page plus document aggregation.
type RetrievalResult struct {
	Total   int64
	Chunks  []Chunk
	DocAggs []DocAgg
}

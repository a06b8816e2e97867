// Package docstore defines the document store contract the retrieval
// engine runs against, plus a local in-process implementation.
//
// The engine speaks to the store through match expressions: a fielded
// full-text match, a dense vector match, and a fusion directive that
// blends the two. Remote stores translate the expressions to their
// native query language; the local store executes them directly.
package docstore

import (
	"context"
	"fmt"
)

// Document field names shared between the engine and stores.
const (
	FieldID            = "id"
	FieldDocID         = "doc_id"
	FieldKBID          = "kb_id"
	FieldDocName       = "docnm_kwd"
	FieldTitleTokens   = "title_tks"
	FieldTitleFine     = "title_sm_tks"
	FieldContent       = "content_with_weight"
	FieldContentTokens = "content_ltks"
	FieldContentFine   = "content_sm_ltks"
	FieldImportantKwd  = "important_kwd"
	FieldImportantTks  = "important_tks"
	FieldQuestionTks   = "question_tks"
	FieldTagKwd        = "tag_kwd"
	FieldTagFeature    = "tag_feas"
	FieldPageRank      = "pagerank_fea"
	FieldAvailable     = "available_int"
	FieldPositions     = "position_int"
	FieldImage         = "img_id"
)

// VectorField names the dense vector column for a given embedding
// dimension.
func VectorField(dim int) string {
	return fmt.Sprintf("q_%d_vec", dim)
}

// TextMatch is a fielded full-text match expression. Text uses the
// weighted boolean syntax produced by the query builder.
type TextMatch struct {
	Fields []string
	Text   string
	TopN   int
	// MinimumShouldMatch is the fraction of clauses a document must
	// satisfy, 0 meaning any.
	MinimumShouldMatch float64
}

// DenseMatch is a nearest-neighbor match against a vector column.
type DenseMatch struct {
	Column string
	Vector []float32
	TopN   int
	// SimilarityThreshold drops candidates below this cosine
	// similarity.
	SimilarityThreshold float64
}

// Fusion blends the preceding match expressions. The only supported
// method is "weighted_sum" with one weight per expression.
type Fusion struct {
	Method  string
	Weights []float64
}

// OrderSpec is one sort key.
type OrderSpec struct {
	Field string
	Desc  bool
}

// SearchRequest is a store query. Matches holds TextMatch, DenseMatch,
// and Fusion values in order.
type SearchRequest struct {
	SelectFields    []string
	HighlightFields []string

	// Condition filters by exact field values. Values may be a
	// string or a []string of alternatives.
	Condition map[string]any

	Matches []any

	OrderBy []OrderSpec
	Offset  int
	Limit   int

	// Indexes scopes the search; KBIDs filters by knowledge base.
	Indexes []string
	KBIDs   []string

	// AggFields requests value counts over matched documents.
	AggFields []string

	// RankFeature boosts documents carrying the given tags.
	RankFeature map[string]float64
}

// AggregationBucket is one value count from an aggregation.
type AggregationBucket struct {
	Value string
	Count int64
}

// SearchResult is a store response. Field values and highlights are
// keyed by chunk ID.
type SearchResult struct {
	Total        int64
	IDs          []string
	Scores       map[string]float64
	Fields       map[string]map[string]any
	Highlights   map[string]string
	Aggregations map[string][]AggregationBucket
}

// Store is the document store contract.
type Store interface {
	// Search executes a request and returns the matching page.
	Search(ctx context.Context, req *SearchRequest) (*SearchResult, error)

	// Get fetches a single chunk by ID, nil when missing.
	Get(ctx context.Context, id string, indexes []string) (map[string]any, error)

	// Insert adds or replaces chunks in an index.
	Insert(ctx context.Context, index string, docs []map[string]any) error

	// Delete removes chunks matching the condition and returns the
	// number removed.
	Delete(ctx context.Context, index string, condition map[string]any) (int64, error)

	// Close releases store resources.
	Close() error
}
